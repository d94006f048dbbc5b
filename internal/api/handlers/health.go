// health.go — обработчики health endpoints docconv.
// /health — статус сервиса для клиентов
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (корни хранения, зависимости, диск)
package handlers

import (
	"net/http"
	"time"

	"github.com/bigkaa/docconv/internal/config"
)

// Константы статусов health check.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// minFreeRatio — доля свободного места на диске результатов, ниже которой
// готовность считается деградированной.
const minFreeRatio = 0.05

// StorageChecker — проверка доступности корней хранения на запись.
type StorageChecker interface {
	CheckWritable() error
}

// DependencyChecker — состояние внешних зависимостей (JWKS).
type DependencyChecker interface {
	DependenciesHealthy() (ok bool, message string)
}

// DiskUsageFunc возвращает ёмкость диска в байтах.
type DiskUsageFunc func() (total, used, available int64, err error)

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	storage   StorageChecker
	deps      DependencyChecker
	diskUsage DiskUsageFunc
}

// NewHealthHandler создаёт обработчик health endpoints.
// deps и diskUsage могут быть nil — соответствующие проверки пропускаются.
func NewHealthHandler(storage StorageChecker, deps DependencyChecker, diskUsage DiskUsageFunc) *HealthHandler {
	return &HealthHandler{
		storage:   storage,
		deps:      deps,
		diskUsage: diskUsage,
	}
}

// healthCheckResult — результат одной проверки.
type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthResponse — ответ /health и /health/live.
type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// healthReadyResponse — ответ readiness probe.
type healthReadyResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
	Checks    struct {
		Storage      healthCheckResult `json:"storage"`
		Dependencies healthCheckResult `json:"dependencies"`
		Disk         healthCheckResult `json:"disk"`
	} `json:"checks"`
}

// Health — GET /health. Статус сервиса без проверки зависимостей.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Service:   config.ServiceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
	})
}

// HealthLive — liveness probe. Возвращает 200, если процесс жив.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    statusOK,
		Service:   config.ServiceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
	})
}

// HealthReady — readiness probe.
// Корни хранения недоступны на запись — fail (503).
// Недоступен JWKS или мало места на диске — degraded (200).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	resp := healthReadyResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   config.ServiceName,
	}

	resp.Checks.Storage = h.checkStorage()
	resp.Checks.Dependencies = h.checkDependencies()
	resp.Checks.Disk = h.checkDisk()

	resp.Status = overallStatus(resp.Checks.Storage.Status, resp.Checks.Dependencies.Status, resp.Checks.Disk.Status)

	status := http.StatusOK
	if resp.Status == statusFail {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *HealthHandler) checkStorage() healthCheckResult {
	if h.storage == nil {
		return healthCheckResult{Status: statusFail, Message: "не инициализировано"}
	}
	if err := h.storage.CheckWritable(); err != nil {
		return healthCheckResult{Status: statusFail, Message: err.Error()}
	}
	return healthCheckResult{Status: statusOK}
}

func (h *HealthHandler) checkDependencies() healthCheckResult {
	if h.deps == nil {
		return healthCheckResult{Status: statusOK, Message: "Проверка не настроена"}
	}
	ok, msg := h.deps.DependenciesHealthy()
	if !ok {
		return healthCheckResult{Status: statusDegraded, Message: msg}
	}
	return healthCheckResult{Status: statusOK, Message: msg}
}

func (h *HealthHandler) checkDisk() healthCheckResult {
	if h.diskUsage == nil {
		return healthCheckResult{Status: statusOK, Message: "Проверка не настроена"}
	}
	total, _, available, err := h.diskUsage()
	if err != nil {
		return healthCheckResult{Status: statusDegraded, Message: err.Error()}
	}
	if total > 0 && float64(available)/float64(total) < minFreeRatio {
		return healthCheckResult{Status: statusDegraded, Message: "Свободного места меньше 5%"}
	}
	return healthCheckResult{Status: statusOK}
}

// overallStatus определяет итоговый статус из статусов проверок.
// Если хотя бы одна проверка fail — итог fail.
// Если хотя бы одна degraded — итог degraded.
// Иначе — ok.
func overallStatus(statuses ...string) string {
	hasDegraded := false
	for _, s := range statuses {
		switch s {
		case statusFail:
			return statusFail
		case statusDegraded:
			hasDegraded = true
		}
	}
	if hasDegraded {
		return statusDegraded
	}
	return statusOK
}
