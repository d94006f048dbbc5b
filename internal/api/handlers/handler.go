// handler.go — APIHandler объединяет HTTP-обработчики docconv
// и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bigkaa/docconv/internal/service"
)

// APIHandler — основной обработчик API docconv.
type APIHandler struct {
	lifecycle *service.LifecycleService
	download  *service.DownloadService
	catalog   *service.CatalogService
	health    *HealthHandler
	system    *SystemHandler
	// maxUploadSize — лимит одного файла, из него выводится лимит тела запроса
	maxUploadSize int64
	logger        *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	lifecycle *service.LifecycleService,
	download *service.DownloadService,
	catalog *service.CatalogService,
	health *HealthHandler,
	system *SystemHandler,
	maxUploadSize int64,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		lifecycle:     lifecycle,
		download:      download,
		catalog:       catalog,
		health:        health,
		system:        system,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// Catalog возвращает каталог операций (для построения маршрутов).
func (h *APIHandler) Catalog() *service.CatalogService {
	return h.catalog
}

// --- Health и системные endpoints (делегируются) ---

// Health — GET /health.
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.health.Health(w, r)
}

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetInfo — GET /api/info.
func (h *APIHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	h.system.GetInfo(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
