// system.go — обработчик GET /api/info (информация о сервисе).
// Публичный endpoint для клиентов и мониторинга.
package handlers

import (
	"net/http"

	"github.com/bigkaa/docconv/internal/config"
	"github.com/bigkaa/docconv/internal/service"
)

// SystemHandler — обработчик системных endpoints.
type SystemHandler struct {
	cfg        *config.Config
	catalog    *service.CatalogService
	rasterizer string
	diskUsage  DiskUsageFunc
}

// NewSystemHandler создаёт обработчик системных endpoints.
// diskUsage может быть nil — ёмкость в ответе не заполняется.
func NewSystemHandler(cfg *config.Config, catalog *service.CatalogService, rasterizer string, diskUsage DiskUsageFunc) *SystemHandler {
	return &SystemHandler{
		cfg:        cfg,
		catalog:    catalog,
		rasterizer: rasterizer,
		diskUsage:  diskUsage,
	}
}

// capacityInfo — ёмкость диска корня результатов.
type capacityInfo struct {
	TotalBytes     int64 `json:"total_bytes"`
	UsedBytes      int64 `json:"used_bytes"`
	AvailableBytes int64 `json:"available_bytes"`
}

// infoResponse — ответ GET /api/info.
type infoResponse struct {
	Service             string        `json:"service"`
	Version             string        `json:"version"`
	Operations          int           `json:"operations"`
	AvailableOperations int           `json:"available_operations"`
	Rasterizer          string        `json:"rasterizer"`
	MaxUploadSize       int64         `json:"max_upload_size"`
	RetentionSeconds    int64         `json:"retention_seconds"`
	AuthEnabled         bool          `json:"auth_enabled"`
	Capacity            *capacityInfo `json:"capacity,omitempty"`
}

// GetInfo обрабатывает GET /api/info.
func (h *SystemHandler) GetInfo(w http.ResponseWriter, _ *http.Request) {
	resp := infoResponse{
		Service:             config.ServiceName,
		Version:             config.Version,
		Operations:          len(h.catalog.List()),
		AvailableOperations: h.catalog.Available(),
		Rasterizer:          h.rasterizer,
		MaxUploadSize:       h.cfg.MaxUploadSize,
		RetentionSeconds:    int64(h.cfg.Retention.Seconds()),
		AuthEnabled:         h.cfg.AuthEnabled(),
	}

	if h.diskUsage != nil {
		if total, used, available, err := h.diskUsage(); err == nil {
			resp.Capacity = &capacityInfo{
				TotalBytes:     total,
				UsedBytes:      used,
				AvailableBytes: available,
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
