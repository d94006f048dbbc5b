// download.go — GET /api/download/{filename}: выдача результата конвертации.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/docconv/internal/api/errors"
	"github.com/bigkaa/docconv/internal/api/middleware"
	"github.com/bigkaa/docconv/internal/domain/operation"
)

// Download отдаёт опубликованный результат как вложение.
// Поддерживает Range requests (206) и If-Modified-Since (304).
func (h *APIHandler) Download(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	middleware.AnnotateResult(r.Context(), "", filename)

	if err := h.download.Serve(w, r, filename); err != nil {
		if operation.KindOf(err) == "" {
			h.logger.Error("Ошибка выдачи результата",
				slog.String("filename", filename),
				slog.String("error", err.Error()),
			)
		}
		apierrors.WriteOperationError(w, err)
	}
}
