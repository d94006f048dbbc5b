// download.go — сервис скачивания результатов конвертации.
package service

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/bigkaa/docconv/internal/api/middleware"
	"github.com/bigkaa/docconv/internal/domain/operation"
)

// DownloadService — сервис скачивания результатов.
type DownloadService struct {
	lifecycle *LifecycleService
	logger    *slog.Logger
}

// NewDownloadService создаёт сервис скачивания результатов.
func NewDownloadService(lifecycle *LifecycleService, logger *slog.Logger) *DownloadService {
	return &DownloadService{
		lifecycle: lifecycle,
		logger:    logger.With(slog.String("component", "download_service")),
	}
}

// Serve отдаёт результат клиенту как вложение через http.ServeContent.
// Поддерживает Range requests (206 Partial Content) и If-Modified-Since.
// Ошибки возвращаются до записи ответа, ответ при этом не начат.
func (s *DownloadService) Serve(w http.ResponseWriter, r *http.Request, filename string) error {
	file, meta, err := s.lifecycle.Retrieve(filename)
	if err != nil {
		result := "error"
		if operation.KindOf(err) == operation.KindNotFound {
			result = "not_found"
		}
		middleware.DownloadsTotal.WithLabelValues(result).Inc()
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		s.logger.Error("Ошибка получения stat файла",
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		middleware.DownloadsTotal.WithLabelValues("error").Inc()
		return err
	}

	// FormatMediaType кодирует не-ASCII имена по RFC 2231
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": meta.Filename})
	if disposition == "" {
		disposition = "attachment"
	}

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Accept-Ranges", "bytes")
	if meta.RequestID != "" {
		w.Header().Set("X-Request-Id", meta.RequestID)
	}

	// http.ServeContent обрабатывает Range, If-Modified-Since и Content-Length
	http.ServeContent(w, r, meta.Filename, stat.ModTime(), file)

	middleware.DownloadsTotal.WithLabelValues("success").Inc()

	s.logger.Debug("Результат скачан",
		slog.String("filename", meta.Filename),
		slog.String("operation", meta.Operation),
		slog.Int64("size", stat.Size()),
	)
	return nil
}
