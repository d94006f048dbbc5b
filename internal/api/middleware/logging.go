// logging.go — middleware логирования входящих HTTP-запросов через slog.
// Перехватывает статус-код, размер ответа и длительность обработки.
// Обработчики конвертации дописывают в запись операцию и результат.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// responseWriter — обёртка для перехвата статус-кода ответа.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// ContextKeyConversion — ключ полей конвертации в контексте запроса.
const ContextKeyConversion contextKey = "conversion_fields"

// conversionFields — поля конвертации для записи лога HTTP-запроса.
// Заполняются обработчиком в той же горутине, что и RequestLogger.
type conversionFields struct {
	operation string
	requestID string
	filename  string
}

// AnnotateOperation добавляет идентификатор операции в лог HTTP-запроса.
// Вне RequestLogger ничего не делает.
func AnnotateOperation(ctx context.Context, operationID string) {
	if f, ok := ctx.Value(ContextKeyConversion).(*conversionFields); ok {
		f.operation = operationID
	}
}

// AnnotateResult добавляет request_id конвертации и имя результата в лог HTTP-запроса.
func AnnotateResult(ctx context.Context, requestID, filename string) {
	if f, ok := ctx.Value(ContextKeyConversion).(*conversionFields); ok {
		f.requestID = requestID
		f.filename = filename
	}
}

func (f *conversionFields) attrs() []slog.Attr {
	var attrs []slog.Attr
	if f.operation != "" {
		attrs = append(attrs, slog.String("operation", f.operation))
	}
	if f.requestID != "" {
		attrs = append(attrs, slog.String("request_id", f.requestID))
	}
	if f.filename != "" {
		attrs = append(attrs, slog.String("filename", f.filename))
	}
	return attrs
}

// RequestLogger возвращает middleware, логирующий каждый HTTP-запрос:
// метод, путь, статус, длительность, размер ответа, remote_addr и http_request_id,
// а для конвертаций и скачиваний ещё operation, request_id и filename.
// Уровень логирования зависит от статус-кода: INFO (1xx-3xx), WARN (4xx), ERROR (5xx).
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)
			fields := &conversionFields{}
			ctx := context.WithValue(r.Context(), ContextKeyConversion, fields)

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			duration := time.Since(start)

			level := slog.LevelInfo
			if wrapped.statusCode >= 500 {
				level = slog.LevelError
			} else if wrapped.statusCode >= 400 {
				level = slog.LevelWarn
			}

			attrs := append([]slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", duration),
				slog.Int64("bytes", wrapped.written),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("http_request_id", chimw.GetReqID(r.Context())),
			}, fields.attrs()...)
			logger.LogAttrs(ctx, level, "HTTP запрос", attrs...)
		})
	}
}
