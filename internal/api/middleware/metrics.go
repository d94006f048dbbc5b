// metrics.go — Prometheus метрики docconv.
// HTTP метрики: docconv_http_requests_total, docconv_http_request_duration_seconds.
// Бизнес-метрики конвертаций экспортируются для обновления из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docconv_http_requests_total",
			Help: "Общее количество HTTP-запросов к docconv",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docconv_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к docconv в секундах",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// ConversionsTotal — количество конвертаций по операциям и результату.
	// result: success или код ошибки (INVALID_FILE_TYPE, EMPTY_RESULT, ...).
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docconv_conversions_total",
			Help: "Общее количество конвертаций",
		},
		[]string{"operation", "result"},
	)

	// ConversionDuration — длительность успешных и неуспешных конвертаций.
	ConversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docconv_conversion_duration_seconds",
			Help:    "Длительность конвертации в секундах",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"operation"},
	)

	// UploadBytesTotal — объём загруженных данных.
	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docconv_upload_bytes_total",
			Help: "Общий объём загруженных файлов в байтах",
		},
	)

	// DownloadsTotal — количество скачиваний результатов.
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docconv_downloads_total",
			Help: "Общее количество скачиваний результатов",
		},
		[]string{"result"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			// Шаблон маршрута известен только после роутинга
			path := routeLabel(r)
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// routeLabel возвращает шаблон маршрута chi для лейбла метрик.
// /api/download/report.pdf → /api/download/{filename}.
// Запросы без маршрута сводятся в один лейбл, чтобы не раздувать кардинальность.
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return "unmatched"
}
