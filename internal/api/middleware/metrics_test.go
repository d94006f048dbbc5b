package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// TestRouteLabel проверяет, что лейбл метрик — шаблон маршрута chi.
func TestRouteLabel(t *testing.T) {
	var got string
	r := chi.NewRouter()
	// Лейбл считывается после роутинга, как в MetricsMiddleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			got = routeLabel(req)
		})
	})
	r.Get("/api/download/{filename}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		path string
		want string
	}{
		{"/api/download/report_merged.pdf", "/api/download/{filename}"},
		{"/no/such/path", "unmatched"},
	}
	for _, tt := range tests {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))
		if got != tt.want {
			t.Errorf("routeLabel(%s): ожидалось %q, получено %q", tt.path, tt.want, got)
		}
	}
}

// TestRouteLabel_NoRouter проверяет лейбл запроса вне chi.
func TestRouteLabel_NoRouter(t *testing.T) {
	if got := routeLabel(httptest.NewRequest(http.MethodGet, "/x", nil)); got != "unmatched" {
		t.Errorf("ожидалось unmatched, получено %q", got)
	}
}

// TestMetricsMiddleware_PassesStatus проверяет, что обёртка не меняет ответ.
func TestMetricsMiddleware_PassesStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware())
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("ожидался статус 418, получен %d", rec.Code)
	}
}

// TestRequestLogger_Levels проверяет выбор уровня логирования по статусу.
func TestRequestLogger_Levels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusBadRequest, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("ok"))
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/operations", nil))

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("лог не JSON: %v", err)
			}
			if entry["level"] != tt.level {
				t.Errorf("уровень: ожидался %s, получен %v", tt.level, entry["level"])
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("status: получено %v", entry["status"])
			}
			if entry["bytes"] != float64(2) {
				t.Errorf("bytes: получено %v", entry["bytes"])
			}
		})
	}
}

// TestRequestLogger_ConversionFields проверяет поля конвертации в записи лога.
func TestRequestLogger_ConversionFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AnnotateOperation(r.Context(), "merge_pdfs")
		AnnotateResult(r.Context(), "req-1", "report_merged.pdf")
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/merge", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("лог не JSON: %v", err)
	}
	if entry["operation"] != "merge_pdfs" {
		t.Errorf("operation: получено %v", entry["operation"])
	}
	if entry["request_id"] != "req-1" || entry["filename"] != "report_merged.pdf" {
		t.Errorf("request_id/filename: получено %v / %v", entry["request_id"], entry["filename"])
	}
}

// TestRequestLogger_NoConversionFields проверяет, что прочие запросы логируются без полей конвертации.
func TestRequestLogger_NoConversionFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("лог не JSON: %v", err)
	}
	for _, key := range []string{"operation", "request_id", "filename"} {
		if _, ok := entry[key]; ok {
			t.Errorf("поле %s не должно логироваться", key)
		}
	}
	// Вне RequestLogger аннотации ничего не делают
	AnnotateOperation(context.Background(), "merge_pdfs")
}
