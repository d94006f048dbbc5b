package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/docconv/internal/config"
	"github.com/bigkaa/docconv/internal/domain/model"
	"github.com/bigkaa/docconv/internal/domain/operation"
	"github.com/bigkaa/docconv/internal/service"
	"github.com/bigkaa/docconv/internal/storage/filestore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// copyCapability копирует первый вход в сырой результат.
func copyCapability(kind string) operation.CapabilityFunc {
	return func(_ context.Context, in operation.Input) (string, error) {
		data, err := os.ReadFile(in.Paths[0])
		if err != nil {
			return "", err
		}
		out := in.OutputPath(kind, ".pdf")
		return out, os.WriteFile(out, data, 0o640)
	}
}

type testEnv struct {
	handler *APIHandler
	store   *filestore.FileStore
	router  http.Handler
}

// setupHandler собирает APIHandler на тестовом реестре из двух операций.
func setupHandler(t *testing.T, maxSize int64) *testEnv {
	t.Helper()

	dir := t.TempDir()
	store, err := filestore.New(filepath.Join(dir, "uploads"), filepath.Join(dir, "outputs"), maxSize)
	if err != nil {
		t.Fatalf("Ошибка создания FileStore: %v", err)
	}
	entries := []operation.Entry{
		{
			Descriptor: model.OperationDescriptor{
				ID: "rotate_pdf", Name: "Rotate PDF", Accepts: model.CategoryPDF, Produces: model.CategoryPDF,
				Endpoint: "rotate", Suffix: "_rotated", Message: "PDF rotated successfully",
				Params: []model.ParamSpec{{Name: operation.ParamRotation, Type: model.ParamInteger, Default: "90"}},
			},
			Capability: operation.CapabilityFunc(func(ctx context.Context, in operation.Input) (string, error) {
				if in.Params.Rotation != 180 && in.Params.Rotation != 90 {
					return "", errors.New("неожиданный угол")
				}
				return copyCapability("rotated")(ctx, in)
			}),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "merge_pdfs", Name: "Merge PDFs", Accepts: model.CategoryPDF, Produces: model.CategoryPDF,
				Multiple: true, MinFiles: 2, Endpoint: "merge", Suffix: "_merged", Message: "merged",
			},
			Capability: copyCapability("merged"),
		},
	}
	registry, err := operation.NewRegistry(entries, nil, time.Second)
	if err != nil {
		t.Fatalf("Ошибка создания реестра: %v", err)
	}

	logger := testLogger()
	cache := service.NewCacheService(16, time.Hour)
	lifecycle := service.NewLifecycleService(registry, store, cache, t.TempDir(), maxSize, logger)
	catalog := service.NewCatalogService(registry)
	cfg := &config.Config{MaxUploadSize: maxSize, Retention: time.Hour}

	h := NewAPIHandler(
		lifecycle,
		service.NewDownloadService(lifecycle, logger),
		catalog,
		NewHealthHandler(store, nil, nil),
		NewSystemHandler(cfg, catalog, "pdftoppm", nil),
		maxSize,
		logger,
	)

	r := chi.NewRouter()
	r.Post("/api/convert", h.Convert)
	r.Post("/api/rotate", h.ConvertOperation("rotate_pdf"))
	r.Get("/api/download/{filename}", h.Download)
	r.Get("/api/operations", h.ListOperations)

	return &testEnv{handler: h, store: store, router: r}
}

type formFile struct {
	field, name, content string
}

// multipartBody собирает multipart-форму из полей и файлов.
func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = io.WriteString(part, f.content)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func (env *testEnv) post(t *testing.T, path string, fields map[string]string, files ...formFile) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, fields, files...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("тело ошибки не JSON: %v (%s)", err, rec.Body.String())
	}
	return e
}

func TestConvert_Success(t *testing.T) {
	env := setupHandler(t, 1<<20)

	rec := env.post(t, "/api/convert",
		map[string]string{"operation": "rotate_pdf", "rotation": "180"},
		formFile{"file", "scan.pdf", "%PDF-data"},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200: %s", rec.Code, rec.Body.String())
	}

	var resp convertResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("тело не JSON: %v", err)
	}
	if !resp.Success || resp.Filename != "scan_rotated.pdf" {
		t.Errorf("неожиданный ответ: %+v", resp)
	}
	if resp.DownloadURL != "/api/download/scan_rotated.pdf" {
		t.Errorf("download_url = %q", resp.DownloadURL)
	}
	if resp.Message != "PDF rotated successfully" {
		t.Errorf("message = %q", resp.Message)
	}

	// Результат доступен по download_url
	req := httptest.NewRequest(http.MethodGet, resp.DownloadURL, nil)
	dl := httptest.NewRecorder()
	env.router.ServeHTTP(dl, req)
	if dl.Code != http.StatusOK || dl.Body.String() != "%PDF-data" {
		t.Errorf("скачивание: статус %d, тело %q", dl.Code, dl.Body.String())
	}
}

func TestConvert_FixedEndpoint(t *testing.T) {
	env := setupHandler(t, 1<<20)

	// Поле operation отдельного endpoint игнорируется
	rec := env.post(t, "/api/rotate",
		map[string]string{"operation": "merge_pdfs"},
		formFile{"files", "a.pdf", "x"},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200: %s", rec.Code, rec.Body.String())
	}
}

func TestConvert_MultipleFilesFieldOrder(t *testing.T) {
	env := setupHandler(t, 1<<20)

	rec := env.post(t, "/api/convert",
		map[string]string{"operation": "merge_pdfs"},
		formFile{"files", "first.pdf", "1"},
		formFile{"files", "second.pdf", "2"},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200: %s", rec.Code, rec.Body.String())
	}
	var resp convertResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Filename != "first_merged.pdf" {
		t.Errorf("имя результата строится по первому файлу: %q", resp.Filename)
	}
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		files  []formFile
		status int
		code   string
	}{
		{
			name:   "нет операции",
			files:  []formFile{{"file", "a.pdf", "x"}},
			status: http.StatusBadRequest,
			code:   "INVALID_OPERATION",
		},
		{
			name:   "неизвестная операция",
			fields: map[string]string{"operation": "explode"},
			files:  []formFile{{"file", "a.pdf", "x"}},
			status: http.StatusBadRequest,
			code:   "INVALID_OPERATION",
		},
		{
			name:   "неверный тип файла",
			fields: map[string]string{"operation": "rotate_pdf"},
			files:  []formFile{{"file", "notes.txt", "x"}},
			status: http.StatusBadRequest,
			code:   "INVALID_FILE_TYPE",
		},
		{
			name:   "нет файлов",
			fields: map[string]string{"operation": "rotate_pdf"},
			status: http.StatusBadRequest,
			code:   "INVALID_PARAMETER",
		},
		{
			name:   "некорректный угол",
			fields: map[string]string{"operation": "rotate_pdf", "rotation": "45"},
			files:  []formFile{{"file", "a.pdf", "x"}},
			status: http.StatusBadRequest,
			code:   "INVALID_PARAMETER",
		},
		{
			name:   "ошибка конвертера",
			fields: map[string]string{"operation": "rotate_pdf", "rotation": "270"},
			files:  []formFile{{"file", "a.pdf", "x"}},
			status: http.StatusInternalServerError,
			code:   "CONVERSION_FAILED",
		},
		{
			name:   "файл больше лимита",
			fields: map[string]string{"operation": "rotate_pdf"},
			files:  []formFile{{"file", "a.pdf", strings.Repeat("x", 2048)}},
			status: http.StatusRequestEntityTooLarge,
			code:   "UPLOAD_TOO_LARGE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupHandler(t, 1024)

			rec := env.post(t, "/api/convert", tt.fields, tt.files...)
			if rec.Code != tt.status {
				t.Fatalf("статус = %d, ожидался %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if e := decodeError(t, rec); e.Code != tt.code || e.Error == "" {
				t.Errorf("ошибка = %+v, ожидался код %s", e, tt.code)
			}

			entries, err := os.ReadDir(env.store.OutputDir())
			if err != nil {
				t.Fatalf("ReadDir: %v", err)
			}
			if len(entries) != 0 {
				t.Errorf("при ошибке в корне результатов не должно быть файлов, найдено %d", len(entries))
			}
		})
	}
}

func TestConvert_RequestBodyTooLarge(t *testing.T) {
	env := setupHandler(t, 16)

	// Тело больше лимита запроса целиком
	big := strings.Repeat("x", 16*maxFilesPerRequest+formOverhead+1)
	rec := env.post(t, "/api/convert", map[string]string{"operation": "rotate_pdf"}, formFile{"file", "a.pdf", big})

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("статус = %d, ожидался 413", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != "UPLOAD_TOO_LARGE" {
		t.Errorf("code = %s", e.Code)
	}
}

func TestConvert_NotMultipart(t *testing.T) {
	env := setupHandler(t, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(`{"operation":"rotate_pdf"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус = %d, ожидался 400", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != "BAD_REQUEST" {
		t.Errorf("code = %s", e.Code)
	}
}

func TestDownload_NotFound(t *testing.T) {
	env := setupHandler(t, 1<<20)

	for _, path := range []string{
		"/api/download/absent.pdf",
		"/api/download/..%2Fuploads%2Fx.pdf",
		"/api/download/.hidden",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: статус = %d, ожидался 404", path, rec.Code)
			continue
		}
		if e := decodeError(t, rec); e.Code != "NOT_FOUND" {
			t.Errorf("%s: code = %s", path, e.Code)
		}
	}
}

func TestListOperations(t *testing.T) {
	env := setupHandler(t, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/api/operations", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d", rec.Code)
	}

	var resp struct {
		Operations []map[string]any `json:"operations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("тело не JSON: %v", err)
	}
	if len(resp.Operations) != 2 {
		t.Fatalf("ожидалось 2 операции, получено %d", len(resp.Operations))
	}
	first := resp.Operations[0]
	if first["id"] != "rotate_pdf" || first["accepts"] != "pdf" || first["multiple"] != false {
		t.Errorf("неожиданный дескриптор: %v", first)
	}
	if _, ok := first["Suffix"]; ok {
		t.Error("внутренние поля не должны попадать в ответ")
	}
}
