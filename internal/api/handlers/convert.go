// convert.go — POST /api/convert и отдельные endpoints операций.
// Multipart form: operation (только для /api/convert), files или file
// (один или несколько), параметры операции.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/docconv/internal/api/errors"
	"github.com/bigkaa/docconv/internal/api/middleware"
	"github.com/bigkaa/docconv/internal/domain/operation"
	"github.com/bigkaa/docconv/internal/service"
	"github.com/bigkaa/docconv/internal/storage/filestore"
)

const (
	// maxFilesPerRequest — сколько файлов принимается в одном запросе.
	maxFilesPerRequest = 20
	// multipartMemory — часть формы, хранимая в памяти; остальное пишется во временные файлы.
	multipartMemory = 32 << 20
	// formOverhead — запас на заголовки частей и текстовые поля формы.
	formOverhead = 1 << 20
)

// Поля формы с файлами.
var fileFields = []string{"files", "file"}

// paramFields — поля формы, передаваемые операции как параметры.
var paramFields = []string{
	operation.ParamStartPage,
	operation.ParamEndPage,
	operation.ParamRotation,
	operation.ParamWatermark,
	operation.ParamPages,
}

// convertResponse — успешный ответ конвертации.
type convertResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
	RequestID   string `json:"request_id"`
}

// Convert обрабатывает POST /api/convert: операция берётся из поля operation.
func (h *APIHandler) Convert(w http.ResponseWriter, r *http.Request) {
	h.convert(w, r, "")
}

// ConvertOperation возвращает обработчик отдельного endpoint с фиксированной операцией.
func (h *APIHandler) ConvertOperation(operationID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.convert(w, r, operationID)
	}
}

func (h *APIHandler) convert(w http.ResponseWriter, r *http.Request, operationID string) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize*maxFilesPerRequest+formOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.UploadTooLarge(w, fmt.Sprintf("Размер запроса превышает %d байт", maxErr.Limit))
			return
		}
		apierrors.BadRequest(w, "Ошибка парсинга multipart: "+err.Error())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	if operationID == "" {
		operationID = r.FormValue("operation")
		if operationID == "" {
			apierrors.InvalidOperation(w, "Поле 'operation' обязательно")
			return
		}
	}

	middleware.AnnotateOperation(r.Context(), operationID)

	headers := formFiles(r.MultipartForm)
	if len(headers) > maxFilesPerRequest {
		apierrors.InvalidParameter(w, fmt.Sprintf("Не больше %d файлов в запросе, получено %d",
			maxFilesPerRequest, len(headers)))
		return
	}
	files := make([]openapi_types.File, len(headers))
	for i, fh := range headers {
		files[i].InitFromMultipart(fh)
	}

	params := make(map[string]string, len(paramFields))
	for _, name := range paramFields {
		if v := r.FormValue(name); v != "" {
			params[name] = v
		}
	}

	result, err := h.lifecycle.Submit(r.Context(), service.SubmitRequest{
		Operation: operationID,
		Files:     files,
		Params:    params,
		Subject:   middleware.SubjectFromContext(r.Context()),
	})
	if err != nil {
		h.writeSubmitError(w, operationID, err)
		return
	}
	middleware.AnnotateResult(r.Context(), result.RequestID, result.Filename)

	writeJSON(w, http.StatusOK, convertResponse{
		Success:     true,
		Message:     result.Message,
		DownloadURL: result.DownloadURL,
		Filename:    result.Filename,
		RequestID:   result.RequestID,
	})
}

// writeSubmitError переводит ошибку жизненного цикла в HTTP-ответ.
func (h *APIHandler) writeSubmitError(w http.ResponseWriter, operationID string, err error) {
	if errors.Is(err, filestore.ErrTooLarge) {
		apierrors.UploadTooLarge(w, fmt.Sprintf("Файл превышает допустимый размер %d байт", h.maxUploadSize))
		return
	}
	if operation.KindOf(err) == "" {
		h.logger.Error("Ошибка обработки запроса конвертации",
			slog.String("operation", operationID),
			slog.String("error", err.Error()),
		)
	}
	apierrors.WriteOperationError(w, err)
}

// formFiles возвращает файлы формы в порядке полей files, затем file.
func formFiles(form *multipart.Form) []*multipart.FileHeader {
	var headers []*multipart.FileHeader
	for _, field := range fileFields {
		headers = append(headers, form.File[field]...)
	}
	return headers
}
