// Пакет errors — конструкторы ответов с ошибками docconv.
// Единый формат: {"error": "<сообщение>", "code": "<КОД>"}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // имя пакета совпадает со stdlib, импортируется как apierrors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/bigkaa/docconv/internal/domain/operation"
)

// Коды ошибок, не относящиеся к операциям конвертации.
// Коды операций совпадают со значениями operation.Kind.
const (
	CodeUploadTooLarge = "UPLOAD_TOO_LARGE"
	CodeBadRequest     = "BAD_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeInternalError  = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: message,
		Code:  code,
	})
}

// StatusForKind возвращает HTTP статус для класса ошибки операции.
func StatusForKind(kind operation.Kind) int {
	switch kind {
	case operation.KindInvalidOperation, operation.KindInvalidFileType, operation.KindInvalidParameter:
		return http.StatusBadRequest
	case operation.KindNotFound:
		return http.StatusNotFound
	case operation.KindEmptyResult:
		return http.StatusUnprocessableEntity
	case operation.KindMissingDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteOperationError записывает ошибку операции. Ошибки, не являющиеся
// *operation.Error, отдаются как 500 без внутренних подробностей.
func WriteOperationError(w http.ResponseWriter, err error) {
	var opErr *operation.Error
	if !stderrors.As(err, &opErr) {
		InternalError(w, "Внутренняя ошибка сервера")
		return
	}
	WriteError(w, StatusForKind(opErr.Kind), string(opErr.Kind), opErr.Message)
}

// --- Конструкторы для типичных ошибок ---

// BadRequest — 400 запрос не удалось разобрать.
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeBadRequest, message)
}

// InvalidOperation — 400 неизвестная или не указанная операция.
func InvalidOperation(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, string(operation.KindInvalidOperation), message)
}

// InvalidParameter — 400 некорректный параметр или набор файлов.
func InvalidParameter(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, string(operation.KindInvalidParameter), message)
}

// NotFound — 404 файл результата не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, string(operation.KindNotFound), message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// UploadTooLarge — 413 загрузка превышает лимит.
func UploadTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodeUploadTooLarge, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
