package operation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bigkaa/docconv/internal/domain/model"
)

// Kind — класс ошибки конвертации. Значение совпадает с кодом в API-ответе.
type Kind string

const (
	KindInvalidOperation  Kind = "INVALID_OPERATION"
	KindInvalidFileType   Kind = "INVALID_FILE_TYPE"
	KindInvalidParameter  Kind = "INVALID_PARAMETER"
	KindMissingDependency Kind = "MISSING_DEPENDENCY"
	KindConversionFailure Kind = "CONVERSION_FAILED"
	KindNotFound          Kind = "NOT_FOUND"
	KindEmptyResult       Kind = "EMPTY_RESULT"
)

// Сигнальные ошибки конвертеров. Registry превращает их в *Error нужного класса.
var (
	// ErrEmptyResult — операция выполнилась, но полезного результата нет
	ErrEmptyResult = errors.New("пустой результат")
	// ErrToolUnavailable — внешний инструмент не найден или не запускается
	ErrToolUnavailable = errors.New("внешний инструмент недоступен")
	// ErrTimeout — внешний процесс не уложился в таймаут
	ErrTimeout = errors.New("превышен таймаут конвертации")
)

// Error — типизированная ошибка операции.
// Message показывается клиенту, Err хранит внутреннюю причину для логов.
type Error struct {
	Kind      Kind
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Operation != "" {
		b.WriteString(e.Operation)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf возвращает класс ошибки или пустую строку, если это не *Error.
func KindOf(err error) Kind {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return ""
}

// InvalidOperation — неизвестный идентификатор операции.
func InvalidOperation(id string) *Error {
	return &Error{
		Kind:      KindInvalidOperation,
		Operation: id,
		Message:   fmt.Sprintf("неизвестная операция %q", id),
	}
}

// InvalidFileType — категория файла не подходит операции.
func InvalidFileType(id, filename string, expected model.Category) *Error {
	return &Error{
		Kind:      KindInvalidFileType,
		Operation: id,
		Message: fmt.Sprintf("файл %q: ожидается %s (%s)",
			filename, expected.Label(), strings.Join(expected.Extensions(), ", ")),
	}
}

// InvalidParameter — параметр отсутствует или некорректен.
func InvalidParameter(name, reason string) *Error {
	return &Error{
		Kind:    KindInvalidParameter,
		Message: fmt.Sprintf("параметр %s: %s", name, reason),
	}
}

// EmptyResult — операция выполнилась, но результата нет.
func EmptyResult(reason string) *Error {
	return &Error{
		Kind:    KindEmptyResult,
		Message: reason,
	}
}

// NotFound — запрошенный файл не найден.
func NotFound(filename string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("файл %q не найден", filename),
	}
}

// classify превращает ошибку конвертера в *Error операции id.
func classify(id string, err error) *Error {
	var opErr *Error
	if errors.As(err, &opErr) {
		if opErr.Operation == "" {
			opErr.Operation = id
		}
		return opErr
	}

	switch {
	case errors.Is(err, ErrEmptyResult):
		return &Error{Kind: KindEmptyResult, Operation: id, Message: "операция не дала результата", Err: err}
	case errors.Is(err, ErrToolUnavailable):
		return &Error{Kind: KindMissingDependency, Operation: id, Message: err.Error(), Err: err}
	case errors.Is(err, ErrTimeout):
		return &Error{Kind: KindConversionFailure, Operation: id, Message: ErrTimeout.Error(), Err: err}
	default:
		return &Error{Kind: KindConversionFailure, Operation: id, Message: "ошибка конвертации: " + err.Error(), Err: err}
	}
}
