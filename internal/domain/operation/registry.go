// Пакет operation — реестр операций конвертации.
// Реестр — единственный источник истины: по нему строится список
// дескрипторов для клиентов и по нему же выполняется диспетчеризация.
package operation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bigkaa/docconv/internal/domain/model"
)

// Tool — внешний инструмент, без которого операция не может работать.
type Tool string

// Input — входные данные конвертера.
type Input struct {
	// Paths — входные файлы в порядке загрузки
	Paths []string
	// OutputDir — корень выходных файлов, результат создаётся только здесь
	OutputDir string
	// WorkDir — директория для временных файлов конвертера
	WorkDir string
	// RequestID — префикс имени сырого результата
	RequestID string
	Params    model.Params
}

// OutputPath возвращает путь сырого результата: <OutputDir>/<RequestID>_<kind><ext>.
func (in Input) OutputPath(kind, ext string) string {
	return filepath.Join(in.OutputDir, in.RequestID+"_"+kind+ext)
}

// Capability — одна операция конвертации. Реализации не хранят состояния
// между вызовами и возвращают путь созданного файла.
type Capability interface {
	Execute(ctx context.Context, in Input) (string, error)
}

// CapabilityFunc позволяет использовать функцию как Capability.
type CapabilityFunc func(ctx context.Context, in Input) (string, error)

// Execute вызывает f(ctx, in).
func (f CapabilityFunc) Execute(ctx context.Context, in Input) (string, error) {
	return f(ctx, in)
}

// Entry — запись реестра: описание операции, нужные инструменты и реализация.
type Entry struct {
	Descriptor model.OperationDescriptor
	Requires   []Tool
	Capability Capability
}

// Registry — неизменяемое после создания отображение id операции → Entry.
// Безопасен для конкурентного использования.
type Registry struct {
	entries   map[string]*Entry
	order     []string
	available map[Tool]bool
	timeout   time.Duration
}

// NewRegistry создаёт реестр. available — результат проверки инструментов
// при старте, timeout — ограничение на одно выполнение (0 — без ограничения).
func NewRegistry(entries []Entry, available map[Tool]bool, timeout time.Duration) (*Registry, error) {
	r := &Registry{
		entries:   make(map[string]*Entry, len(entries)),
		available: make(map[Tool]bool, len(available)),
		timeout:   timeout,
	}
	for t, ok := range available {
		r.available[t] = ok
	}

	for i := range entries {
		e := entries[i]
		id := e.Descriptor.ID
		if id == "" {
			return nil, fmt.Errorf("операция #%d: пустой идентификатор", i)
		}
		if _, dup := r.entries[id]; dup {
			return nil, fmt.Errorf("операция %s: повторная регистрация", id)
		}
		if e.Capability == nil {
			return nil, fmt.Errorf("операция %s: не задана реализация", id)
		}
		if e.Descriptor.MinFiles < 1 {
			e.Descriptor.MinFiles = 1
		}
		e.Descriptor.Available = r.toolsAvailable(e.Requires)
		r.entries[id] = &e
		r.order = append(r.order, id)
	}
	return r, nil
}

func (r *Registry) toolsAvailable(tools []Tool) bool {
	for _, t := range tools {
		if !r.available[t] {
			return false
		}
	}
	return true
}

// Lookup возвращает запись операции или ошибку INVALID_OPERATION.
func (r *Registry) Lookup(id string) (*Entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, InvalidOperation(id)
	}
	return e, nil
}

// Descriptors возвращает копии дескрипторов в порядке регистрации.
func (r *Registry) Descriptors() []model.OperationDescriptor {
	out := make([]model.OperationDescriptor, 0, len(r.order))
	for _, id := range r.order {
		d := r.entries[id].Descriptor
		d.Params = append([]model.ParamSpec(nil), d.Params...)
		out = append(out, d)
	}
	return out
}

// Validate проверяет запрос до записи файлов на диск: операцию, число файлов,
// категорию каждого файла и параметры. Возвращает запись и разобранные параметры.
func (r *Registry) Validate(id string, filenames []string, raw map[string]string) (*Entry, model.Params, error) {
	e, err := r.Lookup(id)
	if err != nil {
		return nil, model.Params{}, err
	}
	d := &e.Descriptor

	if err := checkFileCount(d, len(filenames)); err != nil {
		return nil, model.Params{}, err
	}
	for _, name := range filenames {
		if model.CategoryOf(name) != d.Accepts {
			return nil, model.Params{}, InvalidFileType(id, name, d.Accepts)
		}
	}

	params, err := ParseParams(d.Params, raw)
	if err != nil {
		return nil, model.Params{}, classify(id, err)
	}
	return e, params, nil
}

func checkFileCount(d *model.OperationDescriptor, n int) error {
	switch {
	case n == 0:
		return &Error{Kind: KindInvalidParameter, Operation: d.ID, Message: "не передано ни одного файла"}
	case !d.Multiple && n > 1:
		return &Error{Kind: KindInvalidParameter, Operation: d.ID,
			Message: fmt.Sprintf("операция принимает один файл, получено %d", n)}
	case n < d.MinFiles:
		return &Error{Kind: KindInvalidParameter, Operation: d.ID,
			Message: fmt.Sprintf("нужно не меньше %d файлов, получено %d", d.MinFiles, n)}
	}
	return nil
}

// Execute выполняет операцию запроса. Результат всегда создаётся внутри outputDir.
// Любая ошибка возвращается как *Error.
func (r *Registry) Execute(ctx context.Context, req *model.ConversionRequest, outputDir, workDir string) (string, error) {
	e, err := r.Lookup(req.Operation)
	if err != nil {
		return "", err
	}
	d := &e.Descriptor

	if err := checkFileCount(d, len(req.Files)); err != nil {
		return "", err
	}
	for _, f := range req.Files {
		if f.Category != d.Accepts {
			return "", InvalidFileType(d.ID, f.OriginalFilename, d.Accepts)
		}
	}
	if !d.Available {
		return "", &Error{
			Kind:      KindMissingDependency,
			Operation: d.ID,
			Message:   "операция недоступна: " + strings.Join(r.missingTools(e.Requires), ", ") + " не найдены",
		}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	in := Input{
		Paths:     req.Paths(),
		OutputDir: outputDir,
		WorkDir:   workDir,
		RequestID: req.RequestID,
		Params:    req.Params,
	}
	out, err := e.Capability.Execute(ctx, in)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return "", classify(d.ID, err)
	}

	if err := checkOutput(outputDir, out); err != nil {
		return "", classify(d.ID, err)
	}
	return out, nil
}

func (r *Registry) missingTools(tools []Tool) []string {
	var missing []string
	for _, t := range tools {
		if !r.available[t] {
			missing = append(missing, string(t))
		}
	}
	return missing
}

// checkOutput проверяет, что конвертер создал непустой файл внутри outputDir.
func checkOutput(outputDir, path string) error {
	if path == "" {
		return ErrEmptyResult
	}
	rel, err := filepath.Rel(filepath.Clean(outputDir), filepath.Clean(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		return fmt.Errorf("результат %s вне корня выходных файлов", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("результат не создан: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("результат %s не является обычным файлом", path)
	}
	if info.Size() == 0 {
		return ErrEmptyResult
	}
	return nil
}
