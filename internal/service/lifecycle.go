// lifecycle.go — жизненный цикл запроса конвертации: проверка, сохранение
// загрузок, выполнение операции, публикация результата и его выдача.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/bigkaa/docconv/internal/api/middleware"
	"github.com/bigkaa/docconv/internal/domain/model"
	"github.com/bigkaa/docconv/internal/domain/operation"
	"github.com/bigkaa/docconv/internal/storage/attr"
	"github.com/bigkaa/docconv/internal/storage/filestore"
)

// DownloadPrefix — префикс URL скачивания результата.
const DownloadPrefix = "/api/download/"

// SubmitRequest — параметры запроса конвертации.
type SubmitRequest struct {
	// Operation — идентификатор операции
	Operation string
	// Files — входные файлы в порядке загрузки (multipart или байты CLI)
	Files []openapi_types.File
	// Params — сырые значения параметров операции
	Params map[string]string
	// Subject — идентификатор пользователя (sub из JWT), пусто без аутентификации
	Subject string
}

// SubmitResult — результат успешной конвертации.
type SubmitResult struct {
	RequestID   string
	Filename    string
	DownloadURL string
	Message     string
	Metadata    *model.ResultMetadata
}

// LifecycleService — сервис жизненного цикла запроса.
type LifecycleService struct {
	registry *operation.Registry
	store    *filestore.FileStore
	cache    *CacheService
	workDir  string
	maxSize  int64
	logger   *slog.Logger
}

// NewLifecycleService создаёт сервис жизненного цикла.
func NewLifecycleService(
	registry *operation.Registry,
	store *filestore.FileStore,
	cache *CacheService,
	workDir string,
	maxSize int64,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		registry: registry,
		store:    store,
		cache:    cache,
		workDir:  workDir,
		maxSize:  maxSize,
		logger:   logger.With(slog.String("component", "lifecycle")),
	}
}

// Submit выполняет запрос конвертации.
//
// Поток:
//  1. Проверка операции, числа файлов, категорий и параметров (до записи на диск)
//  2. Генерация request_id, сохранение загрузок <upload_root>/<id>_<имя>
//  3. Выполнение операции через реестр
//  4. Публикация результата под именем <имя входа><суффикс><расширение>
//  5. Запись attr.json, кэш метаданных
//
// Ошибки операции возвращаются как *operation.Error, превышение размера
// загрузки — как filestore.ErrTooLarge.
func (s *LifecycleService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	start := time.Now()

	// 1. Проверка до записи файлов
	names := make([]string, len(req.Files))
	for i := range req.Files {
		names[i] = filestore.SanitizeFilename(req.Files[i].Filename())
	}
	entry, params, err := s.registry.Validate(req.Operation, names, req.Params)
	if err != nil {
		s.recordFailure(req.Operation, err, start)
		return nil, err
	}
	for i := range req.Files {
		if size := req.Files[i].FileSize(); size > s.maxSize {
			err := fmt.Errorf("%w: %s (%d байт, максимум %d)",
				filestore.ErrTooLarge, names[i], size, s.maxSize)
			s.recordFailure(req.Operation, err, start)
			return nil, err
		}
	}
	d := entry.Descriptor

	// 2. Сохранение загрузок
	requestID := uuid.New().String()
	files, err := s.saveUploads(requestID, req.Files)
	if err != nil {
		s.recordFailure(d.ID, err, start)
		return nil, err
	}

	// 3. Выполнение операции
	creq := &model.ConversionRequest{
		Operation: d.ID,
		Files:     files,
		Params:    params,
		RequestID: requestID,
		Subject:   req.Subject,
	}
	raw, err := s.registry.Execute(ctx, creq, s.store.OutputDir(), s.workDir)
	if err != nil {
		s.removeRaw(requestID)
		s.recordFailure(d.ID, err, start)
		s.logger.Warn("Конвертация не выполнена",
			slog.String("request_id", requestID),
			slog.String("operation", d.ID),
			slog.String("kind", string(operation.KindOf(err))),
			slog.String("error", errorChain(err)),
		)
		return nil, err
	}

	// 4. Публикация
	base := strings.TrimSuffix(files[0].SanitizedFilename, filepath.Ext(files[0].SanitizedFilename))
	filename, err := s.store.Publish(raw, base, d.Suffix)
	if err != nil {
		s.removeRaw(requestID)
		err = &operation.Error{
			Kind:      operation.KindConversionFailure,
			Operation: d.ID,
			Message:   "не удалось сохранить результат",
			Err:       err,
		}
		s.recordFailure(d.ID, err, start)
		return nil, err
	}

	// 5. Метаданные
	path := filepath.Join(s.store.OutputDir(), filename)
	var size int64
	if info, statErr := os.Stat(path); statErr == nil {
		size = info.Size()
	}
	sources := make([]string, len(files))
	for i, f := range files {
		sources[i] = f.OriginalFilename
	}
	meta := &model.ResultMetadata{
		Filename:        filename,
		Operation:       d.ID,
		RequestID:       requestID,
		SourceFilenames: sources,
		ContentType:     model.ContentTypeOf(filename),
		Size:            size,
		RequestedBy:     req.Subject,
		CreatedAt:       time.Now().UTC(),
	}
	if err := attr.Write(attr.AttrFilePath(path), meta); err != nil {
		// Результат уже опубликован и доступен, метаданные восстановимы из файла
		s.logger.Warn("Ошибка записи attr.json",
			slog.String("request_id", requestID),
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
	}
	s.cache.Set(filename, meta)

	middleware.ConversionsTotal.WithLabelValues(d.ID, "success").Inc()
	middleware.ConversionDuration.WithLabelValues(d.ID).Observe(time.Since(start).Seconds())

	s.logger.Info("Конвертация выполнена",
		slog.String("request_id", requestID),
		slog.String("operation", d.ID),
		slog.String("filename", filename),
		slog.Int("files", len(files)),
		slog.Int64("size", size),
		slog.String("requested_by", req.Subject),
		slog.Duration("duration", time.Since(start)),
	)

	return &SubmitResult{
		RequestID:   requestID,
		Filename:    filename,
		DownloadURL: DownloadPrefix + filename,
		Message:     d.Message,
		Metadata:    meta,
	}, nil
}

// saveUploads сохраняет входные файлы в корень загрузок.
// При ошибке уже сохранённые файлы запроса удаляются.
func (s *LifecycleService) saveUploads(requestID string, uploads []openapi_types.File) ([]model.UploadedFile, error) {
	files := make([]model.UploadedFile, 0, len(uploads))
	used := make(map[string]bool, len(uploads))
	cleanup := func() {
		for _, f := range files {
			_ = s.store.Remove(f.StoragePath)
		}
	}

	for i := range uploads {
		u := &uploads[i]
		reader, err := u.Reader()
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("чтение загрузки %s: %w", u.Filename(), err)
		}
		// Совпадающие итоговые имена в одном запросе различаются номером файла
		sanitized := filestore.SanitizeFilename(u.Filename())
		prefix := requestID
		for n := i; used[prefix+"_"+sanitized]; n++ {
			prefix = fmt.Sprintf("%s_%d", requestID, n)
		}
		used[prefix+"_"+sanitized] = true
		saved, err := s.store.SaveUpload(reader, prefix, u.Filename())
		reader.Close()
		if err != nil {
			cleanup()
			if errors.Is(err, filestore.ErrTooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("сохранение загрузки %s: %w", u.Filename(), err)
		}
		middleware.UploadBytesTotal.Add(float64(saved.Size))

		files = append(files, model.UploadedFile{
			OriginalFilename:  u.Filename(),
			SanitizedFilename: saved.SanitizedName,
			Category:          model.CategoryOf(saved.SanitizedName),
			StoragePath:       saved.FullPath,
			Size:              saved.Size,
		})

		s.logger.Debug("Загрузка сохранена",
			slog.String("request_id", requestID),
			slog.String("filename", saved.SanitizedName),
			slog.Int64("size", saved.Size),
			slog.String("checksum", saved.Checksum),
		)
	}
	return files, nil
}

// removeRaw удаляет сырые результаты запроса из корня результатов.
func (s *LifecycleService) removeRaw(requestID string) {
	matches, err := filepath.Glob(filepath.Join(s.store.OutputDir(), requestID+"_*"))
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.RemoveAll(m); err != nil {
			s.logger.Warn("Не удалось удалить сырой результат",
				slog.String("path", m),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *LifecycleService) recordFailure(op string, err error, start time.Time) {
	result := string(operation.KindOf(err))
	switch {
	case result != "":
	case errors.Is(err, filestore.ErrTooLarge):
		result = "UPLOAD_TOO_LARGE"
	default:
		result = "INTERNAL_ERROR"
	}
	if _, lookupErr := s.registry.Lookup(op); lookupErr != nil {
		// Неизвестные id не попадают в лейблы метрик
		op = "unknown"
	}
	middleware.ConversionsTotal.WithLabelValues(op, result).Inc()
	middleware.ConversionDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Retrieve открывает опубликованный результат и возвращает его метаданные.
// Имена с путями, скрытые и служебные файлы, а также отсутствующие
// результаты дают ошибку NOT_FOUND. Вызывающий код обязан закрыть файл.
func (s *LifecycleService) Retrieve(filename string) (*os.File, *model.ResultMetadata, error) {
	f, info, err := s.store.OpenResult(filename)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) || errors.Is(err, filestore.ErrInvalidName) {
			return nil, nil, &operation.Error{Kind: operation.KindNotFound,
				Message: operation.NotFound(filename).Message, Err: err}
		}
		return nil, nil, err
	}

	if meta, ok := s.cache.Get(filename); ok {
		return f, meta, nil
	}

	meta, err := attr.Read(attr.AttrFilePath(f.Name()))
	if err != nil {
		// attr.json нет (или повреждён): метаданные по самому файлу
		meta = &model.ResultMetadata{
			Filename:    filename,
			ContentType: model.ContentTypeOf(filename),
			Size:        info.Size(),
			CreatedAt:   info.ModTime().UTC(),
		}
		return f, meta, nil
	}
	// Закэшированный указатель читают параллельные запросы, менять его после Set нельзя
	meta.Size = info.Size()
	s.cache.Set(filename, meta)
	return f, meta, nil
}

// errorChain возвращает текст ошибки вместе с внутренней причиной.
func errorChain(err error) string {
	var opErr *operation.Error
	if errors.As(err, &opErr) && opErr.Err != nil {
		return opErr.Error() + ": " + opErr.Err.Error()
	}
	return err.Error()
}
