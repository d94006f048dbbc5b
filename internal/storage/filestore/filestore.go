// Пакет filestore — операции с физическими файлами на диске.
// Два корня: загрузки и результаты. Загрузки пишутся потоково с подсчётом
// SHA-256 на лету, результаты публикуются под понятными именами,
// чтение результатов защищено от выхода за пределы корня.
package filestore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/bigkaa/docconv/internal/storage/attr"
)

var (
	// ErrNotFound — файл результата не найден
	ErrNotFound = errors.New("файл не найден")
	// ErrInvalidName — имя файла недопустимо (путь, скрытый файл, служебный файл)
	ErrInvalidName = errors.New("недопустимое имя файла")
	// ErrTooLarge — загружаемый файл больше допустимого размера
	ErrTooLarge = errors.New("файл превышает допустимый размер")
	// ErrExists — файл загрузки с таким именем уже существует
	ErrExists = errors.New("файл уже существует")
)

// maxNameLen — ограничение длины очищенного имени (без расширения) в символах.
const maxNameLen = 100

// maxPublishAttempts — сколько суффиксов _N перебирается при публикации результата.
const maxPublishAttempts = 10000

// FileStore — управление файлами в корнях загрузок и результатов.
type FileStore struct {
	// uploadDir — корень загрузок (DC_UPLOAD_DIR)
	uploadDir string
	// outputDir — корень результатов (DC_OUTPUT_DIR)
	outputDir string
	// maxSize — максимальный размер одной загрузки
	maxSize int64

	// publishMu сериализует выбор имени и rename, чтобы параллельные
	// запросы не получили одно и то же имя результата.
	publishMu sync.Mutex
}

// SaveResult — результат сохранения загрузки на диск.
type SaveResult struct {
	// SanitizedName — очищенное имя файла без префикса запроса
	SanitizedName string
	// FullPath — путь файла на диске: <upload_root>/<request_id>_<sanitized>
	FullPath string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 хэш содержимого файла
	Checksum string
}

// New создаёт FileStore. Создаёт директории корней, если их нет.
func New(uploadDir, outputDir string, maxSize int64) (*FileStore, error) {
	for _, dir := range []string{uploadDir, outputDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
		}
	}
	return &FileStore{uploadDir: uploadDir, outputDir: outputDir, maxSize: maxSize}, nil
}

// UploadDir возвращает корень загрузок.
func (fs *FileStore) UploadDir() string { return fs.uploadDir }

// OutputDir возвращает корень результатов.
func (fs *FileStore) OutputDir() string { return fs.outputDir }

// Roots возвращает оба корня хранения.
func (fs *FileStore) Roots() []string {
	return []string{fs.uploadDir, fs.outputDir}
}

// SaveUpload записывает данные из reader как <upload_root>/<requestID>_<sanitized>.
// Данные больше maxSize не сохраняются (ErrTooLarge).
//
// Паттерн: temp файл → запись + SHA-256 → fsync → link на итоговое имя.
// Существующий файл не перезаписывается (ErrExists). Temp файл удаляется всегда.
func (fs *FileStore) SaveUpload(reader io.Reader, requestID, originalFilename string) (*SaveResult, error) {
	sanitized := SanitizeFilename(originalFilename)
	fullPath := filepath.Join(fs.uploadDir, requestID+"_"+sanitized)
	tmpPath := fullPath + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	// Streaming запись с одновременным подсчётом SHA-256.
	// Читаем на байт больше лимита, чтобы отличить "ровно лимит" от превышения.
	hasher := sha256.New()
	tee := io.TeeReader(io.LimitReader(reader, fs.maxSize+1), hasher)

	size, err := io.Copy(f, tee)
	if err == nil && size > fs.maxSize {
		err = fmt.Errorf("%w: %s больше %d байт", ErrTooLarge, sanitized, fs.maxSize)
	}
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарная публикация через hard link: занятое имя не перезаписывается
	err = os.Link(tmpPath, fullPath)
	os.Remove(tmpPath)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrExists, filepath.Base(fullPath))
		}
		return nil, fmt.Errorf("ошибка публикации загрузки: %w", err)
	}

	return &SaveResult{
		SanitizedName: sanitized,
		FullPath:      fullPath,
		Size:          size,
		Checksum:      hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Publish переименовывает сырой результат в <base><suffix><ext> в корне результатов.
// При занятом имени добавляется счётчик: <base><suffix>_1<ext>, _2 и т.д.
// Возвращает итоговое имя файла (дескриптор для скачивания).
func (fs *FileStore) Publish(rawPath, base, suffix string) (string, error) {
	if !fs.inOutputRoot(rawPath) {
		return "", fmt.Errorf("%w: %s вне корня результатов", ErrInvalidName, rawPath)
	}
	ext := strings.ToLower(filepath.Ext(rawPath))
	base = sanitizeName(base)

	fs.publishMu.Lock()
	defer fs.publishMu.Unlock()

	for i := 0; i < maxPublishAttempts; i++ {
		name := base + suffix + ext
		if i > 0 {
			name = fmt.Sprintf("%s%s_%d%s", base, suffix, i, ext)
		}
		target := filepath.Join(fs.outputDir, name)

		taken, err := exists(target)
		if err != nil {
			return "", err
		}
		if !taken {
			// Осиротевший attr.json тоже занимает имя
			taken, err = exists(attr.AttrFilePath(target))
			if err != nil {
				return "", err
			}
		}
		if taken {
			continue
		}

		if err := os.Rename(rawPath, target); err != nil {
			return "", fmt.Errorf("ошибка публикации результата: %w", err)
		}
		return name, nil
	}
	return "", fmt.Errorf("не удалось подобрать свободное имя для %s%s%s", base, suffix, ext)
}

func exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("ошибка проверки %s: %w", path, err)
	}
}

// ResultPath проверяет имя результата и возвращает его путь в корне результатов.
func (fs *FileStore) ResultPath(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	path := filepath.Join(fs.outputDir, name)
	if !fs.inOutputRoot(path) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return path, nil
}

// OpenResult открывает файл результата для чтения.
// Симлинки, директории и служебные файлы не отдаются (ErrNotFound / ErrInvalidName).
// Вызывающий код обязан закрыть файл.
func (fs *FileStore) OpenResult(name string) (*os.File, os.FileInfo, error) {
	path, err := fs.ResultPath(name)
	if err != nil {
		return nil, nil, err
	}

	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, nil, fmt.Errorf("ошибка получения информации о файле %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, nil, fmt.Errorf("ошибка открытия файла %s: %w", name, err)
	}
	return f, info, nil
}

// Remove удаляет файл. Возвращает nil, если файла уже нет.
func (fs *FileStore) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", path, err)
	}
	return nil
}

// CheckWritable проверяет, что в оба корня можно писать.
// Используется readiness probe.
func (fs *FileStore) CheckWritable() error {
	for _, dir := range fs.Roots() {
		f, err := os.CreateTemp(dir, ".probe-*")
		if err != nil {
			return fmt.Errorf("директория %s недоступна для записи: %w", dir, err)
		}
		name := f.Name()
		f.Close()
		os.Remove(name)
	}
	return nil
}

// inOutputRoot проверяет, что path лежит непосредственно в корне результатов.
func (fs *FileStore) inOutputRoot(path string) bool {
	root, err := filepath.Abs(fs.outputDir)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return filepath.Dir(abs) == root
}

// ValidateName проверяет имя файла результата, полученное от клиента.
// Допускается только простое имя без путей, не скрытое и не служебное.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q содержит разделитель пути", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case attr.IsAttrFile(name), strings.HasSuffix(name, ".tmp"):
		return fmt.Errorf("%w: служебный файл %q", ErrInvalidName, name)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: некорректная кодировка", ErrInvalidName)
	}
	return nil
}

// SanitizeFilename возвращает безопасное имя файла: без директорий,
// из букв, цифр, дефиса и подчёркивания, с расширением в нижнем регистре.
// Пробелы заменяются на подчёркивание. Пример: "../Мой отчёт.PDF" → "Мой_отчёт.pdf".
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return sanitizeName(base) + sanitizeExt(ext)
}

// sanitizeName убирает небезопасные символы из имени без расширения.
// Оставляет только буквы, цифры, дефис и подчёркивание.
func sanitizeName(s string) string {
	var result strings.Builder
	n := 0
	for _, r := range s {
		if n >= maxNameLen {
			break
		}
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			result.WriteRune(r)
			n++
		case unicode.IsSpace(r):
			result.WriteRune('_')
			n++
		}
	}
	out := strings.Trim(result.String(), "_")
	if out == "" {
		return "file"
	}
	return out
}

// sanitizeExt оставляет в расширении только латинские буквы и цифры.
func sanitizeExt(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	var result strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return ""
	}
	return "." + result.String()
}
