// Пакет attr — чтение и запись файлов метаданных результатов (attr.json).
// Каждый опубликованный результат имеет сопутствующий *.attr.json,
// по которому после рестарта восстанавливается кэш метаданных.
// Запись выполняется атомарно: temp → fsync → rename.
package attr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bigkaa/docconv/internal/domain/model"
)

// AttrSuffix — суффикс файла метаданных.
const AttrSuffix = ".attr.json"

// maxAttrFileSize — максимальный допустимый размер attr.json (64 КБ).
// Список исходных имён при объединении может быть длинным.
const maxAttrFileSize = 64 << 10

// AttrFilePath возвращает путь к attr.json для данного файла данных.
// Пример: "/outputs/report_merged.pdf" → "/outputs/report_merged.pdf.attr.json"
func AttrFilePath(dataFilePath string) string {
	return dataFilePath + AttrSuffix
}

// DataFilePathFromAttr возвращает путь к файлу данных из пути attr.json.
// Пример: "/outputs/report_merged.pdf.attr.json" → "/outputs/report_merged.pdf"
func DataFilePathFromAttr(attrPath string) string {
	return strings.TrimSuffix(attrPath, AttrSuffix)
}

// IsAttrFile проверяет, является ли путь файлом метаданных.
func IsAttrFile(path string) bool {
	return strings.HasSuffix(path, AttrSuffix)
}

// Write атомарно записывает метаданные в attr.json файл.
// Паттерн: JSON → temp файл → fsync → atomic rename.
// Возвращает ошибку, если сериализованные данные превышают 64 КБ.
func Write(path string, meta *model.ResultMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}

	// Проверка размера для гарантии атомарности
	if len(data) > maxAttrFileSize {
		return fmt.Errorf("размер attr.json (%d байт) превышает максимум (%d байт)", len(data), maxAttrFileSize)
	}

	// Создаём директорию если не существует
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}

	// Атомарная запись: temp → fsync → rename
	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}

// Read читает и десериализует метаданные из attr.json файла.
// Возвращает ошибку, если файл не найден или содержит невалидный JSON.
func Read(path string) (*model.ResultMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения attr.json %s: %w", path, err)
	}

	var meta model.ResultMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("ошибка десериализации attr.json %s: %w", path, err)
	}

	return &meta, nil
}

// Delete удаляет attr.json файл.
// Возвращает nil если файл уже не существует.
func Delete(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления attr.json %s: %w", path, err)
	}
	return nil
}

// ScanDir сканирует директорию результатов и возвращает метаданные для прогрева кэша.
// Не рекурсивный — сканирует только указанную директорию.
//
// Пропускаются невалидные attr.json, метаданные без файла результата и
// результаты, созданные раньше notBefore (их скоро удалит очистка).
// Нулевой notBefore отключает отсев по возрасту. Filename и Size берутся
// из самого файла результата: кэш индексируется по имени на диске.
func ScanDir(dir string, notBefore time.Time) ([]*model.ResultMetadata, error) {
	pattern := filepath.Join(dir, "*"+AttrSuffix)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования директории %s: %w", dir, err)
	}

	var result []*model.ResultMetadata
	for _, path := range matches {
		meta, err := Read(path)
		if err != nil {
			// Пропускаем невалидные attr.json
			continue
		}
		dataPath := DataFilePathFromAttr(path)
		info, err := os.Lstat(dataPath)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if !notBefore.IsZero() && meta.CreatedAt.Before(notBefore) {
			continue
		}
		meta.Filename = filepath.Base(dataPath)
		meta.Size = info.Size()
		if meta.ContentType == "" {
			meta.ContentType = model.ContentTypeOf(meta.Filename)
		}
		result = append(result, meta)
	}

	return result, nil
}
