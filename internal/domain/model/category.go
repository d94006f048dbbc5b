package model

import (
	"path/filepath"
	"strings"
)

// Category — категория файла, определяется по расширению.
type Category string

const (
	CategoryPDF        Category = "pdf"
	CategoryWord       Category = "word"
	CategoryText       Category = "text"
	CategoryImage      Category = "image"
	CategoryExcel      Category = "excel"
	CategoryPowerPoint Category = "powerpoint"
	// CategoryArchive — только выходной формат: zip с изображениями
	CategoryArchive Category = "archive"
	// CategoryUnknown — расширение не поддерживается
	CategoryUnknown Category = ""
)

// extensions — допустимые расширения входных файлов по категориям.
var extensions = map[Category][]string{
	CategoryPDF:        {".pdf"},
	CategoryWord:       {".doc", ".docx", ".odt", ".rtf"},
	CategoryText:       {".txt"},
	CategoryImage:      {".png", ".jpg", ".jpeg", ".bmp", ".gif", ".tif", ".tiff", ".webp"},
	CategoryExcel:      {".xls", ".xlsx", ".ods"},
	CategoryPowerPoint: {".ppt", ".pptx", ".odp"},
}

// byExtension — обратный индекс extensions.
var byExtension = func() map[string]Category {
	m := make(map[string]Category)
	for cat, exts := range extensions {
		for _, ext := range exts {
			m[ext] = cat
		}
	}
	return m
}()

// CategoryOf определяет категорию файла по расширению имени.
// Регистр расширения не учитывается.
func CategoryOf(filename string) Category {
	return byExtension[strings.ToLower(filepath.Ext(filename))]
}

// Extensions возвращает допустимые расширения категории.
func (c Category) Extensions() []string {
	exts := extensions[c]
	out := make([]string, len(exts))
	copy(out, exts)
	return out
}

// Label — человекочитаемое название категории для сообщений об ошибках.
func (c Category) Label() string {
	switch c {
	case CategoryPDF:
		return "PDF"
	case CategoryWord:
		return "Word"
	case CategoryText:
		return "текстовый файл"
	case CategoryImage:
		return "изображение"
	case CategoryExcel:
		return "Excel"
	case CategoryPowerPoint:
		return "PowerPoint"
	case CategoryArchive:
		return "ZIP-архив"
	default:
		return "неизвестный формат"
	}
}

// contentTypes — MIME-типы файлов результатов.
var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".txt":  "text/plain; charset=utf-8",
	".zip":  "application/zip",
}

// ContentTypeOf возвращает MIME-тип файла результата по расширению.
// Неизвестные расширения отдаются как application/octet-stream.
func ContentTypeOf(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}
