// Пакет model — доменные модели docconv.
// ResultMetadata — метаданные результата конвертации, используется
// как in-memory представление (кэш) и как формат attr.json на диске.
package model

import (
	"time"
)

// ResultMetadata — метаданные результата. Соответствует содержимому attr.json,
// который лежит рядом с файлом результата в корне выходных файлов.
type ResultMetadata struct {
	// Filename — итоговое имя файла (дескриптор для скачивания)
	Filename string `json:"filename"`

	// Operation — идентификатор выполненной операции
	Operation string `json:"operation"`

	// RequestID — уникальный идентификатор запроса (UUID v4)
	RequestID string `json:"request_id"`

	// SourceFilenames — оригинальные имена входных файлов в порядке загрузки
	SourceFilenames []string `json:"source_filenames"`

	// ContentType — MIME-тип результата
	ContentType string `json:"content_type"`

	// Size — размер результата в байтах
	Size int64 `json:"size"`

	// RequestedBy — идентификатор пользователя (из JWT sub), пусто без аутентификации
	RequestedBy string `json:"requested_by,omitempty"`

	// CreatedAt — время завершения конвертации (UTC)
	CreatedAt time.Time `json:"created_at"`
}

// ExpiresAt возвращает момент, после которого результат будет удалён очисткой.
func (m *ResultMetadata) ExpiresAt(retention time.Duration) time.Time {
	return m.CreatedAt.Add(retention)
}
