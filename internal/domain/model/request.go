package model

// UploadedFile — один загруженный клиентом файл.
type UploadedFile struct {
	// OriginalFilename — имя файла, как его прислал клиент
	OriginalFilename string
	// SanitizedFilename — безопасное имя без путей и спецсимволов
	SanitizedFilename string
	// Category — категория по расширению
	Category Category
	// StoragePath — полный путь в корне загрузок: <upload_root>/<request_id>_<sanitized>
	StoragePath string
	// Size — размер в байтах
	Size int64
}

// Params — параметры операции после разбора и валидации.
// Незаданные необязательные параметры содержат значения по умолчанию.
type Params struct {
	StartPage int
	EndPage   int
	Rotation  int
	Watermark string
	// Pages — номера страниц (с 1) для remove_pages
	Pages []int
}

// ConversionRequest — один вызов операции.
type ConversionRequest struct {
	// Operation — идентификатор операции
	Operation string
	// Files — входные файлы в порядке загрузки
	Files []UploadedFile
	// Params — разобранные параметры
	Params Params
	// RequestID — уникальный идентификатор запроса, префикс всех его файлов
	RequestID string
	// Subject — идентификатор пользователя из JWT (пусто без аутентификации)
	Subject string
}

// Paths возвращает пути входных файлов в порядке загрузки.
func (r *ConversionRequest) Paths() []string {
	paths := make([]string, len(r.Files))
	for i, f := range r.Files {
		paths[i] = f.StoragePath
	}
	return paths
}

// ConversionResult — результат работы конвертера.
type ConversionResult struct {
	// Path — путь к сырому результату в корне выходных файлов
	Path string
	// FriendlyName — имя для клиента: <имя входа><суффикс><расширение>
	FriendlyName string
	// Exists — файл результата существует на диске
	Exists bool
	// ContentType — MIME-тип результата
	ContentType string
	// Size — размер в байтах
	Size int64
}
