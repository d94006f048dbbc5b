package capability

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zip"
)

// archiveEntry — файл, который попадёт в zip под именем Name.
type archiveEntry struct {
	Name string
	Path string
}

// writeArchive упаковывает файлы в zip по пути out.
// При ошибке частично записанный архив удаляется.
func writeArchive(out string, entries []archiveEntry) (err error) {
	f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("создание архива: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(out)
		}
	}()

	zw := zip.NewWriter(f)
	now := time.Now()
	for _, e := range entries {
		if err := addToArchive(zw, e, now); err != nil {
			zw.Close()
			f.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("завершение архива: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("ошибка fsync архива: %w", err)
	}
	return f.Close()
}

func addToArchive(zw *zip.Writer, e archiveEntry, modified time.Time) error {
	src, err := os.Open(e.Path)
	if err != nil {
		return fmt.Errorf("архив: %w", err)
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     e.Name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("архив, запись %s: %w", e.Name, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("архив, запись %s: %w", e.Name, err)
	}
	return nil
}
