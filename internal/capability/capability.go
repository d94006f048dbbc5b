// Пакет capability — реализации операций конвертации поверх сторонних
// библиотек (pdfcpu, ledongthuc/pdf, fpdf, excelize, MuPDF) и внешних
// процессов (LibreOffice, pdftoppm).
//
// Каждая операция — функция без состояния: входные пути и параметры
// на входе, путь к одному файлу в корне выходных файлов на выходе.
package capability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/bigkaa/docconv/internal/domain/operation"
)

// Внешние инструменты, наличие которых проверяется при старте.
const (
	// ToolOffice — LibreOffice (soffice) для офисных форматов
	ToolOffice operation.Tool = "libreoffice"
	// ToolRasterizer — растеризатор страниц PDF (pdftoppm или MuPDF)
	ToolRasterizer operation.Tool = "rasterizer"
)

// Options — настройки конвертеров.
type Options struct {
	// SofficeBin — путь или имя бинарника LibreOffice
	SofficeBin string
	// PdftoppmBin — путь или имя бинарника pdftoppm
	PdftoppmBin string
	// OfficeTimeout — таймаут одного запуска LibreOffice
	OfficeTimeout time.Duration
	// FontPath — TTF-шрифт с поддержкой Unicode для text_to_pdf и repair_pdf.
	// Без него используется встроенный Helvetica (только cp1252).
	FontPath string
}

var disableConfigDir sync.Once

// newConf возвращает конфигурацию pdfcpu по умолчанию.
// pdfcpu не создаёт каталог настроек в домашней директории.
func newConf() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	return model.NewDefaultConfiguration()
}

// stem возвращает имя файла без директории и расширения.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// workDir создаёт временную директорию запроса внутри in.WorkDir.
// Вызывающий обязан удалить её через os.RemoveAll.
func workDir(in operation.Input, kind string) (string, error) {
	if err := os.MkdirAll(in.WorkDir, 0o750); err != nil {
		return "", fmt.Errorf("создание рабочей директории %s: %w", in.WorkDir, err)
	}
	dir, err := os.MkdirTemp(in.WorkDir, in.RequestID+"_"+kind+"_*")
	if err != nil {
		return "", fmt.Errorf("создание временной директории: %w", err)
	}
	return dir, nil
}

// moveFile перемещает файл, в том числе между файловыми системами.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile копирует содержимое src в новый файл dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// safely выполняет fn и превращает панику сторонней библиотеки в ошибку.
// Разбор повреждённых PDF в pdfcpu и ledongthuc/pdf может паниковать.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("сбой разбора документа: %v", r)
		}
	}()
	return fn()
}

// checkCtx возвращает ошибку, если запрос уже отменён.
// Библиотечные вызовы не принимают context, поэтому проверка делается между шагами.
func checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("конвертация прервана: %w", err)
	}
	return nil
}

// isMissingBinary сообщает, что внешний бинарник не найден:
// по PATH (exec.ErrNotFound) или по явному пути (fs.ErrNotExist).
func isMissingBinary(err error) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false
	}
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}
