package capability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/bigkaa/docconv/internal/domain/operation"
)

// errNoReadablePages — этап восстановления не нашёл ни одной читаемой страницы.
var errNoReadablePages = errors.New("нет читаемых страниц")

// repairStage — один этап восстановления. Возвращает число восстановленных
// страниц или ошибку; при ошибке файл out не должен оставаться на диске.
type repairStage func(ctx context.Context, src, out string) (int, error)

// RepairPDF восстанавливает документ в два этапа:
//  1. pdfcpu: копия только тех страниц, которые удаётся прочитать;
//  2. ledongthuc/pdf + fpdf: текстовая копия страниц, из которых читается текст.
//
// Второй этап запускается, только если первый не восстановил ни одной страницы.
// Если оба этапа не восстановили ни одной страницы, результат — EMPTY_RESULT.
func (s *Set) RepairPDF(ctx context.Context, in operation.Input) (string, error) {
	src := in.Paths[0]
	out := in.OutputPath("repaired", ".pdf")

	stages := []struct {
		name string
		run  repairStage
	}{
		{"страницы", copyReadablePages},
		{"текст", s.rebuildFromText},
	}

	var reasons []string
	for _, st := range stages {
		if err := checkCtx(ctx); err != nil {
			return "", err
		}
		n, err := st.run(ctx, src, out)
		if err == nil && n > 0 {
			return out, nil
		}
		os.Remove(out)
		if err == nil {
			err = errNoReadablePages
		}
		reasons = append(reasons, st.name+": "+err.Error())
	}

	return "", operation.EmptyResult("не удалось восстановить ни одной страницы (" + strings.Join(reasons, "; ") + ")")
}

// copyReadablePages проверяет каждую страницу отдельным извлечением в io.Discard
// и записывает в out только прочитанные.
func copyReadablePages(ctx context.Context, src, out string) (int, error) {
	n, err := PageCount(src)
	if err != nil {
		return 0, err
	}

	f, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	conf := newConf()
	conf.ValidationMode = model.ValidationRelaxed

	var readable []string
	for i := 1; i <= n; i++ {
		if err := checkCtx(ctx); err != nil {
			return 0, err
		}
		page := strconv.Itoa(i)
		err := safely(func() error {
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return err
			}
			return api.Trim(f, io.Discard, []string{page}, conf)
		})
		if err == nil {
			readable = append(readable, page)
		}
	}
	if len(readable) == 0 {
		return 0, errNoReadablePages
	}

	err = safely(func() error {
		return api.TrimFile(src, out, readable, conf)
	})
	if err != nil {
		return 0, fmt.Errorf("запись читаемых страниц: %w", err)
	}
	return len(readable), nil
}

// rebuildFromText собирает новый PDF из текста читаемых страниц.
func (s *Set) rebuildFromText(ctx context.Context, src, out string) (int, error) {
	pages, err := readPageTexts(ctx, src, true)
	if err != nil {
		return 0, err
	}

	w, err := newTextWriter(s.opts.FontPath)
	if err != nil {
		return 0, err
	}
	written := 0
	for _, text := range pages {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if written > 0 {
			w.NewPage()
		}
		for _, line := range strings.Split(text, "\n") {
			w.WriteParagraph(line)
		}
		written++
	}
	if written == 0 {
		return 0, errNoReadablePages
	}
	if err := w.Save(out); err != nil {
		return 0, err
	}
	return written, nil
}
