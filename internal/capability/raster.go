package capability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bigkaa/docconv/internal/domain/operation"
)

// rasterDPI — разрешение растеризации: масштаб 2x от 72 dpi.
const rasterDPI = 144

// Rasterizer превращает страницы PDF в PNG-файлы.
type Rasterizer interface {
	// Name — имя реализации для логов и дескрипторов
	Name() string
	// Rasterize пишет страницы src в dir и возвращает пути в порядке страниц.
	Rasterize(ctx context.Context, src, dir string, dpi int) ([]string, error)
}

// PDFToImages растеризует все страницы и упаковывает их в zip как page_<N>.png.
func PDFToImages(r Rasterizer) operation.CapabilityFunc {
	return func(ctx context.Context, in operation.Input) (string, error) {
		dir, err := workDir(in, "pages")
		if err != nil {
			return "", err
		}
		defer os.RemoveAll(dir)

		pages, err := r.Rasterize(ctx, in.Paths[0], dir, rasterDPI)
		if err != nil {
			return "", err
		}
		if len(pages) == 0 {
			return "", operation.EmptyResult("в документе нет страниц")
		}

		entries := make([]archiveEntry, len(pages))
		for i, p := range pages {
			entries[i] = archiveEntry{Name: fmt.Sprintf("page_%d.png", i+1), Path: p}
		}
		out := in.OutputPath("pages", ".zip")
		if err := writeArchive(out, entries); err != nil {
			return "", err
		}
		return out, nil
	}
}

// pdftoppm — растеризация внешним процессом из poppler-utils.
type pdftoppm struct {
	bin string
}

func (p pdftoppm) Name() string { return "pdftoppm" }

func (p pdftoppm) Rasterize(ctx context.Context, src, dir string, dpi int) ([]string, error) {
	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, p.bin, "-png", "-r", strconv.Itoa(dpi), src, prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("%w: pdftoppm", operation.ErrTimeout)
		case isMissingBinary(err):
			return nil, fmt.Errorf("%w: %s", operation.ErrToolUnavailable, p.bin)
		}
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return collectPages(dir, "page-")
}

// collectPages находит файлы <prefix><N>.png и сортирует их по N.
// pdftoppm дополняет номер нулями в зависимости от числа страниц.
func collectPages(dir, prefix string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("чтение страниц: %w", err)
	}

	type page struct {
		n    int
		path string
	}
	var pages []page
	for _, f := range files {
		name := f.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".png") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".png"))
		if err != nil {
			continue
		}
		pages = append(pages, page{n: n, path: filepath.Join(dir, name)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })

	paths := make([]string, len(pages))
	for i, p := range pages {
		paths[i] = p.path
	}
	return paths, nil
}
