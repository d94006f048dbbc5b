//go:build mupdf

package capability

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
)

// newRasterizer со сборочным тегом mupdf рендерит страницы через MuPDF в процессе.
func newRasterizer(Options) Rasterizer {
	return fitzRasterizer{}
}

func rasterizerAvailable(Options) bool {
	return true
}

type fitzRasterizer struct{}

func (fitzRasterizer) Name() string { return "mupdf" }

func (fitzRasterizer) Rasterize(ctx context.Context, src, dir string, dpi int) ([]string, error) {
	doc, err := fitz.New(src)
	if err != nil {
		return nil, fmt.Errorf("открытие документа: %w", err)
	}
	defer doc.Close()

	paths := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(i, float64(dpi))
		if err != nil {
			return nil, fmt.Errorf("рендер страницы %d: %w", i+1, err)
		}

		path := filepath.Join(dir, fmt.Sprintf("page-%d.png", i+1))
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return nil, fmt.Errorf("кодирование страницы %d: %w", i+1, err)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
