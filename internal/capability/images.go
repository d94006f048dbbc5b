package capability

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/bigkaa/docconv/internal/domain/operation"
)

// ImagesToPDF собирает PDF, по одной странице на изображение, в порядке загрузки.
// Перед вставкой каждое изображение приводится к 8-битному RGB на белом фоне,
// поэтому исходная цветовая модель (палитра, серый, CMYK, альфа) не важна.
// Размер страницы в пунктах равен размеру изображения в пикселях.
func ImagesToPDF(ctx context.Context, in operation.Input) (string, error) {
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetMargins(0, 0, 0)
	opts := fpdf.ImageOptions{ImageType: "PNG"}

	for i, path := range in.Paths {
		if err := checkCtx(ctx); err != nil {
			return "", err
		}
		img, err := decodeImage(path)
		if err != nil {
			return "", err
		}
		rgb := flatten(img)

		var buf bytes.Buffer
		if err := png.Encode(&buf, rgb); err != nil {
			return "", fmt.Errorf("кодирование %s: %w", filepath.Base(path), err)
		}

		name := "img" + strconv.Itoa(i)
		doc.RegisterImageOptionsReader(name, opts, &buf)
		w, h := float64(rgb.Bounds().Dx()), float64(rgb.Bounds().Dy())
		doc.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		doc.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
		if err := doc.Error(); err != nil {
			return "", fmt.Errorf("вставка %s: %w", filepath.Base(path), err)
		}
	}

	out := in.OutputPath("images", ".pdf")
	if err := doc.OutputFileAndClose(out); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("сохранение PDF: %w", err)
	}
	return out, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("открытие изображения: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("декодирование %s: %w", filepath.Base(path), err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("изображение %s пустое", filepath.Base(path))
	}
	return img, nil
}

// flatten приводит изображение к непрозрачному RGBA с началом координат в (0,0).
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// ExtractImages извлекает встроенные изображения всех страниц в zip.
// Имена в архиве: page_<страница>_image_<номер>.<расширение>.
func ExtractImages(ctx context.Context, in operation.Input) (string, error) {
	src := in.Paths[0]
	n, err := PageCount(src)
	if err != nil {
		return "", err
	}

	dir, err := workDir(in, "extract")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	var entries []archiveEntry
	for page := 1; page <= n; page++ {
		if err := checkCtx(ctx); err != nil {
			return "", err
		}
		pageDir := filepath.Join(dir, strconv.Itoa(page))
		if err := os.Mkdir(pageDir, 0o750); err != nil {
			return "", fmt.Errorf("создание директории страницы: %w", err)
		}
		err := safely(func() error {
			return api.ExtractImagesFile(src, pageDir, []string{strconv.Itoa(page)}, newConf())
		})
		if err != nil {
			return "", fmt.Errorf("извлечение изображений страницы %d: %w", page, err)
		}

		files, err := os.ReadDir(pageDir)
		if err != nil {
			return "", fmt.Errorf("чтение директории страницы: %w", err)
		}
		names := make([]string, 0, len(files))
		for _, f := range files {
			if f.Type().IsRegular() {
				names = append(names, f.Name())
			}
		}
		sortByObjectNumber(names)
		for i, name := range names {
			entries = append(entries, archiveEntry{
				Name: fmt.Sprintf("page_%d_image_%d%s", page, i+1, filepath.Ext(name)),
				Path: filepath.Join(pageDir, name),
			})
		}
	}

	if len(entries) == 0 {
		return "", operation.EmptyResult("в документе не найдено изображений")
	}

	out := in.OutputPath("images", ".zip")
	if err := writeArchive(out, entries); err != nil {
		return "", err
	}
	return out, nil
}

// sortByObjectNumber упорядочивает файлы pdfcpu по числу в конце имени
// (номер объекта или ресурса: x_1_9.png раньше x_1_10.png).
// Имена без числа идут последними в лексикографическом порядке.
func sortByObjectNumber(names []string) {
	key := func(name string) (int, bool) {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		end := len(stem)
		start := end
		for start > 0 && stem[start-1] >= '0' && stem[start-1] <= '9' {
			start--
		}
		n, err := strconv.Atoi(stem[start:end])
		return n, err == nil
	}
	sort.SliceStable(names, func(i, j int) bool {
		ni, oki := key(names[i])
		nj, okj := key(names[j])
		switch {
		case oki && okj && ni != nj:
			return ni < nj
		case oki != okj:
			return oki
		}
		return names[i] < names[j]
	})
}
