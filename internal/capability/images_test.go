package capability

import (
	"context"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/bigkaa/docconv/internal/domain/model"
	"github.com/bigkaa/docconv/internal/domain/operation"
)

// writeGIF пишет палитровое изображение.
func writeGIF(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, w, h), palette.Plan9)
	for x := range w {
		img.SetColorIndex(x, x%h, 3)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := gif.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
}

// writePNG пишет 16-битное серое изображение.
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetGray16(x, y, color.Gray16{Y: uint16(x * y * 97)})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// writeAlphaPNG пишет полупрозрачное NRGBA-изображение.
func writeAlphaPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: uint8(x * 4)})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestImagesToPDF_MixedColorModels(t *testing.T) {
	dir := t.TempDir()
	gifPath := filepath.Join(dir, "palette.gif")
	pngPath := filepath.Join(dir, "gray16.png")
	writeGIF(t, gifPath, 40, 30)
	writePNG(t, pngPath, 20, 50)

	out := run(t, operation.CapabilityFunc(ImagesToPDF), testInput(t, model.Params{}, gifPath, pngPath))
	assertDims(t, pageDims(t, out), []pageSize{{W: 40, H: 30}, {W: 20, H: 50}})
}

func TestImagesToPDF_Alpha(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alpha.png")
	writeAlphaPNG(t, path, 32, 32)

	out := run(t, operation.CapabilityFunc(ImagesToPDF), testInput(t, model.Params{}, path))
	if n := mustPageCount(t, out); n != 1 {
		t.Errorf("хотели 1 страницу, получили %d", n)
	}
}

func TestImagesToPDF_BrokenImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o640); err != nil {
		t.Fatal(err)
	}
	if _, err := ImagesToPDF(context.Background(), testInput(t, model.Params{}, path)); err == nil {
		t.Fatal("ожидалась ошибка декодирования")
	}
}

func TestFlatten_Opaque(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 7, 7))
	src.SetNRGBA(5, 5, color.NRGBA{A: 0})
	dst := flatten(src)

	if dst.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Errorf("границы: хотели (0,0)-(2,2), получили %v", dst.Bounds())
	}
	if got := dst.RGBAAt(0, 0); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("прозрачный пиксель должен стать белым, получили %v", got)
	}
	if !dst.Opaque() {
		t.Error("результат должен быть непрозрачным")
	}
}

func TestExtractImages(t *testing.T) {
	dir := t.TempDir()

	t.Run("нет изображений", func(t *testing.T) {
		src := makePDF(t, dir, "plain.pdf", sizeA)
		_, err := ExtractImages(context.Background(), testInput(t, model.Params{}, src))
		if operation.KindOf(err) != operation.KindEmptyResult {
			t.Fatalf("хотели EMPTY_RESULT, получили %v", err)
		}
	})

	t.Run("по изображению на странице", func(t *testing.T) {
		gifPath := filepath.Join(dir, "a.gif")
		pngPath := filepath.Join(dir, "b.png")
		writeGIF(t, gifPath, 40, 30)
		writePNG(t, pngPath, 20, 50)
		src := run(t, operation.CapabilityFunc(ImagesToPDF), testInput(t, model.Params{}, gifPath, pngPath))

		in := testInput(t, model.Params{}, src)
		out := run(t, operation.CapabilityFunc(ExtractImages), in)
		if filepath.Ext(out) != ".zip" {
			t.Fatalf("хотели zip, получили %s", out)
		}

		zr, err := zip.OpenReader(out)
		if err != nil {
			t.Fatal(err)
		}
		defer zr.Close()
		if len(zr.File) != 2 {
			t.Fatalf("хотели 2 изображения, получили %d", len(zr.File))
		}
		for i, f := range zr.File {
			prefix := []string{"page_1_image_1.", "page_2_image_1."}[i]
			if !strings.HasPrefix(f.Name, prefix) {
				t.Errorf("имя %d: хотели префикс %s, получили %s", i, prefix, f.Name)
			}
		}

		// Временные файлы убраны
		left, _ := os.ReadDir(in.WorkDir)
		if len(left) != 0 {
			t.Errorf("в рабочей директории остались файлы: %d", len(left))
		}
	})
}

func TestSortByObjectNumber(t *testing.T) {
	names := []string{"doc_1_10.png", "doc_1_Im2.jpg", "doc_1_9.png", "cover.png", "doc_1_100.tif"}
	sortByObjectNumber(names)

	want := []string{"doc_1_Im2.jpg", "doc_1_9.png", "doc_1_10.png", "doc_1_100.tif", "cover.png"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("порядок %v, хотели %v", names, want)
	}
}
