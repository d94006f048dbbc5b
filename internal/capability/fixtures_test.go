package capability

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/bigkaa/docconv/internal/domain/model"
	"github.com/bigkaa/docconv/internal/domain/operation"
)

// pageSize — размер страницы тестового документа в пунктах.
type pageSize struct {
	W, H float64
}

// makePDF создаёт документ со страницами заданных размеров.
// Разные размеры позволяют проверять порядок страниц по их габаритам.
func makePDF(t *testing.T, dir, name string, sizes ...pageSize) string {
	t.Helper()
	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetFont("Helvetica", "", 12)
	for i, s := range sizes {
		doc.AddPageFormat("P", fpdf.SizeType{Wd: s.W, Ht: s.H})
		doc.Text(20, 30, fmt.Sprintf("Page %d", i+1))
	}
	path := filepath.Join(dir, name)
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("создание %s: %v", name, err)
	}
	return path
}

// makeTextPDF создаёт документ, в котором на каждой странице одна строка текста.
func makeTextPDF(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetFont("Helvetica", "", 12)
	for _, line := range lines {
		doc.AddPage()
		doc.Text(50, 60, line)
	}
	path := filepath.Join(dir, name)
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("создание %s: %v", name, err)
	}
	return path
}

// testInput собирает вход конвертера с отдельными директориями результата и временных файлов.
func testInput(t *testing.T, params model.Params, paths ...string) operation.Input {
	t.Helper()
	return operation.Input{
		Paths:     paths,
		OutputDir: t.TempDir(),
		WorkDir:   t.TempDir(),
		RequestID: "3f6c1b0e-req",
		Params:    params,
	}
}

// pageDims возвращает размеры страниц документа.
func pageDims(t *testing.T, path string) []pageSize {
	t.Helper()
	dims, err := api.PageDimsFile(path)
	if err != nil {
		t.Fatalf("PageDimsFile(%s): %v", filepath.Base(path), err)
	}
	out := make([]pageSize, len(dims))
	for i, d := range dims {
		out[i] = pageSize{W: d.Width, H: d.Height}
	}
	return out
}

// assertDims сравнивает размеры страниц с точностью до пункта.
func assertDims(t *testing.T, got, want []pageSize) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("хотели %d страниц, получили %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i].W-want[i].W) > 1 || math.Abs(got[i].H-want[i].H) > 1 {
			t.Errorf("страница %d: хотели %vx%v, получили %vx%v",
				i+1, want[i].W, want[i].H, got[i].W, got[i].H)
		}
	}
}

func mustPageCount(t *testing.T, path string) int {
	t.Helper()
	n, err := PageCount(path)
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	return n
}

func run(t *testing.T, c operation.Capability, in operation.Input) string {
	t.Helper()
	out, err := c.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if filepath.Dir(out) != in.OutputDir {
		t.Fatalf("результат вне корня выходных файлов: %s", out)
	}
	return out
}
