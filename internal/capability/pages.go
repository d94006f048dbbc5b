package capability

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/bigkaa/docconv/internal/domain/operation"
)

// Описания штампов pdfcpu (см. pdfcpu stamp/watermark description).
const (
	watermarkDesc   = "fontname:Helvetica, points:48, scalefactor:1 abs, position:c, rotation:0, fillcolor:#BFBFBF, opacity:0.6"
	pageNumberDesc  = "fontname:Helvetica, points:10, scalefactor:1 abs, position:br, offset:-50 30, rotation:0, fillcolor:#000000"
	pageNumberToken = "%p"
)

// PageCount возвращает число страниц PDF.
func PageCount(path string) (int, error) {
	var n int
	err := safely(func() error {
		var err error
		n, err = api.PageCountFile(path)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("чтение числа страниц %s: %w", stem(path), err)
	}
	return n, nil
}

// MergePDFs объединяет документы в порядке загрузки.
func MergePDFs(ctx context.Context, in operation.Input) (string, error) {
	if err := checkCtx(ctx); err != nil {
		return "", err
	}
	out := in.OutputPath("merged", ".pdf")
	err := safely(func() error {
		return api.MergeCreateFile(in.Paths, out, false, newConf())
	})
	if err != nil {
		os.Remove(out)
		return "", fmt.Errorf("объединение PDF: %w", err)
	}
	return out, nil
}

// SplitPDF извлекает диапазон страниц [start, end] включительно.
// start приводится к 1, end — к числу страниц.
func SplitPDF(ctx context.Context, in operation.Input) (string, error) {
	if err := checkCtx(ctx); err != nil {
		return "", err
	}
	src := in.Paths[0]
	n, err := PageCount(src)
	if err != nil {
		return "", err
	}

	start := max(in.Params.StartPage, 1)
	end := min(in.Params.EndPage, n)
	if start > n {
		return "", operation.EmptyResult(
			fmt.Sprintf("начальная страница %d больше числа страниц документа (%d)", start, n))
	}
	if end < start {
		return "", operation.InvalidParameter(operation.ParamEndPage, "конец диапазона меньше начала")
	}

	out := in.OutputPath("split", ".pdf")
	selection := []string{fmt.Sprintf("%d-%d", start, end)}
	err = safely(func() error {
		return api.TrimFile(src, out, selection, newConf())
	})
	if err != nil {
		os.Remove(out)
		return "", fmt.Errorf("извлечение страниц %d-%d: %w", start, end, err)
	}
	return out, nil
}

// ReversePDF переставляет страницы в обратном порядке.
func ReversePDF(ctx context.Context, in operation.Input) (string, error) {
	if err := checkCtx(ctx); err != nil {
		return "", err
	}
	src := in.Paths[0]
	n, err := PageCount(src)
	if err != nil {
		return "", err
	}

	// CollectFile сохраняет порядок выбранных страниц
	pages := make([]string, n)
	for i := range pages {
		pages[i] = strconv.Itoa(n - i)
	}

	out := in.OutputPath("reversed", ".pdf")
	err = safely(func() error {
		return api.CollectFile(src, out, pages, newConf())
	})
	if err != nil {
		os.Remove(out)
		return "", fmt.Errorf("разворот страниц: %w", err)
	}
	return out, nil
}

// RotatePDF поворачивает все страницы на заданный угол.
func RotatePDF(ctx context.Context, in operation.Input) (string, error) {
	if err := checkCtx(ctx); err != nil {
		return "", err
	}
	out := in.OutputPath("rotated", ".pdf")
	err := safely(func() error {
		return api.RotateFile(in.Paths[0], out, in.Params.Rotation, nil, newConf())
	})
	if err != nil {
		os.Remove(out)
		return "", fmt.Errorf("поворот на %d: %w", in.Params.Rotation, err)
	}
	return out, nil
}

// RemovePages удаляет страницы из списка. Номера вне документа игнорируются.
func RemovePages(ctx context.Context, in operation.Input) (string, error) {
	if err := checkCtx(ctx); err != nil {
		return "", err
	}
	src := in.Paths[0]
	n, err := PageCount(src)
	if err != nil {
		return "", err
	}

	var selection []string
	for _, p := range in.Params.Pages {
		if p >= 1 && p <= n {
			selection = append(selection, strconv.Itoa(p))
		}
	}
	if len(selection) == n {
		return "", operation.InvalidParameter(operation.ParamPages, "нельзя удалить все страницы документа")
	}

	out := in.OutputPath("removed", ".pdf")
	if len(selection) == 0 {
		// Удалять нечего: результат совпадает с исходным документом
		if err := copyFile(src, out); err != nil {
			return "", fmt.Errorf("копирование документа: %w", err)
		}
		return out, nil
	}

	err = safely(func() error {
		return api.RemovePagesFile(src, out, selection, newConf())
	})
	if err != nil {
		os.Remove(out)
		return "", fmt.Errorf("удаление страниц: %w", err)
	}
	return out, nil
}

// AddWatermark накладывает текст по центру каждой страницы.
func AddWatermark(ctx context.Context, in operation.Input) (string, error) {
	if err := checkCtx(ctx); err != nil {
		return "", err
	}
	return stampText(in, in.Params.Watermark, watermarkDesc, "watermarked")
}

// AddPageNumbers пишет номер страницы (с 1) в правом нижнем углу.
func AddPageNumbers(ctx context.Context, in operation.Input) (string, error) {
	if err := checkCtx(ctx); err != nil {
		return "", err
	}
	return stampText(in, pageNumberToken, pageNumberDesc, "numbered")
}

// stampText накладывает текстовый штамп поверх содержимого всех страниц.
func stampText(in operation.Input, text, desc, kind string) (string, error) {
	wm, err := api.TextWatermark(text, desc, true, false, types.POINTS)
	if err != nil {
		return "", fmt.Errorf("описание штампа: %w", err)
	}

	out := in.OutputPath(kind, ".pdf")
	err = safely(func() error {
		return api.AddWatermarksFile(in.Paths[0], out, nil, wm, newConf())
	})
	if err != nil {
		os.Remove(out)
		return "", fmt.Errorf("наложение штампа: %w", err)
	}
	return out, nil
}

// CompressPDF пересобирает документ со сжатием потоков и без неиспользуемых объектов.
func CompressPDF(ctx context.Context, in operation.Input) (string, error) {
	if err := checkCtx(ctx); err != nil {
		return "", err
	}
	out := in.OutputPath("compressed", ".pdf")
	err := safely(func() error {
		return api.OptimizeFile(in.Paths[0], out, newConf())
	})
	if err != nil {
		os.Remove(out)
		return "", fmt.Errorf("сжатие PDF: %w", err)
	}
	return out, nil
}
