package capability

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/bigkaa/docconv/internal/domain/operation"
)

// cellGapFactor — разрыв между фрагментами строки (в долях кегля),
// начиная с которого фрагменты попадают в разные ячейки.
const cellGapFactor = 1.5

// PDFToExcel раскладывает текст PDF по таблице: лист на страницу,
// строка таблицы на строку текста, ячейки по горизонтальным разрывам.
func PDFToExcel(ctx context.Context, in operation.Input) (string, error) {
	sheets, err := readPageRows(ctx, in.Paths[0])
	if err != nil {
		return "", err
	}

	total := 0
	for _, rows := range sheets {
		total += len(rows)
	}
	if total == 0 {
		return "", operation.EmptyResult("в документе нет текста для таблицы")
	}

	book := excelize.NewFile()
	defer book.Close()

	for i, rows := range sheets {
		name := fmt.Sprintf("Page %d", i+1)
		if i == 0 {
			if err := book.SetSheetName("Sheet1", name); err != nil {
				return "", fmt.Errorf("лист %s: %w", name, err)
			}
		} else if _, err := book.NewSheet(name); err != nil {
			return "", fmt.Errorf("лист %s: %w", name, err)
		}

		for r, cells := range rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return "", err
			}
			values := make([]any, len(cells))
			for c, v := range cells {
				values[c] = v
			}
			if err := book.SetSheetRow(name, cell, &values); err != nil {
				return "", fmt.Errorf("лист %s, строка %d: %w", name, r+1, err)
			}
		}
	}

	out := in.OutputPath("spreadsheet", ".xlsx")
	if err := book.SaveAs(out); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("сохранение таблицы: %w", err)
	}
	return out, nil
}

// readPageRows возвращает для каждой страницы строки текста, разбитые на ячейки.
func readPageRows(ctx context.Context, path string) ([][][]string, error) {
	var sheets [][][]string
	err := safely(func() error {
		f, r, err := pdf.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		for i := 1; i <= r.NumPage(); i++ {
			if err := checkCtx(ctx); err != nil {
				return err
			}
			p := r.Page(i)
			if p.V.IsNull() {
				sheets = append(sheets, nil)
				continue
			}
			rows, err := p.GetTextByRow()
			if err != nil {
				return fmt.Errorf("страница %d: %w", i, err)
			}

			var table [][]string
			for _, row := range rows {
				if cells := rowCells(row.Content); len(cells) > 0 {
					table = append(table, cells)
				}
			}
			sheets = append(sheets, table)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("чтение текста PDF: %w", err)
	}
	return sheets, nil
}

// rowCells склеивает фрагменты строки слева направо и режет их на ячейки
// там, где горизонтальный разрыв больше cellGapFactor кеглей.
func rowCells(texts pdf.TextHorizontal) []string {
	items := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S != "" {
			items = append(items, t)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].X < items[j].X })

	var cells []string
	var cur strings.Builder
	end := 0.0
	for i, t := range items {
		if i > 0 && t.X-end > t.FontSize*cellGapFactor {
			if s := strings.TrimSpace(cur.String()); s != "" {
				cells = append(cells, s)
			}
			cur.Reset()
		}
		cur.WriteString(t.S)
		end = t.X + t.W
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		cells = append(cells, s)
	}
	return cells
}
