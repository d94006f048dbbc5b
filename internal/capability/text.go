package capability

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/ledongthuc/pdf"

	"github.com/bigkaa/docconv/internal/domain/operation"
)

// Разметка страницы text_to_pdf (в пунктах, Letter 612x792).
const (
	textMarginX    = 50.0
	textMarginY    = 50.0
	textLineHeight = 15.0
	textFontSize   = 11.0
	textWrapWidth  = 80
)

// pageSeparator завершает текст каждой страницы в pdf_to_text.
var pageSeparator = "\n" + strings.Repeat("=", 80) + "\n"

// PDFToText извлекает текст всех страниц. После текста каждой страницы
// пишется разделитель из 80 знаков "=".
func PDFToText(ctx context.Context, in operation.Input) (string, error) {
	pages, err := readPageTexts(ctx, in.Paths[0], false)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, text := range pages {
		b.WriteString(text)
		b.WriteString(pageSeparator)
	}

	out := in.OutputPath("text", ".txt")
	if err := os.WriteFile(out, []byte(b.String()), 0o640); err != nil {
		return "", fmt.Errorf("запись текста: %w", err)
	}
	return out, nil
}

// readPageTexts читает текст страниц через ledongthuc/pdf.
// При skipBroken нечитаемые страницы пропускаются, иначе первая ошибка прерывает чтение.
func readPageTexts(ctx context.Context, path string, skipBroken bool) ([]string, error) {
	var pages []string
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
			text, err := pageText(r.Page(i))
			if err != nil {
				if skipBroken {
					continue
				}
				return fmt.Errorf("страница %d: %w", i, err)
			}
			pages = append(pages, text)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("чтение текста PDF: %w", err)
	}
	return pages, nil
}

// pageText возвращает текст одной страницы. Паника разбора становится ошибкой.
func pageText(p pdf.Page) (text string, err error) {
	if p.V.IsNull() {
		return "", nil
	}
	err = safely(func() error {
		var err error
		text, err = p.GetPlainText(nil)
		return err
	})
	return text, err
}

// TextToPDF вёрстает текстовый файл на страницы Letter с переносом по словам.
func (s *Set) TextToPDF(ctx context.Context, in operation.Input) (string, error) {
	if err := checkCtx(ctx); err != nil {
		return "", err
	}
	f, err := os.Open(in.Paths[0])
	if err != nil {
		return "", fmt.Errorf("чтение текста: %w", err)
	}
	defer f.Close()

	w, err := newTextWriter(s.opts.FontPath)
	if err != nil {
		return "", err
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		w.WriteParagraph(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("чтение текста: %w", err)
	}

	out := in.OutputPath("document", ".pdf")
	if err := w.Save(out); err != nil {
		os.Remove(out)
		return "", err
	}
	return out, nil
}

// textWriter — простая вёрстка строк текста на страницы PDF.
type textWriter struct {
	doc       *fpdf.Fpdf
	translate func(string) string
	y         float64
	bottom    float64
}

// newTextWriter создаёт документ Letter. С fontPath используется TTF-шрифт
// с Unicode, без него — встроенный Helvetica с перекодировкой в cp1252.
func newTextWriter(fontPath string) (*textWriter, error) {
	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetAutoPageBreak(false, 0)

	w := &textWriter{doc: doc, translate: func(s string) string { return s }}
	if fontPath != "" {
		doc.AddUTF8Font("body", "", fontPath)
		doc.SetFont("body", "", textFontSize)
	} else {
		w.translate = doc.UnicodeTranslatorFromDescriptor("")
		doc.SetFont("Helvetica", "", textFontSize)
	}
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("подготовка шрифта: %w", err)
	}

	_, h := doc.GetPageSize()
	w.bottom = h - textMarginY
	w.NewPage()
	return w, nil
}

// NewPage начинает новую страницу с верхнего поля.
func (w *textWriter) NewPage() {
	w.doc.AddPage()
	w.y = textMarginY
}

// WriteLine пишет одну строку, при необходимости переходя на новую страницу.
func (w *textWriter) WriteLine(line string) {
	if w.y > w.bottom {
		w.NewPage()
	}
	if line != "" {
		w.doc.Text(textMarginX, w.y, w.translate(line))
	}
	w.y += textLineHeight
}

// WriteParagraph переносит строку по словам на ширину textWrapWidth символов.
func (w *textWriter) WriteParagraph(text string) {
	for _, line := range wrapLine(strings.TrimRight(text, "\r"), textWrapWidth) {
		w.WriteLine(line)
	}
}

// Save сохраняет документ.
func (w *textWriter) Save(path string) error {
	if err := w.doc.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("сохранение PDF: %w", err)
	}
	return nil
}

// wrapLine делит строку на части не длиннее width символов по границам слов.
// Слово длиннее width режется. Пустая строка даёт одну пустую строку.
func wrapLine(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	var cur strings.Builder
	curLen := 0
	for _, word := range words {
		for utf8.RuneCountInString(word) > width {
			if curLen > 0 {
				lines = append(lines, cur.String())
				cur.Reset()
				curLen = 0
			}
			r := []rune(word)
			lines = append(lines, string(r[:width]))
			word = string(r[width:])
		}

		n := utf8.RuneCountInString(word)
		switch {
		case curLen == 0:
		case curLen+1+n <= width:
			cur.WriteByte(' ')
			curLen++
		default:
			lines = append(lines, cur.String())
			cur.Reset()
			curLen = 0
		}
		cur.WriteString(word)
		curLen += n
	}
	if curLen > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
