package operation

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bigkaa/docconv/internal/domain/model"
)

// Имена параметров операций.
const (
	ParamStartPage = "start_page"
	ParamEndPage   = "end_page"
	ParamRotation  = "rotation"
	ParamWatermark = "watermark"
	ParamPages     = "pages"
)

// maxWatermarkLen — ограничение длины текста водяного знака в символах.
const maxWatermarkLen = 200

// ParseParams разбирает сырые значения параметров по их описаниям.
// Параметры, не объявленные операцией, игнорируются.
func ParseParams(specs []model.ParamSpec, raw map[string]string) (model.Params, error) {
	var p model.Params

	for _, spec := range specs {
		val := strings.TrimSpace(raw[spec.Name])
		if val == "" {
			val = spec.Default
		}
		if val == "" {
			if spec.Required {
				return p, InvalidParameter(spec.Name, "обязательный параметр не задан")
			}
			continue
		}

		switch spec.Name {
		case ParamStartPage, ParamEndPage:
			n, err := parseNonNegative(spec.Name, val)
			if err != nil {
				return p, err
			}
			if spec.Name == ParamStartPage {
				p.StartPage = n
			} else {
				p.EndPage = n
			}
		case ParamRotation:
			r, err := parseRotation(val)
			if err != nil {
				return p, err
			}
			p.Rotation = r
		case ParamWatermark:
			if utf8.RuneCountInString(val) > maxWatermarkLen {
				return p, InvalidParameter(spec.Name, "текст длиннее 200 символов")
			}
			p.Watermark = val
		case ParamPages:
			pages, err := ParsePageList(val)
			if err != nil {
				return p, err
			}
			p.Pages = pages
		}
	}

	// Диапазон страниц проверяется, только если операция объявила оба параметра.
	if hasParam(specs, ParamStartPage) && hasParam(specs, ParamEndPage) {
		start := max(p.StartPage, 1)
		if p.EndPage < start {
			return p, InvalidParameter(ParamEndPage, "конец диапазона меньше начала")
		}
	}

	return p, nil
}

// ParsePageList разбирает список номеров страниц через запятую ("1, 3,5").
// Возвращает отсортированный список без повторов.
func ParsePageList(val string) ([]int, error) {
	seen := make(map[int]bool)
	var pages []int
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, InvalidParameter(ParamPages, "некорректный номер страницы "+strconv.Quote(part))
		}
		if n < 1 {
			return nil, InvalidParameter(ParamPages, "номера страниц начинаются с 1")
		}
		if !seen[n] {
			seen[n] = true
			pages = append(pages, n)
		}
	}
	if len(pages) == 0 {
		return nil, InvalidParameter(ParamPages, "список страниц пуст")
	}
	sort.Ints(pages)
	return pages, nil
}

func parseNonNegative(name, val string) (int, error) {
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, InvalidParameter(name, "ожидается целое число, получено "+strconv.Quote(val))
	}
	if n < 0 {
		return 0, InvalidParameter(name, "значение не может быть отрицательным")
	}
	return n, nil
}

// parseRotation допускает только ненулевые углы, кратные 90.
// Результат нормализуется в диапазон 90..270.
func parseRotation(val string) (int, error) {
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, InvalidParameter(ParamRotation, "ожидается целое число, получено "+strconv.Quote(val))
	}
	if n%90 != 0 {
		return 0, InvalidParameter(ParamRotation, "угол должен быть кратен 90")
	}
	n = ((n % 360) + 360) % 360
	if n == 0 {
		return 0, InvalidParameter(ParamRotation, "поворот на 0 градусов не меняет документ")
	}
	return n, nil
}

func hasParam(specs []model.ParamSpec, name string) bool {
	for _, s := range specs {
		if s.Name == name {
			return true
		}
	}
	return false
}
