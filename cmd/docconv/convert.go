package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/spf13/cobra"

	"github.com/bigkaa/docconv/internal/domain/operation"
	"github.com/bigkaa/docconv/internal/service"
)

// convertFlags — флаги команды convert.
type convertFlags struct {
	operation string
	startPage int
	endPage   int
	rotation  int
	watermark string
	pages     string
	out       string

	// changed — флаги, явно заданные в командной строке
	changed map[string]bool
}

var convertOpts convertFlags

// paramFlags — флаги, которые передаются операции как параметры.
var paramFlags = []string{"start-page", "end-page", "rotation", "watermark", "pages"}

// convertCmd выполняет операцию над локальными файлами без HTTP.
var convertCmd = &cobra.Command{
	Use:   "convert --operation ID FILE...",
	Short: "Выполнить операцию над локальными файлами",
	Example: `  docconv convert --operation merge_pdfs a.pdf b.pdf --out ./result
  docconv convert --operation rotate_pdf --rotation 180 scan.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := convertOpts
		opts.changed = make(map[string]bool)
		for _, name := range paramFlags {
			opts.changed[name] = cmd.Flags().Changed(name)
		}
		path, err := runConvert(cmd.Context(), opts, args)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	f := convertCmd.Flags()
	f.StringVar(&convertOpts.operation, "operation", "", "идентификатор операции (см. docconv operations)")
	f.IntVar(&convertOpts.startPage, "start-page", 0, "первая страница (split_pdf)")
	f.IntVar(&convertOpts.endPage, "end-page", 0, "последняя страница (split_pdf)")
	f.IntVar(&convertOpts.rotation, "rotation", 0, "угол поворота, кратный 90 (rotate_pdf)")
	f.StringVar(&convertOpts.watermark, "watermark", "", "текст водяного знака (add_watermark)")
	f.StringVar(&convertOpts.pages, "pages", "", "номера страниц через запятую (remove_pages)")
	f.StringVar(&convertOpts.out, "out", ".", "директория для результата")
	_ = convertCmd.MarkFlagRequired("operation")
}

// params собирает сырые параметры операции из явно заданных флагов.
// Как и в HTTP форме, пустые строки не передаются, а числа проверяет реестр.
func (o convertFlags) params() map[string]string {
	p := make(map[string]string)
	if o.changed["start-page"] {
		p[operation.ParamStartPage] = strconv.Itoa(o.startPage)
	}
	if o.changed["end-page"] {
		p[operation.ParamEndPage] = strconv.Itoa(o.endPage)
	}
	if o.changed["rotation"] {
		p[operation.ParamRotation] = strconv.Itoa(o.rotation)
	}
	if o.changed["watermark"] && o.watermark != "" {
		p[operation.ParamWatermark] = o.watermark
	}
	if o.changed["pages"] && o.pages != "" {
		p[operation.ParamPages] = o.pages
	}
	return p
}

// runConvert выполняет операцию и копирует результат в директорию out.
// Возвращает путь скопированного файла.
func runConvert(ctx context.Context, opts convertFlags, paths []string) (string, error) {
	a, err := newApp()
	if err != nil {
		return "", err
	}

	files := make([]openapi_types.File, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("чтение %s: %w", p, err)
		}
		files[i].InitFromBytes(data, filepath.Base(p))
	}

	result, err := a.Lifecycle.Submit(ctx, service.SubmitRequest{
		Operation: opts.operation,
		Files:     files,
		Params:    opts.params(),
	})
	if err != nil {
		return "", err
	}

	src, _, err := a.Lifecycle.Retrieve(result.Filename)
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return "", fmt.Errorf("создание %s: %w", opts.out, err)
	}
	dstPath := filepath.Join(opts.out, result.Filename)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("создание %s: %w", dstPath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("копирование результата: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("закрытие %s: %w", dstPath, err)
	}
	return dstPath, nil
}
