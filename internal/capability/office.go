package capability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bigkaa/docconv/internal/domain/operation"
)

// officeWaitDelay — сколько ждать закрытия потоков soffice после отмены.
const officeWaitDelay = 5 * time.Second

// officeTarget — параметры одного вида конвертации LibreOffice.
type officeTarget struct {
	// convertTo — значение --convert-to (формат[:фильтр])
	convertTo string
	// ext — расширение результата, который создаёт LibreOffice
	ext string
	// infilter — фильтр импорта (нужен для открытия PDF в Writer/Impress)
	infilter string
	// kind — часть имени сырого результата
	kind string
}

var (
	officeToPDF     = officeTarget{convertTo: "pdf", ext: ".pdf", kind: "document"}
	officePDFToDocx = officeTarget{convertTo: "docx:MS Word 2007 XML", ext: ".docx", infilter: "writer_pdf_import", kind: "word"}
	officePDFToPptx = officeTarget{convertTo: "pptx", ext: ".pptx", infilter: "impress_pdf_import", kind: "presentation"}
)

// officeRunner запускает LibreOffice в headless-режиме.
type officeRunner struct {
	bin     string
	timeout time.Duration
}

// Capability возвращает операцию конвертации в target.
func (o *officeRunner) Capability(target officeTarget) operation.CapabilityFunc {
	return func(ctx context.Context, in operation.Input) (string, error) {
		dir, err := workDir(in, "office")
		if err != nil {
			return "", err
		}
		defer os.RemoveAll(dir)

		produced, err := o.convert(ctx, in.Paths[0], dir, target)
		if err != nil {
			return "", err
		}

		out := in.OutputPath(target.kind, target.ext)
		if err := moveFile(produced, out); err != nil {
			os.Remove(out)
			return "", fmt.Errorf("перенос результата LibreOffice: %w", err)
		}
		return out, nil
	}
}

// convert запускает soffice с отдельным профилем в dir и возвращает путь результата.
// Отдельный профиль нужен для параллельных запусков: общий профиль блокируется.
func (o *officeRunner) convert(ctx context.Context, src, dir string, target officeTarget) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	outDir := filepath.Join(dir, "out")
	profile := filepath.Join(dir, "profile")

	args := []string{
		"--headless", "--norestore", "--nolockcheck",
		"-env:UserInstallation=file://" + filepath.ToSlash(profile),
	}
	if target.infilter != "" {
		args = append(args, "--infilter="+target.infilter)
	}
	args = append(args, "--convert-to", target.convertTo, "--outdir", outDir, src)

	cmd := exec.CommandContext(ctx, o.bin, args...)
	cmd.Env = append(os.Environ(), "HOME="+dir)
	cmd.WaitDelay = officeWaitDelay
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return "", fmt.Errorf("%w: LibreOffice не завершился за %v", operation.ErrTimeout, o.timeout)
		case isMissingBinary(err):
			return "", fmt.Errorf("%w: %s", operation.ErrToolUnavailable, o.bin)
		}
		return "", fmt.Errorf("LibreOffice: %w: %s", err, strings.TrimSpace(output.String()))
	}

	// LibreOffice называет результат по имени входа с новым расширением
	produced := filepath.Join(outDir, stem(src)+target.ext)
	info, err := os.Stat(produced)
	if err != nil || info.Size() == 0 {
		return "", fmt.Errorf("LibreOffice не создал %s: %s", filepath.Base(produced), strings.TrimSpace(output.String()))
	}
	return produced, nil
}

func officeAvailable(opts Options) bool {
	_, err := exec.LookPath(opts.SofficeBin)
	return err == nil
}
