//go:build !mupdf

package capability

import "os/exec"

// newRasterizer без MuPDF использует pdftoppm.
func newRasterizer(opts Options) Rasterizer {
	return pdftoppm{bin: opts.PdftoppmBin}
}

func rasterizerAvailable(opts Options) bool {
	_, err := exec.LookPath(opts.PdftoppmBin)
	return err == nil
}
