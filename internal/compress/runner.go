package compress

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Runner rewrites a PDF from src into dst at reduced size.
type Runner interface {
	Compress(ctx context.Context, src, dst string) error
}

// GhostscriptRunner shells out to ghostscript's pdfwrite device.
type GhostscriptRunner struct {
	// Path is the gs binary; defaults to "gs" on PATH.
	Path string
	// Quality is one of screen, ebook, printer, prepress.
	Quality string
}

// Compress runs ghostscript, writing the compressed PDF to dst.
func (r *GhostscriptRunner) Compress(ctx context.Context, src, dst string) error {
	bin := r.Path
	if bin == "" {
		bin = "gs"
	}
	quality := r.Quality
	if quality == "" {
		quality = "ebook"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin,
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		fmt.Sprintf("-dPDFSETTINGS=/%s", quality),
		"-dNOPAUSE",
		"-dQUIET",
		"-dBATCH",
		fmt.Sprintf("-sOutputFile=%s", dst),
		src,
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ghostscript %s: %w (stderr: %s)", src, err, stderr.String())
	}
	return nil
}
