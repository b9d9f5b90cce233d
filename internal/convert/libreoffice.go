// Package convert renders generated DOCX files into other formats with an
// external office suite.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"quotegen/internal/model"
	"quotegen/internal/packager"
)

var ErrNoOutput = errors.New("converter produced no output")

// Converter turns a DOCX into a PDF.
type Converter interface {
	ToPDF(ctx context.Context, f model.GeneratedFile) (model.GeneratedFile, error)
}

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// LibreOffice shells out to soffice in headless mode. Each call works in its
// own temporary directory so concurrent conversions do not collide.
type LibreOffice struct {
	binary  string
	timeout time.Duration
	run     Runner
}

func NewLibreOffice(binary string, timeout time.Duration) *LibreOffice {
	if binary == "" {
		binary = "soffice"
	}
	return &LibreOffice{binary: binary, timeout: timeout, run: execRunner}
}

func (l *LibreOffice) ToPDF(ctx context.Context, f model.GeneratedFile) (model.GeneratedFile, error) {
	dir, err := os.MkdirTemp("", "quotegen-convert-*")
	if err != nil {
		return model.GeneratedFile{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "document.docx")
	if err := os.WriteFile(in, f.Data, 0o600); err != nil {
		return model.GeneratedFile{}, fmt.Errorf("write input: %w", err)
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	// a private profile dir lets several instances run at once
	profile := "-env:UserInstallation=file://" + filepath.ToSlash(filepath.Join(dir, "profile"))
	out, err := l.run(ctx, l.binary, profile, "--headless", "--convert-to", "pdf", "--outdir", dir, in)
	if err != nil {
		if ctx.Err() != nil {
			return model.GeneratedFile{}, fmt.Errorf("convert %s: %w", f.Name, ctx.Err())
		}
		return model.GeneratedFile{}, fmt.Errorf("convert %s: %w: %s", f.Name, err, strings.TrimSpace(string(out)))
	}

	data, err := os.ReadFile(filepath.Join(dir, "document.pdf"))
	if err != nil || len(data) == 0 {
		return model.GeneratedFile{}, fmt.Errorf("%w: %s", ErrNoOutput, f.Name)
	}
	return model.GeneratedFile{
		Kind:        f.Kind,
		Name:        strings.TrimSuffix(f.Name, filepath.Ext(f.Name)) + ".pdf",
		Data:        data,
		ContentType: packager.PDFMIME,
	}, nil
}
