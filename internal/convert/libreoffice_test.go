package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotegen/internal/model"
	"quotegen/internal/packager"
)

func input() model.GeneratedFile {
	return model.GeneratedFile{Kind: model.KindQuotation, Name: "КП_42.docx", Data: []byte("docx"), ContentType: packager.DocxMIME}
}

// argAfter returns the argument following flag.
func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestLibreOffice_ToPDF(t *testing.T) {
	var gotName string
	var gotArgs []string
	l := NewLibreOffice("", time.Minute)
	l.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		in := args[len(args)-1]
		data, err := os.ReadFile(in)
		if err != nil {
			return nil, err
		}
		out := filepath.Join(argAfter(args, "--outdir"), "document.pdf")
		return nil, os.WriteFile(out, append([]byte("%PDF-"), data...), 0o600)
	}

	pdf, err := l.ToPDF(context.Background(), input())
	require.NoError(t, err)
	assert.Equal(t, "soffice", gotName)
	assert.Contains(t, gotArgs, "--headless")
	assert.Equal(t, "pdf", argAfter(gotArgs, "--convert-to"))
	assert.Equal(t, "КП_42.pdf", pdf.Name)
	assert.Equal(t, packager.PDFMIME, pdf.ContentType)
	assert.Equal(t, model.KindQuotation, pdf.Kind)
	assert.Equal(t, []byte("%PDF-docx"), pdf.Data)
}

func TestLibreOffice_Failures(t *testing.T) {
	t.Run("process error", func(t *testing.T) {
		l := NewLibreOffice("soffice", 0)
		l.run = func(context.Context, string, ...string) ([]byte, error) {
			return []byte("Error: source file could not be loaded"), errors.New("exit status 1")
		}
		_, err := l.ToPDF(context.Background(), input())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "could not be loaded")
	})

	t.Run("no output file", func(t *testing.T) {
		l := NewLibreOffice("soffice", 0)
		l.run = func(context.Context, string, ...string) ([]byte, error) { return nil, nil }
		_, err := l.ToPDF(context.Background(), input())
		assert.ErrorIs(t, err, ErrNoOutput)
	})

	t.Run("timeout", func(t *testing.T) {
		l := NewLibreOffice("soffice", 10*time.Millisecond)
		l.run = func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		_, err := l.ToPDF(context.Background(), input())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
