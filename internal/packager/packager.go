// Package packager turns a populated document into a named, downloadable file.
package packager

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fumiama/go-docx"

	"quotegen/internal/model"
)

const (
	DocxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	PDFMIME  = "application/pdf"

	DefaultPattern = "{type}_{number}_{identifier}.docx"

	maxNameRunes = 120
)

var ErrNilDocument = errors.New("document is nil")

// SanitizeFilename makes s safe as a single path component on common
// filesystems: path separators, reserved characters, quotes and control
// characters are dropped, whitespace becomes "_".
func SanitizeFilename(s string) string {
	var sb strings.Builder
	underscore := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case strings.ContainsRune(`\/*?:"<>|'`+"«»“”„", r), unicode.IsControl(r):
			continue
		case unicode.IsSpace(r) || r == '_':
			if !underscore {
				sb.WriteRune('_')
				underscore = true
			}
			continue
		}
		sb.WriteRune(r)
		underscore = false
	}
	out := strings.Trim(sb.String(), "._ ")
	if utf8.RuneCountInString(out) > maxNameRunes {
		out = strings.TrimRight(string([]rune(out)[:maxNameRunes]), "._")
	}
	return out
}

// FileName expands pattern with the sanitized parts. Empty parts are
// collapsed together with their separator; an empty pattern uses DefaultPattern.
func FileName(pattern, docType, number, identifier string) string {
	if pattern == "" {
		pattern = DefaultPattern
	}
	name := strings.NewReplacer(
		"{type}", SanitizeFilename(docType),
		"{number}", SanitizeFilename(number),
		"{identifier}", SanitizeFilename(identifier),
	).Replace(pattern)

	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	name = strings.ReplaceAll(name, "_.", ".")
	return strings.TrimLeft(name, "_")
}

// Package serializes doc into an in-memory DOCX file.
func Package(doc *docx.Docx, kind model.DocumentKind, name string) (model.GeneratedFile, error) {
	if doc == nil {
		return model.GeneratedFile{}, ErrNilDocument
	}
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return model.GeneratedFile{}, fmt.Errorf("write docx: %w", err)
	}
	return model.GeneratedFile{
		Kind:        kind,
		Name:        name,
		Data:        buf.Bytes(),
		ContentType: DocxMIME,
	}, nil
}
