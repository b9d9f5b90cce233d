// Package templates opens the DOCX templates documents are generated from.
// Every Open returns a freshly parsed document, so callers may mutate it.
package templates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/fumiama/go-docx"

	"quotegen/internal/model"
	"quotegen/internal/storage"
)

var ErrTemplateNotFound = errors.New("template not found")

// Store opens the template of a document kind.
type Store interface {
	Open(ctx context.Context, kind model.DocumentKind) (*docx.Docx, error)
}

// Names maps each document kind to its template file name or object key.
type Names map[model.DocumentKind]string

func (n Names) lookup(kind model.DocumentKind) (string, error) {
	name := n[kind]
	if name == "" {
		return "", fmt.Errorf("%w: no template configured for %s", ErrTemplateNotFound, kind)
	}
	return name, nil
}

// FSStore reads templates from a filesystem, normally os.DirFS(dir).
type FSStore struct {
	fsys  fs.FS
	names Names
}

func NewFSStore(fsys fs.FS, names Names) *FSStore {
	return &FSStore{fsys: fsys, names: names}
}

func (s *FSStore) Open(_ context.Context, kind model.DocumentKind) (*docx.Docx, error) {
	name, err := s.names.lookup(kind)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return nil, fmt.Errorf("read template %s: %w", name, err)
	}
	return parse(name, data)
}

// StorageStore reads templates from object storage under a key prefix.
type StorageStore struct {
	store  storage.Storage
	prefix string
	names  Names
}

func NewStorageStore(store storage.Storage, prefix string, names Names) *StorageStore {
	return &StorageStore{store: store, prefix: prefix, names: names}
}

func (s *StorageStore) Open(ctx context.Context, kind model.DocumentKind) (*docx.Docx, error) {
	name, err := s.names.lookup(kind)
	if err != nil {
		return nil, err
	}
	key := path.Join(s.prefix, name)
	rc, _, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, key)
		}
		return nil, fmt.Errorf("get template %s: %w", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", key, err)
	}
	return parse(key, data)
}

func parse(name string, data []byte) (*docx.Docx, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return doc, nil
}
