package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quotegen/internal/model"
	"quotegen/internal/repository"
	"quotegen/internal/storage"
)

var (
	ErrIDRequired    = errors.New("id is required")
	ErrNotFound      = errors.New("document not found")
	ErrEmptyDocument = errors.New("document is empty")
	ErrInvalidExpiry = errors.New("link expiry must be between 1 minute and 7 days")
)

const (
	MinLinkExpiry = time.Minute
	// MaxLinkExpiry is the longest validity S3 accepts for presigned URLs.
	MaxLinkExpiry = 7 * 24 * time.Hour
)

// DocumentLink is a time-limited download URL.
type DocumentLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// ArchiveMeta describes the generation a file belongs to.
type ArchiveMeta struct {
	DocumentNumber string
	Customer       string
	Vendor         string
	GrandTotal     decimal.Decimal
}

// ArchiveService keeps generated files in object storage with a journal row per file.
type ArchiveService interface {
	// Archive uploads the file, saves its metadata and rolls back storage if the DB save fails.
	// The object key is a fresh UUID plus the extension of f.Name.
	Archive(ctx context.Context, f model.GeneratedFile, meta ArchiveMeta) (*model.Document, error)

	// List returns documents using limit/offset and a total count. An empty number matches all.
	List(ctx context.Context, limit, offset int, number string) (*DocumentListResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Open returns the stored content of a document. The caller closes the reader.
	Open(ctx context.Context, id string) (io.ReadCloser, *model.Document, error)

	// Link presigns a download URL valid for expiry.
	Link(ctx context.Context, id string, expiry time.Duration) (*DocumentLink, error)

	// Delete removes a document by ID from both storage and repository.
	Delete(ctx context.Context, id string) error
}

type archiveService struct {
	store storage.Storage
	repo  repository.DocumentRepository
	now   func() time.Time
}

// NewArchiveService constructs a new ArchiveService.
func NewArchiveService(store storage.Storage, repo repository.DocumentRepository) ArchiveService {
	return &archiveService{store: store, repo: repo, now: time.Now}
}

func (s *archiveService) Archive(ctx context.Context, f model.GeneratedFile, meta ArchiveMeta) (*model.Document, error) {
	if len(f.Data) == 0 {
		return nil, ErrEmptyDocument
	}
	id := uuid.New().String()
	key := path.Join("documents", id+filepath.Ext(f.Name))

	objInfo, err := s.store.Put(ctx, key, bytes.NewReader(f.Data), storage.PutObjectOptions{
		Size:        int64(len(f.Data)),
		ContentType: f.ContentType,
		Metadata: map[string]string{
			// S3 user metadata must be ASCII.
			"original-filename": url.QueryEscape(f.Name),
			"document-number":   url.QueryEscape(meta.DocumentNumber),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		ID:             id,
		Kind:           f.Kind,
		Filename:       f.Name,
		DocumentNumber: meta.DocumentNumber,
		Customer:       meta.Customer,
		Vendor:         meta.Vendor,
		GrandTotal:     meta.GrandTotal.StringFixed(2),
		StoragePath:    objInfo.Key,
		Size:           objInfo.Size,
		ContentType:    objInfo.ContentType,
		CreatedAt:      s.now().UTC(),
	}
	if doc.StoragePath == "" {
		doc.StoragePath = key
	}
	if doc.Size == 0 {
		doc.Size = int64(len(f.Data))
	}
	if doc.ContentType == "" {
		doc.ContentType = f.ContentType
	}

	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

func (s *archiveService) List(ctx context.Context, limit, offset int, number string) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset, DocumentNumber: number})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *archiveService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *archiveService) Open(ctx context.Context, id string) (io.ReadCloser, *model.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, doc.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("read storage: %w", err)
	}
	return rc, doc, nil
}

func (s *archiveService) Link(ctx context.Context, id string, expiry time.Duration) (*DocumentLink, error) {
	if expiry < MinLinkExpiry || expiry > MaxLinkExpiry {
		return nil, ErrInvalidExpiry
	}
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u, err := s.store.PresignGet(ctx, doc.StoragePath, expiry)
	if err != nil {
		return nil, fmt.Errorf("presign: %w", err)
	}
	return &DocumentLink{URL: u, ExpiresAt: s.now().Add(expiry)}, nil
}

// Delete removes the stored object first; the row stays when that fails so
// the reference is not lost.
func (s *archiveService) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return s.repo.Delete(ctx, id)
}
