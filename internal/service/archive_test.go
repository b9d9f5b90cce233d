package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"quotegen/internal/model"
	"quotegen/internal/packager"
	"quotegen/internal/repository"
	repoMocks "quotegen/internal/repository/mocks"
	"quotegen/internal/storage"
	storeMocks "quotegen/internal/storage/mocks"
)

func sampleFile() model.GeneratedFile {
	return model.GeneratedFile{
		Kind:        model.KindQuotation,
		Name:        "КП_42_Київ.docx",
		Data:        []byte("docx-bytes"),
		ContentType: packager.DocxMIME,
	}
}

func TestArchiveService_Archive(t *testing.T) {
	ctx := context.Background()
	meta := ArchiveMeta{DocumentNumber: "42", Customer: "ТОВ Сонце", Vendor: "tov", GrandTotal: decimal.RequireFromString("61200")}

	tests := []struct {
		name       string
		file       model.GeneratedFile
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
		wantErrMsg string
	}{
		{
			name: "happy path",
			file: sampleFile(),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "documents/") && strings.HasSuffix(key, ".docx")
				}), mock.Anything, storage.PutObjectOptions{
					Size:        10,
					ContentType: packager.DocxMIME,
					Metadata: map[string]string{
						"original-filename": "%D0%9A%D0%9F_42_%D0%9A%D0%B8%D1%97%D0%B2.docx",
						"document-number":   "42",
					},
				}).Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
					return storage.ObjectInfo{Key: key, Size: opt.Size, ContentType: opt.ContentType}
				}, nil)

				mRepo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.Filename == "КП_42_Київ.docx" &&
						doc.Kind == model.KindQuotation &&
						doc.GrandTotal == "61200.00" &&
						strings.HasSuffix(doc.StoragePath, doc.ID+".docx")
				})).Return(&model.Document{ID: "gen-id"}, nil)
			},
		},
		{
			name:    "validation error - empty file",
			file:    model.GeneratedFile{Name: "empty.docx"},
			wantErr: ErrEmptyDocument,
		},
		{
			name: "storage error",
			file: sampleFile(),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name: "repository error with successful rollback",
			file: sampleFile(),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(nil)
			},
			wantErrMsg: "db save failed: db fail",
		},
		{
			name: "repository error with failed rollback",
			file: sampleFile(),
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(errors.New("delete fail"))
			},
			wantErrMsg: "rollback delete failed: delete fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewArchiveService(mStore, mRepo)
			if tt.setupMocks != nil {
				tt.setupMocks(mStore, mRepo)
			}

			doc, err := svc.Archive(ctx, tt.file, meta)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else if tt.wantErrMsg != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, doc)
			}

			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestArchiveService_List(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		limit      int
		offset     int
		number     string
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    bool
		checkRes   func(t *testing.T, res *DocumentListResult)
	}{
		{
			name:   "happy path",
			limit:  10,
			number: "42",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0, DocumentNumber: "42"}).
					Return(&repository.PageResult[model.Document]{
						Items: []model.Document{{ID: "1"}, {ID: "2"}},
						Total: 2,
					}, nil)
			},
			checkRes: func(t *testing.T, res *DocumentListResult) {
				assert.Len(t, res.Items, 2)
				assert.Equal(t, 2, res.Total)
			},
		},
		{
			name:   "pagination boundary - zero limit uses default",
			limit:  0,
			offset: -1,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
					Return(&repository.PageResult[model.Document]{Items: []model.Document{}, Total: 0}, nil)
			},
		},
		{
			name:  "pagination boundary - limit is capped",
			limit: 1000,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, repository.PageQuery{Limit: 100, Offset: 0}).
					Return(&repository.PageResult[model.Document]{Items: []model.Document{}, Total: 0}, nil)
			},
		},
		{
			name:  "repository error",
			limit: 10,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("List", ctx, mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewArchiveService(nil, mRepo)
			tt.setupMocks(mRepo)

			res, err := svc.List(ctx, tt.limit, tt.offset, tt.number)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				if tt.checkRes != nil {
					tt.checkRes(t, res)
				}
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestArchiveService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", ctx, "1").Return(&model.Document{ID: "1"}, nil)

		doc, err := NewArchiveService(nil, mRepo).Get(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "1", doc.ID)
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := NewArchiveService(nil, nil).Get(ctx, "")
		assert.ErrorIs(t, err, ErrIDRequired)
	})

	t.Run("not found", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", ctx, "1").Return(nil, sql.ErrNoRows)

		_, err := NewArchiveService(nil, mRepo).Get(ctx, "1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestArchiveService_Open(t *testing.T) {
	ctx := context.Background()
	stored := &model.Document{ID: "1", StoragePath: "documents/1.docx"}

	t.Run("happy path", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", ctx, "1").Return(stored, nil)
		mStore.On("Get", ctx, "documents/1.docx").
			Return(io.NopCloser(strings.NewReader("content")), storage.ObjectInfo{}, nil)

		rc, doc, err := NewArchiveService(mStore, mRepo).Open(ctx, "1")
		require.NoError(t, err)
		defer rc.Close()
		body, _ := io.ReadAll(rc)
		assert.Equal(t, "content", string(body))
		assert.Equal(t, stored, doc)
	})

	t.Run("object missing", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", ctx, "1").Return(stored, nil)
		mStore.On("Get", ctx, "documents/1.docx").Return(nil, storage.ObjectInfo{}, storage.ErrObjectNotFound)

		_, _, err := NewArchiveService(mStore, mRepo).Open(ctx, "1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("storage error", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", ctx, "1").Return(stored, nil)
		mStore.On("Get", ctx, "documents/1.docx").Return(nil, storage.ObjectInfo{}, errors.New("timeout"))

		_, _, err := NewArchiveService(mStore, mRepo).Open(ctx, "1")
		assert.ErrorContains(t, err, "read storage: timeout")
	})
}

func TestArchiveService_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
		wantErrMsg string
	}{
		{
			name: "happy path",
			id:   "1",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "1").Return(&model.Document{ID: "1", StoragePath: "path/1"}, nil)
				mStore.On("Delete", ctx, "path/1").Return(nil)
				mRepo.On("Delete", ctx, "1").Return(nil)
			},
		},
		{
			name:       "empty id",
			id:         "",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "not found",
			id:   "1",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "1").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "storage delete error keeps the row",
			id:   "1",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "1").Return(&model.Document{ID: "1", StoragePath: "path/1"}, nil)
				mStore.On("Delete", ctx, "path/1").Return(errors.New("s3 fail"))
			},
			wantErrMsg: "delete storage: s3 fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewArchiveService(mStore, mRepo)
			tt.setupMocks(mStore, mRepo)

			err := svc.Delete(ctx, tt.id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else if tt.wantErrMsg != "" {
				assert.ErrorContains(t, err, tt.wantErrMsg)
			} else {
				assert.NoError(t, err)
			}
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestArchiveService_Link(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	t.Run("presigns the stored key", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := &archiveService{store: mStore, repo: mRepo, now: func() time.Time { return fixed }}
		mRepo.On("FindByID", ctx, "1").Return(&model.Document{ID: "1", StoragePath: "documents/1.docx"}, nil)
		mStore.On("PresignGet", ctx, "documents/1.docx", time.Hour).Return("https://minio/documents/1.docx?X-Amz-Signature=abc", nil)

		link, err := svc.Link(ctx, "1", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, "https://minio/documents/1.docx?X-Amz-Signature=abc", link.URL)
		assert.Equal(t, fixed.Add(time.Hour), link.ExpiresAt)
		mStore.AssertExpectations(t)
	})

	t.Run("expiry out of range", func(t *testing.T) {
		svc := NewArchiveService(new(storeMocks.MockStorage), new(repoMocks.MockDocumentRepository))
		_, err := svc.Link(ctx, "1", 30*time.Second)
		assert.ErrorIs(t, err, ErrInvalidExpiry)
		_, err = svc.Link(ctx, "1", MaxLinkExpiry+time.Second)
		assert.ErrorIs(t, err, ErrInvalidExpiry)
	})

	t.Run("not found", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", ctx, "1").Return(nil, sql.ErrNoRows)
		svc := NewArchiveService(new(storeMocks.MockStorage), mRepo)
		_, err := svc.Link(ctx, "1", time.Hour)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("presign error", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", ctx, "1").Return(&model.Document{ID: "1", StoragePath: "documents/1.docx"}, nil)
		mStore.On("PresignGet", ctx, "documents/1.docx", time.Hour).Return("", errors.New("no creds"))
		svc := NewArchiveService(mStore, mRepo)
		_, err := svc.Link(ctx, "1", time.Hour)
		assert.EqualError(t, err, "presign: no creds")
	})
}

func TestVendorDirectory(t *testing.T) {
	tov := model.VendorProfile{ID: "tov", TaxLabel: "ПДВ 20%"}
	fop := model.VendorProfile{ID: "fop", TaxLabel: "Без ПДВ"}

	d := NewVendorDirectory([]model.VendorProfile{tov, fop}, "")
	assert.Equal(t, "tov", d.Default())

	v, err := d.Lookup("")
	require.NoError(t, err)
	assert.Equal(t, "tov", v.ID)

	v, err = d.Lookup("fop")
	require.NoError(t, err)
	assert.Equal(t, "Без ПДВ", v.TaxLabel)

	_, err = d.Lookup("llc")
	assert.ErrorIs(t, err, ErrUnknownVendor)

	all := d.All()
	all[0].ID = "changed"
	assert.Equal(t, "tov", d.All()[0].ID)

	assert.Equal(t, "fop", NewVendorDirectory([]model.VendorProfile{tov, fop}, "fop").Default())
}
