package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"quotegen/internal/model"
	"quotegen/internal/service"
)

type MockArchiveService struct {
	mock.Mock
}

func (m *MockArchiveService) Archive(ctx context.Context, f model.GeneratedFile, meta service.ArchiveMeta) (*model.Document, error) {
	args := m.Called(ctx, f, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockArchiveService) List(ctx context.Context, limit, offset int, number string) (*service.DocumentListResult, error) {
	args := m.Called(ctx, limit, offset, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentListResult), args.Error(1)
}

func (m *MockArchiveService) Get(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockArchiveService) Open(ctx context.Context, id string) (io.ReadCloser, *model.Document, error) {
	args := m.Called(ctx, id)
	rc, _ := args.Get(0).(io.ReadCloser)
	doc, _ := args.Get(1).(*model.Document)
	return rc, doc, args.Error(2)
}

func (m *MockArchiveService) Link(ctx context.Context, id string, expiry time.Duration) (*service.DocumentLink, error) {
	args := m.Called(ctx, id, expiry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentLink), args.Error(1)
}

func (m *MockArchiveService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
