package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"quotegen/internal/model"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, caption string, files []model.GeneratedFile) error {
	args := m.Called(ctx, caption, files)
	return args.Error(0)
}
