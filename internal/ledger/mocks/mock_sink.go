package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"quotegen/internal/ledger"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Append(ctx context.Context, e ledger.Entry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
