package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"quotegen/internal/model"
	"quotegen/internal/service"
	"quotegen/internal/totals"
)

type MockGenerationService struct {
	mock.Mock
}

func (m *MockGenerationService) Generate(ctx context.Context, req model.DocumentRequest) (*service.GenerationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.GenerationResult), args.Error(1)
}

func (m *MockGenerationService) Totals(ctx context.Context, items []model.LineItem, vendor model.VendorProfile) (totals.Breakdown, error) {
	args := m.Called(ctx, items, vendor)
	return args.Get(0).(totals.Breakdown), args.Error(1)
}
