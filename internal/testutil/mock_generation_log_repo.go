package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"studio-service/internal/core/domain"
	"studio-service/internal/core/ports/output"
)

// MockGenerationLogRepo is a mock of GenerationLogRepository.
type MockGenerationLogRepo struct {
	mock.Mock
}

func (m *MockGenerationLogRepo) Insert(ctx context.Context, entry *domain.GenerationLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockGenerationLogRepo) List(ctx context.Context, filter ports.GenerationLogFilter) ([]*domain.GenerationLog, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.GenerationLog), args.Int(1), args.Error(2)
}

func (m *MockGenerationLogRepo) LatestCompleted(ctx context.Context, requestID string) (*domain.GenerationLog, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GenerationLog), args.Error(1)
}

func (m *MockGenerationLogRepo) UpdateDetails(ctx context.Context, id uuid.UUID, details map[string]any) error {
	args := m.Called(ctx, id, details)
	return args.Error(0)
}

func (m *MockGenerationLogRepo) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
