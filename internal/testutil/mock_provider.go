package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"studio-service/internal/core/domain"
	"studio-service/internal/core/ports/output"
)

// MockProviderClient is a mock of ProviderClient.
type MockProviderClient struct {
	mock.Mock
}

func (m *MockProviderClient) UploadFile(ctx context.Context, file domain.UploadedFile, purpose domain.FilePurpose) (*ports.ProviderFile, error) {
	args := m.Called(ctx, file, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ProviderFile), args.Error(1)
}

func (m *MockProviderClient) GetFile(ctx context.Context, fileID string) (*ports.ProviderFile, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ProviderFile), args.Error(1)
}

func (m *MockProviderClient) DownloadFileContent(ctx context.Context, fileID string) ([]byte, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockProviderClient) CreateFineTuningJob(ctx context.Context, req *ports.CreateJobRequest) (*ports.ProviderJob, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ProviderJob), args.Error(1)
}

func (m *MockProviderClient) GetFineTuningJob(ctx context.Context, jobID string) (*ports.ProviderJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ProviderJob), args.Error(1)
}

func (m *MockProviderClient) ListFineTuningJobEvents(ctx context.Context, jobID string) ([]domain.JobEvent, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JobEvent), args.Error(1)
}

func (m *MockProviderClient) ListFineTuningJobCheckpoints(ctx context.Context, jobID string) ([]domain.Checkpoint, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Checkpoint), args.Error(1)
}
