package services

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"studio-service/internal/core/domain"
)

// GetJobStatus reads the current state of a job.
func (s *FineTuningService) GetJobStatus(ctx context.Context, jobID string) (*domain.FineTuningStatus, error) {
	if jobID == "" {
		return nil, missingInput(domain.ErrMissingJobID)
	}
	job, err := s.provider.GetFineTuningJob(ctx, jobID)
	if err != nil {
		return nil, readError("Error getting fine-tuning job status", jobID, err)
	}
	return toStatus(job), nil
}

// ListJobEvents returns the job's event log as the provider reports it.
func (s *FineTuningService) ListJobEvents(ctx context.Context, jobID string) ([]domain.JobEvent, error) {
	if jobID == "" {
		return nil, missingInput(domain.ErrMissingJobID)
	}
	events, err := s.provider.ListFineTuningJobEvents(ctx, jobID)
	if err != nil {
		return nil, readError("Error listing fine-tuning job events", jobID, err)
	}
	return events, nil
}

// ListJobCheckpoints returns the job's saved checkpoints.
func (s *FineTuningService) ListJobCheckpoints(ctx context.Context, jobID string) ([]domain.Checkpoint, error) {
	if jobID == "" {
		return nil, missingInput(domain.ErrMissingJobID)
	}
	checkpoints, err := s.provider.ListFineTuningJobCheckpoints(ctx, jobID)
	if err != nil {
		return nil, readError("Error listing fine-tuning job checkpoints", jobID, err)
	}
	return checkpoints, nil
}

func missingInput(sentinel error) *domain.FineTuningError {
	return domain.NewFineTuningError(domain.KindConfiguration, "", sentinel)
}

// readError wraps a failed provider read. Reads are never format errors.
func readError(prefix, id string, err error) *domain.FineTuningError {
	log.WithError(err).WithField("id", id).Error(prefix)
	kind := domain.KindUnknown
	if errors.Is(err, domain.ErrMissingAPIKey) {
		kind = domain.KindConfiguration
	}
	return domain.NewFineTuningError(kind, prefix+": "+providerDetail(err), err)
}
