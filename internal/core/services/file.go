package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"studio-service/internal/core/domain"
	"studio-service/internal/core/poll"
	"studio-service/internal/core/ports/output"
)

// FileService uploads training data and waits for the provider to process it.
type FileService struct {
	provider ports.ProviderClient
	wait     poll.Policy
	strict   bool
}

// FileServiceOption configures a FileService.
type FileServiceOption func(*FileService)

// WithUploadPolicy overrides the wait applied after each upload.
func WithUploadPolicy(p poll.Policy) FileServiceOption {
	return func(s *FileService) { s.wait = p }
}

// WithStrictProcessing makes an upload fail when the file is still
// unprocessed after the wait.
func WithStrictProcessing(strict bool) FileServiceOption {
	return func(s *FileService) { s.strict = strict }
}

func NewFileService(provider ports.ProviderClient, opts ...FileServiceOption) *FileService {
	s := &FileService{provider: provider, wait: poll.UploadProcessing}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadFile uploads file and waits for it to be processed. An unprocessed
// file is only a warning unless strict processing is on.
func (s *FileService) UploadFile(ctx context.Context, file domain.UploadedFile, purpose domain.FilePurpose) (string, error) {
	if purpose == "" {
		purpose = domain.FilePurposeFineTune
	}

	pf, err := s.provider.UploadFile(ctx, file, purpose)
	if err != nil {
		return "", domain.NewFineTuningError(classify(err),
			fmt.Sprintf("Failed to upload file: %s", providerDetail(err)), err)
	}

	log.WithFields(log.Fields{
		"file_id":  pf.ID,
		"filename": file.Name,
		"status":   pf.Status,
	}).Info("File uploaded")

	processed, err := s.WaitForFileProcessing(ctx, pf.ID, s.wait)
	if err != nil {
		return "", err
	}
	if !processed {
		if s.strict {
			return "", domain.NewFineTuningError(domain.KindFileNotReady,
				fmt.Sprintf("File %s is not ready yet. Please try again in a few moments.", pf.ID), nil)
		}
		log.WithField("file_id", pf.ID).
			Warn("File is not fully processed yet. Fine-tuning may fail if started too soon")
	}
	return pf.ID, nil
}

// WaitForFileProcessing polls the file until its status is "processed" or
// the policy gives up. Read failures count as failed attempts; the error is
// non-nil only when ctx ends.
func (s *FileService) WaitForFileProcessing(ctx context.Context, fileID string, policy poll.Policy) (bool, error) {
	return policy.Until(ctx, func(ctx context.Context, attempt int) (bool, error) {
		pf, err := s.provider.GetFile(ctx, fileID)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"file_id": fileID,
				"attempt": attempt,
			}).Warn("Check file status failed")
			return false, err
		}
		log.WithFields(log.Fields{
			"file_id":      fileID,
			"status":       pf.Status,
			"attempt":      attempt,
			"max_attempts": policy.MaxAttempts,
		}).Debug("File status")
		return pf.Processed(), nil
	})
}
