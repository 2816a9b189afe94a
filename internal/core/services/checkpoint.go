package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"studio-service/internal/core/domain"
	"studio-service/internal/core/ports/output"
)

// CheckpointService saves provider result files to the local filesystem.
type CheckpointService struct {
	provider    ports.ProviderClient
	downloadDir string
}

// NewCheckpointService creates a downloader writing below downloadDir (the OS
// temp directory when empty).
func NewCheckpointService(provider ports.ProviderClient, downloadDir string) *CheckpointService {
	if downloadDir == "" {
		downloadDir = os.TempDir()
	}
	return &CheckpointService{provider: provider, downloadDir: downloadDir}
}

// Download fetches the content of fileID and writes it as filename inside a
// fresh directory, returning the written path. Only the base name of filename
// is used. Files are left in place for the caller.
func (s *CheckpointService) Download(ctx context.Context, fileID, filename string) (string, error) {
	if fileID == "" {
		return "", missingInput(domain.ErrMissingFileID)
	}

	content, err := s.provider.DownloadFileContent(ctx, fileID)
	if err != nil {
		return "", readError("Error downloading checkpoint file", fileID, err)
	}

	name := downloadName(filename, fileID)

	if err := os.MkdirAll(s.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	dir, err := os.MkdirTemp(s.downloadDir, "checkpoint-*")
	if err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write checkpoint file: %w", err)
	}

	log.WithFields(log.Fields{
		"file_id": fileID,
		"path":    path,
		"bytes":   len(content),
	}).Info("Checkpoint file downloaded")
	return path, nil
}

// downloadName is the base name of filename, else of fileID, else
// "checkpoint". It never contains a path separator.
func downloadName(filename, fileID string) string {
	for _, candidate := range []string{filename, fileID} {
		name := filepath.Base(candidate)
		if name != "." && name != ".." && name != string(filepath.Separator) {
			return name
		}
	}
	return "checkpoint"
}
