package ports

import (
	"context"
	"fmt"
	"strings"

	"studio-service/internal/core/domain"
)

// ============================================================================
// Provider Types
// ============================================================================

// ProviderFile is the provider's view of an uploaded file.
type ProviderFile struct {
	ID            string `json:"id"`
	Object        string `json:"object,omitempty"`
	Bytes         int64  `json:"bytes,omitempty"`
	CreatedAt     int64  `json:"created_at,omitempty"`
	Filename      string `json:"filename,omitempty"`
	Purpose       string `json:"purpose,omitempty"`
	Status        string `json:"status,omitempty"`
	StatusDetails string `json:"status_details,omitempty"`
}

// Processed reports whether the provider accepted the file for training.
func (f *ProviderFile) Processed() bool {
	return f != nil && f.Status == domain.FileStatusProcessed
}

// JobHyperparameters carries the wire names of the provider's training knobs.
type JobHyperparameters struct {
	BatchSize              *int     `json:"batch_size,omitempty"`
	LearningRateMultiplier *float64 `json:"learning_rate_multiplier,omitempty"`
	NEpochs                *int     `json:"n_epochs,omitempty"`
	WarmupRatio            *float64 `json:"warmup_ratio,omitempty"`
	WeightDecay            *float64 `json:"weight_decay,omitempty"`
	Lora                   *bool    `json:"lora,omitempty"`
	LoraR                  *int     `json:"lora_r,omitempty"`
	LoraAlpha              *int     `json:"lora_alpha,omitempty"`
	LoraDropout            *float64 `json:"lora_dropout,omitempty"`
	Packing                *bool    `json:"packing,omitempty"`
}

// CreateJobRequest is the body of a job-creation call.
type CreateJobRequest struct {
	TrainingFile    string              `json:"training_file"`
	Model           string              `json:"model"`
	Hyperparameters *JobHyperparameters `json:"hyperparameters,omitempty"`
	ValidationFile  string              `json:"validation_file,omitempty"`
	Suffix          string              `json:"suffix,omitempty"`
}

// ProviderJob is the provider's view of a fine-tuning job. Timestamps are
// epoch seconds.
type ProviderJob struct {
	ID             string `json:"id"`
	Object         string `json:"object,omitempty"`
	Model          string `json:"model"`
	Status         string `json:"status"`
	CreatedAt      int64  `json:"created_at"`
	FinishedAt     int64  `json:"finished_at,omitempty"`
	FineTunedModel string `json:"fine_tuned_model,omitempty"`
	TrainingFile   string `json:"training_file,omitempty"`
	ValidationFile string `json:"validation_file,omitempty"`
}

// ProviderError is a non-2xx answer from the provider.
type ProviderError struct {
	StatusCode int
	Status     string // status line, e.g. "400 Bad Request"
	Body       []byte

	// Populated from the {"error": {...}} envelope when present.
	HasEnvelope bool
	Message     string
	Type        string
	Code        string
	Param       string
}

func (e *ProviderError) Error() string {
	if e.HasEnvelope && e.Message != "" {
		if e.Type != "" {
			return fmt.Sprintf("%s %d %s", e.Type, e.StatusCode, e.Message)
		}
		return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
	}
	return "status " + e.Status
}

// StatusText is the reason phrase of the status line.
func (e *ProviderError) StatusText() string {
	_, text, _ := strings.Cut(e.Status, " ")
	return text
}

// ============================================================================
// Provider Client
// ============================================================================

// ProviderClient defines the contract for the OpenAI-compatible fine-tuning
// provider.
type ProviderClient interface {
	// UploadFile sends file as multipart form data and returns the provider record.
	UploadFile(ctx context.Context, file domain.UploadedFile, purpose domain.FilePurpose) (*ProviderFile, error)

	// GetFile reads the current metadata (including processing status) of a file.
	GetFile(ctx context.Context, fileID string) (*ProviderFile, error)

	// DownloadFileContent returns the raw bytes of a file.
	DownloadFileContent(ctx context.Context, fileID string) ([]byte, error)

	CreateFineTuningJob(ctx context.Context, req *CreateJobRequest) (*ProviderJob, error)
	GetFineTuningJob(ctx context.Context, jobID string) (*ProviderJob, error)
	ListFineTuningJobEvents(ctx context.Context, jobID string) ([]domain.JobEvent, error)
	ListFineTuningJobCheckpoints(ctx context.Context, jobID string) ([]domain.Checkpoint, error)
}
