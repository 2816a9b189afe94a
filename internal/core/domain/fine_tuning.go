package domain

import (
	"encoding/json"
	"time"
)

// FilePurpose is the provider-side intent of an uploaded file.
type FilePurpose string

const (
	FilePurposeFineTune   FilePurpose = "fine-tune"
	FilePurposeAssistants FilePurpose = "assistants"
	FilePurposeVision     FilePurpose = "vision"
	FilePurposeBatch      FilePurpose = "batch"
)

// FileStatusProcessed is the provider status awaited after an upload.
const FileStatusProcessed = "processed"

// JobStatus is the provider-defined lifecycle state of a fine-tuning job.
type JobStatus string

const (
	JobStatusValidatingFiles JobStatus = "validating_files"
	JobStatusQueued          JobStatus = "queued"
	JobStatusRunning         JobStatus = "running"
	JobStatusSucceeded       JobStatus = "succeeded"
	JobStatusFailed          JobStatus = "failed"
	JobStatusCancelled       JobStatus = "cancelled"
)

// IsTerminal reports whether the provider will no longer change the status.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// UploadedFile is a user-selected file held in memory until upload.
type UploadedFile struct {
	Name    string
	Content []byte
}

// Hyperparameters holds the optional training knobs. Nil means not supplied.
type Hyperparameters struct {
	BatchSize    *int
	LearningRate *float64
	NEpochs      *int
	WarmupRatio  *float64
	WeightDecay  *float64
	Lora         *bool
	LoraR        *int
	LoraAlpha    *int
	LoraDropout  *float64
	Packing      *bool
}

// IsEmpty reports whether no field was supplied.
func (h *Hyperparameters) IsEmpty() bool {
	if h == nil {
		return true
	}
	return h.BatchSize == nil && h.LearningRate == nil && h.NEpochs == nil &&
		h.WarmupRatio == nil && h.WeightDecay == nil && h.Lora == nil &&
		h.LoraR == nil && h.LoraAlpha == nil && h.LoraDropout == nil && h.Packing == nil
}

// FineTuningParams is the input of a job creation.
type FineTuningParams struct {
	Model           string
	TrainingFile    *UploadedFile
	ValidationFile  *UploadedFile
	Hyperparameters *Hyperparameters
	Suffix          string
}

// FineTuningStatus is the read-only projection of a provider job.
type FineTuningStatus struct {
	JobID          string    `json:"jobId"`
	Status         JobStatus `json:"status"`
	Model          string    `json:"model"`
	CreatedAt      string    `json:"createdAt"`
	FinishedAt     string    `json:"finishedAt,omitempty"`
	FineTunedModel string    `json:"fineTunedModel,omitempty"`
	TrainingFile   string    `json:"trainingFile,omitempty"`
	ValidationFile string    `json:"validationFile,omitempty"`
}

// JobEvent is an entry of the provider's append-only job event log.
type JobEvent struct {
	ID        string          `json:"id"`
	Object    string          `json:"object,omitempty"`
	CreatedAt int64           `json:"created_at"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Type      string          `json:"type,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`

	// Extra keeps provider fields not listed above.
	Extra map[string]json.RawMessage `json:"-"`
}

type jobEventFields JobEvent

var jobEventKeys = []string{"id", "object", "created_at", "level", "message", "type", "data"}

func (e *JobEvent) UnmarshalJSON(data []byte) error {
	extra, err := decodeWithExtra(data, (*jobEventFields)(e), jobEventKeys)
	if err != nil {
		return err
	}
	e.Extra = extra
	return nil
}

func (e JobEvent) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(jobEventFields(e), e.Extra)
}

// Checkpoint is a saved training artifact; each result file is downloadable.
type Checkpoint struct {
	ID                       string         `json:"id"`
	Object                   string         `json:"object,omitempty"`
	CreatedAt                int64          `json:"created_at"`
	FineTuningJobID          string         `json:"fine_tuning_job_id,omitempty"`
	FineTunedModelCheckpoint string         `json:"fine_tuned_model_checkpoint,omitempty"`
	StepNumber               int            `json:"step_number,omitempty"`
	ResultFiles              []string       `json:"result_files"`
	Metrics                  map[string]any `json:"metrics,omitempty"`

	// Extra keeps provider fields not listed above.
	Extra map[string]json.RawMessage `json:"-"`
}

type checkpointFields Checkpoint

var checkpointKeys = []string{
	"id", "object", "created_at", "fine_tuning_job_id",
	"fine_tuned_model_checkpoint", "step_number", "result_files", "metrics",
}

func (c *Checkpoint) UnmarshalJSON(data []byte) error {
	extra, err := decodeWithExtra(data, (*checkpointFields)(c), checkpointKeys)
	if err != nil {
		return err
	}
	c.Extra = extra
	return nil
}

func (c Checkpoint) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(checkpointFields(c), c.Extra)
}

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// EpochToISO renders epoch seconds as an RFC 3339 UTC timestamp with
// millisecond precision, e.g. "2024-05-01T12:00:00.000Z".
func EpochToISO(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(isoMillis)
}
