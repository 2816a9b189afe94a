package dto

import (
	"fmt"
	"strconv"
	"strings"

	"studio-service/internal/core/domain"
)

// ============================================================================
// Request DTOs
// ============================================================================

// CreateFineTuneForm holds the non-file fields of the multipart job form.
// Empty fields are treated as not supplied.
type CreateFineTuneForm struct {
	Model        string `form:"model"`
	BatchSize    string `form:"batchSize"`
	LearningRate string `form:"learningRate"`
	NEpochs      string `form:"nEpochs"`
	WarmupRatio  string `form:"warmupRatio"`
	WeightDecay  string `form:"weightDecay"`
	Lora         string `form:"lora"`
	LoraR        string `form:"loraR"`
	LoraAlpha    string `form:"loraAlpha"`
	LoraDropout  string `form:"loraDropout"`
	Packing      string `form:"packing"`
	Suffix       string `form:"suffix"`
}

// Hyperparameters parses the supplied knobs. Nil when none was supplied.
func (f *CreateFineTuneForm) Hyperparameters() (*domain.Hyperparameters, error) {
	var (
		hp  domain.Hyperparameters
		err error
	)
	if hp.BatchSize, err = optInt("batchSize", f.BatchSize); err != nil {
		return nil, err
	}
	if hp.LearningRate, err = optFloat("learningRate", f.LearningRate); err != nil {
		return nil, err
	}
	if hp.NEpochs, err = optInt("nEpochs", f.NEpochs); err != nil {
		return nil, err
	}
	if hp.WarmupRatio, err = optFloat("warmupRatio", f.WarmupRatio); err != nil {
		return nil, err
	}
	if hp.WeightDecay, err = optFloat("weightDecay", f.WeightDecay); err != nil {
		return nil, err
	}
	if hp.Lora, err = optBool("lora", f.Lora); err != nil {
		return nil, err
	}
	if hp.LoraR, err = optInt("loraR", f.LoraR); err != nil {
		return nil, err
	}
	if hp.LoraAlpha, err = optInt("loraAlpha", f.LoraAlpha); err != nil {
		return nil, err
	}
	if hp.LoraDropout, err = optFloat("loraDropout", f.LoraDropout); err != nil {
		return nil, err
	}
	if hp.Packing, err = optBool("packing", f.Packing); err != nil {
		return nil, err
	}
	if hp.IsEmpty() {
		return nil, nil
	}
	return &hp, nil
}

func optInt(name, v string) (*int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", name)
	}
	return &n, nil
}

func optFloat(name, v string) (*float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &n, nil
}

func optBool(name, v string) (*bool, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", name)
	}
	return &b, nil
}

// JobQuery is the query string of GET /fine-tune.
type JobQuery struct {
	JobID    string `form:"jobId"`
	Action   string `form:"action"`
	FileID   string `form:"fileId"`
	Filename string `form:"filename"`
}

// Job read actions.
const (
	ActionStatus      = "status"
	ActionEvents      = "events"
	ActionCheckpoints = "checkpoints"
	ActionDownload    = "download"
)

// ============================================================================
// Response DTOs
// ============================================================================

type CreateFineTuneResponse struct {
	Job *domain.FineTuningStatus `json:"job"`
}

type JobStatusResponse struct {
	Success bool                     `json:"success"`
	Status  *domain.FineTuningStatus `json:"status"`
}

type JobEventsResponse struct {
	Success bool              `json:"success"`
	Events  []domain.JobEvent `json:"events"`
}

type JobCheckpointsResponse struct {
	Success     bool                `json:"success"`
	Checkpoints []domain.Checkpoint `json:"checkpoints"`
}

type DownloadResponse struct {
	Success  bool   `json:"success"`
	FilePath string `json:"filePath"`
}

// ErrorResponse is the failure body of endpoints that report details.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ValidateResponse reports a local training file check.
type ValidateResponse struct {
	Filename      string   `json:"filename"`
	Valid         bool     `json:"valid"`
	TotalLines    int      `json:"totalLines"`
	ValidExamples int      `json:"validExamples"`
	Errors        []string `json:"errors"`
}

func ToValidateResponse(filename string, r *domain.JSONLReport) ValidateResponse {
	return ValidateResponse{
		Filename:      filename,
		Valid:         r.Valid(),
		TotalLines:    r.TotalLines,
		ValidExamples: r.ValidExamples,
		Errors:        r.Problems(),
	}
}
