package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"studio-service/internal/core/domain"
	"studio-service/internal/core/poll"
	"studio-service/internal/core/ports/output"
)

const fileNotReadyMessage = "Training file is not ready yet. Please try again in a few moments."

// Activity steps written to the generation log during a job creation.
const (
	StepUploadTrainingFile   = "upload_training_file"
	StepUploadValidationFile = "upload_validation_file"
	StepAwaitProcessing      = "await_processing"
	StepCreateJob            = "create_job"
)

// FineTuningService creates fine-tuning jobs and reads their progress.
type FineTuningService struct {
	provider      ports.ProviderClient
	files         *FileService
	logs          *GenerationLogService
	recheck       poll.Policy
	validateJSONL bool
}

type FineTuningOption func(*FineTuningService)

// WithRecheckPolicy overrides the second wait run right before job creation.
func WithRecheckPolicy(p poll.Policy) FineTuningOption {
	return func(s *FineTuningService) { s.recheck = p }
}

// WithJSONLValidation checks training data locally before any upload.
func WithJSONLValidation(enabled bool) FineTuningOption {
	return func(s *FineTuningService) { s.validateJSONL = enabled }
}

func NewFineTuningService(provider ports.ProviderClient, files *FileService, logs *GenerationLogService, opts ...FineTuningOption) *FineTuningService {
	s := &FineTuningService{
		provider: provider,
		files:    files,
		logs:     logs,
		recheck:  poll.Recheck,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateJob uploads the training (and optional validation) file, makes sure
// the training file is processed and submits the job. Nothing is
// deduplicated: every call uploads and creates anew.
func (s *FineTuningService) CreateJob(ctx context.Context, params domain.FineTuningParams) (*domain.FineTuningStatus, error) {
	if params.TrainingFile == nil {
		return nil, domain.NewFineTuningError(domain.KindConfiguration, "Training file is required", domain.ErrMissingTrainingFile)
	}
	if strings.TrimSpace(params.Model) == "" {
		return nil, domain.NewFineTuningError(domain.KindConfiguration, "Model is required", domain.ErrMissingModel)
	}

	if s.validateJSONL {
		if err := validateTrainingData("Training", params.TrainingFile); err != nil {
			return nil, err
		}
		if params.ValidationFile != nil {
			if err := validateTrainingData("Validation", params.ValidationFile); err != nil {
				return nil, err
			}
		}
	}

	act := s.newActivity(params.Model)

	act.record(ctx, domain.LogStatusStarted, StepUploadTrainingFile, map[string]any{"filename": params.TrainingFile.Name})
	trainingID, err := s.files.UploadFile(ctx, *params.TrainingFile, domain.FilePurposeFineTune)
	if err != nil {
		act.fail(ctx, StepUploadTrainingFile, err)
		return nil, err
	}
	log.WithField("file_id", trainingID).Info("Training file uploaded")

	var validationID string
	if params.ValidationFile != nil {
		act.record(ctx, domain.LogStatusProcessing, StepUploadValidationFile, map[string]any{"filename": params.ValidationFile.Name})
		validationID, err = s.files.UploadFile(ctx, *params.ValidationFile, domain.FilePurposeFineTune)
		if err != nil {
			act.fail(ctx, StepUploadValidationFile, err)
			return nil, err
		}
		log.WithField("file_id", validationID).Info("Validation file uploaded")
	}

	act.record(ctx, domain.LogStatusProcessing, StepAwaitProcessing, map[string]any{"training_file": trainingID})
	if err := s.ensureProcessed(ctx, trainingID); err != nil {
		act.fail(ctx, StepAwaitProcessing, err)
		return nil, err
	}

	req := &ports.CreateJobRequest{
		TrainingFile:    trainingID,
		Model:           params.Model,
		Hyperparameters: mapHyperparameters(params.Hyperparameters),
		ValidationFile:  validationID,
		Suffix:          params.Suffix,
	}
	if body, err := json.Marshal(req); err == nil {
		log.WithField("params", string(body)).Info("Creating fine-tuning job")
	}

	job, err := s.provider.CreateFineTuningJob(ctx, req)
	if err != nil {
		ferr := creationError(params.Model, req, err)
		log.WithError(err).WithField("kind", ferr.Kind.String()).Error("Create fine-tuning job failed")
		act.fail(ctx, StepCreateJob, ferr)
		return nil, ferr
	}

	status := toStatus(job)
	log.WithFields(log.Fields{"job_id": status.JobID, "status": status.Status}).Info("Fine-tuning job created")
	act.record(ctx, domain.LogStatusCompleted, StepCreateJob, map[string]any{
		"job_id": status.JobID,
		"status": string(status.Status),
	})
	return status, nil
}

// ensureProcessed re-reads the training file and, when it is still not
// processed, waits once more under the recheck policy.
func (s *FineTuningService) ensureProcessed(ctx context.Context, fileID string) error {
	pf, err := s.provider.GetFile(ctx, fileID)
	if err != nil {
		log.WithError(err).WithField("file_id", fileID).Error("Check file status failed")
		return domain.NewFineTuningError(classify(err),
			"Error checking file status: "+providerDetail(err), err)
	}
	if pf.Processed() {
		return nil
	}

	log.WithField("file_id", fileID).Info("File still not processed. Waiting additional time")
	ok, err := s.files.WaitForFileProcessing(ctx, fileID, s.recheck)
	if err != nil {
		return domain.NewFineTuningError(domain.KindUnknown, "Error checking file status: "+err.Error(), err)
	}
	if !ok {
		return domain.NewFineTuningError(domain.KindFileNotReady, "Error checking file status: "+fileNotReadyMessage, nil)
	}
	return nil
}

// mapHyperparameters renames the supplied knobs to their wire names. Nil
// means the hyperparameters key is left out of the request.
func mapHyperparameters(h *domain.Hyperparameters) *ports.JobHyperparameters {
	if h.IsEmpty() {
		return nil
	}
	return &ports.JobHyperparameters{
		BatchSize:              h.BatchSize,
		LearningRateMultiplier: h.LearningRate,
		NEpochs:                h.NEpochs,
		WarmupRatio:            h.WarmupRatio,
		WeightDecay:            h.WeightDecay,
		Lora:                   h.Lora,
		LoraR:                  h.LoraR,
		LoraAlpha:              h.LoraAlpha,
		LoraDropout:            h.LoraDropout,
		Packing:                h.Packing,
	}
}

func toStatus(job *ports.ProviderJob) *domain.FineTuningStatus {
	st := &domain.FineTuningStatus{
		JobID:          job.ID,
		Status:         domain.JobStatus(job.Status),
		Model:          job.Model,
		CreatedAt:      domain.EpochToISO(job.CreatedAt),
		FineTunedModel: job.FineTunedModel,
		TrainingFile:   job.TrainingFile,
		ValidationFile: job.ValidationFile,
	}
	if job.FinishedAt > 0 {
		st.FinishedAt = domain.EpochToISO(job.FinishedAt)
	}
	return st
}

func validateTrainingData(label string, f *domain.UploadedFile) error {
	report, err := domain.ValidateJSONL(bytes.NewReader(f.Content))
	if err != nil {
		return domain.NewFineTuningError(domain.KindInvalidFormat,
			fmt.Sprintf("%s file %s could not be read: %v", label, f.Name, err), err)
	}
	if !report.Valid() {
		return domain.NewFineTuningError(domain.KindInvalidFormat,
			fmt.Sprintf("%s file %s is not valid chat-format JSONL:\n%s", label, f.Name, strings.Join(report.Problems(), "\n")),
			report.Err)
	}
	return nil
}

// ============================================================================
// Error shaping
// ============================================================================

const (
	paramsHint = "\nPlease verify that the model \"%s\" supports fine-tuning."
	formatHint = "\nEnsure your training file is in the correct JSONL format with 'messages' array containing 'role' and 'content' fields."
)

// creationError builds the user-facing message of a failed job creation.
func creationError(model string, req *ports.CreateJobRequest, err error) *domain.FineTuningError {
	msg := "Error creating fine-tuning job"

	var perr *ports.ProviderError
	switch {
	case errors.As(err, &perr) && perr.HasEnvelope:
		msg += ": " + perr.Message
	case errors.As(err, &perr):
		msg += fmt.Sprintf(": %d %s", perr.StatusCode, perr.StatusText())
		if body, jerr := json.Marshal(req); jerr == nil {
			msg += "\nRequest params: " + string(body)
		}
		msg += fmt.Sprintf(paramsHint, model)
		msg += formatHint
	default:
		msg += ": " + err.Error()
	}
	return domain.NewFineTuningError(classify(err), msg, err)
}

var formatMarkers = []string{"format", "jsonl", "messages", "role", "content"}

// classify decides the kind from the error's structure. Only a provider
// rejection of the request that points at the data counts as a format error.
func classify(err error) domain.ErrorKind {
	if errors.Is(err, domain.ErrMissingAPIKey) {
		return domain.KindConfiguration
	}
	if k := domain.KindOf(err); k != domain.KindUnknown {
		return k
	}

	var perr *ports.ProviderError
	if !errors.As(err, &perr) || !perr.HasEnvelope {
		return domain.KindUnknown
	}
	if perr.StatusCode != 400 && perr.StatusCode != 422 {
		return domain.KindUnknown
	}
	switch perr.Param {
	case "training_file", "validation_file", "file":
		return domain.KindInvalidFormat
	}
	lower := strings.ToLower(perr.Message)
	for _, m := range formatMarkers {
		if strings.Contains(lower, m) {
			return domain.KindInvalidFormat
		}
	}
	return domain.KindUnknown
}

// providerDetail is the most specific text available for err.
func providerDetail(err error) string {
	var perr *ports.ProviderError
	if errors.As(err, &perr) {
		return perr.Error()
	}
	if errors.Is(err, domain.ErrMissingAPIKey) {
		return domain.ErrMissingAPIKey.Error()
	}
	return err.Error()
}

// ============================================================================
// Activity log
// ============================================================================

type activity struct {
	logs      *GenerationLogService
	requestID string
	model     string
}

func (s *FineTuningService) newActivity(model string) *activity {
	return &activity{
		logs:      s.logs,
		requestID: "fine_tune_" + uuid.NewString(),
		model:     model,
	}
}

func (a *activity) record(ctx context.Context, status domain.LogStatus, step string, details map[string]any) {
	if !a.logs.Enabled() {
		return
	}
	a.logs.RecordBestEffort(ctx, &domain.GenerationLog{
		RequestID: a.requestID,
		Prompt:    a.model,
		Status:    status,
		Step:      step,
		Details:   details,
	})
}

func (a *activity) fail(ctx context.Context, step string, err error) {
	a.record(ctx, domain.LogStatusFailed, step, map[string]any{
		"error": err.Error(),
		"kind":  domain.KindOf(err).String(),
	})
}
