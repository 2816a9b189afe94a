package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"studio-service/internal/adapters/primary/http/dto"
	"studio-service/internal/core/domain"
)

const failedRequestMessage = "Failed to process fine-tuning request"

// ============================================================================
// Fine-Tuning Jobs
// ============================================================================

func (h *Handler) CreateFineTuningJob(c *gin.Context) {
	if !h.providerConfigured {
		c.JSON(http.StatusInternalServerError, gin.H{"error": domain.ErrMissingAPIKey.Error()})
		return
	}

	var form dto.CreateFineTuneForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if form.Model == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Model is required"})
		return
	}

	training, err := formFile(c, "trainingFile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if training == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Training file is required"})
		return
	}
	if !domain.HasJSONLExtension(training.Name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Training file must be in JSONL format with .jsonl extension"})
		return
	}

	validation, err := formFile(c, "validationFile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if validation != nil && !domain.HasJSONLExtension(validation.Name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation file must be in JSONL format with .jsonl extension"})
		return
	}

	hp, err := form.Hyperparameters()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.fineTuningSvc.CreateJob(c.Request.Context(), domain.FineTuningParams{
		Model:           form.Model,
		TrainingFile:    training,
		ValidationFile:  validation,
		Hyperparameters: hp,
		Suffix:          form.Suffix,
	})
	if err != nil {
		log.WithError(err).WithField("kind", domain.KindOf(err).String()).Error("create fine-tuning job failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CreateFineTuneResponse{Job: job})
}

// GetFineTuningJob dispatches the read actions selected by ?action=.
func (h *Handler) GetFineTuningJob(c *gin.Context) {
	var q dto.JobQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.JobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Job ID is required"})
		return
	}

	ctx := c.Request.Context()
	var (
		resp any
		err  error
	)
	switch {
	case q.Action == dto.ActionStatus:
		var status *domain.FineTuningStatus
		if status, err = h.fineTuningSvc.GetJobStatus(ctx, q.JobID); err == nil {
			resp = dto.JobStatusResponse{Success: true, Status: status}
		}
	case q.Action == dto.ActionEvents:
		var events []domain.JobEvent
		if events, err = h.fineTuningSvc.ListJobEvents(ctx, q.JobID); err == nil {
			resp = dto.JobEventsResponse{Success: true, Events: events}
		}
	case q.Action == dto.ActionCheckpoints:
		var checkpoints []domain.Checkpoint
		if checkpoints, err = h.fineTuningSvc.ListJobCheckpoints(ctx, q.JobID); err == nil {
			resp = dto.JobCheckpointsResponse{Success: true, Checkpoints: checkpoints}
		}
	case q.Action == dto.ActionDownload && q.FileID != "" && q.Filename != "":
		var path string
		if path, err = h.checkpointSvc.Download(ctx, q.FileID, q.Filename); err == nil {
			resp = dto.DownloadResponse{Success: true, FilePath: path}
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action"})
		return
	}

	if err != nil {
		log.WithError(err).WithFields(log.Fields{"job_id": q.JobID, "action": q.Action}).Error("fine-tuning read failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: failedRequestMessage, Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ValidateTrainingFile checks a chat-format JSONL file without uploading it.
func (h *Handler) ValidateTrainingFile(c *gin.Context) {
	file, err := formFile(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if file == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	if !domain.HasJSONLExtension(file.Name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidExtension.Error()})
		return
	}

	report, err := domain.ValidateJSONL(bytes.NewReader(file.Content))
	if err != nil {
		log.WithError(err).Error("validate training file failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.ToValidateResponse(file.Name, report))
}

// formFile reads a multipart file field into memory. A missing field yields
// (nil, nil).
func formFile(c *gin.Context, field string) (*domain.UploadedFile, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	return &domain.UploadedFile{Name: fh.Filename, Content: content}, nil
}
