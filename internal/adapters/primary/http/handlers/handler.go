package handlers

import (
	"studio-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	fineTuningSvc *services.FineTuningService
	checkpointSvc *services.CheckpointService
	logSvc        *services.GenerationLogService

	// providerConfigured is false when no provider API key is set; job
	// creation is then refused before the form is read.
	providerConfigured bool
}

func New(
	fineTuningSvc *services.FineTuningService,
	checkpointSvc *services.CheckpointService,
	logSvc *services.GenerationLogService,
	providerConfigured bool,
) *Handler {
	return &Handler{
		fineTuningSvc:      fineTuningSvc,
		checkpointSvc:      checkpointSvc,
		logSvc:             logSvc,
		providerConfigured: providerConfigured,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Fine-tuning
	r.POST("/fine-tune", h.CreateFineTuningJob)
	r.GET("/fine-tune", h.GetFineTuningJob)
	r.POST("/fine-tune/validate", h.ValidateTrainingFile)

	// Generation logs
	r.GET("/logs", h.ListLogs)
	r.POST("/gallery/save", h.SaveToGallery)
}
