package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"studio-service/internal/adapters/primary/http/dto"
)

// ============================================================================
// Generation Logs
// ============================================================================

func (h *Handler) ListLogs(c *gin.Context) {
	var q dto.ListLogsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filter, err := q.Filter()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.logSvc.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list generation logs failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToListLogsResponse(page))
}

func (h *Handler) SaveToGallery(c *gin.Context) {
	var req dto.SaveToGalleryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.logSvc.SaveToGallery(c.Request.Context(), req.RequestID, req.ImageURL); err != nil {
		log.WithError(err).WithField("request_id", req.RequestID).Error("save to gallery failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SaveToGalleryResponse{
		Success:   true,
		Message:   "Image saved to gallery successfully",
		RequestID: req.RequestID,
		ImageURL:  req.ImageURL,
	})
}

// Healthz reports liveness and, when a log store is configured, its
// reachability.
func (h *Handler) Healthz(c *gin.Context) {
	if err := h.logSvc.Ping(c.Request.Context()); err != nil {
		log.WithError(err).Warn("log store ping failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
