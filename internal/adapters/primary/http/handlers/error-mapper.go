package handlers

import (
	"errors"
	"net/http"

	"studio-service/internal/adapters/primary/http/dto"
	"studio-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

// mapDomainError classifies on the error's kind, never on its text.
func mapDomainError(c *gin.Context, err error) {
	switch {
	// Server-side configuration
	case errors.Is(err, domain.ErrMissingAPIKey):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

	// Remote file still processing
	case errors.Is(err, domain.ErrFileNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrConfiguration),
		errors.Is(err, domain.ErrInvalidExtension),
		errors.Is(err, domain.ErrMissingRequestID),
		errors.Is(err, domain.ErrMissingImageURL),
		errors.Is(err, domain.ErrInvalidPagination):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Not found errors
	case errors.Is(err, domain.ErrLogNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrLogTableMissing):
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   err.Error(),
			Details: "Please create the table using the SQL provided in the documentation",
		})

	// Service unavailable errors
	case errors.Is(err, domain.ErrLogStoreDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	default:
		var fe *domain.FineTuningError
		if errors.As(err, &fe) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fe.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
