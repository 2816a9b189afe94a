package ports

import (
	"context"

	"github.com/google/uuid"

	"studio-service/internal/core/domain"
)

// GenerationLogFilter narrows a log listing. Zero values mean "any".
type GenerationLogFilter struct {
	RequestID   string
	Status      domain.LogStatus
	UserID      string
	GalleryOnly bool
	Limit       int
	Offset      int
}

// GenerationLogRepository is the narrow read/write contract of the log store.
type GenerationLogRepository interface {
	Insert(ctx context.Context, entry *domain.GenerationLog) error
	// List returns the matching page newest first, plus the total match count.
	List(ctx context.Context, filter GenerationLogFilter) ([]*domain.GenerationLog, int, error)
	LatestCompleted(ctx context.Context, requestID string) (*domain.GenerationLog, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, details map[string]any) error
	Ping(ctx context.Context) error
}
