package domain

import (
	"time"

	"github.com/google/uuid"
)

// LogStatus is the stage of a generation request recorded in the log store.
type LogStatus string

const (
	LogStatusStarted    LogStatus = "started"
	LogStatusProcessing LogStatus = "processing"
	LogStatusCompleted  LogStatus = "completed"
	LogStatusFailed     LogStatus = "failed"
)

// DefaultLogUserID is stored when the caller does not identify a user.
const DefaultLogUserID = "anonymous"

// Details keys maintained by the gallery flow.
const (
	DetailSavedToGallery = "saved_to_gallery"
	DetailSavedAt        = "saved_at"
)

// GenerationLog is one row of the generation_logs table.
type GenerationLog struct {
	ID        uuid.UUID      `json:"id"`
	RequestID string         `json:"request_id"`
	UserID    string         `json:"user_id"`
	Prompt    string         `json:"prompt"`
	Status    LogStatus      `json:"status"`
	Step      string         `json:"step"`
	Details   map[string]any `json:"details"`
	ImageURL  *string        `json:"image_url"`
	CreatedAt time.Time      `json:"created_at"`
}
