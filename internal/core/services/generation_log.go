package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"studio-service/internal/core/domain"
	"studio-service/internal/core/ports/output"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// GenerationLogPage is one page of a log listing.
type GenerationLogPage struct {
	Logs        []*domain.GenerationLog `json:"logs"`
	Total       int                     `json:"total"`
	Limit       int                     `json:"limit"`
	Offset      int                     `json:"offset"`
	TableExists bool                    `json:"tableExists"`
}

// Grouped buckets the page by request id, preserving order within a bucket.
func (p *GenerationLogPage) Grouped() map[string][]*domain.GenerationLog {
	out := make(map[string][]*domain.GenerationLog)
	for _, l := range p.Logs {
		out[l.RequestID] = append(out[l.RequestID], l)
	}
	return out
}

// GenerationLogService records and reads activity rows. A nil repository
// disables the store: writes are dropped and reads fail with
// domain.ErrLogStoreDisabled.
type GenerationLogService struct {
	repo ports.GenerationLogRepository
	now  func() time.Time
}

func NewGenerationLogService(repo ports.GenerationLogRepository) *GenerationLogService {
	return &GenerationLogService{repo: repo, now: time.Now}
}

func (s *GenerationLogService) Enabled() bool {
	return s != nil && s.repo != nil
}

// Record inserts entry, filling in the id, user and timestamp defaults.
func (s *GenerationLogService) Record(ctx context.Context, entry *domain.GenerationLog) error {
	if !s.Enabled() {
		return domain.ErrLogStoreDisabled
	}
	if entry.RequestID == "" {
		return domain.ErrMissingRequestID
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.UserID == "" {
		entry.UserID = domain.DefaultLogUserID
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if entry.Details == nil {
		entry.Details = map[string]any{}
	}
	return s.repo.Insert(ctx, entry)
}

// RecordBestEffort is Record for callers that must not fail on the log store.
func (s *GenerationLogService) RecordBestEffort(ctx context.Context, entry *domain.GenerationLog) {
	if !s.Enabled() {
		return
	}
	if err := s.Record(ctx, entry); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"request_id": entry.RequestID,
			"step":       entry.Step,
		}).Warn("Record generation log failed")
	}
}

// List returns a page of logs, newest first. A missing table yields an empty
// page with TableExists false instead of an error.
func (s *GenerationLogService) List(ctx context.Context, filter ports.GenerationLogFilter) (*GenerationLogPage, error) {
	if !s.Enabled() {
		return nil, domain.ErrLogStoreDisabled
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, domain.ErrInvalidPagination
	}
	if filter.Limit == 0 {
		filter.Limit = defaultLogLimit
	}
	if filter.Limit > maxLogLimit {
		filter.Limit = maxLogLimit
	}

	page := &GenerationLogPage{Limit: filter.Limit, Offset: filter.Offset, TableExists: true}

	logs, total, err := s.repo.List(ctx, filter)
	if errors.Is(err, domain.ErrLogTableMissing) {
		log.Warn("The generation_logs table does not exist; returning an empty result")
		page.TableExists = false
		page.Logs = []*domain.GenerationLog{}
		return page, nil
	}
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []*domain.GenerationLog{}
	}
	page.Logs = logs
	page.Total = total
	return page, nil
}

// SaveToGallery flags the latest completed row of requestID as saved.
func (s *GenerationLogService) SaveToGallery(ctx context.Context, requestID, imageURL string) (*domain.GenerationLog, error) {
	if !s.Enabled() {
		return nil, domain.ErrLogStoreDisabled
	}
	if requestID == "" {
		return nil, domain.ErrMissingRequestID
	}
	if imageURL == "" {
		return nil, domain.ErrMissingImageURL
	}

	entry, err := s.repo.LatestCompleted(ctx, requestID)
	if err != nil {
		return nil, err
	}

	details := make(map[string]any, len(entry.Details)+2)
	for k, v := range entry.Details {
		details[k] = v
	}
	details[domain.DetailSavedToGallery] = true
	details[domain.DetailSavedAt] = s.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")

	if err := s.repo.UpdateDetails(ctx, entry.ID, details); err != nil {
		return nil, err
	}
	entry.Details = details
	return entry, nil
}

// Ping checks the log store. A disabled store is healthy.
func (s *GenerationLogService) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return s.repo.Ping(ctx)
}
