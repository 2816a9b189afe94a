package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"studio-service/internal/core/domain"
	ports "studio-service/internal/core/ports/output"
)

// Fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type generationLogRepo struct {
	db *sql.DB
}

// NewGenerationLogRepository creates a generation log repository on store.
func NewGenerationLogRepository(store *Store) ports.GenerationLogRepository {
	return &generationLogRepo{db: store.db}
}

func (r *generationLogRepo) Insert(ctx context.Context, entry *domain.GenerationLog) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO generation_logs (id, request_id, user_id, prompt, status, step, details, image_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID.String(),
		entry.RequestID,
		entry.UserID,
		entry.Prompt,
		string(entry.Status),
		entry.Step,
		string(details),
		entry.ImageURL,
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return mapError("insert generation log", err)
	}
	return nil
}

func (r *generationLogRepo) List(ctx context.Context, filter ports.GenerationLogFilter) ([]*domain.GenerationLog, int, error) {
	conditions := []string{}
	args := []any{}

	if filter.RequestID != "" {
		conditions = append(conditions, "request_id = ?")
		args = append(args, filter.RequestID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.GalleryOnly {
		conditions = append(conditions, "image_url IS NOT NULL AND json_extract(details, '$.saved_to_gallery') = 1")
	}

	whereClause := "1=1"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM generation_logs WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, mapError("count generation logs", err)
	}

	query := `SELECT id, request_id, user_id, prompt, status, step, details, image_url, created_at
		FROM generation_logs WHERE ` + whereClause + `
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, mapError("query generation logs", err)
	}
	defer rows.Close()

	logs := []*domain.GenerationLog{}
	for rows.Next() {
		entry, err := scanGenerationLog(rows)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError("iterate generation logs", err)
	}
	return logs, total, nil
}

func (r *generationLogRepo) LatestCompleted(ctx context.Context, requestID string) (*domain.GenerationLog, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, request_id, user_id, prompt, status, step, details, image_url, created_at
		 FROM generation_logs
		 WHERE request_id = ? AND status = ?
		 ORDER BY created_at DESC
		 LIMIT 1`,
		requestID, string(domain.LogStatusCompleted))
	entry, err := scanGenerationLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLogNotFound
		}
		return nil, mapError("get latest completed generation log", err)
	}
	return entry, nil
}

func (r *generationLogRepo) UpdateDetails(ctx context.Context, id uuid.UUID, details map[string]any) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	res, err := r.db.ExecContext(ctx, "UPDATE generation_logs SET details = ? WHERE id = ?", string(raw), id.String())
	if err != nil {
		return mapError("update generation log details", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrLogNotFound
	}
	return nil
}

func (r *generationLogRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGenerationLog(row scanner) (*domain.GenerationLog, error) {
	var (
		entry     domain.GenerationLog
		id        string
		status    string
		details   string
		imageURL  sql.NullString
		createdAt string
	)
	if err := row.Scan(&id, &entry.RequestID, &entry.UserID, &entry.Prompt, &status, &entry.Step, &details, &imageURL, &createdAt); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse generation log id %q: %w", id, err)
	}
	entry.ID = parsedID
	entry.Status = domain.LogStatus(status)
	if imageURL.Valid {
		entry.ImageURL = &imageURL.String
	}
	if entry.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}

	if details != "" {
		if err := json.Unmarshal([]byte(details), &entry.Details); err != nil {
			return nil, fmt.Errorf("decode details: %w", err)
		}
	}
	if entry.Details == nil {
		entry.Details = map[string]any{}
	}
	return &entry, nil
}

func mapError(op string, err error) error {
	if strings.Contains(err.Error(), "no such table") {
		return domain.ErrLogTableMissing
	}
	return fmt.Errorf("%s: %w", op, err)
}
