package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"studio-service/internal/core/domain"
	ports "studio-service/internal/core/ports/output"
)

// Schema is the expected layout of the generation_logs table.
const Schema = `
CREATE TABLE IF NOT EXISTS generation_logs (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	request_id TEXT NOT NULL,
	user_id    TEXT NOT NULL DEFAULT 'anonymous',
	prompt     TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	step       TEXT NOT NULL DEFAULT '',
	details    JSONB NOT NULL DEFAULT '{}'::jsonb,
	image_url  TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS generation_logs_request_id_idx ON generation_logs (request_id);
CREATE INDEX IF NOT EXISTS generation_logs_created_at_idx ON generation_logs (created_at DESC);
`

const undefinedTable = "42P01"

type generationLogRepo struct {
	pool *pgxpool.Pool
}

// NewGenerationLogRepository creates a generation log repository backed by
// Postgres (Supabase included).
func NewGenerationLogRepository(pool *pgxpool.Pool) ports.GenerationLogRepository {
	return &generationLogRepo{pool: pool}
}

func (r *generationLogRepo) Insert(ctx context.Context, entry *domain.GenerationLog) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	query := `
		INSERT INTO generation_logs (id, request_id, user_id, prompt, status, step, details, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		entry.ID,
		entry.RequestID,
		entry.UserID,
		entry.Prompt,
		entry.Status,
		entry.Step,
		details,
		entry.ImageURL,
		entry.CreatedAt,
	)
	if err != nil {
		return mapError("insert generation log", err)
	}
	return nil
}

func (r *generationLogRepo) List(ctx context.Context, filter ports.GenerationLogFilter) ([]*domain.GenerationLog, int, error) {
	whereClause, args, argPos := buildLogFilter(filter)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM generation_logs WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, mapError("count generation logs", err)
	}

	query := fmt.Sprintf(`
		SELECT id, request_id, user_id, prompt, status, step, details, image_url, created_at
		FROM generation_logs
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapError("query generation logs", err)
	}
	defer rows.Close()

	logs := []*domain.GenerationLog{}
	for rows.Next() {
		entry, err := scanGenerationLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan generation log: %w", err)
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError("iterate generation logs", err)
	}
	return logs, total, nil
}

// buildLogFilter renders the WHERE clause of a listing and its positional
// args. argPos is the next free placeholder number.
func buildLogFilter(filter ports.GenerationLogFilter) (string, []interface{}, int) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filter.RequestID != "" {
		conditions = append(conditions, fmt.Sprintf("request_id = $%d", argPos))
		args = append(args, filter.RequestID)
		argPos++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filter.Status)
		argPos++
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argPos))
		args = append(args, filter.UserID)
		argPos++
	}
	if filter.GalleryOnly {
		conditions = append(conditions, `image_url IS NOT NULL AND details @> '{"saved_to_gallery": true}'::jsonb`)
	}

	if len(conditions) == 0 {
		return "1=1", args, argPos
	}
	return strings.Join(conditions, " AND "), args, argPos
}

func (r *generationLogRepo) LatestCompleted(ctx context.Context, requestID string) (*domain.GenerationLog, error) {
	query := `
		SELECT id, request_id, user_id, prompt, status, step, details, image_url, created_at
		FROM generation_logs
		WHERE request_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	entry, err := scanGenerationLog(r.pool.QueryRow(ctx, query, requestID, domain.LogStatusCompleted))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	result, err := r.pool.Exec(ctx, `UPDATE generation_logs SET details = $1 WHERE id = $2`, raw, id)
	if err != nil {
		return mapError("update generation log details", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrLogNotFound
	}
	return nil
}

func (r *generationLogRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// ============================================================================
// Helpers
// ============================================================================

func scanGenerationLog(row pgx.Row) (*domain.GenerationLog, error) {
	var (
		entry   domain.GenerationLog
		details []byte
	)
	err := row.Scan(
		&entry.ID,
		&entry.RequestID,
		&entry.UserID,
		&entry.Prompt,
		&entry.Status,
		&entry.Step,
		&details,
		&entry.ImageURL,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeDetails(details, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func decodeDetails(raw []byte, entry *domain.GenerationLog) error {
	entry.Details = map[string]any{}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, &entry.Details); err != nil {
		return fmt.Errorf("decode details: %w", err)
	}
	return nil
}

func mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return domain.ErrLogTableMissing
	}
	return fmt.Errorf("%s: %w", op, err)
}
