package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kontrolhq/kontrol-backend/internal/model"
)

// CollectedSubmission is a result pack archived by the collection endpoint.
type CollectedSubmission struct {
	ID              int64           `json:"id"`
	Variant         string          `json:"variant"`
	FullName        string          `json:"full_name"`
	ClassName       string          `json:"class_name"`
	ContentHash     string          `json:"content_hash"`
	EarlySubmit     bool            `json:"early_submit"`
	DurationMinutes int             `json:"duration_minutes"`
	StartedAt       *time.Time      `json:"started_at"`
	ReceivedAt      time.Time       `json:"received_at"`
	Payload         json.RawMessage `json:"payload"`
}

// SubmissionRepository archives collected result packs in PostgreSQL.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Insert archives a pack. Inserting the same content hash twice is a no-op:
// the collection side mirrors the client's idempotence guarantee, so a
// student retrying a slow upload never produces duplicate rows.
// Returns true when a new row was written.
func (r *SubmissionRepository) Insert(ctx context.Context, pack *model.ResultPack, contentHash string) (bool, error) {
	payload, err := json.Marshal(pack)
	if err != nil {
		return false, err
	}

	var fullName, className string
	if pack.Identity != nil {
		fullName = pack.Identity.FullName
		className = pack.Identity.ClassName
	}

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO submissions
		   (variant, full_name, class_name, content_hash, early_submit, duration_minutes, started_at, payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (content_hash) DO NOTHING`,
		pack.Variant, fullName, className, contentHash,
		pack.Timer.EarlySubmit, pack.DurationMinutes, pack.Timer.StartedAt, payload,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListByVariant retrieves archived submissions for teacher review, newest
// first, with pagination.
func (r *SubmissionRepository) ListByVariant(ctx context.Context, variant string, page, perPage int) ([]CollectedSubmission, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE variant = $1`, variant,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT id, variant, full_name, class_name, content_hash, early_submit,
		        duration_minutes, started_at, received_at, payload
		 FROM submissions
		 WHERE variant = $1
		 ORDER BY received_at DESC
		 LIMIT $2 OFFSET $3`,
		variant, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []CollectedSubmission
	for rows.Next() {
		var s CollectedSubmission
		if err := rows.Scan(
			&s.ID, &s.Variant, &s.FullName, &s.ClassName, &s.ContentHash,
			&s.EarlySubmit, &s.DurationMinutes, &s.StartedAt, &s.ReceivedAt, &s.Payload,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}
