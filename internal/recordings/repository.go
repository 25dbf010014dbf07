package recordings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calldoc/backend/internal/models"
)

// Repository reads recordings and persists the derived paused-segment cache.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a recordings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a recording by ID, or nil if it does not exist. Soft-deleted rows are returned with IsDeleted set.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	const q = `SELECT id, start_time, duration_ms, duration, is_deleted, paused_segments, created_at, updated_at
		FROM recordings WHERE id = $1`
	var (
		rec      models.Recording
		segments []byte
	)
	err := r.pool.QueryRow(ctx, q, id).Scan(&rec.ID, &rec.StartTime, &rec.DurationMs, &rec.Duration, &rec.IsDeleted, &segments, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.PausedSegments, err = decodeSegments(segments)
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", id, err)
	}
	return &rec, nil
}

// UpdatePausedSegments overwrites the paused-segment cache for a recording.
func (r *Repository) UpdatePausedSegments(ctx context.Context, id uuid.UUID, ranges []models.PausedRange) error {
	raw, err := encodeSegments(ranges)
	if err != nil {
		return err
	}
	const q = `UPDATE recordings SET paused_segments = $1, updated_at = NOW() WHERE id = $2`
	_, err = r.pool.Exec(ctx, q, raw, id)
	return err
}

func encodeSegments(ranges []models.PausedRange) ([]byte, error) {
	if ranges == nil {
		ranges = []models.PausedRange{}
	}
	raw, err := json.Marshal(ranges)
	if err != nil {
		return nil, fmt.Errorf("marshal paused segments: %w", err)
	}
	return raw, nil
}

func decodeSegments(raw []byte) ([]models.PausedRange, error) {
	if len(raw) == 0 {
		return []models.PausedRange{}, nil
	}
	var out []models.PausedRange
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode paused segments: %w", err)
	}
	if out == nil {
		out = []models.PausedRange{}
	}
	return out, nil
}
