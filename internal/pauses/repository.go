package pauses

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calldoc/backend/internal/models"
)

const uniqueViolation = "23505"

const eventColumns = `id, recording_id, user_id, event_type, timestamp_ms, COALESCE(reason,''), seq, created_at`

// Repository is the Postgres-backed append-only pause audit trail.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pause event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts a pause event. The (recording_id, seq) unique key turns a lost race into ErrSequenceConflict.
func (r *Repository) Append(ctx context.Context, ev *models.PauseEvent) error {
	const q = `INSERT INTO pause_events (id, recording_id, user_id, event_type, timestamp_ms, reason, seq, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`
	_, err := r.pool.Exec(ctx, q, ev.ID, ev.RecordingID, ev.UserID, string(ev.EventType), ev.TimestampMs, ev.Reason, ev.Seq, ev.CreatedAt)
	return appendError(err)
}

// appendError maps a unique violation on insert to ErrSequenceConflict.
func appendError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrSequenceConflict
	}
	return err
}

// Latest returns the most recent event for a recording, or nil if it has none.
func (r *Repository) Latest(ctx context.Context, recordingID uuid.UUID) (*models.PauseEvent, error) {
	q := `SELECT ` + eventColumns + ` FROM pause_events WHERE recording_id = $1 ORDER BY seq DESC LIMIT 1`
	ev, err := scanEvent(r.pool.QueryRow(ctx, q, recordingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ev, nil
}

// ListByRecording returns every event for a recording ordered by timeline offset, then sequence.
func (r *Repository) ListByRecording(ctx context.Context, recordingID uuid.UUID) ([]models.PauseEvent, error) {
	q := `SELECT ` + eventColumns + ` FROM pause_events WHERE recording_id = $1 ORDER BY timestamp_ms ASC, seq ASC`
	return r.list(ctx, q, recordingID)
}

// ListStalePauses returns each recording's latest event when it is a pause created before cutoff.
func (r *Repository) ListStalePauses(ctx context.Context, cutoff time.Time) ([]models.PauseEvent, error) {
	q := `SELECT ` + eventColumns + ` FROM (
			SELECT DISTINCT ON (recording_id) * FROM pause_events ORDER BY recording_id, seq DESC
		) latest
		WHERE event_type = 'pause' AND created_at < $1
		ORDER BY created_at ASC`
	return r.list(ctx, q, cutoff)
}

func (r *Repository) list(ctx context.Context, q string, args ...any) ([]models.PauseEvent, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.PauseEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *ev)
	}
	return list, rows.Err()
}

func scanEvent(row pgx.Row) (*models.PauseEvent, error) {
	var (
		ev        models.PauseEvent
		eventType string
	)
	if err := row.Scan(&ev.ID, &ev.RecordingID, &ev.UserID, &eventType, &ev.TimestampMs, &ev.Reason, &ev.Seq, &ev.CreatedAt); err != nil {
		return nil, err
	}
	ev.EventType = models.PauseEventType(eventType)
	return &ev, nil
}
