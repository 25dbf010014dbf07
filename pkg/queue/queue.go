package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueuePauseEvents is the Redis list key consumed by the webhook/audit dispatchers.
	QueuePauseEvents = "worker:pause_events"
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypePauseEvent JobType = "pause_event"
)

// PauseEventPayload is the payload for pause-state transition notifications.
type PauseEventPayload struct {
	EventID     uuid.UUID  `json:"event_id"`
	RecordingID uuid.UUID  `json:"recording_id"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	EventType   string     `json:"event_type"`
	TimestampMs int64      `json:"timestamp_ms"`
	Reason      string     `json:"reason,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger, now: time.Now, newID: uuid.NewString}
}

// EnqueuePauseEvent enqueues a pause/resume notification job.
func (q *Queue) EnqueuePauseEvent(ctx context.Context, payload PauseEventPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        q.newID(),
		Type:      JobTypePauseEvent,
		Payload:   body,
		Attempt:   0,
		CreatedAt: q.now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueuePauseEvents, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued pause event job", zap.String("job_id", job.ID), zap.String("recording_id", payload.RecordingID.String()), zap.String("event_type", payload.EventType))
	return nil
}
