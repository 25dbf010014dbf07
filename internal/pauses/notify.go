package pauses

import (
	"context"

	"github.com/calldoc/backend/internal/models"
	"github.com/calldoc/backend/pkg/queue"
)

// PauseEventEnqueuer is the part of the job queue the notifier needs.
type PauseEventEnqueuer interface {
	EnqueuePauseEvent(ctx context.Context, payload queue.PauseEventPayload) error
}

// QueueNotifier hands committed transitions to the Redis job queue for the webhook and audit dispatchers.
type QueueNotifier struct {
	q PauseEventEnqueuer
}

// NewQueueNotifier creates a notifier publishing to q.
func NewQueueNotifier(q PauseEventEnqueuer) *QueueNotifier {
	return &QueueNotifier{q: q}
}

// Notify enqueues one pause event.
func (n *QueueNotifier) Notify(ctx context.Context, ev *models.PauseEvent) error {
	return n.q.EnqueuePauseEvent(ctx, queue.PauseEventPayload{
		EventID:     ev.ID,
		RecordingID: ev.RecordingID,
		UserID:      ev.UserID,
		EventType:   string(ev.EventType),
		TimestampMs: ev.TimestampMs,
		Reason:      ev.Reason,
		OccurredAt:  ev.CreatedAt,
	})
}
