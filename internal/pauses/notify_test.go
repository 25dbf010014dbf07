package pauses

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calldoc/backend/internal/models"
	"github.com/calldoc/backend/pkg/queue"
)

type captureEnqueuer struct {
	payloads []queue.PauseEventPayload
}

func (c *captureEnqueuer) EnqueuePauseEvent(ctx context.Context, p queue.PauseEventPayload) error {
	c.payloads = append(c.payloads, p)
	return nil
}

func TestQueueNotifier_MapsEvent(t *testing.T) {
	q := &captureEnqueuer{}
	user := uuid.New()
	ev := &models.PauseEvent{
		ID:          uuid.New(),
		RecordingID: uuid.New(),
		UserID:      &user,
		EventType:   models.PauseEventPause,
		TimestampMs: 42000,
		Reason:      "card entry",
		Seq:         1,
		CreatedAt:   time.Date(2026, 3, 1, 10, 0, 42, 0, time.UTC),
	}

	require.NoError(t, NewQueueNotifier(q).Notify(context.Background(), ev))
	require.Len(t, q.payloads, 1)
	p := q.payloads[0]
	assert.Equal(t, ev.ID, p.EventID)
	assert.Equal(t, ev.RecordingID, p.RecordingID)
	assert.Equal(t, &user, p.UserID)
	assert.Equal(t, "pause", p.EventType)
	assert.Equal(t, int64(42000), p.TimestampMs)
	assert.Equal(t, "card entry", p.Reason)
	assert.Equal(t, ev.CreatedAt, p.OccurredAt)
}

func TestQueueNotifier_SystemEventHasNoUser(t *testing.T) {
	h := newHarness(t, Config{AutoResumeTimeout: time.Second, DisableLocalTimers: true})
	q := &captureEnqueuer{}
	h.svc.notifier = NewQueueNotifier(q)
	ctx := context.Background()
	recID := h.newRecording(300000)

	_, err := h.svc.Pause(ctx, recID, uuid.New(), "")
	require.NoError(t, err)
	h.clock.Advance(2 * time.Second)
	n, err := h.svc.AutoResumeCheck(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.Len(t, q.payloads, 2)
	assert.Equal(t, "auto_resume", q.payloads[1].EventType)
	assert.Nil(t, q.payloads[1].UserID)
}
