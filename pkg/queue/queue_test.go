package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_EnqueuePauseEvent(t *testing.T) {
	db, mock := redismock.NewClientMock()
	q := NewQueue(db, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	q.now = func() time.Time { return fixed }
	q.newID = func() string { return "job-1" }

	payload := PauseEventPayload{
		EventID:     uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		RecordingID: uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		EventType:   "pause",
		TimestampMs: 60000,
		OccurredAt:  fixed,
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(Job{ID: "job-1", Type: JobTypePauseEvent, Payload: body, CreatedAt: fixed})
	require.NoError(t, err)

	mock.ExpectRPush(QueuePauseEvents, raw).SetVal(1)

	require.NoError(t, q.EnqueuePauseEvent(context.Background(), payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueue_EnqueuePauseEvent_RedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	q := NewQueue(db, nil)
	q.now = func() time.Time { return time.Unix(0, 0).UTC() }
	q.newID = func() string { return "job-1" }

	payload := PauseEventPayload{EventType: "resume"}
	body, _ := json.Marshal(payload)
	raw, _ := json.Marshal(Job{ID: "job-1", Type: JobTypePauseEvent, Payload: body, CreatedAt: time.Unix(0, 0).UTC()})
	mock.ExpectRPush(QueuePauseEvents, raw).SetErr(errors.New("redis down"))

	err := q.EnqueuePauseEvent(context.Background(), payload)
	assert.Error(t, err)
}
