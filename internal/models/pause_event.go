package models

import (
	"time"

	"github.com/google/uuid"
)

// PauseEventType is the kind of pause-state transition.
type PauseEventType string

const (
	PauseEventPause      PauseEventType = "pause"
	PauseEventResume     PauseEventType = "resume"
	PauseEventAutoResume PauseEventType = "auto_resume"
)

// IsResume reports whether t ends a pause (manual or automatic).
func (t PauseEventType) IsResume() bool {
	return t == PauseEventResume || t == PauseEventAutoResume
}

// Valid reports whether t is a known event type.
func (t PauseEventType) Valid() bool {
	return t == PauseEventPause || t.IsResume()
}

// PauseEvent is one append-only audit trail entry.
// TimestampMs is the offset from recording start, not wall-clock time.
// Seq is 1-based and strictly increasing per recording in write order.
type PauseEvent struct {
	ID          uuid.UUID      `json:"id"`
	RecordingID uuid.UUID      `json:"recording_id"`
	UserID      *uuid.UUID     `json:"user_id"` // nil for system-initiated events
	EventType   PauseEventType `json:"event_type"`
	TimestampMs int64          `json:"timestamp_ms"`
	Reason      string         `json:"reason,omitempty"`
	Seq         int64          `json:"seq"`
	CreatedAt   time.Time      `json:"created_at"`
}

// IsSystemEvent reports whether the event was written by the scheduler rather than a user.
func (e *PauseEvent) IsSystemEvent() bool {
	return e.UserID == nil
}
