package models

import (
	"time"

	"github.com/google/uuid"
)

// PausedRange is one paused window on a recording timeline, in milliseconds from start.
type PausedRange struct {
	StartMs int64 `json:"start_ms"`
	EndMs   int64 `json:"end_ms"`
}

// Segment is a contiguous range of a recording timeline tagged active or paused.
type Segment struct {
	StartMs  int64 `json:"start_ms"`
	EndMs    int64 `json:"end_ms"`
	IsActive bool  `json:"is_active"`
}

// Recording is a call recording as seen by the pause engine.
// PausedSegments is a cache derived from the pause event log; never edit it by hand.
type Recording struct {
	ID             uuid.UUID     `json:"id"`
	StartTime      *time.Time    `json:"start_time,omitempty"`
	DurationMs     *int64        `json:"duration_ms,omitempty"`
	Duration       *int          `json:"duration,omitempty"` // seconds; fallback when DurationMs is absent
	IsDeleted      bool          `json:"is_deleted"`
	PausedSegments []PausedRange `json:"paused_segments"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TotalDurationMs returns the recording length in ms, falling back to Duration*1000, then 0.
func (r *Recording) TotalDurationMs() int64 {
	if r.DurationMs != nil {
		return *r.DurationMs
	}
	if r.Duration != nil {
		return int64(*r.Duration) * 1000
	}
	return 0
}

// OffsetMs returns where on the recording timeline the wall-clock instant now falls.
// A recording without a start time is treated as offset 0.
func (r *Recording) OffsetMs(now time.Time) int64 {
	if r.StartTime == nil {
		return 0
	}
	off := now.Sub(*r.StartTime).Milliseconds()
	if off < 0 {
		return 0
	}
	return off
}
