package pauses

import (
	"sort"

	"github.com/calldoc/backend/internal/models"
)

// Reconstruct derives the ordered active/paused segments of a recording from its pause history.
// It is pure: the same duration and events always yield the same segments. Events are sorted
// by timeline offset (ties broken by write order) before the walk; the input slice is not modified.
// Zero-length segments are dropped.
func Reconstruct(durationMs int64, events []models.PauseEvent) []models.Segment {
	ordered := make([]models.PauseEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].TimestampMs != ordered[j].TimestampMs {
			return ordered[i].TimestampMs < ordered[j].TimestampMs
		}
		return ordered[i].Seq < ordered[j].Seq
	})

	var (
		out     []models.Segment
		current int64
		paused  bool
	)
	emit := func(end int64, active bool) {
		if end > current {
			out = append(out, models.Segment{StartMs: current, EndMs: end, IsActive: active})
		}
		current = end
	}
	for _, ev := range ordered {
		switch {
		case ev.EventType == models.PauseEventPause && !paused:
			emit(ev.TimestampMs, true)
			paused = true
		case ev.EventType.IsResume() && paused:
			emit(ev.TimestampMs, false)
			paused = false
		}
	}
	if durationMs > current {
		out = append(out, models.Segment{StartMs: current, EndMs: durationMs, IsActive: !paused})
	}
	if out == nil {
		out = []models.Segment{}
	}
	return out
}

// PausedRanges keeps only the inactive segments, in order. This is what the recording cache stores.
func PausedRanges(segments []models.Segment) []models.PausedRange {
	out := []models.PausedRange{}
	for _, s := range segments {
		if !s.IsActive {
			out = append(out, models.PausedRange{StartMs: s.StartMs, EndMs: s.EndMs})
		}
	}
	return out
}
