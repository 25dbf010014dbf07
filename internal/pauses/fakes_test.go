package pauses

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/calldoc/backend/internal/models"
)

type memRecordings struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*models.Recording
	updateErr error
	updates   int
}

func newMemRecordings() *memRecordings {
	return &memRecordings{byID: make(map[uuid.UUID]*models.Recording)}
}

func (r *memRecordings) add(rec *models.Recording) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rec.ID] = rec
}

func (r *memRecordings) GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	cp.PausedSegments = append([]models.PausedRange(nil), rec.PausedSegments...)
	return &cp, nil
}

func (r *memRecordings) UpdatePausedSegments(ctx context.Context, id uuid.UUID, ranges []models.PausedRange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if rec, ok := r.byID[id]; ok {
		rec.PausedSegments = append([]models.PausedRange{}, ranges...)
		r.updates++
	}
	return nil
}

func (r *memRecordings) paused(id uuid.UUID) []models.PausedRange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id].PausedSegments
}

// memEvents enforces the same (recording_id, seq) uniqueness as the Postgres schema.
type memEvents struct {
	mu           sync.Mutex
	events       []models.PauseEvent
	appendErr    error
	appendErrFor map[uuid.UUID]error
	staleErr     error
	// beforeAppend runs outside the mutex, letting tests interleave writers.
	beforeAppend func(ev *models.PauseEvent)
}

func newMemEvents() *memEvents { return &memEvents{appendErrFor: make(map[uuid.UUID]error)} }

func (m *memEvents) failAppendsFor(id uuid.UUID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.appendErrFor, id)
		return
	}
	m.appendErrFor[id] = err
}

// insert stores ev directly, bypassing hooks and injected failures.
func (m *memEvents) insert(ev models.PauseEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *memEvents) Append(ctx context.Context, ev *models.PauseEvent) error {
	if m.beforeAppend != nil {
		m.beforeAppend(ev)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	if err := m.appendErrFor[ev.RecordingID]; err != nil {
		return err
	}
	for _, e := range m.events {
		if e.RecordingID == ev.RecordingID && e.Seq == ev.Seq {
			return ErrSequenceConflict
		}
	}
	m.events = append(m.events, *ev)
	return nil
}

func (m *memEvents) Latest(ctx context.Context, recordingID uuid.UUID) (*models.PauseEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.PauseEvent
	for i := range m.events {
		e := m.events[i]
		if e.RecordingID == recordingID && (latest == nil || e.Seq > latest.Seq) {
			latest = &e
		}
	}
	return latest, nil
}

func (m *memEvents) ListByRecording(ctx context.Context, recordingID uuid.UUID) ([]models.PauseEvent, error) {
	out := m.forRecording(recordingID)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TimestampMs != out[j].TimestampMs {
			return out[i].TimestampMs < out[j].TimestampMs
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (m *memEvents) ListStalePauses(ctx context.Context, cutoff time.Time) ([]models.PauseEvent, error) {
	m.mu.Lock()
	if m.staleErr != nil {
		m.mu.Unlock()
		return nil, m.staleErr
	}
	latest := make(map[uuid.UUID]models.PauseEvent)
	for _, e := range m.events {
		if cur, ok := latest[e.RecordingID]; !ok || e.Seq > cur.Seq {
			latest[e.RecordingID] = e
		}
	}
	m.mu.Unlock()
	var out []models.PauseEvent
	for _, e := range latest {
		if e.EventType == models.PauseEventPause && e.CreatedAt.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

// forRecording returns events of one recording in write order.
func (m *memEvents) forRecording(recordingID uuid.UUID) []models.PauseEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PauseEvent
	for _, e := range m.events {
		if e.RecordingID == recordingID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func (m *memEvents) count(recordingID uuid.UUID, t models.PauseEventType) int {
	n := 0
	for _, e := range m.forRecording(recordingID) {
		if e.EventType == t {
			n++
		}
	}
	return n
}

// fakeClock is a settable wall clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.PauseEvent
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, ev *models.PauseEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, *ev)
	return n.err
}

type harness struct {
	svc    *Service
	recs   *memRecordings
	events *memEvents
	clock  *fakeClock
	start  time.Time
}

func newHarness(t *testing.T, cfg Config, opts ...Option) *harness {
	t.Helper()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	h := &harness{
		recs:   newMemRecordings(),
		events: newMemEvents(),
		clock:  newFakeClock(start),
		start:  start,
	}
	opts = append([]Option{WithClock(h.clock.Now)}, opts...)
	h.svc = NewService(h.recs, h.events, NewKeyedLocker(), cfg, nil, opts...)
	t.Cleanup(h.svc.Shutdown)
	return h
}

// newRecording adds a live recording that started at the harness start time.
func (h *harness) newRecording(durationMs int64) uuid.UUID {
	id := uuid.New()
	start := h.start
	d := durationMs
	h.recs.add(&models.Recording{ID: id, StartTime: &start, DurationMs: &d, PausedSegments: []models.PausedRange{}})
	return id
}

// requireAlternating asserts pause and resume phases alternate in write order.
func requireAlternating(t *testing.T, events []models.PauseEvent) {
	t.Helper()
	for i := 1; i < len(events); i++ {
		prevPause := events[i-1].EventType == models.PauseEventPause
		curPause := events[i].EventType == models.PauseEventPause
		require.NotEqual(t, prevPause, curPause, "events %d and %d share a phase: %s, %s", i-1, i, events[i-1].EventType, events[i].EventType)
	}
	if len(events) > 0 {
		require.Equal(t, models.PauseEventPause, events[0].EventType, "history must start with a pause")
	}
}
