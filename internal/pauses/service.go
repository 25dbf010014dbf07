package pauses

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calldoc/backend/internal/models"
)

// Result messages returned to API callers.
const (
	MsgNotFound   = "Recording not found or deleted"
	MsgAlready    = "Recording is already paused"
	MsgNotPaused  = "Recording is not currently paused"
	MsgPaused     = "Recording paused"
	MsgResumed    = "Recording resumed"
	MsgAutoResume = "Recording auto-resumed"

	autoResumeReason = "auto-resume after pause timeout"
	// maxAppendAttempts bounds re-evaluation after a sequence conflict from a concurrent writer.
	maxAppendAttempts = 3
)

// Outcome classifies a transition result so the HTTP layer can pick a status code.
type Outcome string

const (
	OutcomeOK                Outcome = "ok"
	OutcomeNotFound          Outcome = "not_found"
	OutcomeDeleted           Outcome = "deleted"
	OutcomeInvalidTransition Outcome = "invalid_transition"
)

var (
	// ErrSequenceConflict is returned by an EventStore when another writer already used the sequence number.
	ErrSequenceConflict = errors.New("pause event sequence conflict")
	// ErrRecordingNotFound is returned by read operations on a missing or deleted recording.
	ErrRecordingNotFound = errors.New("recording not found or deleted")
)

// Result is the outcome of a pause or resume request. Domain failures are results, not errors.
type Result struct {
	Success bool       `json:"success"`
	EventID *uuid.UUID `json:"event_id"`
	Message string     `json:"message"`
	Outcome Outcome    `json:"-"`
}

// State is the current pause state of a recording.
type State struct {
	RecordingID uuid.UUID          `json:"recording_id"`
	Paused      bool               `json:"paused"`
	LastEvent   *models.PauseEvent `json:"last_event,omitempty"`
}

// RecordingStore reads recordings and writes the derived paused-segment cache.
type RecordingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error)
	UpdatePausedSegments(ctx context.Context, id uuid.UUID, ranges []models.PausedRange) error
}

// EventStore is the append-only audit trail.
type EventStore interface {
	// Append inserts ev. It returns ErrSequenceConflict if ev.Seq is already taken for the recording.
	Append(ctx context.Context, ev *models.PauseEvent) error
	// Latest returns the most recently written event for a recording, or nil.
	Latest(ctx context.Context, recordingID uuid.UUID) (*models.PauseEvent, error)
	// ListByRecording returns every event for a recording ordered by timeline offset, then sequence.
	ListByRecording(ctx context.Context, recordingID uuid.UUID) ([]models.PauseEvent, error)
	// ListStalePauses returns, per recording, the latest event when it is a pause created before cutoff.
	ListStalePauses(ctx context.Context, cutoff time.Time) ([]models.PauseEvent, error)
}

// Locker serializes the read-check-write sequence per recording.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Notifier publishes committed transitions to downstream consumers (webhooks, system audit log).
type Notifier interface {
	Notify(ctx context.Context, ev *models.PauseEvent) error
}

// Config holds engine settings.
type Config struct {
	// AutoResumeTimeout is how long a pause may last before the system resumes it. 0 disables auto-resume.
	AutoResumeTimeout time.Duration
	// DisableLocalTimers leaves auto-resume entirely to AutoResumeCheck.
	DisableLocalTimers bool
	// SweepConcurrency bounds parallel auto-resumes within one AutoResumeCheck. Defaults to 4.
	SweepConcurrency int
	// BackgroundWriteTimeout bounds a timer-triggered auto-resume. Defaults to 10s.
	BackgroundWriteTimeout time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier publishes every committed transition to n (best-effort).
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides event id generation.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(s *Service) { s.newID = newID }
}

// Service validates and executes pause/resume transitions, owns the auto-resume timers
// and derives playback segments.
type Service struct {
	recordings RecordingStore
	events     EventStore
	locker     Locker
	notifier   Notifier
	cfg        Config
	timers     *timerRegistry
	now        func() time.Time
	newID      func() uuid.UUID
	logger     *zap.Logger
}

// NewService creates the pause/resume engine.
func NewService(recordings RecordingStore, events EventStore, locker Locker, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SweepConcurrency <= 0 {
		cfg.SweepConcurrency = 4
	}
	if cfg.BackgroundWriteTimeout <= 0 {
		cfg.BackgroundWriteTimeout = 10 * time.Second
	}
	s := &Service{
		recordings: recordings,
		events:     events,
		locker:     locker,
		cfg:        cfg,
		timers:     newTimerRegistry(),
		now:        time.Now,
		newID:      uuid.New,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pause suspends capture for a recording. Pausing an already paused recording writes nothing.
func (s *Service) Pause(ctx context.Context, recordingID, userID uuid.UUID, reason string) (*Result, error) {
	uid := userID
	res, ev, err := s.transition(ctx, recordingID, transitionSpec{
		eventType: models.PauseEventPause,
		userID:    &uid,
		reason:    reason,
	})
	if err != nil {
		return nil, err
	}
	pauseTotal.WithLabelValues(string(res.Outcome)).Inc()
	if ev != nil {
		s.logger.Info("recording paused", zap.String("recording_id", recordingID.String()), zap.String("event_id", ev.ID.String()), zap.String("user_id", userID.String()), zap.Int64("timestamp_ms", ev.TimestampMs))
	}
	return res, nil
}

// Resume restarts capture for a paused recording and refreshes its segment cache.
func (s *Service) Resume(ctx context.Context, recordingID, userID uuid.UUID) (*Result, error) {
	uid := userID
	res, ev, err := s.transition(ctx, recordingID, transitionSpec{
		eventType: models.PauseEventResume,
		userID:    &uid,
	})
	if err != nil {
		return nil, err
	}
	resumeTotal.WithLabelValues(string(res.Outcome)).Inc()
	if ev != nil {
		s.logger.Info("recording resumed", zap.String("recording_id", recordingID.String()), zap.String("event_id", ev.ID.String()), zap.String("user_id", userID.String()), zap.Int64("timestamp_ms", ev.TimestampMs))
	}
	return res, nil
}

// State reports whether a recording is currently paused.
func (s *Service) State(ctx context.Context, recordingID uuid.UUID) (*State, error) {
	if _, err := s.liveRecording(ctx, recordingID); err != nil {
		return nil, err
	}
	latest, err := s.events.Latest(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("latest pause event: %w", err)
	}
	return &State{
		RecordingID: recordingID,
		Paused:      latest != nil && latest.EventType == models.PauseEventPause,
		LastEvent:   latest,
	}, nil
}

// History returns the audit trail of a recording in write order.
func (s *Service) History(ctx context.Context, recordingID uuid.UUID) ([]models.PauseEvent, error) {
	if _, err := s.liveRecording(ctx, recordingID); err != nil {
		return nil, err
	}
	events, err := s.events.ListByRecording(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("list pause events: %w", err)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Seq < events[j].Seq })
	return events, nil
}

// Segments re-derives the active/paused segments of a recording from its full event history.
func (s *Service) Segments(ctx context.Context, recordingID uuid.UUID) ([]models.Segment, error) {
	rec, err := s.liveRecording(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	events, err := s.events.ListByRecording(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("list pause events: %w", err)
	}
	return Reconstruct(rec.TotalDurationMs(), events), nil
}

func (s *Service) liveRecording(ctx context.Context, recordingID uuid.UUID) (*models.Recording, error) {
	rec, err := s.recordings.GetByID(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	if rec == nil || rec.IsDeleted {
		return nil, ErrRecordingNotFound
	}
	return rec, nil
}

type transitionSpec struct {
	eventType models.PauseEventType
	userID    *uuid.UUID
	reason    string
	// allowDeleted lets the scheduler close pauses on soft-deleted recordings.
	allowDeleted bool
	// expectPauseID, when set, requires the latest event to be exactly this pause.
	expectPauseID *uuid.UUID
}

// transition runs the locked read-check-write for one recording. It returns the written
// event, or nil when the request was rejected.
func (s *Service) transition(ctx context.Context, recordingID uuid.UUID, spec transitionSpec) (*Result, *models.PauseEvent, error) {
	unlock, err := s.locker.Lock(ctx, lockKey(recordingID))
	if err != nil {
		return nil, nil, fmt.Errorf("lock recording: %w", err)
	}
	defer unlock()

	rec, err := s.recordings.GetByID(ctx, recordingID)
	if err != nil {
		return nil, nil, fmt.Errorf("get recording: %w", err)
	}
	if rec == nil {
		return &Result{Success: false, Message: MsgNotFound, Outcome: OutcomeNotFound}, nil, nil
	}
	if rec.IsDeleted && !spec.allowDeleted {
		return &Result{Success: false, Message: MsgNotFound, Outcome: OutcomeDeleted}, nil, nil
	}

	for attempt := 1; ; attempt++ {
		latest, err := s.events.Latest(ctx, recordingID)
		if err != nil {
			return nil, nil, fmt.Errorf("latest pause event: %w", err)
		}
		if rejected := checkTransition(spec, latest); rejected != nil {
			return rejected, nil, nil
		}

		ev := s.newEvent(rec, latest, spec)
		err = s.events.Append(ctx, ev)
		if errors.Is(err, ErrSequenceConflict) && attempt < maxAppendAttempts {
			s.logger.Warn("pause event sequence conflict, re-evaluating", zap.String("recording_id", recordingID.String()), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("append pause event: %w", err)
		}

		// Timer changes stay under the recording lock so a later transition always sees them.
		if ev.EventType.IsResume() {
			s.timers.cancel(recordingID)
			s.refreshSegments(ctx, rec)
		} else {
			s.armTimer(recordingID, ev.ID)
		}
		s.notify(ctx, ev)
		id := ev.ID
		return &Result{Success: true, EventID: &id, Message: successMessage(ev.EventType), Outcome: OutcomeOK}, ev, nil
	}
}

func checkTransition(spec transitionSpec, latest *models.PauseEvent) *Result {
	paused := latest != nil && latest.EventType == models.PauseEventPause
	if spec.eventType == models.PauseEventPause {
		if paused {
			return &Result{Success: false, Message: MsgAlready, Outcome: OutcomeInvalidTransition}
		}
		return nil
	}
	if !paused {
		return &Result{Success: false, Message: MsgNotPaused, Outcome: OutcomeInvalidTransition}
	}
	if spec.expectPauseID != nil && latest.ID != *spec.expectPauseID {
		return &Result{Success: false, Message: MsgNotPaused, Outcome: OutcomeInvalidTransition}
	}
	return nil
}

func (s *Service) newEvent(rec *models.Recording, latest *models.PauseEvent, spec transitionSpec) *models.PauseEvent {
	var seq int64 = 1
	if latest != nil {
		seq = latest.Seq + 1
	}
	now := s.now()
	return &models.PauseEvent{
		ID:          s.newID(),
		RecordingID: rec.ID,
		UserID:      spec.userID,
		EventType:   spec.eventType,
		TimestampMs: rec.OffsetMs(now),
		Reason:      spec.reason,
		Seq:         seq,
		CreatedAt:   now.UTC(),
	}
}

// refreshSegments recomputes the paused-segment cache from the full history. The event log is
// authoritative, so a failure here is logged rather than failing the committed transition.
func (s *Service) refreshSegments(ctx context.Context, rec *models.Recording) {
	events, err := s.events.ListByRecording(ctx, rec.ID)
	if err != nil {
		s.logger.Error("segment recompute: list events failed", zap.String("recording_id", rec.ID.String()), zap.Error(err))
		return
	}
	ranges := PausedRanges(Reconstruct(rec.TotalDurationMs(), events))
	if err := s.recordings.UpdatePausedSegments(ctx, rec.ID, ranges); err != nil {
		s.logger.Error("segment recompute: update cache failed", zap.String("recording_id", rec.ID.String()), zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, ev *models.PauseEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.Warn("pause event notification failed", zap.String("event_id", ev.ID.String()), zap.Error(err))
	}
}

func successMessage(t models.PauseEventType) string {
	switch t {
	case models.PauseEventPause:
		return MsgPaused
	case models.PauseEventAutoResume:
		return MsgAutoResume
	default:
		return MsgResumed
	}
}

func lockKey(recordingID uuid.UUID) string {
	return "pause:" + recordingID.String()
}
