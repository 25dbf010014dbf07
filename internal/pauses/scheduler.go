package pauses

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/calldoc/backend/internal/models"
)

const (
	pathTimer = "timer"
	pathSweep = "sweep"
)

// timerRegistry holds the armed auto-resume timers per recording (thread-safe).
// It is process-local and not authoritative: AutoResumeCheck must reach the same outcome without it.
type timerRegistry struct {
	mu       sync.Mutex
	timers   map[uuid.UUID]*armedTimer
	gen      uint64
	closed   bool
	inflight sync.WaitGroup
}

type armedTimer struct {
	timer *time.Timer
	gen   uint64
}

func newTimerRegistry() *timerRegistry {
	return &timerRegistry{timers: make(map[uuid.UUID]*armedTimer)}
}

// arm replaces any timer for id with one that calls fire(gen) after d. It returns false once closed.
func (r *timerRegistry) arm(id uuid.UUID, d time.Duration, fire func(gen uint64)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	if old := r.timers[id]; old != nil {
		old.timer.Stop()
	}
	r.gen++
	gen := r.gen
	r.timers[id] = &armedTimer{gen: gen, timer: time.AfterFunc(d, func() { fire(gen) })}
	armedTimers.Set(float64(len(r.timers)))
	return true
}

// cancel stops and forgets the timer for id. Safe when none is armed or it already fired.
func (r *timerRegistry) cancel(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t := r.timers[id]; t != nil {
		t.timer.Stop()
		delete(r.timers, id)
		armedTimers.Set(float64(len(r.timers)))
	}
}

// enter is called by a firing timer. It forgets the entry only if it is still the one identified
// by gen, so a fired timer never removes its replacement, and registers the callback as in flight.
// It returns false after stopAll; the callback must then do nothing.
func (r *timerRegistry) enter(id uuid.UUID, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	if t := r.timers[id]; t != nil && t.gen == gen {
		delete(r.timers, id)
		armedTimers.Set(float64(len(r.timers)))
	}
	r.inflight.Add(1)
	return true
}

func (r *timerRegistry) exit() { r.inflight.Done() }

// wait blocks until callbacks admitted by enter have returned.
func (r *timerRegistry) wait() { r.inflight.Wait() }

// stopAll stops every timer and refuses new ones.
func (r *timerRegistry) stopAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	n := len(r.timers)
	for id, t := range r.timers {
		t.timer.Stop()
		delete(r.timers, id)
	}
	armedTimers.Set(0)
	return n
}

func (r *timerRegistry) armed(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[id]
	return ok
}

func (r *timerRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

func (s *Service) autoResumeEnabled() bool {
	return s.cfg.AutoResumeTimeout > 0
}

// armTimer schedules an auto-resume for the pause event pauseID.
func (s *Service) armTimer(recordingID, pauseID uuid.UUID) {
	if !s.autoResumeEnabled() || s.cfg.DisableLocalTimers {
		return
	}
	ok := s.timers.arm(recordingID, s.cfg.AutoResumeTimeout, func(gen uint64) {
		if !s.timers.enter(recordingID, gen) {
			return
		}
		defer s.timers.exit()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.BackgroundWriteTimeout)
		defer cancel()
		if _, err := s.autoResume(ctx, recordingID, pauseID, pathTimer); err != nil {
			s.logger.Error("auto-resume timer failed; sweep will retry", zap.String("recording_id", recordingID.String()), zap.Error(err))
		}
	})
	if !ok {
		s.logger.Debug("auto-resume timer not armed after shutdown", zap.String("recording_id", recordingID.String()))
	}
}

// autoResume writes a system auto_resume for recordingID if pauseID is still its latest event.
func (s *Service) autoResume(ctx context.Context, recordingID, pauseID uuid.UUID, path string) (bool, error) {
	res, ev, err := s.transition(ctx, recordingID, transitionSpec{
		eventType:     models.PauseEventAutoResume,
		reason:        autoResumeReason,
		allowDeleted:  true,
		expectPauseID: &pauseID,
	})
	if err != nil {
		autoResumeFailures.WithLabelValues(path).Inc()
		return false, err
	}
	if ev == nil {
		s.logger.Debug("auto-resume skipped", zap.String("recording_id", recordingID.String()), zap.String("path", path), zap.String("reason", res.Message))
		return false, nil
	}
	autoResumeTotal.WithLabelValues(path).Inc()
	s.logger.Info("recording auto-resumed", zap.String("recording_id", recordingID.String()), zap.String("event_id", ev.ID.String()), zap.String("path", path), zap.Int64("timestamp_ms", ev.TimestampMs))
	return true, nil
}

// AutoResumeCheck is the reconciliation sweep: every recording whose latest event is a pause
// older than the timeout is auto-resumed. Recordings are handled independently; one failure is
// logged and left for the next pass. It returns how many recordings were resumed.
func (s *Service) AutoResumeCheck(ctx context.Context) (int, error) {
	if !s.autoResumeEnabled() {
		return 0, nil
	}
	start := s.now()
	cutoff := start.Add(-s.cfg.AutoResumeTimeout)
	stale, err := s.events.ListStalePauses(ctx, cutoff)
	if err != nil {
		sweepRuns.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("list stale pauses: %w", err)
	}

	var (
		resumed atomic.Int64
		g       errgroup.Group
	)
	g.SetLimit(s.cfg.SweepConcurrency)
	for _, p := range stale {
		g.Go(func() error {
			ok, err := s.autoResume(ctx, p.RecordingID, p.ID, pathSweep)
			if err != nil {
				s.logger.Error("auto-resume sweep failed for recording", zap.String("recording_id", p.RecordingID.String()), zap.Error(err))
				return nil
			}
			if ok {
				resumed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	n := int(resumed.Load())
	sweepRuns.WithLabelValues("ok").Inc()
	s.logger.Info("auto-resume sweep completed", zap.Int("stale", len(stale)), zap.Int("resumed", n), zap.Duration("took", s.now().Sub(start)))
	return n, nil
}

// Shutdown cancels every armed timer and waits for timer callbacks already running.
// Pauses made afterwards are left to the sweep.
func (s *Service) Shutdown() {
	n := s.timers.stopAll()
	s.timers.wait()
	s.logger.Info("pause scheduler stopped", zap.Int("cancelled_timers", n))
}
