package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AutoResumeChecker runs one reconciliation pass over stale pauses.
type AutoResumeChecker interface {
	AutoResumeCheck(ctx context.Context) (int, error)
}

// Sweeper periodically closes pauses whose auto-resume timer was lost (restart, crash, other instance).
type Sweeper struct {
	checker  AutoResumeChecker
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper creates an auto-resume sweeper.
func NewSweeper(checker AutoResumeChecker, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{checker: checker, interval: interval, logger: logger}
}

// RunOnce executes a single pass. Errors are logged; the next tick retries.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	n, err := s.checker.AutoResumeCheck(ctx)
	if err != nil {
		s.logger.Error("auto-resume sweep failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		s.logger.Info("auto-resume sweep resumed recordings", zap.Int("count", n))
	}
	return n
}

// Run sweeps once immediately, then every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("auto-resume sweeper stopping")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Start runs the sweeper in a goroutine. The returned channel closes once Run has returned,
// including any pass that was in flight when ctx was cancelled.
func (s *Sweeper) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return done
}
