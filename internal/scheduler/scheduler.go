package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fitbarca/reminders/internal/dispatch"
)

// Runner is the minimal interface the scheduler needs to trigger a scan.
// dispatch.Dispatcher implements this (method: Run).
type Runner interface {
	Run(ctx context.Context, now time.Time) dispatch.Summary
}

// Scheduler drives the dispatcher once per minute, aligned to wall-clock
// minute boundaries so the exact-minute reminder match behaves like an
// external cron trigger.
type Scheduler struct {
	runner Runner
	log    *zap.Logger
	loc    *time.Location
}

// New creates a Scheduler dispatching in the given timezone.
func New(runner Runner, log *zap.Logger, loc *time.Location) *Scheduler {
	return &Scheduler{runner: runner, log: log, loc: loc}
}

// Run blocks until ctx is canceled. Scans run synchronously on this
// goroutine, so two scans never overlap.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		now := time.Now().In(s.loc)
		timer := time.NewTimer(now.Truncate(time.Minute).Add(time.Minute).Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("scheduler stopping")
			return
		case <-timer.C:
		}

		s.runner.Run(ctx, time.Now().In(s.loc))
	}
}
