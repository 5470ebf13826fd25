// Package schedule runs a cycle on a fixed wall-clock period until the
// context is cancelled. A failing cycle is reported and the next one still
// runs; the process heals itself at the cycle level.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/logging"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/notify"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/retry"
)

// Cycle is one unit of scheduled work.
type Cycle func(ctx context.Context) error

// Scheduler repeats a Cycle every period.
type Scheduler struct {
	period   time.Duration
	notifier notify.Notifier
	sleeper  retry.Sleeper
	now      func() time.Time
	newID    func() string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPeriod sets the nominal time between cycle starts.
func WithPeriod(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.period = d
		}
	}
}

// WithNotifier sets where cycle failures are reported.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Scheduler) {
		s.notifier = n
	}
}

// WithSleeper overrides how the scheduler waits.
func WithSleeper(sl retry.Sleeper) Option {
	return func(s *Scheduler) {
		if sl != nil {
			s.sleeper = sl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Scheduler with a 24h period.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		period:   constants.CyclePeriod,
		notifier: notify.Log{},
		sleeper:  retry.RealSleeper,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wait returns how long to sleep after a cycle that took elapsed.
func (s *Scheduler) Wait(elapsed time.Duration) time.Duration {
	if w := s.period - elapsed; w > 0 {
		return w
	}
	return 0
}

// Run executes cycle, sleeps the rest of the period and repeats until ctx is
// done. It returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context, cycle Cycle) error {
	logger := logging.Ctx(ctx)
	logger.Info().Dur("period", s.period).Msg("Scheduler started")

	for {
		start := s.now()
		_ = s.RunOnce(ctx, cycle)
		if err := ctx.Err(); err != nil {
			logger.Info().Msg("Scheduler stopped")
			return err
		}

		wait := s.Wait(s.now().Sub(start))
		logger.Info().Dur("wait", wait).Time("next", s.now().Add(wait)).Msg("Next cycle scheduled")
		if err := s.sleeper.Sleep(ctx, wait); err != nil {
			logger.Info().Msg("Scheduler stopped")
			return err
		}
	}
}

// RunOnce executes a single cycle under a fresh cycle id. Errors and panics
// are logged and notified before being returned; cancellation is only logged.
func (s *Scheduler) RunOnce(ctx context.Context, cycle Cycle) (err error) {
	ctx = logging.WithCycle(ctx, s.newID())
	logger := logging.Ctx(ctx)

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("cycle panicked: %v", p)
		}
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			logger.Warn().Err(err).Msg("Cycle interrupted")
			return
		}
		logger.Error().Err(err).Msg("Cycle failed")
		notify.Best(context.WithoutCancel(ctx), s.notifier, notify.Alert(err))
	}()

	return cycle(ctx)
}
