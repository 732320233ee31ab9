package session

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs a sweep every fifteen minutes.
const DefaultSweepSchedule = "@every 15m"

// ScheduledSweeper removes expired sessions on a cron schedule, outside of
// any request.
type ScheduledSweeper struct {
	cron  *cron.Cron
	store Sweeper
	log   *slog.Logger
}

// NewScheduledSweeper validates the schedule and registers the sweep job.
// The schedule accepts standard five-field cron expressions and descriptors
// such as "@hourly" or "@every 10m".
func NewScheduledSweeper(store Sweeper, schedule string, log *slog.Logger) (*ScheduledSweeper, error) {
	if log == nil {
		log = slog.Default()
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	s := &ScheduledSweeper{
		cron:  cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		store: store,
		log:   log,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *ScheduledSweeper) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep, or ctx.
func (s *ScheduledSweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ScheduledSweeper) run() {
	n, err := s.store.Sweep(context.Background())
	if err != nil {
		s.log.Error("session sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.log.Debug("expired sessions removed", slog.Int("count", n))
	}
}
