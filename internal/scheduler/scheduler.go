// Package scheduler runs the weekly stats job as a supervised service.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tahcohcat/xpboard/internal/logger"
	"github.com/tahcohcat/xpboard/internal/metrics"
	"github.com/tahcohcat/xpboard/internal/models"
)

type State int32

const (
	Idle State = iota
	Running
	Sleeping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Sleeping:
		return "sleeping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Runner performs one stats run.
type Runner interface {
	Generate(ctx context.Context) (*models.StatsRunResult, error)
}

type Config struct {
	// TestMode fires every TestInterval instead of on the weekly boundary.
	TestMode     bool
	TestInterval time.Duration

	Weekday  time.Weekday
	Location *time.Location

	// MaxWait caps a single timer wait. Longer sleeps are chained.
	MaxWait time.Duration
}

type Scheduler struct {
	runner Runner
	cfg    Config
	log    *logger.Log

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error

	state atomic.Int32
	runMu sync.Mutex
}

func New(runner Runner, cfg Config) *Scheduler {
	if cfg.TestInterval <= 0 {
		cfg.TestInterval = time.Minute
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Scheduler{
		runner: runner,
		cfg:    cfg,
		log:    logger.Named("scheduler"),
		now:    time.Now,
		wait:   timerWait,
	}
}

func (s *Scheduler) String() string {
	return "stats-scheduler"
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Serve sleeps until each fire time, runs the job and reschedules. A failed
// run is logged and the schedule continues. It returns when ctx ends.
func (s *Scheduler) Serve(ctx context.Context) error {
	defer s.state.Store(int32(Idle))

	if s.cfg.TestMode {
		s.log.With("interval", s.cfg.TestInterval.String()).Warn("stats scheduler in test mode")
	}

	for {
		next := s.NextFire(s.now())
		s.state.Store(int32(Sleeping))
		s.log.With("next_run", next.Format(time.RFC3339)).Info("next weekly stats run scheduled")

		if err := s.sleepUntil(ctx, next); err != nil {
			return err
		}

		res, err := s.RunNow(ctx)
		if err != nil {
			s.log.WithError(err).Error("weekly stats run failed")
			continue
		}
		s.log.With("notified", res.UsersNotified).With("failures", res.UserFailures).Info(res.Message)
	}
}

// NextFire computes the next run strictly after now.
func (s *Scheduler) NextFire(now time.Time) time.Time {
	if s.cfg.TestMode {
		return now.Add(s.cfg.TestInterval)
	}
	return NextWeeklyBoundary(now, s.cfg.Weekday, s.cfg.Location)
}

// NextWeeklyBoundary returns the first midnight in loc, strictly after now,
// that falls on day.
func NextWeeklyBoundary(now time.Time, day time.Weekday, loc *time.Location) time.Time {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	days := (int(day) - int(local.Weekday()) + 7) % 7
	next := midnight.AddDate(0, 0, days)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// sleepUntil waits in slices of at most MaxWait, re-reading the clock after
// each one, so clock jumps and very long delays are both handled.
func (s *Scheduler) sleepUntil(ctx context.Context, at time.Time) error {
	for {
		remaining := at.Sub(s.now())
		if remaining <= 0 {
			return nil
		}
		if remaining > s.cfg.MaxWait {
			remaining = s.cfg.MaxWait
		}
		if err := s.wait(ctx, remaining); err != nil {
			return err
		}
	}
}

// RunNow executes one stats run immediately. Runs never overlap; a panic in
// the job is recovered and reported as an error.
func (s *Scheduler) RunNow(ctx context.Context) (res *models.StatsRunResult, err error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	prev := s.state.Swap(int32(Running))
	defer s.state.Store(prev)

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("stats run panicked: %v", r)
		}
		if err != nil {
			metrics.StatsRuns.WithLabelValues("failure").Inc()
		} else {
			metrics.StatsRuns.WithLabelValues("success").Inc()
		}
	}()

	started := s.now()
	res, err = s.runner.Generate(ctx)
	if err == nil {
		s.log.With("duration", s.now().Sub(started).String()).Debug("stats run finished")
	}
	return res, err
}

func timerWait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
