package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/xpboard/internal/models"
)

type runnerFunc func(ctx context.Context) (*models.StatsRunResult, error)

func (f runnerFunc) Generate(ctx context.Context) (*models.StatsRunResult, error) { return f(ctx) }

func ok(context.Context) (*models.StatsRunResult, error) {
	return &models.StatsRunResult{Success: true, Message: "done"}, nil
}

func TestNextWeeklyBoundary(t *testing.T) {
	utc := time.UTC
	tests := []struct {
		name string
		now  time.Time
		day  time.Weekday
		want time.Time
	}{
		// 2025-03-05 is a Wednesday.
		{"later this week", time.Date(2025, 3, 5, 15, 30, 0, 0, utc), time.Sunday, time.Date(2025, 3, 9, 0, 0, 0, 0, utc)},
		{"same weekday after midnight", time.Date(2025, 3, 5, 0, 0, 1, 0, utc), time.Wednesday, time.Date(2025, 3, 12, 0, 0, 0, 0, utc)},
		{"exactly at boundary", time.Date(2025, 3, 9, 0, 0, 0, 0, utc), time.Sunday, time.Date(2025, 3, 16, 0, 0, 0, 0, utc)},
		{"one second before", time.Date(2025, 3, 8, 23, 59, 59, 0, utc), time.Sunday, time.Date(2025, 3, 9, 0, 0, 0, 0, utc)},
		{"tomorrow", time.Date(2025, 3, 5, 12, 0, 0, 0, utc), time.Thursday, time.Date(2025, 3, 6, 0, 0, 0, 0, utc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextWeeklyBoundary(tt.now, tt.day, utc)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
			assert.True(t, got.After(tt.now))
			assert.Equal(t, tt.day, got.Weekday())
		})
	}
}

func TestNextWeeklyBoundaryInZone(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// Saturday 22:00 UTC is already Sunday 01:00 in loc.
	now := time.Date(2025, 3, 8, 22, 0, 0, 0, time.UTC)

	got := NextWeeklyBoundary(now, time.Sunday, loc)
	assert.True(t, got.Equal(time.Date(2025, 3, 16, 0, 0, 0, 0, loc)), "got %s", got)
}

func TestNextFireTestMode(t *testing.T) {
	s := New(runnerFunc(ok), Config{TestMode: true, TestInterval: 90 * time.Second})
	now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(90*time.Second), s.NextFire(now))
}

// fakeClock advances only when the scheduler waits.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	return nil
}

func TestServeChainsCappedWaits(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 5, 15, 0, 0, 0, time.UTC)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var firedAt time.Time
	s := New(runnerFunc(func(context.Context) (*models.StatsRunResult, error) {
		firedAt = clock.Now()
		cancel()
		return &models.StatsRunResult{Success: true}, nil
	}), Config{Weekday: time.Sunday, Location: time.UTC, MaxWait: 24 * time.Hour})
	s.now = clock.Now
	s.wait = clock.Wait

	err := s.Serve(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.True(t, firedAt.Equal(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)), "fired at %s", firedAt)

	var total time.Duration
	for _, w := range clock.waits {
		assert.LessOrEqual(t, w, 24*time.Hour)
		total += w
	}
	assert.Equal(t, 81*time.Hour, total)
	assert.Len(t, clock.waits, 4)
	assert.Equal(t, Idle, s.State())
}

func TestServeTestModeKeepsFiringThroughFailures(t *testing.T) {
	var runs atomic.Int32
	s := New(runnerFunc(func(context.Context) (*models.StatsRunResult, error) {
		switch runs.Add(1) {
		case 1:
			return nil, errors.New("database down")
		case 2:
			panic("boom")
		default:
			return &models.StatsRunResult{Success: true}, nil
		}
	}), Config{TestMode: true, TestInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() >= 4 }, 3*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestServeStopsDuringLongSleep(t *testing.T) {
	s := New(runnerFunc(ok), Config{Weekday: time.Sunday, Location: time.UTC, MaxWait: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	require.Eventually(t, func() bool { return s.State() == Sleeping }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRunNowRecoversPanic(t *testing.T) {
	s := New(runnerFunc(func(context.Context) (*models.StatsRunResult, error) {
		panic("bad data")
	}), Config{})

	res, err := s.RunNow(context.Background())
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad data")
	assert.Equal(t, Idle, s.State())
}

func TestRunNowReportsRunning(t *testing.T) {
	var seen State
	var s *Scheduler
	s = New(runnerFunc(func(context.Context) (*models.StatsRunResult, error) {
		seen = s.State()
		return &models.StatsRunResult{Success: true}, nil
	}), Config{})

	res, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, Running, seen)
}
