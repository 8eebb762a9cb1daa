package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper_recommender/internal/domain"
)

type runnerFunc func(ctx context.Context) (*domain.RunStats, error)

func (f runnerFunc) Run(ctx context.Context) (*domain.RunStats, error) {
	return f(ctx)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunsImmediatelyAndStops(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	runner := runnerFunc(func(ctx context.Context) (*domain.RunStats, error) {
		if calls.Add(1) == 2 {
			cancel()
		}
		return &domain.RunStats{RunID: "r"}, nil
	})

	s := NewScheduler(runner, 10*time.Millisecond, time.Second, discardLogger())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestScheduler_RunTimeoutApplied(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool

	runner := runnerFunc(func(ctx context.Context) (*domain.RunStats, error) {
		deadline, hasDeadline = ctx.Deadline()
		return nil, errors.New("boom")
	})

	s := NewScheduler(runner, time.Hour, 3*time.Minute, discardLogger())
	start := time.Now()
	s.runOnce(context.Background())

	require.True(t, hasDeadline)
	assert.WithinDuration(t, start.Add(3*time.Minute), deadline, time.Second)
}
