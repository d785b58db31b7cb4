package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCountsWarmupSeparately(t *testing.T) {
	calls := 0
	w := NewWorker("fake", "GetPlayerById", 3, 5, time.Second, func(ctx context.Context) error {
		calls++
		return nil
	})

	results := w.Run(context.Background())
	assert.Equal(t, 8, calls)
	assert.Equal(t, 3, results.Warmup.CompleteCount)
	assert.Equal(t, 5, results.Measured.CompleteCount)
	assert.Len(t, results.Measured.Rts, 5)
	assert.Zero(t, results.Measured.AbortCount)
	assert.Equal(t, "fake", results.Adapter)
	assert.Equal(t, "GetPlayerById", results.Operation)
	assert.GreaterOrEqual(t, results.RealDuration, results.Measured.TotalRt)
}

func TestRunMeasuresCallDuration(t *testing.T) {
	w := NewWorker("fake", "GetPlayersForTeam", 0, 3, time.Second, func(ctx context.Context) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})

	results := w.Run(context.Background())
	require.Len(t, results.Measured.Rts, 3)
	for _, rt := range results.Measured.Rts {
		assert.GreaterOrEqual(t, rt, 0.005)
		assert.Less(t, rt, 1.0)
	}
	assert.GreaterOrEqual(t, results.RealDuration, 0.015)
}

func TestRunExcludesFailures(t *testing.T) {
	boom := errors.New("boom")
	i := 0
	w := NewWorker("fake", "CreateOlympiad", 0, 10, time.Second, func(ctx context.Context) error {
		i++
		if i%2 == 0 {
			return boom
		}
		return nil
	})

	results := w.Run(context.Background())
	assert.Equal(t, 5, results.Measured.CompleteCount)
	assert.Equal(t, 5, results.Measured.AbortCount)
	assert.Len(t, results.Measured.Rts, 5)
	assert.ErrorIs(t, results.Measured.LastError, boom)
}

func TestRunTimesOutSlowCalls(t *testing.T) {
	w := NewWorker("fake", "UpdateOlympiad", 0, 2, 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	results := w.Run(context.Background())
	assert.Equal(t, 2, results.Measured.AbortCount)
	assert.ErrorIs(t, results.Measured.LastError, context.DeadlineExceeded)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	w := NewWorker("fake", "DeleteOlympiad", 0, 10, 0, func(context.Context) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return nil
	})

	results := w.Run(ctx)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, results.Measured.CompleteCount)
	assert.Equal(t, 7, results.Measured.AbortCount)
	require.Error(t, results.Measured.LastError)
}

func TestFailed(t *testing.T) {
	err := errors.New("connection refused")
	results := Failed("pgx", "GetPlayerById", 20, err)
	assert.Equal(t, 20, results.Measured.AbortCount)
	assert.Empty(t, results.Measured.Rts)
	assert.Equal(t, err, results.Measured.LastError)
}
