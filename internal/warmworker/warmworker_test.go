package warmworker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_CoalescesRapidWakes(t *testing.T) {
	var calls atomic.Int64
	w := New(20*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, nil)
	defer w.Stop()

	for i := 0; i < 10; i++ {
		w.Wake()
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWorker_RunsAgainAfterWindowElapses(t *testing.T) {
	var calls atomic.Int64
	w := New(10*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, nil)
	defer w.Stop()

	w.Wake()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	w.Wake()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestWorker_RecordsFailures(t *testing.T) {
	w := New(5*time.Millisecond, func(ctx context.Context) error {
		return errors.New("boom")
	}, nil)
	defer w.Stop()

	w.Wake()
	require.Eventually(t, func() bool { return w.Stats().Failures == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "boom", w.Stats().LastErr)
	assert.Equal(t, int64(1), w.Stats().Runs)
}

func TestWorker_StopPreventsFurtherWakes(t *testing.T) {
	var calls atomic.Int64
	w := New(5*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	w.Stop()
	w.Wake()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(0), calls.Load())
}

func TestWorker_StopIsIdempotent(t *testing.T) {
	w := New(5*time.Millisecond, func(ctx context.Context) error { return nil }, nil)
	w.Stop()
	w.Stop()
}
