package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/bucketsync/pkg/models"
)

func makeItems(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func TestExecuteRunsEveryItem(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]bool)

	err := Execute(context.Background(), makeItems(50), 4, func(ctx context.Context, i int) error {
		mu.Lock()
		seen[i] = true
		mu.Unlock()
		return nil
	})

	require.NoError(t, err)
	assert.Len(t, seen, 50)
}

func TestExecuteBoundsConcurrency(t *testing.T) {
	for _, k := range []int{1, 3, 8} {
		var inFlight, peak atomic.Int32

		err := Execute(context.Background(), makeItems(40), k, func(ctx context.Context, _ int) error {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		})

		require.NoError(t, err)
		assert.LessOrEqual(t, peak.Load(), int32(k), "peak concurrency for k=%d", k)
		assert.Greater(t, peak.Load(), int32(0))
	}
}

func TestExecuteStopsSchedulingAfterFailure(t *testing.T) {
	boom := errors.New("boom")
	var started atomic.Int32

	err := Execute(context.Background(), makeItems(100), 1, func(ctx context.Context, i int) error {
		started.Add(1)
		if i == 2 {
			return boom
		}
		return nil
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), started.Load(), "items after the failure must not start")
}

func TestExecuteLetsInFlightFinish(t *testing.T) {
	boom := errors.New("boom")
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	err := Execute(context.Background(), []int{0, 1}, 2, func(ctx context.Context, i int) error {
		if i == 0 {
			close(entered)
			<-release
			// a sibling failure must not cancel this worker
			if ctx.Err() == nil {
				finished.Store(true)
			}
			return nil
		}
		// fail only once item 0 is running
		<-entered
		close(release)
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.True(t, finished.Load())
}

func TestExecuteHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var started atomic.Int32

	err := Execute(ctx, makeItems(20), 1, func(ctx context.Context, i int) error {
		started.Add(1)
		if i == 0 {
			cancel()
		}
		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), started.Load())
}

func TestExecuteRejectsZeroConcurrency(t *testing.T) {
	err := Execute(context.Background(), makeItems(1), 0, func(context.Context, int) error { return nil })
	assert.ErrorIs(t, err, models.ErrArgumentOutOfRange)
	assert.True(t, models.IsArgument(err))
}

func TestExecuteEmpty(t *testing.T) {
	err := Execute[int](context.Background(), nil, 2, func(context.Context, int) error {
		t.Fatal("worker must not run")
		return nil
	})
	assert.NoError(t, err)
}
