package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkers(t *testing.T) {
	assert.Equal(t, 3, Workers(3, 10))
	assert.Equal(t, 2, Workers(8, 2))
	assert.Equal(t, 1, Workers(4, 0))
	assert.GreaterOrEqual(t, Workers(0, 1000), 1)
}

func TestForEachVisitsEveryIndex(t *testing.T) {
	for _, workers := range []int{1, 4} {
		seen := make([]int32, 100)
		err := ForEach(context.Background(), len(seen), workers, func(_ context.Context, i int) error {
			atomic.AddInt32(&seen[i], 1)
			return nil
		})
		require.NoError(t, err)
		for i, n := range seen {
			assert.Equal(t, int32(1), n, "index %d with %d workers", i, workers)
		}
	}
}

func TestForEachSequentialOrder(t *testing.T) {
	var order []int
	err := ForEach(context.Background(), 5, 1, func(_ context.Context, i int) error {
		order = append(order, i)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestForEachStopsOnError(t *testing.T) {
	boom := errors.New("store unreadable")
	err := ForEach(context.Background(), 10, 3, func(_ context.Context, i int) error {
		if i == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestForEachCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ForEach(ctx, 3, 1, func(context.Context, int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
