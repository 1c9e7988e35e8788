package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermarkKey(t *testing.T) {
	assert.Equal(t, "r1:t1", WatermarkKey("r1", "t1"))
}

func TestMemoryWatermarkStore_FireOnce(t *testing.T) {
	store := NewMemoryWatermarkStore()
	ctx := context.Background()
	threshold := time.Unix(100, 0)

	fired, err := store.FireOnce(ctx, "r1:t1", threshold, time.Hour)
	require.NoError(t, err)
	assert.True(t, fired)

	fired, err = store.FireOnce(ctx, "r1:t1", threshold, time.Hour)
	require.NoError(t, err)
	assert.False(t, fired)

	// A moved due date produces a new threshold, which fires again.
	fired, err = store.FireOnce(ctx, "r1:t1", time.Unix(200, 0), time.Hour)
	require.NoError(t, err)
	assert.True(t, fired)
}

func TestMemoryWatermarkStore_SuppressionOutlivesTTL(t *testing.T) {
	store := NewMemoryWatermarkStore()
	ctx := context.Background()
	threshold := time.Unix(100, 0)

	fired, err := store.FireOnce(ctx, "r1:t1", threshold, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, fired)

	// An overdue task stays observable on every scan. Re-observing the same
	// crossing long after the TTL must not fire again.
	time.Sleep(50 * time.Millisecond)
	fired, err = store.FireOnce(ctx, "r1:t1", threshold, 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, fired)
}

func TestMemoryWatermarkStore_EvictRule(t *testing.T) {
	store := NewMemoryWatermarkStore()
	ctx := context.Background()
	threshold := time.Unix(100, 0)

	keys := []string{"r1:t1", "r1:t2", "r2:t1"}
	for _, key := range keys {
		fired, err := store.FireOnce(ctx, key, threshold, time.Hour)
		require.NoError(t, err)
		require.True(t, fired)
	}

	require.NoError(t, store.EvictRule(ctx, "r1"))

	// r1's watermarks are gone, r2's survive.
	fired, err := store.FireOnce(ctx, "r1:t1", threshold, time.Hour)
	require.NoError(t, err)
	assert.True(t, fired)

	fired, err = store.FireOnce(ctx, "r2:t1", threshold, time.Hour)
	require.NoError(t, err)
	assert.False(t, fired)
}

func TestMemoryWatermarkStore_ConcurrentFireOnce(t *testing.T) {
	store := NewMemoryWatermarkStore()
	ctx := context.Background()
	threshold := time.Unix(100, 0)

	const workers = 16
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		go func() {
			fired, err := store.FireOnce(ctx, "r1:t1", threshold, time.Hour)
			if err != nil {
				fired = false
			}
			results <- fired
		}()
	}

	winners := 0
	for i := 0; i < workers; i++ {
		if <-results {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "expected exactly one claim")
}
