package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("marks new correlation id as processed", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "corr-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew, "new correlation id should return true")
	})

	t.Run("returns false for already processed id", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "corr-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "corr-2", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew, "retried correlation id should return false")
	})

	t.Run("allows reprocessing after expiration", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "corr-3", 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, isNew)

		time.Sleep(20 * time.Millisecond)

		isNew, err = store.MarkProcessed(ctx, "corr-3", 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, isNew, "expired correlation id should be reprocessable")
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("unknown id is not processed", func(t *testing.T) {
		processed, err := store.IsProcessed(ctx, "never-seen")
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("marked id is processed", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "corr-seen", time.Hour)
		require.NoError(t, err)

		processed, err := store.IsProcessed(ctx, "corr-seen")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("expired id is not processed", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "corr-short", 10*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		processed, err := store.IsProcessed(ctx, "corr-short")
		require.NoError(t, err)
		assert.False(t, processed)
	})
}

// Exactly one of N concurrent retries with the same correlation ID wins.
func TestInMemoryIdempotencyStore_ConcurrentMark(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := store.MarkProcessed(ctx, "contested", time.Hour)
			assert.NoError(t, err)
			if isNew {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.MarkProcessed(ctx, fmt.Sprintf("short-%d", i), 5*time.Millisecond)
		require.NoError(t, err)
	}
	_, err := store.MarkProcessed(ctx, "long-lived", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 6, store.Size())

	time.Sleep(10 * time.Millisecond)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
