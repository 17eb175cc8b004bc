package scraper

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointStore(t *testing.T) {
	t.Parallel()

	t.Run("get or create returns empty checkpoint", func(t *testing.T) {
		t.Parallel()

		store := NewCheckpointStore()
		checkpoint := store.GetOrCreate("TenZ#NA1")
		require.True(t, checkpoint.LastUpdate.IsZero())
		require.Empty(t, checkpoint.Fetched)
		require.Zero(t, checkpoint.RetryCount)
	})

	t.Run("lookup does not create", func(t *testing.T) {
		t.Parallel()

		store := NewCheckpointStore()
		_, ok := store.Lookup("TenZ#NA1")
		require.False(t, ok)

		store.GetOrCreate("TenZ#NA1")
		_, ok = store.Lookup("TenZ#NA1")
		require.True(t, ok)
	})

	t.Run("mark fetched", func(t *testing.T) {
		t.Parallel()

		store := NewCheckpointStore()
		store.MarkFetched("TenZ#NA1", "v1_competitive_aggregated")

		checkpoint := store.GetOrCreate("TenZ#NA1")
		assert.True(t, checkpoint.HasFetched("v1_competitive_aggregated"))
		assert.False(t, checkpoint.HasFetched("v1_premier_aggregated"))
	})

	t.Run("returned checkpoint is a copy", func(t *testing.T) {
		t.Parallel()

		store := NewCheckpointStore()
		checkpoint := store.GetOrCreate("TenZ#NA1")
		checkpoint.Fetched["v1_competitive_aggregated"] = true

		require.False(t, store.GetOrCreate("TenZ#NA1").HasFetched("v1_competitive_aggregated"))
	})

	t.Run("record attempt", func(t *testing.T) {
		t.Parallel()

		store := NewCheckpointStore()

		store.RecordAttempt("TenZ#NA1", false)
		store.RecordAttempt("TenZ#NA1", false)
		checkpoint := store.GetOrCreate("TenZ#NA1")
		assert.Equal(t, 2, checkpoint.RetryCount)
		assert.WithinDuration(t, time.Now(), checkpoint.LastUpdate, time.Minute)

		store.RecordAttempt("TenZ#NA1", true)
		assert.Zero(t, store.GetOrCreate("TenZ#NA1").RetryCount)
	})

	t.Run("reset endpoints", func(t *testing.T) {
		t.Parallel()

		store := NewCheckpointStore()
		store.MarkFetched("TenZ#NA1", "v1_competitive_aggregated")
		store.RecordAttempt("TenZ#NA1", false)

		store.ResetEndpoints("TenZ#NA1")

		checkpoint := store.GetOrCreate("TenZ#NA1")
		assert.Empty(t, checkpoint.Fetched)
		// Only the fetched-set resets; history stays.
		assert.Equal(t, 1, checkpoint.RetryCount)
	})

	t.Run("concurrent inserts of different keys", func(t *testing.T) {
		t.Parallel()

		store := NewCheckpointStore()

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				riotID := fmt.Sprintf("player%d#0000", i)
				store.MarkFetched(riotID, "v1_competitive_aggregated")
				store.RecordAttempt(riotID, true)
			}()
		}
		wg.Wait()

		for i := range 50 {
			checkpoint, ok := store.Lookup(fmt.Sprintf("player%d#0000", i))
			require.True(t, ok)
			require.True(t, checkpoint.HasFetched("v1_competitive_aggregated"))
		}
	})
}
