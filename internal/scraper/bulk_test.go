package scraper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubScheduler implements UpdateScheduler with a fixed outcome per
// riot ID, tracking how many runs are in flight at once.
type stubScheduler struct {
	outcomes map[string]UpdateOutcome

	mutex         sync.Mutex
	inFlight      int
	maxInFlight   int
	scheduledRuns []string
}

func (s *stubScheduler) ScheduleUpdate(ctx context.Context, riotID string, incremental bool) UpdateOutcome {
	s.mutex.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.scheduledRuns = append(s.scheduledRuns, riotID)
	s.mutex.Unlock()

	// Hold the slot briefly so overlapping runs are observable.
	time.Sleep(5 * time.Millisecond)

	s.mutex.Lock()
	s.inFlight--
	s.mutex.Unlock()

	if outcome, ok := s.outcomes[riotID]; ok {
		return outcome
	}
	return UpdateOutcome{RiotID: riotID, Incremental: incremental, Successful: 3, PriorityAchieved: true}
}

func instantSleeper(ctx context.Context, d time.Duration) error {
	return nil
}

func TestStalenessScore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		age  time.Duration
		want float64
	}{
		{25 * time.Hour, 1.0},
		{13 * time.Hour, 0.7},
		{7 * time.Hour, 0.5},
		{3 * time.Hour, 0.3},
		{1 * time.Hour, 0.0},
		{0, 0.0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, stalenessScore(tc.age), "age %s", tc.age)
	}
}

func TestNeedsUpdate(t *testing.T) {
	t.Parallel()

	t.Run("players without a checkpoint always qualify", func(t *testing.T) {
		t.Parallel()

		b := NewBulkOrchestrator(&stubScheduler{}, NewCheckpointStore())
		require.True(t, b.needsUpdate("fresh#0000"))
	})

	t.Run("a player last updated 25 hours ago always qualifies", func(t *testing.T) {
		t.Parallel()

		store := NewCheckpointStore()
		store.RecordAttempt("stale#0000", true)

		now := func() time.Time { return time.Now().Add(25 * time.Hour) }
		b := NewBulkOrchestrator(&stubScheduler{}, store, WithBulkNow(now))

		// The deterministic component alone crosses the trigger, so
		// the jitter term can never disqualify the player.
		for range 100 {
			require.True(t, b.needsUpdate("stale#0000"))
		}
	})

	t.Run("a freshly updated player never qualifies", func(t *testing.T) {
		t.Parallel()

		store := NewCheckpointStore()
		store.RecordAttempt("fresh#0000", true)

		b := NewBulkOrchestrator(&stubScheduler{}, store)

		// Maximum jitter is 0.2, well below the 0.5 trigger.
		for range 100 {
			require.False(t, b.needsUpdate("fresh#0000"))
		}
	})
}

func TestBulkUpdate(t *testing.T) {
	t.Parallel()

	t.Run("updates every qualifying player", func(t *testing.T) {
		t.Parallel()

		scheduler := &stubScheduler{}
		b := NewBulkOrchestrator(scheduler, NewCheckpointStore(), WithBulkSleeper(instantSleeper))

		outcomes := b.BulkUpdate(t.Context(), []string{"a#1", "b#2", "c#3"}, 2)

		require.Len(t, outcomes, 3)
		got := make(map[string]bool)
		for _, outcome := range outcomes {
			require.NoError(t, outcome.Err)
			got[outcome.RiotID] = true
		}
		require.Equal(t, map[string]bool{"a#1": true, "b#2": true, "c#3": true}, got)
	})

	t.Run("skips players that do not need updating", func(t *testing.T) {
		t.Parallel()

		store := NewCheckpointStore()
		store.RecordAttempt("fresh#0000", true)

		scheduler := &stubScheduler{}
		b := NewBulkOrchestrator(scheduler, store, WithBulkSleeper(instantSleeper))

		outcomes := b.BulkUpdate(t.Context(), []string{"fresh#0000", "new#0000"}, 4)

		require.Len(t, outcomes, 1)
		require.Equal(t, "new#0000", outcomes[0].RiotID)
	})

	t.Run("a failing player does not abort its siblings", func(t *testing.T) {
		t.Parallel()

		scheduler := &stubScheduler{
			outcomes: map[string]UpdateOutcome{
				"b#2": {RiotID: "b#2", Err: errors.New("failed to create gateway session")},
			},
		}
		b := NewBulkOrchestrator(scheduler, NewCheckpointStore(), WithBulkSleeper(instantSleeper))

		outcomes := b.BulkUpdate(t.Context(), []string{"a#1", "b#2", "c#3"}, 3)

		require.Len(t, outcomes, 3)
		byID := make(map[string]UpdateOutcome)
		for _, outcome := range outcomes {
			byID[outcome.RiotID] = outcome
		}
		require.Error(t, byID["b#2"].Err)
		require.NoError(t, byID["a#1"].Err)
		require.NoError(t, byID["c#3"].Err)
	})

	t.Run("respects the concurrency limit", func(t *testing.T) {
		t.Parallel()

		scheduler := &stubScheduler{}
		b := NewBulkOrchestrator(scheduler, NewCheckpointStore(), WithBulkSleeper(instantSleeper))

		riotIDs := make([]string, 10)
		for i := range riotIDs {
			riotIDs[i] = "player" + string(rune('a'+i)) + "#0000"
		}

		b.BulkUpdate(t.Context(), riotIDs, 2)

		require.Len(t, scheduler.scheduledRuns, 10)
		require.LessOrEqual(t, scheduler.maxInFlight, 2)
	})

	t.Run("zero concurrency is clamped to one", func(t *testing.T) {
		t.Parallel()

		scheduler := &stubScheduler{}
		b := NewBulkOrchestrator(scheduler, NewCheckpointStore(), WithBulkSleeper(instantSleeper))

		outcomes := b.BulkUpdate(t.Context(), []string{"a#1", "b#2"}, 0)

		require.Len(t, outcomes, 2)
		require.Equal(t, 1, scheduler.maxInFlight)
	})
}
