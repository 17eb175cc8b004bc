package scraper

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pedroanisio/tracker-gg-api/internal/logging"
	"github.com/pedroanisio/tracker-gg-api/internal/reporting"
)

const (
	// stalenessTrigger is the score at which a player qualifies for a
	// bulk update.
	stalenessTrigger = 0.5
	// stalenessJitter randomizes selection so update cadences are not
	// bot-fingerprintable.
	stalenessJitter = 0.2

	maxStaggerDelay = 2 * time.Second
)

// stalenessScore returns the deterministic component of the update
// priority for a player last updated `age` ago.
func stalenessScore(age time.Duration) float64 {
	switch {
	case age > 24*time.Hour:
		return 1.0
	case age > 12*time.Hour:
		return 0.7
	case age > 6*time.Hour:
		return 0.5
	case age > 2*time.Hour:
		return 0.3
	default:
		return 0.0
	}
}

// BulkOrchestrator fans a scheduling run out across many players with
// bounded concurrency.
type BulkOrchestrator struct {
	scheduler   UpdateScheduler
	checkpoints *CheckpointStore
	sleep       Sleeper
	delays      *delayPolicy
	now         func() time.Time
}

type BulkOption func(*BulkOrchestrator)

func WithBulkSleeper(sleep Sleeper) BulkOption {
	return func(b *BulkOrchestrator) {
		b.sleep = sleep
	}
}

func WithBulkNow(now func() time.Time) BulkOption {
	return func(b *BulkOrchestrator) {
		b.now = now
	}
}

func WithBulkRandSeed(seed uint64) BulkOption {
	return func(b *BulkOrchestrator) {
		b.delays = newDelayPolicy(defaultMinDelay, defaultMaxDelay, rand.New(rand.NewPCG(seed, seed)))
	}
}

func NewBulkOrchestrator(updateScheduler UpdateScheduler, checkpoints *CheckpointStore, options ...BulkOption) *BulkOrchestrator {
	b := &BulkOrchestrator{
		scheduler:   updateScheduler,
		checkpoints: checkpoints,
		sleep:       DefaultSleeper,
		delays:      newDelayPolicy(defaultMinDelay, defaultMaxDelay, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))),
		now:         time.Now,
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// needsUpdate applies the staleness heuristic: players without a
// checkpoint always qualify; otherwise a score from hours since the
// last update plus random jitter must cross the trigger.
func (b *BulkOrchestrator) needsUpdate(riotID string) bool {
	checkpoint, ok := b.checkpoints.Lookup(riotID)
	if !ok || checkpoint.LastUpdate.IsZero() {
		return true
	}

	score := stalenessScore(b.now().Sub(checkpoint.LastUpdate))
	score += b.delays.random() * stalenessJitter

	return score >= stalenessTrigger
}

// BulkUpdate runs incremental updates for every qualifying player, at
// most maxConcurrent at a time. A failing player never aborts its
// siblings; its failure is captured in its own outcome.
func (b *BulkOrchestrator) BulkUpdate(ctx context.Context, riotIDs []string, maxConcurrent int) []UpdateOutcome {
	logger := logging.FromContext(ctx)

	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	var qualifying []string
	for _, riotID := range riotIDs {
		if b.needsUpdate(riotID) {
			qualifying = append(qualifying, riotID)
		}
	}
	logger.Info("starting bulk update", "players", len(riotIDs), "qualifying", len(qualifying), "maxConcurrent", maxConcurrent)

	sem := semaphore.NewWeighted(int64(maxConcurrent))
	outcomes := make([]UpdateOutcome, len(qualifying))

	var wg sync.WaitGroup
	for i, riotID := range qualifying {
		if err := sem.Acquire(ctx, 1); err != nil {
			outcomes[i] = UpdateOutcome{
				RiotID: riotID,
				Err:    fmt.Errorf("failed to acquire update slot: %w", err),
			}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					err := fmt.Errorf("update run panicked: %v", r)
					logging.FromContext(ctx).Error(err.Error(), "riotID", riotID)
					reporting.Report(ctx, err, map[string]string{"riotID": riotID})
					outcomes[i] = UpdateOutcome{RiotID: riotID, Err: err}
				}
			}()

			// Stagger task starts to avoid a thundering herd against
			// the remote site.
			stagger := time.Duration(b.delays.random() * float64(maxStaggerDelay))
			if err := b.sleep(ctx, stagger); err != nil {
				outcomes[i] = UpdateOutcome{RiotID: riotID, Err: err}
				return
			}

			outcomes[i] = b.scheduler.ScheduleUpdate(ctx, riotID, true)
		}()
	}
	wg.Wait()

	return outcomes
}
