package app

import (
	"context"
	"fmt"
	"time"

	"github.com/pedroanisio/tracker-gg-api/internal/logging"
	"github.com/pedroanisio/tracker-gg-api/internal/reconciler"
	"github.com/pedroanisio/tracker-gg-api/internal/reporting"
	"github.com/pedroanisio/tracker-gg-api/internal/scraper"
	"github.com/pedroanisio/tracker-gg-api/internal/strutils"
)

// UpdatePlayer fetches fresh stats for one player and reconciles the
// successful payloads into the repository.
type UpdatePlayer func(ctx context.Context, riotID string, incremental bool) (scraper.UpdateOutcome, reconciler.ReconcileStats, error)

func BuildUpdatePlayer(
	updateScheduler scraper.UpdateScheduler,
	statsReconciler *reconciler.Reconciler,
) UpdatePlayer {
	return func(ctx context.Context, riotID string, incremental bool) (scraper.UpdateOutcome, reconciler.ReconcileStats, error) {
		logger := logging.FromContext(ctx)

		if !strutils.RiotIDIsValid(riotID) {
			err := fmt.Errorf("invalid riot id")
			reporting.Report(ctx, err)
			return scraper.UpdateOutcome{RiotID: riotID}, reconciler.ReconcileStats{}, err
		}

		outcome := updateScheduler.ScheduleUpdate(ctx, riotID, incremental)
		if outcome.Err != nil {
			// NOTE: The scheduler handles its own error reporting
			return outcome, reconciler.ReconcileStats{}, fmt.Errorf("update run failed: %w", outcome.Err)
		}

		if outcome.Successful == 0 {
			logger.Warn("update run produced no successful fetches, nothing to reconcile")
			return outcome, reconciler.ReconcileStats{}, nil
		}

		// Ignore cancellations from the request context and try to persist
		// the fetched data anyway. The run already cost real requests
		// against the source; losing the payloads would waste them.
		reconcileCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()

		stats, err := statsReconciler.Reconcile(reconcileCtx, riotID, outcome.Results)
		if err != nil {
			// NOTE: The reconciler handles its own error reporting
			return outcome, stats, fmt.Errorf("failed to reconcile fetched stats: %w", err)
		}

		return outcome, stats, nil
	}
}

// reconcilingScheduler adapts an UpdatePlayer back into the scheduler
// interface so the bulk orchestrator reconciles as it goes.
type reconcilingScheduler struct {
	updatePlayer UpdatePlayer
}

func (s *reconcilingScheduler) ScheduleUpdate(ctx context.Context, riotID string, incremental bool) scraper.UpdateOutcome {
	outcome, _, err := s.updatePlayer(ctx, riotID, incremental)
	if err != nil && outcome.Err == nil {
		outcome.Err = err
	}
	return outcome
}

func AsUpdateScheduler(updatePlayer UpdatePlayer) scraper.UpdateScheduler {
	return &reconcilingScheduler{updatePlayer: updatePlayer}
}

// BulkUpdatePlayers refreshes every stale player among riotIDs with
// bounded concurrency.
type BulkUpdatePlayers func(ctx context.Context, riotIDs []string, maxConcurrent int) []scraper.UpdateOutcome

func BuildBulkUpdatePlayers(orchestrator *scraper.BulkOrchestrator) BulkUpdatePlayers {
	return func(ctx context.Context, riotIDs []string, maxConcurrent int) []scraper.UpdateOutcome {
		return orchestrator.BulkUpdate(ctx, riotIDs, maxConcurrent)
	}
}
