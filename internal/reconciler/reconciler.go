// Package reconciler converts successful fetch payloads into persisted
// entities using identity-keyed upserts, so re-ingesting the same data
// updates rows in place instead of duplicating them.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/pedroanisio/tracker-gg-api/internal/adapters/statsrepository"
	"github.com/pedroanisio/tracker-gg-api/internal/catalog"
	"github.com/pedroanisio/tracker-gg-api/internal/domain"
	"github.com/pedroanisio/tracker-gg-api/internal/logging"
	"github.com/pedroanisio/tracker-gg-api/internal/reporting"
	"github.com/pedroanisio/tracker-gg-api/internal/scraper"
)

// ReconcileStats summarizes one reconciliation pass.
type ReconcileStats struct {
	Processed int
	Inserted  int
	Updated   int
	Skipped   int
}

func (s ReconcileStats) add(other ReconcileStats) ReconcileStats {
	return ReconcileStats{
		Processed: s.Processed + other.Processed,
		Inserted:  s.Inserted + other.Inserted,
		Updated:   s.Updated + other.Updated,
		Skipped:   s.Skipped + other.Skipped,
	}
}

type Reconciler struct {
	repository statsrepository.StatsRepository
	now        func() time.Time

	metrics reconcilerMetricsCollection
}

type reconcilerMetricsCollection struct {
	recordCount metric.Int64Counter
}

func setupReconcilerMetrics(meter metric.Meter) (reconcilerMetricsCollection, error) {
	recordCount, err := meter.Int64Counter("reconciler/records")
	if err != nil {
		return reconcilerMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	return reconcilerMetricsCollection{
		recordCount: recordCount,
	}, nil
}

type ReconcilerOption func(*Reconciler)

func WithNow(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		r.now = now
	}
}

func NewReconciler(repository statsrepository.StatsRepository, options ...ReconcilerOption) (*Reconciler, error) {
	meter := otel.Meter("reconciler")
	metrics, err := setupReconcilerMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	r := &Reconciler{
		repository: repository,
		now:        time.Now,
		metrics:    metrics,
	}
	for _, option := range options {
		option(r)
	}
	return r, nil
}

// Reconcile persists every successful fetch result. Malformed entries
// inside a payload are logged and skipped; repository failures abort
// and surface as an error.
func (r *Reconciler) Reconcile(ctx context.Context, riotID string, results []scraper.FetchResult) (ReconcileStats, error) {
	logger := logging.FromContext(ctx).With("riotID", riotID)
	ctx = logging.AddToContext(ctx, logger)

	var total ReconcileStats

	// The player row must exist before any dependent upserts.
	if err := r.repository.TouchPlayer(ctx, riotID, r.now()); err != nil {
		return total, fmt.Errorf("failed to touch player: %w", err)
	}

	for _, result := range results {
		if result.Status != scraper.FetchStatusSuccess {
			continue
		}

		startedAt := r.now()

		var stats ReconcileStats
		var err error
		switch result.Endpoint.Kind {
		case catalog.KindAggregated:
			stats, err = r.reconcileAggregated(ctx, riotID, result)
		case catalog.KindPlaylist:
			stats, err = r.reconcileSegments(ctx, riotID, domain.SegmentTypePlaylist, result)
		case catalog.KindLoadout:
			stats, err = r.reconcileSegments(ctx, riotID, domain.SegmentTypeLoadout, result)
		default:
			logger.Warn("skipping result from unknown endpoint kind", "endpoint", result.Endpoint.Name)
			continue
		}
		if err != nil {
			return total, err
		}
		total = total.add(stats)

		r.metrics.recordCount.Add(ctx, int64(stats.Processed), metric.WithAttributes(
			attribute.String("endpoint", result.Endpoint.Name),
		))

		status := "success"
		if stats.Skipped > 0 {
			status = "partial"
		}
		err = r.repository.AppendIngestionLog(ctx, domain.IngestionLogEntry{
			Operation:        "reconcile",
			Source:           result.Endpoint.Name,
			RiotID:           riotID,
			Status:           status,
			RecordsProcessed: stats.Processed,
			RecordsInserted:  stats.Inserted,
			RecordsUpdated:   stats.Updated,
			StartedAt:        startedAt,
			CompletedAt:      r.now(),
		})
		if err != nil {
			return total, fmt.Errorf("failed to append ingestion log: %w", err)
		}
	}

	logger.Info(
		"reconciliation completed",
		"processed", total.Processed,
		"inserted", total.Inserted,
		"updated", total.Updated,
		"skipped", total.Skipped,
	)

	return total, nil
}

func (r *Reconciler) reconcileAggregated(ctx context.Context, riotID string, result scraper.FetchResult) (ReconcileStats, error) {
	logger := logging.FromContext(ctx)
	var stats ReconcileStats

	payload, err := decodeAggregatedPayload(result.Payload)
	if err != nil {
		logger.Error("skipping aggregated payload", "endpoint", result.Endpoint.Name, "error", err.Error())
		reporting.Report(ctx, err, map[string]string{"endpoint": result.Endpoint.Name})
		stats.Skipped++
		return stats, nil
	}

	playlist := result.Endpoint.Playlist
	capturedAt := result.FetchedAt

	for _, entry := range payload.Data.Heatmap {
		point, err := heatmapEntryToTimelinePoint(riotID, playlist, entry, capturedAt)
		if err != nil {
			logger.Warn("skipping heatmap entry", "error", err.Error())
			stats.Skipped++
			continue
		}

		inserted, err := r.repository.UpsertTimelinePoint(ctx, point)
		if err != nil {
			return stats, fmt.Errorf("failed to upsert timeline point: %w", err)
		}
		stats.Processed++
		if inserted {
			stats.Inserted++
		} else {
			stats.Updated++
		}
	}

	for _, entry := range payload.Data.Parties {
		statistic, err := partyEntryToPartyStatistic(riotID, playlist, entry, capturedAt)
		if err != nil {
			logger.Warn("skipping party entry", "error", err.Error())
			stats.Skipped++
			continue
		}

		inserted, err := r.repository.UpsertPartyStatistic(ctx, statistic)
		if err != nil {
			return stats, fmt.Errorf("failed to upsert party statistic: %w", err)
		}
		stats.Processed++
		if inserted {
			stats.Inserted++
		} else {
			stats.Updated++
		}
	}

	return stats, nil
}

func (r *Reconciler) reconcileSegments(ctx context.Context, riotID string, segmentType domain.SegmentType, result scraper.FetchResult) (ReconcileStats, error) {
	logger := logging.FromContext(ctx)
	var stats ReconcileStats

	payload, err := decodeSegmentsPayload(result.Payload)
	if err != nil {
		logger.Error("skipping segments payload", "endpoint", result.Endpoint.Name, "error", err.Error())
		reporting.Report(ctx, err, map[string]string{"endpoint": result.Endpoint.Name})
		stats.Skipped++
		return stats, nil
	}

	capturedAt := result.FetchedAt

	for _, entry := range payload.Data {
		segment, err := segmentEntryToSegment(riotID, segmentType, result.Endpoint.Playlist, result.Endpoint.Name, entry, capturedAt)
		if err != nil {
			logger.Warn("skipping segment entry", "error", err.Error())
			stats.Skipped++
			continue
		}

		inserted, err := r.repository.UpsertSegment(ctx, segment)
		if err != nil {
			return stats, fmt.Errorf("failed to upsert segment: %w", err)
		}
		stats.Processed++
		if inserted {
			stats.Inserted++
		} else {
			stats.Updated++
		}
	}

	return stats, nil
}
