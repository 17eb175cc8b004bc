package scraper

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

type schedulerMetricsCollection struct {
	fetchCount    metric.Int64Counter
	fetchDuration metric.Float64Histogram
	runCount      metric.Int64Counter
}

func setupSchedulerMetrics(meter metric.Meter) (schedulerMetricsCollection, error) {
	fetchCount, err := meter.Int64Counter("scraper/scheduler/fetches")
	if err != nil {
		return schedulerMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	fetchDuration, err := meter.Float64Histogram(
		"scraper/scheduler/fetch_duration",
		metric.WithUnit("s"),
	)
	if err != nil {
		return schedulerMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	runCount, err := meter.Int64Counter("scraper/scheduler/runs")
	if err != nil {
		return schedulerMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	return schedulerMetricsCollection{
		fetchCount:    fetchCount,
		fetchDuration: fetchDuration,
		runCount:      runCount,
	}, nil
}
