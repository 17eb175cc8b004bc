package scraper

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/pedroanisio/tracker-gg-api/internal/adapters/gateway"
	"github.com/pedroanisio/tracker-gg-api/internal/catalog"
	"github.com/pedroanisio/tracker-gg-api/internal/domain"
	e "github.com/pedroanisio/tracker-gg-api/internal/errors"
	"github.com/pedroanisio/tracker-gg-api/internal/logging"
	"github.com/pedroanisio/tracker-gg-api/internal/reporting"
	"github.com/pedroanisio/tracker-gg-api/internal/strutils"
)

// Empirically tuned thresholds carried over from the tuning of the
// live scraper. Kept as named defaults rather than re-derived.
const (
	defaultMaxAttempts = 3
	// earlyTerminationSuccesses is the success count after which an
	// incremental run stops issuing requests, provided the critical
	// endpoint has been fetched.
	earlyTerminationSuccesses = 3
	// priorityAchievedSuccesses is the success count at which a run is
	// considered good enough to reconcile.
	priorityAchievedSuccesses = 2
)

type UpdateScheduler interface {
	ScheduleUpdate(ctx context.Context, riotID string, incremental bool) UpdateOutcome
}

type scheduler struct {
	gateway     gateway.Gateway
	checkpoints *CheckpointStore
	endpoints   []catalog.Endpoint
	sleep       Sleeper
	maxAttempts int

	rng      *rand.Rand
	minDelay time.Duration
	maxDelay time.Duration
	delays   *delayPolicy

	metrics schedulerMetricsCollection
}

type SchedulerOption func(*scheduler)

// WithSleeper replaces the real sleeper, letting tests capture the
// delay schedule instead of waiting it out.
func WithSleeper(sleep Sleeper) SchedulerOption {
	return func(s *scheduler) {
		s.sleep = sleep
	}
}

// WithRandSeed makes all randomized timing decisions deterministic.
func WithRandSeed(seed uint64) SchedulerOption {
	return func(s *scheduler) {
		s.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

func WithDelayWindow(minDelay, maxDelay time.Duration) SchedulerOption {
	return func(s *scheduler) {
		s.minDelay = minDelay
		s.maxDelay = maxDelay
	}
}

func WithMaxAttempts(maxAttempts int) SchedulerOption {
	return func(s *scheduler) {
		s.maxAttempts = maxAttempts
	}
}

// WithEndpoints overrides the endpoint catalog.
func WithEndpoints(endpoints []catalog.Endpoint) SchedulerOption {
	return func(s *scheduler) {
		s.endpoints = endpoints
	}
}

func NewScheduler(gw gateway.Gateway, checkpoints *CheckpointStore, options ...SchedulerOption) (UpdateScheduler, error) {
	meter := otel.Meter("scraper/scheduler")
	metrics, err := setupSchedulerMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	s := &scheduler{
		gateway:     gw,
		checkpoints: checkpoints,
		endpoints:   catalog.All(),
		sleep:       DefaultSleeper,
		maxAttempts: defaultMaxAttempts,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		minDelay:    defaultMinDelay,
		maxDelay:    defaultMaxDelay,
		metrics:     metrics,
	}
	for _, option := range options {
		option(s)
	}
	s.delays = newDelayPolicy(s.minDelay, s.maxDelay, s.rng)

	return s, nil
}

// candidates selects and orders the endpoints for one run. Incremental
// runs on a warm checkpoint only consider high-priority endpoints not
// yet fetched in this cycle.
func (s *scheduler) candidates(checkpoint Checkpoint, incremental bool) []catalog.Endpoint {
	var selected []catalog.Endpoint
	if incremental && len(checkpoint.Fetched) > 0 {
		for _, endpoint := range s.endpoints {
			if endpoint.Priority > catalog.IncrementalThreshold && !checkpoint.HasFetched(endpoint.Name) {
				selected = append(selected, endpoint)
			}
		}
	} else {
		selected = slices.Clone(s.endpoints)
	}

	// Ties keep catalog declaration order.
	slices.SortStableFunc(selected, func(a, b catalog.Endpoint) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	return selected
}

func (s *scheduler) criticalEndpointName() string {
	for _, endpoint := range s.endpoints {
		if endpoint.Critical() {
			return endpoint.Name
		}
	}
	return ""
}

func (s *scheduler) ScheduleUpdate(ctx context.Context, riotID string, incremental bool) UpdateOutcome {
	logger := logging.FromContext(ctx).With("riotID", riotID, "incremental", incremental)
	ctx = logging.AddToContext(ctx, logger)
	ctx = reporting.SetRiotIDInContext(ctx, riotID)

	outcome := UpdateOutcome{
		RiotID:      riotID,
		Incremental: incremental,
		StartedAt:   time.Now(),
	}

	if !strutils.RiotIDIsValid(riotID) {
		outcome.Err = fmt.Errorf("%w: %q", domain.ErrInvalidRiotID, riotID)
		outcome.CompletedAt = time.Now()
		return outcome
	}

	if !incremental {
		s.checkpoints.ResetEndpoints(riotID)
	}
	checkpoint := s.checkpoints.GetOrCreate(riotID)
	candidates := s.candidates(checkpoint, incremental)

	session, err := s.gateway.CreateSession(ctx)
	if err != nil {
		err := fmt.Errorf("failed to create gateway session: %w", err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		s.metrics.runCount.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "session_error")))

		outcome.Err = err
		outcome.CompletedAt = time.Now()
		return outcome
	}
	defer func() {
		if err := s.gateway.DestroySession(ctx, session); err != nil {
			logger.Error("failed to destroy gateway session", "error", err.Error())
			reporting.Report(ctx, err)
		}
	}()

	criticalName := s.criticalEndpointName()

	for i, endpoint := range candidates {
		// Pause between endpoints to mimic human browsing. The first
		// request goes out immediately.
		if i > 0 {
			if err := s.sleep(ctx, s.delays.delay(0)); err != nil {
				outcome.Err = err
				break
			}
		}

		result := s.fetchWithRetry(ctx, session, riotID, endpoint)
		outcome.Results = append(outcome.Results, result)

		s.metrics.fetchCount.Add(ctx, 1, metric.WithAttributes(
			attribute.String("endpoint", endpoint.Name),
			attribute.String("status", string(result.Status)),
		))

		if result.Status == FetchStatusSuccess {
			s.checkpoints.MarkFetched(riotID, endpoint.Name)
			outcome.Successful++
		} else {
			outcome.Failed++
			logger.Warn(
				"endpoint fetch failed",
				"endpoint", endpoint.Name,
				"status", string(result.Status),
				"statusCode", result.StatusCode,
				"attempts", result.Attempts,
			)
		}

		if incremental &&
			outcome.Successful >= earlyTerminationSuccesses &&
			s.checkpoints.GetOrCreate(riotID).HasFetched(criticalName) {
			logger.Info("terminating run early", "successful", outcome.Successful)
			break
		}
	}

	s.checkpoints.RecordAttempt(riotID, outcome.Successful > 0)

	outcome.PriorityAchieved = outcome.Successful >= priorityAchievedSuccesses
	outcome.CompletedAt = time.Now()

	s.metrics.runCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", "completed"),
		attribute.Bool("priority_achieved", outcome.PriorityAchieved),
	))
	logger.Info(
		"update run completed",
		"successful", outcome.Successful,
		"failed", outcome.Failed,
		"priorityAchieved", outcome.PriorityAchieved,
		"duration", outcome.CompletedAt.Sub(outcome.StartedAt).String(),
	)

	return outcome
}

// fetchWithRetry drives one endpoint to a terminal result within the
// attempt budget. Rate limits back off harder than plain server errors;
// a malformed 200 body is terminal immediately since retrying cannot
// fix a parsing problem.
func (s *scheduler) fetchWithRetry(ctx context.Context, session gateway.Session, riotID string, endpoint catalog.Endpoint) FetchResult {
	url := endpoint.URL(riotID)

	var last FetchResult
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		start := time.Now()
		resp, err := s.gateway.Get(ctx, session, url)
		s.metrics.fetchDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("endpoint", endpoint.Name),
		))

		var retryDelay time.Duration
		switch {
		case err != nil:
			last = FetchResult{
				Endpoint:  endpoint,
				Status:    FetchStatusException,
				Attempts:  attempt,
				FetchedAt: time.Now(),
				Err:       fmt.Errorf("%w: %w", e.APIServerError, err),
			}
			retryDelay = s.delays.delay(attempt)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
			last = FetchResult{
				Endpoint:   endpoint,
				Status:     FetchStatusRateLimited,
				StatusCode: resp.StatusCode,
				Attempts:   attempt,
				FetchedAt:  time.Now(),
				Err:        fmt.Errorf("%w: status %d from %s", e.RatelimitExceededError, resp.StatusCode, endpoint.Name),
			}
			// Back off harder when the remote is actively refusing us.
			retryDelay = s.delays.delay(attempt + 2)
		case resp.StatusCode != http.StatusOK:
			last = FetchResult{
				Endpoint:   endpoint,
				Status:     FetchStatusHTTPError,
				StatusCode: resp.StatusCode,
				Attempts:   attempt,
				FetchedAt:  time.Now(),
				Err:        fmt.Errorf("%w: status %d from %s", e.APIServerError, resp.StatusCode, endpoint.Name),
			}
			retryDelay = s.delays.delay(attempt)
		case !json.Valid(resp.Body):
			return FetchResult{
				Endpoint:   endpoint,
				Status:     FetchStatusJSONError,
				StatusCode: resp.StatusCode,
				Attempts:   attempt,
				FetchedAt:  time.Now(),
				Err:        fmt.Errorf("%w: undecodable body from %s", e.APIServerError, endpoint.Name),
			}
		default:
			return FetchResult{
				Endpoint:   endpoint,
				Status:     FetchStatusSuccess,
				StatusCode: resp.StatusCode,
				Payload:    resp.Body,
				Attempts:   attempt,
				FetchedAt:  time.Now(),
			}
		}

		if attempt == s.maxAttempts {
			break
		}
		if err := s.sleep(ctx, retryDelay); err != nil {
			break
		}
	}

	return last
}
