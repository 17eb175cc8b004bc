package ports

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/pedroanisio/tracker-gg-api/internal/app"
	"github.com/pedroanisio/tracker-gg-api/internal/logging"
	"github.com/pedroanisio/tracker-gg-api/internal/ratelimiting"
	"github.com/pedroanisio/tracker-gg-api/internal/reporting"
	"github.com/pedroanisio/tracker-gg-api/internal/strutils"
)

const (
	defaultBulkConcurrency = 3
	maxBulkConcurrency     = 10
	maxBulkPlayers         = 100
)

// MakeBulkUpdateHandler refreshes every stale player in the request
// with bounded concurrency. Players that are fresh enough are skipped.
func MakeBulkUpdateHandler(
	bulkUpdatePlayers app.BulkUpdatePlayers,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	ipLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(1),
		ratelimiting.BurstSize(2),
	)
	ipRateLimiter := ratelimiting.NewRequestBasedRateLimiter(
		ipLimiter,
		ratelimiting.IPKeyFunc,
	)

	middleware := ComposeMiddlewares(
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		buildMetricsMiddleware(),
		NewRateLimitMiddleware(ipRateLimiter, makeOnLimitExceeded(ipRateLimiter)),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		defer r.Body.Close()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		request := struct {
			RiotIDs       []string `json:"riotIds"`
			MaxConcurrent int      `json:"maxConcurrent"`
		}{}
		err = json.Unmarshal(body, &request)
		if err != nil {
			http.Error(w, "Failed to parse request body", http.StatusBadRequest)
			return
		}

		if len(request.RiotIDs) == 0 {
			http.Error(w, "No riot ids given", http.StatusBadRequest)
			return
		}
		if len(request.RiotIDs) > maxBulkPlayers {
			http.Error(w, "Too many riot ids", http.StatusBadRequest)
			return
		}
		for _, riotID := range request.RiotIDs {
			if !strutils.RiotIDIsValid(riotID) {
				http.Error(w, "Invalid riot id", http.StatusBadRequest)
				return
			}
		}

		maxConcurrent := request.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = defaultBulkConcurrency
		}
		if maxConcurrent > maxBulkConcurrency {
			maxConcurrent = maxBulkConcurrency
		}

		outcomes := bulkUpdatePlayers(ctx, request.RiotIDs, maxConcurrent)

		responseData, err := BulkOutcomesToResponseData(outcomes)
		if err != nil {
			logger.Error("Failed to marshal bulk update response", "error", err)
			reporting.Report(ctx, err)
			statusCode := writeErrorResponse(ctx, w, err)
			logger.Info("Returning response", "statusCode", statusCode, "reason", "error")
			return
		}

		statusCode := http.StatusOK
		logger.Info("Returning response", "statusCode", statusCode, "reason", "success", "players", len(request.RiotIDs))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		w.Write(responseData)
	}

	return middleware(handler)
}
