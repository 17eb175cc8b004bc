package ports

import (
	"log/slog"
	"net/http"

	"github.com/pedroanisio/tracker-gg-api/internal/app"
	"github.com/pedroanisio/tracker-gg-api/internal/logging"
	"github.com/pedroanisio/tracker-gg-api/internal/ratelimiting"
	"github.com/pedroanisio/tracker-gg-api/internal/reporting"
)

// MakeUpdatePlayerHandler triggers a scheduled update run for one
// player. Updates are incremental unless full=1 is passed.
func MakeUpdatePlayerHandler(
	updatePlayer app.UpdatePlayer,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	// Update runs are expensive against the source, so the per-IP
	// budget is much tighter than on the read path.
	ipLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(1),
		ratelimiting.BurstSize(10),
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
		riotID := r.PathValue("riotID")
		incremental := r.URL.Query().Get("full") != "1"

		ctx = logging.AddMetaToContext(ctx,
			slog.String("riotID", riotID),
			slog.Bool("incremental", incremental),
		)
		logger := logging.FromContext(ctx)
		ctx = reporting.SetRiotIDInContext(ctx, riotID)

		outcome, stats, err := updatePlayer(ctx, riotID, incremental)
		if err != nil {
			logger.Error("Update run failed", "error", err)
			statusCode := writeErrorResponse(ctx, w, err)
			logger.Info("Returning response", "statusCode", statusCode, "reason", "error")
			return
		}

		responseData, err := UpdateOutcomeToResponseData(outcome, stats.Processed, stats.Inserted, stats.Updated)
		if err != nil {
			logger.Error("Failed to marshal update response", "error", err)
			reporting.Report(ctx, err)
			statusCode := writeErrorResponse(ctx, w, err)
			logger.Info("Returning response", "statusCode", statusCode, "reason", "error")
			return
		}

		statusCode := http.StatusOK
		logger.Info("Returning response", "statusCode", statusCode, "reason", "success")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		w.Write(responseData)
	}

	return middleware(handler)
}
