package ports

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pedroanisio/tracker-gg-api/internal/app"
	"github.com/pedroanisio/tracker-gg-api/internal/cache"
	e "github.com/pedroanisio/tracker-gg-api/internal/errors"
	"github.com/pedroanisio/tracker-gg-api/internal/logging"
	"github.com/pedroanisio/tracker-gg-api/internal/ratelimiting"
	"github.com/pedroanisio/tracker-gg-api/internal/reporting"
)

const defaultPlaylist = "competitive"

func makeOnLimitExceeded(rateLimiter ratelimiting.RequestRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		statusCode := http.StatusTooManyRequests

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		errorData, err := StatsErrorResponseData("Rate limit exceeded")
		if err != nil {
			w.Write([]byte(`{"success":false,"cause":"Rate limit exceeded"}`))
		} else {
			w.Write(errorData)
		}

		logger.Info("Returning response", "statusCode", statusCode, "reason", "ratelimit exceeded", "key", rateLimiter.KeyFor(r))
	}
}

func MakeGetPlayerStatsHandler(
	getPlayerStats app.GetPlayerStats,
	statsCache cache.StatsCache,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	ipLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(8),
		ratelimiting.BurstSize(480),
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
		playlist := r.URL.Query().Get("playlist")
		if playlist == "" {
			playlist = defaultPlaylist
		}

		ctx = logging.AddMetaToContext(ctx,
			slog.String("riotID", riotID),
			slog.String("playlist", playlist),
		)
		logger := logging.FromContext(ctx)
		ctx = reporting.SetRiotIDInContext(ctx, riotID)

		// Cached responses are rendered per (riotID, playlist).
		cacheKey := fmt.Sprintf("%s|%s", riotID, playlist)
		data, statusCode, err := cache.GetOrCreateCachedResponse(ctx, statsCache, cacheKey, func() ([]byte, int, error) {
			playerStats, err := getPlayerStats(ctx, riotID, playlist)
			if err != nil {
				return nil, -1, err
			}

			responseData, err := PlayerStatsToResponseData(playerStats)
			if err != nil {
				reporting.Report(ctx, fmt.Errorf("%w: %w", e.APIServerError, err))
				return nil, -1, err
			}

			return responseData, http.StatusOK, nil
		})
		if err != nil {
			logger.Error("Error getting player stats", "error", err)
			statusCode := writeErrorResponse(ctx, w, err)
			logger.Info("Returning response", "statusCode", statusCode, "reason", "error")
			return
		}

		logger.Info("Returning response", "statusCode", statusCode, "reason", "success", "contentLength", len(data))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		w.Write(data)
	}

	return middleware(handler)
}
