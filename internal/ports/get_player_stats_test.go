package ports

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pedroanisio/tracker-gg-api/internal/app"
	"github.com/pedroanisio/tracker-gg-api/internal/cache"
	"github.com/pedroanisio/tracker-gg-api/internal/domain"
)

const testRiotID = "TenZ#NA1"

var testLogger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

func noopSentryMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return next
}

func testPlayerStats() *app.PlayerStats {
	now := time.Now()
	return &app.PlayerStats{
		Player: &domain.Player{
			RiotID:      testRiotID,
			Username:    "TenZ",
			Tag:         "NA1",
			FirstSeen:   now.Add(-24 * time.Hour),
			LastUpdated: now,
		},
		Segments: []domain.Segment{
			{
				RiotID:   testRiotID,
				Type:     domain.SegmentTypePlaylist,
				Key:      "playlist",
				Playlist: "competitive",
				Stats: []domain.Statistic{
					{Name: "kills", Value: 412, DisplayValue: "412", DisplayType: "Number"},
				},
			},
		},
		Timeline: []domain.TimelinePoint{
			{
				RiotID:   testRiotID,
				Playlist: "competitive",
				Date:     time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
				Kills:    20,
			},
		},
	}
}

func TestMakeGetPlayerStatsHandler(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		handler := MakeGetPlayerStatsHandler(func(ctx context.Context, riotID string, playlist string) (*app.PlayerStats, error) {
			require.Equal(t, testRiotID, riotID)
			require.Equal(t, "competitive", playlist)
			return testPlayerStats(), nil
		}, cache.NewStatsCache(time.Minute), testLogger, noopSentryMiddleware)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/players/TenZ%23NA1/stats", nil)
		req.SetPathValue("riotID", testRiotID)

		handler(w, req)

		resp := w.Result()
		require.Equal(t, 200, resp.StatusCode)
		require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		body := w.Body.String()
		require.Contains(t, body, `"success":true`)
		require.Contains(t, body, `"username":"TenZ"`)
		require.Contains(t, body, `"kills":20`)
		require.Contains(t, body, `"value":412`)
	})

	t.Run("playlist from query", func(t *testing.T) {
		t.Parallel()

		handler := MakeGetPlayerStatsHandler(func(ctx context.Context, riotID string, playlist string) (*app.PlayerStats, error) {
			require.Equal(t, "unrated", playlist)
			return testPlayerStats(), nil
		}, cache.NewStatsCache(time.Minute), testLogger, noopSentryMiddleware)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/players/TenZ%23NA1/stats?playlist=unrated", nil)
		req.SetPathValue("riotID", testRiotID)

		handler(w, req)

		require.Equal(t, 200, w.Result().StatusCode)
	})

	t.Run("player not found", func(t *testing.T) {
		t.Parallel()

		handler := MakeGetPlayerStatsHandler(func(ctx context.Context, riotID string, playlist string) (*app.PlayerStats, error) {
			return nil, fmt.Errorf("failed to get player: %w", domain.ErrPlayerNotFound)
		}, cache.NewStatsCache(time.Minute), testLogger, noopSentryMiddleware)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/players/Unknown%23EU1/stats", nil)
		req.SetPathValue("riotID", "Unknown#EU1")

		handler(w, req)

		resp := w.Result()
		require.Equal(t, 404, resp.StatusCode)
		require.Contains(t, w.Body.String(), `"cause":"Player not found"`)
	})

	t.Run("invalid riot id", func(t *testing.T) {
		t.Parallel()

		handler := MakeGetPlayerStatsHandler(func(ctx context.Context, riotID string, playlist string) (*app.PlayerStats, error) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRiotID, riotID)
		}, cache.NewStatsCache(time.Minute), testLogger, noopSentryMiddleware)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/players/no-tag/stats", nil)
		req.SetPathValue("riotID", "no-tag")

		handler(w, req)

		resp := w.Result()
		require.Equal(t, 400, resp.StatusCode)
		require.Contains(t, w.Body.String(), `"cause":"Invalid riot id"`)
	})

	t.Run("second request is served from the cache", func(t *testing.T) {
		t.Parallel()

		calls := 0
		handler := MakeGetPlayerStatsHandler(func(ctx context.Context, riotID string, playlist string) (*app.PlayerStats, error) {
			calls++
			return testPlayerStats(), nil
		}, cache.NewStatsCache(time.Minute), testLogger, noopSentryMiddleware)

		for range 2 {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/v1/players/TenZ%23NA1/stats", nil)
			req.SetPathValue("riotID", testRiotID)
			handler(w, req)
			require.Equal(t, 200, w.Result().StatusCode)
		}

		require.Equal(t, 1, calls)
	})
}
