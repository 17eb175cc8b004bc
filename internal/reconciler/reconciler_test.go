package reconciler_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedroanisio/tracker-gg-api/internal/adapters/statsrepository"
	"github.com/pedroanisio/tracker-gg-api/internal/catalog"
	"github.com/pedroanisio/tracker-gg-api/internal/domain"
	"github.com/pedroanisio/tracker-gg-api/internal/reconciler"
	"github.com/pedroanisio/tracker-gg-api/internal/scraper"
)

const testRiotID = "TenZ#NA1"

func mustEndpoint(t *testing.T, name string) catalog.Endpoint {
	t.Helper()
	endpoint, ok := catalog.ByName(name)
	require.True(t, ok)
	return endpoint
}

func successResult(t *testing.T, endpointName string, payload string) scraper.FetchResult {
	t.Helper()
	return scraper.FetchResult{
		Endpoint:  mustEndpoint(t, endpointName),
		Status:    scraper.FetchStatusSuccess,
		Payload:   []byte(payload),
		FetchedAt: time.Now(),
	}
}

func aggregatedPayload(kills int) string {
	return fmt.Sprintf(`{
		"data": {
			"heatmap": [
				{
					"date": "2026-08-20T00:00:00+00:00",
					"values": {
						"playtime": 7200,
						"kd": 1.25,
						"score": 4500,
						"kills": %d,
						"deaths": 16,
						"hsAccuracy": 28.5,
						"matches": 3,
						"wins": 2,
						"losses": 1,
						"winPct": 66.7,
						"adr": 155.2
					}
				}
			],
			"parties": [
				{
					"party": 2,
					"data": {
						"kd": 1.1,
						"matches": 10,
						"wins": 6,
						"losses": 4,
						"winPct": 60.0
					}
				}
			]
		}
	}`, kills)
}

const playlistPayload = `{
	"data": [
		{
			"attributes": {"key": "playlist", "seasonId": "season-1"},
			"metadata": {"name": "Competitive", "schema": "statsv2"},
			"expiryDate": "2026-09-01T00:00:00Z",
			"stats": {
				"kills": {"value": 412, "displayValue": "412", "category": "combat", "displayType": "Number"},
				"rank": {"displayValue": "Diamond 2"}
			}
		}
	]
}`

func newTestReconciler(t *testing.T, repo statsrepository.StatsRepository) *reconciler.Reconciler {
	t.Helper()
	r, err := reconciler.NewReconciler(repo)
	require.NoError(t, err)
	return r
}

func TestReconcileAggregated(t *testing.T) {
	t.Parallel()

	repo := statsrepository.NewMemoryStatsRepository()
	r := newTestReconciler(t, repo)
	ctx := t.Context()

	stats, err := r.Reconcile(ctx, testRiotID, []scraper.FetchResult{
		successResult(t, "v1_competitive_aggregated", aggregatedPayload(20)),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 2, stats.Inserted)
	assert.Zero(t, stats.Skipped)

	points, err := repo.GetTimeline(ctx, testRiotID, "competitive")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 20, points[0].Kills)
	assert.Equal(t, 7200, points[0].Playtime)
	assert.InDelta(t, 1.25, points[0].KDRatio, 1e-9)

	parties, err := repo.GetPartyStatistics(ctx, testRiotID, "competitive")
	require.NoError(t, err)
	require.Len(t, parties, 1)
	assert.Equal(t, 2, parties[0].PartyNumber)
	assert.Equal(t, 6, parties[0].Wins)

	player, err := repo.GetPlayer(ctx, testRiotID)
	require.NoError(t, err)
	assert.Equal(t, "TenZ", player.Username)
}

func TestReconcileIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := statsrepository.NewMemoryStatsRepository()
	r := newTestReconciler(t, repo)
	ctx := t.Context()

	results := []scraper.FetchResult{
		successResult(t, "v1_competitive_aggregated", aggregatedPayload(20)),
		successResult(t, "v2_competitive_playlist", playlistPayload),
	}

	_, err := r.Reconcile(ctx, testRiotID, results)
	require.NoError(t, err)

	stats, err := r.Reconcile(ctx, testRiotID, results)
	require.NoError(t, err)
	assert.Zero(t, stats.Inserted)
	assert.Equal(t, 3, stats.Updated)

	points, err := repo.GetTimeline(ctx, testRiotID, "competitive")
	require.NoError(t, err)
	require.Len(t, points, 1)

	parties, err := repo.GetPartyStatistics(ctx, testRiotID, "competitive")
	require.NoError(t, err)
	require.Len(t, parties, 1)

	segments, err := repo.GetSegments(ctx, testRiotID)
	require.NoError(t, err)
	require.Len(t, segments, 1)
}

func TestReconcileUpsertsByIdentity(t *testing.T) {
	t.Parallel()

	repo := statsrepository.NewMemoryStatsRepository()
	r := newTestReconciler(t, repo)
	ctx := t.Context()

	_, err := r.Reconcile(ctx, testRiotID, []scraper.FetchResult{
		successResult(t, "v1_competitive_aggregated", aggregatedPayload(20)),
	})
	require.NoError(t, err)

	// Same (player, playlist, date), different kill count.
	_, err = r.Reconcile(ctx, testRiotID, []scraper.FetchResult{
		successResult(t, "v1_competitive_aggregated", aggregatedPayload(33)),
	})
	require.NoError(t, err)

	points, err := repo.GetTimeline(ctx, testRiotID, "competitive")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 33, points[0].Kills)
}

func TestReconcileSegments(t *testing.T) {
	t.Parallel()

	repo := statsrepository.NewMemoryStatsRepository()
	r := newTestReconciler(t, repo)
	ctx := t.Context()

	stats, err := r.Reconcile(ctx, testRiotID, []scraper.FetchResult{
		successResult(t, "v2_competitive_playlist", playlistPayload),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)

	segments, err := repo.GetSegments(ctx, testRiotID)
	require.NoError(t, err)
	require.Len(t, segments, 1)

	segment := segments[0]
	assert.Equal(t, domain.SegmentTypePlaylist, segment.Type)
	assert.Equal(t, "playlist", segment.Key)
	assert.Equal(t, "competitive", segment.Playlist)
	assert.Equal(t, "season-1", segment.SeasonID)
	assert.Equal(t, "statsv2", segment.SchemaVersion)
	assert.Equal(t, "Competitive", segment.DisplayName)
	assert.Equal(t, "v2_competitive_playlist", segment.Source)

	// The valueless "rank" stat is dropped.
	require.Len(t, segment.Stats, 1)
	assert.Equal(t, "kills", segment.Stats[0].Name)
	assert.Equal(t, float64(412), segment.Stats[0].Value)
}

func TestReconcileLoadoutSegments(t *testing.T) {
	t.Parallel()

	repo := statsrepository.NewMemoryStatsRepository()
	r := newTestReconciler(t, repo)
	ctx := t.Context()

	payload := `{
		"data": [
			{
				"attributes": {"key": "rifle", "playlist": "competitive"},
				"metadata": {"name": "Rifle", "schema": "statsv2"},
				"stats": {"kills": {"value": 250}}
			}
		]
	}`

	_, err := r.Reconcile(ctx, testRiotID, []scraper.FetchResult{
		successResult(t, "v2_loadout_segments", payload),
	})
	require.NoError(t, err)

	segments, err := repo.GetSegments(ctx, testRiotID)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, domain.SegmentTypeLoadout, segments[0].Type)
	// Loadout endpoints carry no playlist; it comes from the entry.
	assert.Equal(t, "competitive", segments[0].Playlist)
}

func TestReconcileSkipsMalformedEntries(t *testing.T) {
	t.Parallel()

	repo := statsrepository.NewMemoryStatsRepository()
	r := newTestReconciler(t, repo)
	ctx := t.Context()

	payload := `{
		"data": {
			"heatmap": [
				{"date": "", "values": {"kills": 1}},
				{"date": "2026-08-20T00:00:00Z"},
				{"date": "2026-08-21T00:00:00Z", "values": {"kills": 7}}
			],
			"parties": [
				{"data": {"matches": 1}}
			]
		}
	}`

	stats, err := r.Reconcile(ctx, testRiotID, []scraper.FetchResult{
		successResult(t, "v1_competitive_aggregated", payload),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 3, stats.Skipped)

	points, err := repo.GetTimeline(ctx, testRiotID, "competitive")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 7, points[0].Kills)
}

func TestReconcileIgnoresFailedResults(t *testing.T) {
	t.Parallel()

	repo := statsrepository.NewMemoryStatsRepository()
	r := newTestReconciler(t, repo)
	ctx := t.Context()

	stats, err := r.Reconcile(ctx, testRiotID, []scraper.FetchResult{
		{
			Endpoint: mustEndpoint(t, "v1_competitive_aggregated"),
			Status:   scraper.FetchStatusHTTPError,
		},
	})
	require.NoError(t, err)
	assert.Zero(t, stats.Processed)

	entries, err := repo.GetIngestionLog(ctx, testRiotID, 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestReconcileAppendsIngestionLog(t *testing.T) {
	t.Parallel()

	repo := statsrepository.NewMemoryStatsRepository()
	r := newTestReconciler(t, repo)
	ctx := t.Context()

	_, err := r.Reconcile(ctx, testRiotID, []scraper.FetchResult{
		successResult(t, "v1_competitive_aggregated", aggregatedPayload(20)),
		successResult(t, "v2_competitive_playlist", playlistPayload),
	})
	require.NoError(t, err)

	entries, err := repo.GetIngestionLog(ctx, testRiotID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, "reconcile", entry.Operation)
		assert.Equal(t, "success", entry.Status)
	}
}
