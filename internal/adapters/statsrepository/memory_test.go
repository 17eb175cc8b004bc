package statsrepository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedroanisio/tracker-gg-api/internal/adapters/statsrepository"
	"github.com/pedroanisio/tracker-gg-api/internal/domain"
)

const testRiotID = "TenZ#NA1"

func newSegment(kills float64) domain.Segment {
	return domain.Segment{
		RiotID:     testRiotID,
		Type:       domain.SegmentTypePlaylist,
		Key:        "playlist",
		Playlist:   "competitive",
		SeasonID:   "season-1",
		CapturedAt: time.Now(),
		Source:     "v2_competitive_playlist",
		Stats: []domain.Statistic{
			{Name: "kills", Value: kills, DisplayValue: "100", Category: "combat"},
			{Name: "deaths", Value: 50, DisplayValue: "50", Category: "combat"},
		},
	}
}

func TestMemoryStatsRepositoryPlayers(t *testing.T) {
	t.Parallel()

	repo := statsrepository.NewMemoryStatsRepository()
	ctx := t.Context()

	_, err := repo.GetPlayer(ctx, testRiotID)
	require.ErrorIs(t, err, domain.ErrPlayerNotFound)

	firstSeen := time.Now().Add(-time.Hour)
	require.NoError(t, repo.TouchPlayer(ctx, testRiotID, firstSeen))

	later := time.Now()
	require.NoError(t, repo.TouchPlayer(ctx, testRiotID, later))

	player, err := repo.GetPlayer(ctx, testRiotID)
	require.NoError(t, err)
	assert.Equal(t, "TenZ", player.Username)
	assert.Equal(t, "NA1", player.Tag)
	assert.Equal(t, firstSeen, player.FirstSeen)
	assert.Equal(t, later, player.LastUpdated)

	require.Error(t, repo.TouchPlayer(ctx, "#bad", time.Now()))
}

func TestMemoryStatsRepositorySegmentUpsert(t *testing.T) {
	t.Parallel()

	repo := statsrepository.NewMemoryStatsRepository()
	ctx := t.Context()

	inserted, err := repo.UpsertSegment(ctx, newSegment(100))
	require.NoError(t, err)
	require.True(t, inserted)

	// Same identity tuple: update in place, no duplicate.
	inserted, err = repo.UpsertSegment(ctx, newSegment(120))
	require.NoError(t, err)
	require.False(t, inserted)

	segments, err := repo.GetSegments(ctx, testRiotID)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	require.Len(t, segments[0].Stats, 2)
	// Stats come back sorted by name: deaths, kills.
	assert.Equal(t, float64(120), segments[0].Stats[1].Value)

	// Different playlist: separate identity.
	other := newSegment(10)
	other.Playlist = "unrated"
	inserted, err = repo.UpsertSegment(ctx, other)
	require.NoError(t, err)
	require.True(t, inserted)

	segments, err = repo.GetSegments(ctx, testRiotID)
	require.NoError(t, err)
	require.Len(t, segments, 2)
}

func TestMemoryStatsRepositorySegmentStatMerge(t *testing.T) {
	t.Parallel()

	repo := statsrepository.NewMemoryStatsRepository()
	ctx := t.Context()

	_, err := repo.UpsertSegment(ctx, newSegment(100))
	require.NoError(t, err)

	// A later payload missing "deaths" keeps the stored value.
	partial := newSegment(150)
	partial.Stats = partial.Stats[:1]
	_, err = repo.UpsertSegment(ctx, partial)
	require.NoError(t, err)

	segments, err := repo.GetSegments(ctx, testRiotID)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	require.Len(t, segments[0].Stats, 2)
	assert.Equal(t, float64(50), segments[0].Stats[0].Value)
	assert.Equal(t, float64(150), segments[0].Stats[1].Value)
}

func TestMemoryStatsRepositoryTimelineUpsert(t *testing.T) {
	t.Parallel()

	repo := statsrepository.NewMemoryStatsRepository()
	ctx := t.Context()

	date := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	point := domain.TimelinePoint{
		RiotID:   testRiotID,
		Playlist: "competitive",
		Date:     date,
		Kills:    20,
		Matches:  3,
	}

	inserted, err := repo.UpsertTimelinePoint(ctx, point)
	require.NoError(t, err)
	require.True(t, inserted)

	point.Kills = 25
	inserted, err = repo.UpsertTimelinePoint(ctx, point)
	require.NoError(t, err)
	require.False(t, inserted)

	points, err := repo.GetTimeline(ctx, testRiotID, "competitive")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 25, points[0].Kills)

	// Different date inserts a new point, returned in date order.
	point.Date = date.AddDate(0, 0, -1)
	point.Kills = 5
	_, err = repo.UpsertTimelinePoint(ctx, point)
	require.NoError(t, err)

	points, err = repo.GetTimeline(ctx, testRiotID, "competitive")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 5, points[0].Kills)
	assert.Equal(t, 25, points[1].Kills)
}

func TestMemoryStatsRepositoryPartyUpsert(t *testing.T) {
	t.Parallel()

	repo := statsrepository.NewMemoryStatsRepository()
	ctx := t.Context()

	statistic := domain.PartyStatistic{
		RiotID:      testRiotID,
		Playlist:    "competitive",
		PartyNumber: 2,
		Matches:     10,
		Wins:        6,
	}

	inserted, err := repo.UpsertPartyStatistic(ctx, statistic)
	require.NoError(t, err)
	require.True(t, inserted)

	statistic.Wins = 7
	inserted, err = repo.UpsertPartyStatistic(ctx, statistic)
	require.NoError(t, err)
	require.False(t, inserted)

	statistics, err := repo.GetPartyStatistics(ctx, testRiotID, "competitive")
	require.NoError(t, err)
	require.Len(t, statistics, 1)
	assert.Equal(t, 7, statistics[0].Wins)
}

func TestMemoryStatsRepositoryIngestionLog(t *testing.T) {
	t.Parallel()

	repo := statsrepository.NewMemoryStatsRepository()
	ctx := t.Context()

	for i := range 3 {
		err := repo.AppendIngestionLog(ctx, domain.IngestionLogEntry{
			Operation:        "reconcile",
			Source:           "v1_competitive_aggregated",
			RiotID:           testRiotID,
			Status:           "success",
			RecordsProcessed: i,
			StartedAt:        time.Now(),
			CompletedAt:      time.Now(),
		})
		require.NoError(t, err)
	}

	entries, err := repo.GetIngestionLog(ctx, testRiotID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first.
	assert.Equal(t, 2, entries[0].RecordsProcessed)
	assert.Equal(t, 1, entries[1].RecordsProcessed)
}
