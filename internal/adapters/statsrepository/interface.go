package statsrepository

import (
	"context"
	"time"

	"github.com/pedroanisio/tracker-gg-api/internal/domain"
)

// StatsRepository persists scraped player statistics. Upserts are
// keyed by the natural identity of each record so re-ingesting the
// same payload never duplicates rows.
type StatsRepository interface {
	// TouchPlayer creates the player row on first sight and bumps
	// last_updated on every later call.
	TouchPlayer(ctx context.Context, riotID string, updatedAt time.Time) error
	GetPlayer(ctx context.Context, riotID string) (*domain.Player, error)

	// UpsertSegment stores the segment and all of its child statistic
	// values. Returns true when a new segment row was inserted.
	UpsertSegment(ctx context.Context, segment domain.Segment) (bool, error)
	UpsertTimelinePoint(ctx context.Context, point domain.TimelinePoint) (bool, error)
	UpsertPartyStatistic(ctx context.Context, statistic domain.PartyStatistic) (bool, error)

	AppendIngestionLog(ctx context.Context, entry domain.IngestionLogEntry) error

	GetSegments(ctx context.Context, riotID string) ([]domain.Segment, error)
	GetTimeline(ctx context.Context, riotID string, playlist string) ([]domain.TimelinePoint, error)
	GetPartyStatistics(ctx context.Context, riotID string, playlist string) ([]domain.PartyStatistic, error)
	GetIngestionLog(ctx context.Context, riotID string, limit int) ([]domain.IngestionLogEntry, error)
}
