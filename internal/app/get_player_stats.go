package app

import (
	"context"
	"fmt"

	"github.com/pedroanisio/tracker-gg-api/internal/adapters/statsrepository"
	"github.com/pedroanisio/tracker-gg-api/internal/domain"
	"github.com/pedroanisio/tracker-gg-api/internal/strutils"
)

// PlayerStats bundles everything the read path serves for one player.
type PlayerStats struct {
	Player   *domain.Player
	Segments []domain.Segment
	Timeline []domain.TimelinePoint
	Parties  []domain.PartyStatistic
}

type GetPlayerStats func(ctx context.Context, riotID string, playlist string) (*PlayerStats, error)

func BuildGetPlayerStats(repo statsrepository.StatsRepository) GetPlayerStats {
	return func(ctx context.Context, riotID string, playlist string) (*PlayerStats, error) {
		if !strutils.RiotIDIsValid(riotID) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRiotID, riotID)
		}

		player, err := repo.GetPlayer(ctx, riotID)
		if err != nil {
			// NOTE: StatsRepository implementations handle their own error reporting
			return nil, fmt.Errorf("failed to get player: %w", err)
		}

		segments, err := repo.GetSegments(ctx, riotID)
		if err != nil {
			return nil, fmt.Errorf("failed to get segments: %w", err)
		}

		timeline, err := repo.GetTimeline(ctx, riotID, playlist)
		if err != nil {
			return nil, fmt.Errorf("failed to get timeline: %w", err)
		}

		parties, err := repo.GetPartyStatistics(ctx, riotID, playlist)
		if err != nil {
			return nil, fmt.Errorf("failed to get party statistics: %w", err)
		}

		return &PlayerStats{
			Player:   player,
			Segments: segments,
			Timeline: timeline,
			Parties:  parties,
		}, nil
	}
}
