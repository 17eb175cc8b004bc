package statsrepository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/pedroanisio/tracker-gg-api/internal/domain"
	"github.com/pedroanisio/tracker-gg-api/internal/strutils"
)

type segmentKey struct {
	riotID      string
	segmentType domain.SegmentType
	key         string
	playlist    string
}

type timelineKey struct {
	riotID   string
	playlist string
	date     string
}

type partyKey struct {
	riotID      string
	playlist    string
	partyNumber int
}

// MemoryStatsRepository keeps everything in process memory. Used in
// development and as the reference implementation in tests; it obeys
// the same identity-tuple upsert semantics as the postgres repository.
type MemoryStatsRepository struct {
	mutex        sync.Mutex
	players      map[string]domain.Player
	segments     map[segmentKey]domain.Segment
	timeline     map[timelineKey]domain.TimelinePoint
	partyStats   map[partyKey]domain.PartyStatistic
	ingestionLog []domain.IngestionLogEntry
}

func NewMemoryStatsRepository() *MemoryStatsRepository {
	return &MemoryStatsRepository{
		players:    make(map[string]domain.Player),
		segments:   make(map[segmentKey]domain.Segment),
		timeline:   make(map[timelineKey]domain.TimelinePoint),
		partyStats: make(map[partyKey]domain.PartyStatistic),
	}
}

func (r *MemoryStatsRepository) TouchPlayer(ctx context.Context, riotID string, updatedAt time.Time) error {
	username, tag, err := strutils.ParseRiotID(riotID)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRiotID, err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	player, ok := r.players[riotID]
	if !ok {
		player = domain.Player{
			ID:        riotID,
			RiotID:    riotID,
			Username:  username,
			Tag:       tag,
			FirstSeen: updatedAt,
		}
	}
	player.LastUpdated = updatedAt
	r.players[riotID] = player

	return nil
}

func (r *MemoryStatsRepository) GetPlayer(ctx context.Context, riotID string) (*domain.Player, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	player, ok := r.players[riotID]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return &player, nil
}

func (r *MemoryStatsRepository) UpsertSegment(ctx context.Context, segment domain.Segment) (bool, error) {
	key := segmentKey{
		riotID:      segment.RiotID,
		segmentType: segment.Type,
		key:         segment.Key,
		playlist:    segment.Playlist,
	}

	segment.Stats = slices.Clone(segment.Stats)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, found := r.segments[key]
	if found {
		// Merge child statistics by name so stats missing from the new
		// payload are kept.
		merged := slices.Clone(existing.Stats)
		for _, statistic := range segment.Stats {
			replaced := false
			for i := range merged {
				if merged[i].Name == statistic.Name {
					merged[i] = statistic
					replaced = true
					break
				}
			}
			if !replaced {
				merged = append(merged, statistic)
			}
		}
		segment.Stats = merged
	}
	r.segments[key] = segment

	return !found, nil
}

func (r *MemoryStatsRepository) UpsertTimelinePoint(ctx context.Context, point domain.TimelinePoint) (bool, error) {
	key := timelineKey{
		riotID:   point.RiotID,
		playlist: point.Playlist,
		date:     point.Date.Format(time.DateOnly),
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	_, found := r.timeline[key]
	r.timeline[key] = point
	return !found, nil
}

func (r *MemoryStatsRepository) UpsertPartyStatistic(ctx context.Context, statistic domain.PartyStatistic) (bool, error) {
	key := partyKey{
		riotID:      statistic.RiotID,
		playlist:    statistic.Playlist,
		partyNumber: statistic.PartyNumber,
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	_, found := r.partyStats[key]
	r.partyStats[key] = statistic
	return !found, nil
}

func (r *MemoryStatsRepository) AppendIngestionLog(ctx context.Context, entry domain.IngestionLogEntry) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.ingestionLog = append(r.ingestionLog, entry)
	return nil
}

func (r *MemoryStatsRepository) GetSegments(ctx context.Context, riotID string) ([]domain.Segment, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var segments []domain.Segment
	for _, segment := range r.segments {
		if segment.RiotID == riotID {
			stats := slices.Clone(segment.Stats)
			slices.SortFunc(stats, func(a, b domain.Statistic) int {
				if a.Name < b.Name {
					return -1
				}
				if a.Name > b.Name {
					return 1
				}
				return 0
			})
			segment.Stats = stats
			segments = append(segments, segment)
		}
	}

	slices.SortFunc(segments, func(a, b domain.Segment) int {
		if a.Type != b.Type {
			if a.Type < b.Type {
				return -1
			}
			return 1
		}
		if a.Playlist != b.Playlist {
			if a.Playlist < b.Playlist {
				return -1
			}
			return 1
		}
		if a.Key < b.Key {
			return -1
		}
		if a.Key > b.Key {
			return 1
		}
		return 0
	})

	return segments, nil
}

func (r *MemoryStatsRepository) GetTimeline(ctx context.Context, riotID string, playlist string) ([]domain.TimelinePoint, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var points []domain.TimelinePoint
	for _, point := range r.timeline {
		if point.RiotID == riotID && point.Playlist == playlist {
			points = append(points, point)
		}
	}

	slices.SortFunc(points, func(a, b domain.TimelinePoint) int {
		return a.Date.Compare(b.Date)
	})

	return points, nil
}

func (r *MemoryStatsRepository) GetPartyStatistics(ctx context.Context, riotID string, playlist string) ([]domain.PartyStatistic, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var statistics []domain.PartyStatistic
	for _, statistic := range r.partyStats {
		if statistic.RiotID == riotID && statistic.Playlist == playlist {
			statistics = append(statistics, statistic)
		}
	}

	slices.SortFunc(statistics, func(a, b domain.PartyStatistic) int {
		return a.PartyNumber - b.PartyNumber
	})

	return statistics, nil
}

func (r *MemoryStatsRepository) GetIngestionLog(ctx context.Context, riotID string, limit int) ([]domain.IngestionLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	var entries []domain.IngestionLogEntry
	for i := len(r.ingestionLog) - 1; i >= 0 && len(entries) < limit; i-- {
		if r.ingestionLog[i].RiotID == riotID {
			entries = append(entries, r.ingestionLog[i])
		}
	}

	return entries, nil
}
