package reconciler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pedroanisio/tracker-gg-api/internal/domain"
)

// Wire shapes for the tracker.gg payloads. Only the fields the
// reconciler persists are decoded; everything else is ignored.

type aggregatedPayload struct {
	Data struct {
		Heatmap []heatmapEntry `json:"heatmap"`
		Parties []partyEntry   `json:"parties"`
	} `json:"data"`
}

type heatmapEntry struct {
	Date   string         `json:"date"`
	Values *heatmapValues `json:"values"`
}

type heatmapValues struct {
	Playtime   int     `json:"playtime"`
	KD         float64 `json:"kd"`
	Placement  float64 `json:"placement"`
	Score      float64 `json:"score"`
	Kills      int     `json:"kills"`
	Deaths     int     `json:"deaths"`
	HSAccuracy float64 `json:"hsAccuracy"`
	Matches    int     `json:"matches"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	WinPct     float64 `json:"winPct"`
	ADR        float64 `json:"adr"`
}

type partyEntry struct {
	Party *int       `json:"party"`
	Data  *partyData `json:"data"`
}

type partyData struct {
	KD        float64 `json:"kd"`
	Placement float64 `json:"placement"`
	Matches   int     `json:"matches"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	WinPct    float64 `json:"winPct"`
}

type segmentsPayload struct {
	Data []segmentEntry `json:"data"`
}

type segmentEntry struct {
	Attributes struct {
		Key      string `json:"key"`
		SeasonID string `json:"seasonId"`
		Playlist string `json:"playlist"`
	} `json:"attributes"`
	Metadata struct {
		Name   string `json:"name"`
		Schema string `json:"schema"`
	} `json:"metadata"`
	ExpiryDate string               `json:"expiryDate"`
	Stats      map[string]statEntry `json:"stats"`
}

type statEntry struct {
	Value           *float64 `json:"value"`
	DisplayValue    string   `json:"displayValue"`
	DisplayName     string   `json:"displayName"`
	DisplayCategory string   `json:"displayCategory"`
	Category        string   `json:"category"`
	DisplayType     string   `json:"displayType"`
}

func parseSourceTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", value, err)
	}
	return t, nil
}

// heatmapEntryToTimelinePoint validates one heatmap entry into a
// timeline point. Source values are stored as provided, never
// recomputed.
func heatmapEntryToTimelinePoint(riotID, playlist string, entry heatmapEntry, capturedAt time.Time) (domain.TimelinePoint, error) {
	if entry.Date == "" {
		return domain.TimelinePoint{}, fmt.Errorf("heatmap entry is missing date")
	}
	if entry.Values == nil {
		return domain.TimelinePoint{}, fmt.Errorf("heatmap entry is missing values")
	}

	date, err := parseSourceTime(entry.Date)
	if err != nil {
		return domain.TimelinePoint{}, err
	}

	return domain.TimelinePoint{
		RiotID:     riotID,
		Playlist:   playlist,
		Date:       date,
		Playtime:   entry.Values.Playtime,
		KDRatio:    entry.Values.KD,
		Placement:  entry.Values.Placement,
		Score:      entry.Values.Score,
		Kills:      entry.Values.Kills,
		Deaths:     entry.Values.Deaths,
		HSAccuracy: entry.Values.HSAccuracy,
		Matches:    entry.Values.Matches,
		Wins:       entry.Values.Wins,
		Losses:     entry.Values.Losses,
		WinPct:     entry.Values.WinPct,
		ADR:        entry.Values.ADR,
		CapturedAt: capturedAt,
	}, nil
}

func partyEntryToPartyStatistic(riotID, playlist string, entry partyEntry, capturedAt time.Time) (domain.PartyStatistic, error) {
	if entry.Party == nil {
		return domain.PartyStatistic{}, fmt.Errorf("party entry is missing party number")
	}
	if entry.Data == nil {
		return domain.PartyStatistic{}, fmt.Errorf("party entry is missing data")
	}

	return domain.PartyStatistic{
		RiotID:      riotID,
		Playlist:    playlist,
		PartyNumber: *entry.Party,
		KDRatio:     entry.Data.KD,
		Placement:   entry.Data.Placement,
		Matches:     entry.Data.Matches,
		Wins:        entry.Data.Wins,
		Losses:      entry.Data.Losses,
		WinPct:      entry.Data.WinPct,
		CapturedAt:  capturedAt,
	}, nil
}

func segmentEntryToSegment(
	riotID string,
	segmentType domain.SegmentType,
	playlist string,
	source string,
	entry segmentEntry,
	capturedAt time.Time,
) (domain.Segment, error) {
	if entry.Attributes.Key == "" {
		return domain.Segment{}, fmt.Errorf("segment entry is missing attributes.key")
	}

	var expiryDate time.Time
	if entry.ExpiryDate != "" {
		parsed, err := parseSourceTime(entry.ExpiryDate)
		if err != nil {
			return domain.Segment{}, err
		}
		expiryDate = parsed
	}

	if playlist == "" {
		playlist = entry.Attributes.Playlist
	}

	stats := make([]domain.Statistic, 0, len(entry.Stats))
	for name, stat := range entry.Stats {
		if stat.Value == nil {
			// Some stats are purely presentational and carry no value.
			continue
		}

		displayName := stat.DisplayName
		if displayName == "" {
			displayName = name
		}
		displayType := stat.DisplayType
		if displayType == "" {
			displayType = "Number"
		}

		stats = append(stats, domain.Statistic{
			Name:            name,
			DisplayName:     displayName,
			DisplayCategory: stat.DisplayCategory,
			Category:        stat.Category,
			Value:           *stat.Value,
			DisplayValue:    stat.DisplayValue,
			DisplayType:     displayType,
		})
	}

	return domain.Segment{
		RiotID:        riotID,
		Type:          segmentType,
		Key:           entry.Attributes.Key,
		Playlist:      playlist,
		SeasonID:      entry.Attributes.SeasonID,
		SchemaVersion: entry.Metadata.Schema,
		DisplayName:   entry.Metadata.Name,
		ExpiryDate:    expiryDate,
		CapturedAt:    capturedAt,
		Source:        source,
		Stats:         stats,
	}, nil
}

func decodeAggregatedPayload(payload []byte) (aggregatedPayload, error) {
	var decoded aggregatedPayload
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return aggregatedPayload{}, fmt.Errorf("failed to decode aggregated payload: %w", err)
	}
	return decoded, nil
}

func decodeSegmentsPayload(payload []byte) (segmentsPayload, error) {
	var decoded segmentsPayload
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return segmentsPayload{}, fmt.Errorf("failed to decode segments payload: %w", err)
	}
	return decoded, nil
}
