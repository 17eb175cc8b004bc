package ports

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pedroanisio/tracker-gg-api/internal/app"
	"github.com/pedroanisio/tracker-gg-api/internal/domain"
	"github.com/pedroanisio/tracker-gg-api/internal/scraper"
)

type statsResponsePlayer struct {
	RiotID      string    `json:"riotId"`
	Username    string    `json:"username"`
	Tag         string    `json:"tag"`
	FirstSeen   time.Time `json:"firstSeen"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type statsResponseStatistic struct {
	DisplayName     string  `json:"displayName"`
	DisplayCategory string  `json:"displayCategory,omitempty"`
	Category        string  `json:"category,omitempty"`
	Value           float64 `json:"value"`
	DisplayValue    string  `json:"displayValue"`
	DisplayType     string  `json:"displayType"`
}

type statsResponseSegment struct {
	Type        string                            `json:"type"`
	Key         string                            `json:"key"`
	Playlist    string                            `json:"playlist"`
	SeasonID    string                            `json:"seasonId,omitempty"`
	DisplayName string                            `json:"displayName,omitempty"`
	ExpiryDate  *time.Time                        `json:"expiryDate,omitempty"`
	CapturedAt  time.Time                         `json:"capturedAt"`
	Stats       map[string]statsResponseStatistic `json:"stats"`
}

type statsResponseTimelinePoint struct {
	Date       string  `json:"date"`
	Playtime   int     `json:"playtime"`
	KDRatio    float64 `json:"kd"`
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

type statsResponseParty struct {
	Party     int     `json:"party"`
	KDRatio   float64 `json:"kd"`
	Placement float64 `json:"placement"`
	Matches   int     `json:"matches"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	WinPct    float64 `json:"winPct"`
}

type statsResponseData struct {
	Player   statsResponsePlayer          `json:"player"`
	Segments []statsResponseSegment       `json:"segments"`
	Timeline []statsResponseTimelinePoint `json:"timeline"`
	Parties  []statsResponseParty         `json:"parties"`
}

type statsResponse struct {
	Success bool               `json:"success"`
	Cause   string             `json:"cause,omitempty"`
	Data    *statsResponseData `json:"data,omitempty"`
}

func segmentToResponseSegment(segment domain.Segment) statsResponseSegment {
	stats := make(map[string]statsResponseStatistic, len(segment.Stats))
	for _, statistic := range segment.Stats {
		stats[statistic.Name] = statsResponseStatistic{
			DisplayName:     statistic.DisplayName,
			DisplayCategory: statistic.DisplayCategory,
			Category:        statistic.Category,
			Value:           statistic.Value,
			DisplayValue:    statistic.DisplayValue,
			DisplayType:     statistic.DisplayType,
		}
	}

	var expiryDate *time.Time
	if !segment.ExpiryDate.IsZero() {
		expiryDate = &segment.ExpiryDate
	}

	return statsResponseSegment{
		Type:        string(segment.Type),
		Key:         segment.Key,
		Playlist:    segment.Playlist,
		SeasonID:    segment.SeasonID,
		DisplayName: segment.DisplayName,
		ExpiryDate:  expiryDate,
		CapturedAt:  segment.CapturedAt,
		Stats:       stats,
	}
}

// PlayerStatsToResponseData renders the read-path response. Slices are
// always present in the output, even when empty.
func PlayerStatsToResponseData(playerStats *app.PlayerStats) ([]byte, error) {
	segments := make([]statsResponseSegment, 0, len(playerStats.Segments))
	for _, segment := range playerStats.Segments {
		segments = append(segments, segmentToResponseSegment(segment))
	}

	timeline := make([]statsResponseTimelinePoint, 0, len(playerStats.Timeline))
	for _, point := range playerStats.Timeline {
		timeline = append(timeline, statsResponseTimelinePoint{
			Date:       point.Date.Format(time.RFC3339),
			Playtime:   point.Playtime,
			KDRatio:    point.KDRatio,
			Placement:  point.Placement,
			Score:      point.Score,
			Kills:      point.Kills,
			Deaths:     point.Deaths,
			HSAccuracy: point.HSAccuracy,
			Matches:    point.Matches,
			Wins:       point.Wins,
			Losses:     point.Losses,
			WinPct:     point.WinPct,
			ADR:        point.ADR,
		})
	}

	parties := make([]statsResponseParty, 0, len(playerStats.Parties))
	for _, party := range playerStats.Parties {
		parties = append(parties, statsResponseParty{
			Party:     party.PartyNumber,
			KDRatio:   party.KDRatio,
			Placement: party.Placement,
			Matches:   party.Matches,
			Wins:      party.Wins,
			Losses:    party.Losses,
			WinPct:    party.WinPct,
		})
	}

	data, err := json.Marshal(statsResponse{
		Success: true,
		Data: &statsResponseData{
			Player: statsResponsePlayer{
				RiotID:      playerStats.Player.RiotID,
				Username:    playerStats.Player.Username,
				Tag:         playerStats.Player.Tag,
				FirstSeen:   playerStats.Player.FirstSeen,
				LastUpdated: playerStats.Player.LastUpdated,
			},
			Segments: segments,
			Timeline: timeline,
			Parties:  parties,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats response: %w", err)
	}
	return data, nil
}

func StatsErrorResponseData(cause string) ([]byte, error) {
	data, err := json.Marshal(statsResponse{
		Success: false,
		Cause:   cause,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal error response: %w", err)
	}
	return data, nil
}

type updateResponseResult struct {
	Endpoint   string `json:"endpoint"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode,omitempty"`
	Attempts   int    `json:"attempts"`
}

type updateResponseData struct {
	RiotID           string                 `json:"riotId"`
	Incremental      bool                   `json:"incremental"`
	Successful       int                    `json:"successful"`
	Failed           int                    `json:"failed"`
	PriorityAchieved bool                   `json:"priorityAchieved"`
	Results          []updateResponseResult `json:"results"`
	RecordsProcessed int                    `json:"recordsProcessed"`
	RecordsInserted  int                    `json:"recordsInserted"`
	RecordsUpdated   int                    `json:"recordsUpdated"`
}

type updateResponse struct {
	Success bool                `json:"success"`
	Cause   string              `json:"cause,omitempty"`
	Data    *updateResponseData `json:"data,omitempty"`
}

func outcomeToResponseData(outcome scraper.UpdateOutcome, processed, inserted, updated int) *updateResponseData {
	results := make([]updateResponseResult, 0, len(outcome.Results))
	for _, result := range outcome.Results {
		results = append(results, updateResponseResult{
			Endpoint:   result.Endpoint.Name,
			Status:     string(result.Status),
			StatusCode: result.StatusCode,
			Attempts:   result.Attempts,
		})
	}

	return &updateResponseData{
		RiotID:           outcome.RiotID,
		Incremental:      outcome.Incremental,
		Successful:       outcome.Successful,
		Failed:           outcome.Failed,
		PriorityAchieved: outcome.PriorityAchieved,
		Results:          results,
		RecordsProcessed: processed,
		RecordsInserted:  inserted,
		RecordsUpdated:   updated,
	}
}

func UpdateOutcomeToResponseData(outcome scraper.UpdateOutcome, processed, inserted, updated int) ([]byte, error) {
	data, err := json.Marshal(updateResponse{
		Success: true,
		Data:    outcomeToResponseData(outcome, processed, inserted, updated),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal update response: %w", err)
	}
	return data, nil
}

type bulkUpdateResponse struct {
	Success  bool                  `json:"success"`
	Cause    string                `json:"cause,omitempty"`
	Outcomes []*updateResponseData `json:"outcomes,omitempty"`
}

func BulkOutcomesToResponseData(outcomes []scraper.UpdateOutcome) ([]byte, error) {
	converted := make([]*updateResponseData, 0, len(outcomes))
	for _, outcome := range outcomes {
		converted = append(converted, outcomeToResponseData(outcome, 0, 0, 0))
	}

	data, err := json.Marshal(bulkUpdateResponse{
		Success:  true,
		Outcomes: converted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bulk update response: %w", err)
	}
	return data, nil
}
