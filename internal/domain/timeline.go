package domain

import (
	"time"
)

// TimelinePoint is one day's aggregate performance snapshot for a player in a
// given playlist. Identity is the (RiotID, Playlist, Date) tuple.
type TimelinePoint struct {
	RiotID   string
	Playlist string
	Date     time.Time

	Playtime   int
	KDRatio    float64
	Placement  float64
	Score      float64
	Kills      int
	Deaths     int
	HSAccuracy float64
	Matches    int
	Wins       int
	Losses     int
	WinPct     float64
	ADR        float64

	CapturedAt time.Time
}

// PartyStatistic holds aggregate results by party size.
// Identity is the (RiotID, Playlist, PartyNumber) tuple.
type PartyStatistic struct {
	RiotID      string
	Playlist    string
	PartyNumber int

	KDRatio   float64
	Placement float64
	Matches   int
	Wins      int
	Losses    int
	WinPct    float64

	CapturedAt time.Time
}
