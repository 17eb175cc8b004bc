package domain

import (
	"time"
)

type SegmentType string

const (
	SegmentTypePlaylist SegmentType = "playlist"
	SegmentTypeLoadout  SegmentType = "loadout"
)

// Segment is a persisted bundle of statistics for one
// (player, segment type, segment key, playlist) combination.
//
// Identity is the (RiotID, Type, Key, Playlist) tuple: at most one segment row
// exists per tuple, and repeated ingestion updates the existing row in place.
type Segment struct {
	RiotID   string
	Type     SegmentType
	Key      string
	Playlist string

	SeasonID      string
	SchemaVersion string
	DisplayName   string

	ExpiryDate time.Time
	CapturedAt time.Time

	// Source is the endpoint name the segment was ingested from
	Source string

	Stats []Statistic
}

// Statistic is one named value inside a segment, keyed by (segment, Name).
// Values are stored exactly as the source provided them.
type Statistic struct {
	Name            string
	DisplayName     string
	DisplayCategory string
	Category        string

	Value        float64
	DisplayValue string
	DisplayType  string
}
