// Package catalog declares the tracker.gg API endpoints an update run
// can fetch, ranked by how valuable their data is.
package catalog

import (
	"fmt"

	"github.com/pedroanisio/tracker-gg-api/internal/strutils"
)

const apiBaseURL = "https://api.tracker.gg"

type Kind string

const (
	KindAggregated Kind = "aggregated"
	KindPlaylist   Kind = "playlist"
	KindLoadout    Kind = "loadout"
)

// Endpoint describes one fetchable tracker.gg API resource.
type Endpoint struct {
	// Name is the stable identifier used in checkpoints and logs.
	Name string
	// Priority ranks endpoints by data value; 1.0 is the most
	// important. Incremental runs only fetch endpoints above 0.6.
	Priority float64
	Kind     Kind
	// Playlist is empty for loadout endpoints.
	Playlist string
	pathTmpl string
}

// CriticalPriority marks the single must-have endpoint of a run.
const CriticalPriority = 1.0

// IncrementalThreshold is the priority floor for incremental runs.
const IncrementalThreshold = 0.6

// URL returns the full request URL for riotID. The riot ID separator
// is percent-encoded since tracker.gg takes the riot ID as a single
// path segment.
func (e Endpoint) URL(riotID string) string {
	return fmt.Sprintf(e.pathTmpl, apiBaseURL, strutils.EncodeRiotID(riotID))
}

// Critical reports whether this endpoint alone satisfies an update run.
func (e Endpoint) Critical() bool {
	return e.Priority == CriticalPriority
}

var endpoints = []Endpoint{
	{
		Name:     "v1_competitive_aggregated",
		Priority: 1.0,
		Kind:     KindAggregated,
		Playlist: "competitive",
		pathTmpl: "%s/api/v1/valorant/standard/profile/riot/%s/aggregated?playlist=competitive&source=web",
	},
	{
		Name:     "v1_premier_aggregated",
		Priority: 0.9,
		Kind:     KindAggregated,
		Playlist: "premier",
		pathTmpl: "%s/api/v1/valorant/standard/profile/riot/%s/aggregated?playlist=premier&source=web",
	},
	{
		Name:     "v2_competitive_playlist",
		Priority: 0.8,
		Kind:     KindPlaylist,
		Playlist: "competitive",
		pathTmpl: "%s/api/v2/valorant/standard/profile/riot/%s/segments/playlist?playlist=competitive&source=web",
	},
	{
		Name:     "v2_premier_playlist",
		Priority: 0.7,
		Kind:     KindPlaylist,
		Playlist: "premier",
		pathTmpl: "%s/api/v2/valorant/standard/profile/riot/%s/segments/playlist?playlist=premier&source=web",
	},
	{
		Name:     "v1_unrated_aggregated",
		Priority: 0.6,
		Kind:     KindAggregated,
		Playlist: "unrated",
		pathTmpl: "%s/api/v1/valorant/standard/profile/riot/%s/aggregated?playlist=unrated&source=web",
	},
	{
		Name:     "v2_unrated_playlist",
		Priority: 0.5,
		Kind:     KindPlaylist,
		Playlist: "unrated",
		pathTmpl: "%s/api/v2/valorant/standard/profile/riot/%s/segments/playlist?playlist=unrated&source=web",
	},
	{
		Name:     "v2_deathmatch_playlist",
		Priority: 0.4,
		Kind:     KindPlaylist,
		Playlist: "deathmatch",
		pathTmpl: "%s/api/v2/valorant/standard/profile/riot/%s/segments/playlist?playlist=deathmatch&source=web",
	},
	{
		Name:     "v2_loadout_segments",
		Priority: 0.3,
		Kind:     KindLoadout,
		pathTmpl: "%s/api/v2/valorant/standard/profile/riot/%s/segments/loadout?source=web",
	},
}

// All returns every known endpoint. The returned slice is a copy.
func All() []Endpoint {
	out := make([]Endpoint, len(endpoints))
	copy(out, endpoints)
	return out
}

// ByName looks up an endpoint by its stable name.
func ByName(name string) (Endpoint, bool) {
	for _, e := range endpoints {
		if e.Name == name {
			return e, true
		}
	}
	return Endpoint{}, false
}
