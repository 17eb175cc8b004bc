package scraper

import (
	"time"

	"github.com/pedroanisio/tracker-gg-api/internal/catalog"
)

// FetchStatus classifies the terminal state of one endpoint fetch.
type FetchStatus string

const (
	FetchStatusSuccess     FetchStatus = "success"
	FetchStatusJSONError   FetchStatus = "json-error"
	FetchStatusHTTPError   FetchStatus = "http-error"
	FetchStatusRateLimited FetchStatus = "rate-limited"
	FetchStatusException   FetchStatus = "exception"
)

// FetchResult is the terminal outcome of fetching one endpoint,
// including the payload on success. Consumed by the reconciler and not
// retained afterwards.
type FetchResult struct {
	Endpoint   catalog.Endpoint
	Status     FetchStatus
	StatusCode int
	Payload    []byte
	Attempts   int
	FetchedAt  time.Time
	Err        error
}

// UpdateOutcome summarizes one scheduling run for one player.
type UpdateOutcome struct {
	RiotID      string
	Incremental bool
	Results     []FetchResult
	Successful  int
	Failed      int

	// PriorityAchieved means enough endpoints succeeded that the run
	// is worth reconciling into the store.
	PriorityAchieved bool

	// Err is set when the whole run failed before any endpoint could
	// be attempted, e.g. the gateway refused to create a session.
	Err error

	StartedAt   time.Time
	CompletedAt time.Time
}

// SuccessfulResults returns the results that carry a payload.
func (o UpdateOutcome) SuccessfulResults() []FetchResult {
	var out []FetchResult
	for _, result := range o.Results {
		if result.Status == FetchStatusSuccess {
			out = append(out, result)
		}
	}
	return out
}
