package ports

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pedroanisio/tracker-gg-api/internal/domain"
	e "github.com/pedroanisio/tracker-gg-api/internal/errors"
	"github.com/pedroanisio/tracker-gg-api/internal/logging"
	"github.com/pedroanisio/tracker-gg-api/internal/reporting"
)

// writeErrorResponse maps an application error onto a status code and
// a JSON error body, and returns the status code for logging.
func writeErrorResponse(ctx context.Context, w http.ResponseWriter, responseError error) int {
	w.Header().Set("Content-Type", "application/json")

	// Unknown error: default to 500
	statusCode := http.StatusInternalServerError
	cause := "Internal server error"

	if errors.Is(responseError, domain.ErrPlayerNotFound) {
		statusCode = http.StatusNotFound
		cause = "Player not found"
	} else if errors.Is(responseError, domain.ErrInvalidRiotID) {
		statusCode = http.StatusBadRequest
		cause = "Invalid riot id"
	} else if errors.Is(responseError, e.APIClientError) {
		statusCode = http.StatusBadRequest
		cause = "Client error"
	} else if errors.Is(responseError, e.RatelimitExceededError) {
		statusCode = http.StatusTooManyRequests
		cause = "Rate limit exceeded by upstream source"
	} else if errors.Is(responseError, domain.ErrTemporarilyUnavailable) {
		statusCode = http.StatusServiceUnavailable
		cause = "Service temporarily unavailable"
	}

	errorData, err := StatsErrorResponseData(cause)
	if err != nil {
		logging.FromContext(ctx).Error("Failed to marshal error response", "error", err)
		reporting.Report(ctx, fmt.Errorf("failed to marshal error response: %w", err), map[string]string{
			"responseError": responseError.Error(),
		})
		w.WriteHeader(statusCode)
		w.Write([]byte(`{"success":false,"cause":"Internal server error"}`))
		return statusCode
	}

	w.WriteHeader(statusCode)
	w.Write(errorData)

	return statusCode
}
