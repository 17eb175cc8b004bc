package cache

import (
	"context"

	"github.com/pedroanisio/tracker-gg-api/internal/logging"
)

// GetOrCreateCachedResponse returns the cached response for riotID, or
// claims the key and calls create to produce it. Callers that lose the
// claim race wait for the winner instead of recomputing.
func GetOrCreateCachedResponse(ctx context.Context, statsCache StatsCache, riotID string, create func() ([]byte, int, error)) ([]byte, int, error) {
	logger := logging.FromContext(ctx)

	// Clean up the cache if we store an invalid entry
	// This allows other requests to try again
	var storedInvalidCacheEntry = false
	defer func() {
		if storedInvalidCacheEntry {
			statsCache.delete(riotID)
		}
	}()

	for {
		value, claimed := statsCache.getOrClaim(riotID)

		if claimed {
			logger.Debug("Got cache miss")
			storedInvalidCacheEntry = true

			data, statusCode, err := create()
			if err != nil {
				return []byte{}, -1, err
			}

			statsCache.set(riotID, data, statusCode)
			storedInvalidCacheEntry = false

			return data, statusCode, nil
		}

		if value.valid {
			logger.Debug("Got cache hit")
			return value.data, value.statusCode, nil
		}

		statsCache.wait()
	}
}
