package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type cachedResponse struct {
	data       []byte
	statusCode int
	valid      bool
}

var invalid = cachedResponse{valid: false}

// StatsCache caches rendered stats responses per riot ID. The first
// caller for a key claims it and computes the response; concurrent
// callers for the same key wait instead of recomputing.
type StatsCache interface {
	getOrClaim(riotID string) (cachedResponse, bool)
	set(riotID string, data []byte, statusCode int)
	delete(riotID string)
	wait()
}

type statsCacheImpl struct {
	cache *ttlcache.Cache[string, cachedResponse]
}

func (statsCache *statsCacheImpl) getOrClaim(riotID string) (cachedResponse, bool) {
	item, existed := statsCache.cache.GetOrSet(riotID, invalid)
	return item.Value(), !existed
}

func (statsCache *statsCacheImpl) set(riotID string, data []byte, statusCode int) {
	statsCache.cache.Set(riotID, cachedResponse{data: data, statusCode: statusCode, valid: true}, ttlcache.DefaultTTL)
}

func (statsCache *statsCacheImpl) delete(riotID string) {
	statsCache.cache.Delete(riotID)
}

func (statsCache *statsCacheImpl) wait() {
	time.Sleep(50 * time.Millisecond)
}

func NewStatsCache(ttl time.Duration) StatsCache {
	statsTTLCache := ttlcache.New[string, cachedResponse](
		ttlcache.WithTTL[string, cachedResponse](ttl),
		ttlcache.WithDisableTouchOnHit[string, cachedResponse](),
	)
	go statsTTLCache.Start()
	return &statsCacheImpl{cache: statsTTLCache}
}
