package cache

import (
	"runtime"
	"sync"
)

type mockCacheValue struct {
	cachedResponse cachedResponse
	insertedAt     int
}

type mockStatsCacheServer struct {
	cache             map[string]mockCacheValue
	lock              sync.Mutex
	currentTick       int
	maxTicks          int
	numGoroutines     int
	completedThisTick int
}

type mockStatsCacheClient struct {
	server      *mockStatsCacheServer
	desiredTick int
}

func (cacheClient *mockStatsCacheClient) getOrClaim(riotID string) (cachedResponse, bool) {
	oldValue, ok := cacheClient.server.cache[riotID]
	if ok {
		return oldValue.cachedResponse, false
	}
	cacheClient.server.cache[riotID] = mockCacheValue{cachedResponse: invalid, insertedAt: cacheClient.server.currentTick}
	return invalid, true
}

func (cacheClient *mockStatsCacheClient) set(riotID string, data []byte, statusCode int) {
	cacheClient.server.cache[riotID] = mockCacheValue{cachedResponse: cachedResponse{data: data, statusCode: statusCode, valid: true}, insertedAt: cacheClient.server.currentTick}
}

func (cacheClient *mockStatsCacheClient) delete(riotID string) {
	delete(cacheClient.server.cache, riotID)
}

func (cacheClient *mockStatsCacheClient) wait() {
	if cacheClient.server.isDone() {
		panic("wait() called on a client that is already done")
	}

	cacheClient.server.lock.Lock()
	cacheClient.server.completedThisTick++
	cacheClient.server.lock.Unlock()

	cacheClient.desiredTick++

	for cacheClient.server.currentTick < cacheClient.desiredTick {
		runtime.Gosched()
	}
}

func (cacheClient *mockStatsCacheClient) waitUntilDone() {
	for !cacheClient.server.isDone() {
		cacheClient.wait()
	}
}

func (cacheServer *mockStatsCacheServer) isDone() bool {
	return cacheServer.currentTick >= cacheServer.maxTicks
}

func (cacheServer *mockStatsCacheServer) processTicks() {
	for !cacheServer.isDone() {
		if cacheServer.completedThisTick != cacheServer.numGoroutines {
			runtime.Gosched()
			continue
		}

		cacheServer.lock.Lock()
		cacheServer.completedThisTick = 0
		cacheServer.currentTick++
		cacheServer.lock.Unlock()
	}
}

func NewMockStatsCacheServer(numGoroutines int, maxTicks int) (*mockStatsCacheServer, []*mockStatsCacheClient) {
	server := &mockStatsCacheServer{
		cache:             make(map[string]mockCacheValue),
		lock:              sync.Mutex{},
		currentTick:       0,
		maxTicks:          maxTicks,
		numGoroutines:     numGoroutines,
		completedThisTick: 0,
	}

	clients := make([]*mockStatsCacheClient, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		clients[i] = &mockStatsCacheClient{
			server:      server,
			desiredTick: 0,
		}
	}

	return server, clients
}
