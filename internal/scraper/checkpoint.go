package scraper

import (
	"maps"
	"sync"
	"time"
)

// Checkpoint tracks what one player's update cycle has already fetched.
// Checkpoints live for the lifetime of the process only; losing them on
// restart just means the next run fetches everything again.
type Checkpoint struct {
	LastUpdate time.Time
	Fetched    map[string]bool
	RetryCount int
}

func (c Checkpoint) HasFetched(endpointName string) bool {
	return c.Fetched[endpointName]
}

// CheckpointStore maps riot IDs to checkpoints. The map tolerates
// concurrent access for different keys; a single player's checkpoint is
// only ever driven by one scheduling run at a time.
type CheckpointStore struct {
	mutex       sync.Mutex
	checkpoints map[string]*Checkpoint
}

func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		checkpoints: make(map[string]*Checkpoint),
	}
}

func (s *CheckpointStore) getOrCreateLocked(riotID string) *Checkpoint {
	checkpoint, ok := s.checkpoints[riotID]
	if !ok {
		checkpoint = &Checkpoint{
			Fetched: make(map[string]bool),
		}
		s.checkpoints[riotID] = checkpoint
	}
	return checkpoint
}

// GetOrCreate returns a copy of the player's checkpoint, creating an
// empty one if the player has never been scheduled.
func (s *CheckpointStore) GetOrCreate(riotID string) Checkpoint {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	checkpoint := s.getOrCreateLocked(riotID)
	return Checkpoint{
		LastUpdate: checkpoint.LastUpdate,
		Fetched:    maps.Clone(checkpoint.Fetched),
		RetryCount: checkpoint.RetryCount,
	}
}

// Lookup returns a copy of the player's checkpoint without creating one.
func (s *CheckpointStore) Lookup(riotID string) (Checkpoint, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	checkpoint, ok := s.checkpoints[riotID]
	if !ok {
		return Checkpoint{}, false
	}
	return Checkpoint{
		LastUpdate: checkpoint.LastUpdate,
		Fetched:    maps.Clone(checkpoint.Fetched),
		RetryCount: checkpoint.RetryCount,
	}, true
}

func (s *CheckpointStore) MarkFetched(riotID string, endpointName string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.getOrCreateLocked(riotID).Fetched[endpointName] = true
}

// RecordAttempt closes out a scheduling run: the last-update time is
// bumped, and the retry counter resets on any success or grows on a
// fully failed run.
func (s *CheckpointStore) RecordAttempt(riotID string, success bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	checkpoint := s.getOrCreateLocked(riotID)
	checkpoint.LastUpdate = time.Now()
	if success {
		checkpoint.RetryCount = 0
	} else {
		checkpoint.RetryCount++
	}
}

// ResetEndpoints clears the fetched-set ahead of a full update so every
// endpoint becomes a candidate again.
func (s *CheckpointStore) ResetEndpoints(riotID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.getOrCreateLocked(riotID).Fetched = make(map[string]bool)
}
