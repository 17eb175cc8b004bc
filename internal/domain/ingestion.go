package domain

import (
	"time"
)

// IngestionLogEntry records one fetch-and-reconcile operation.
// Entries are append-only and never updated after creation.
type IngestionLogEntry struct {
	Operation string
	Source    string
	RiotID    string
	Status    string

	RecordsProcessed int
	RecordsInserted  int
	RecordsUpdated   int

	Details string

	StartedAt   time.Time
	CompletedAt time.Time
}

func (e *IngestionLogEntry) Duration() time.Duration {
	return e.CompletedAt.Sub(e.StartedAt)
}
