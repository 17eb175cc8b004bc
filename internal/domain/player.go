package domain

import (
	"time"
)

// Player is the stored identity for one tracked account.
// Created on first successful fetch or lookup; never deleted by the updater.
type Player struct {
	ID string

	RiotID   string
	Username string
	Tag      string

	FirstSeen   time.Time
	LastUpdated time.Time
}
