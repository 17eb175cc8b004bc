package domain

import "errors"

var (
	ErrPlayerNotFound         = errors.New("player not found")
	ErrInvalidRiotID          = errors.New("invalid riot id")
	ErrTemporarilyUnavailable = errors.New("temporarily unavailable")
)
