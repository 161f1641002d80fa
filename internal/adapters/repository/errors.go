package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrNoAccount       = errors.New("no linked calendar account")
	ErrClosed          = errors.New("store closed")
)
