package assistant

import "errors"

// Sentinel errors for dispatcher and chat construction.
var (
	ErrNoCalendar = errors.New("assistant: calendar is required")
	ErrNoEngine   = errors.New("assistant: engine is required")
	ErrNoRunner   = errors.New("assistant: tool runner is required")
)
