package assistant

import (
	"time"

	"github.com/okian/calmate/internal/domain/scoring"
	"github.com/okian/calmate/internal/domain/window"
	"github.com/okian/calmate/pkg/logger"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLocation sets the zone calendar days are computed in.
func WithLocation(loc *time.Location) Option {
	return func(d *Dispatcher) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithWorkingHours sets the default working hours for free-time queries.
func WithWorkingHours(h window.Hours) Option {
	return func(d *Dispatcher) {
		if h != (window.Hours{}) {
			d.hours = h
		}
	}
}

// WithScorer sets the meeting slot scorer.
func WithScorer(s scoring.Scorer) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.scorer = s
		}
	}
}

// WithSignature sets the line appended to the descriptions of created blocks.
func WithSignature(sig string) Option {
	return func(d *Dispatcher) {
		d.signature = sig
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// ChatOption configures a Chat.
type ChatOption func(*Chat)

// WithMaxToolRounds bounds how many rounds of tool calls one turn may run.
func WithMaxToolRounds(n int) ChatOption {
	return func(c *Chat) {
		if n > 0 {
			c.maxRounds = n
		}
	}
}

// WithAssistantName sets the name the assistant introduces itself with.
func WithAssistantName(name string) ChatOption {
	return func(c *Chat) {
		if name != "" {
			c.name = name
		}
	}
}

// WithChatClock sets the time source used for the prompt's current date.
func WithChatClock(now func() time.Time) ChatOption {
	return func(c *Chat) {
		if now != nil {
			c.now = now
		}
	}
}

// WithChatLocation sets the zone reported in the prompt.
func WithChatLocation(loc *time.Location) ChatOption {
	return func(c *Chat) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithChatLogger sets the chat logger.
func WithChatLogger(l logger.Logger) ChatOption {
	return func(c *Chat) {
		if l != nil {
			c.log = l
		}
	}
}
