package gcal

import (
	"net/http"
	"time"

	"github.com/okian/calmate/pkg/logger"
)

// Option applies a configuration option to the Gateway.
type Option func(*Gateway)

// WithHTTPClient sets the base client whose transport carries upstream calls.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		if c != nil {
			g.base = c
		}
	}
}

// WithEndpoint overrides the Calendar API base URL.
func WithEndpoint(endpoint string) Option {
	return func(g *Gateway) {
		g.endpoint = endpoint
	}
}

// WithCalendarID selects the calendar. Defaults to "primary".
func WithCalendarID(id string) Option {
	return func(g *Gateway) {
		if id != "" {
			g.calendarID = id
		}
	}
}

// WithLocation sets the zone used for all-day dates.
func WithLocation(loc *time.Location) Option {
	return func(g *Gateway) {
		if loc != nil {
			g.loc = loc
		}
	}
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLogger sets the gateway logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.log = l
		}
	}
}

// WithScopeChecker enables the provider scope check in TokenStatus.
func WithScopeChecker(sc ScopeChecker) Option {
	return func(g *Gateway) {
		g.scopes = sc
	}
}
