// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/pkg/logger"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionResolver
	EventDependencies
	ChatDependencies
	TokenStatusDependencies
}

// SessionResolver maps a session token to its user.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (model.Session, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps           Dependencies
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	eventsHandler  *EventsHandler
	authHandler    *AuthHandler
	chatHandler    *ChatHandler
	requestTimeout time.Duration
	log            logger.Logger
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	loc            *time.Location
	now            func() time.Time
	requestTimeout time.Duration
	log            logger.Logger
	ready          ReadinessChecker
}

// WithLocation sets the zone date-only query parameters are read in.
func WithLocation(loc *time.Location) Option {
	return func(c *serverConfig) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithClock sets the time source for default event windows.
func WithClock(now func() time.Time) Option {
	return func(c *serverConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRequestTimeout bounds the handling time of authenticated requests.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *serverConfig) {
		c.requestTimeout = d
	}
}

// WithLogger sets the logger for request failures.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// WithReadiness gates /healthz on the credential store.
func WithReadiness(rc ReadinessChecker) Option {
	return func(c *serverConfig) {
		c.ready = rc
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{loc: time.UTC, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = logger.Get().Named("api")
	}
	return &Server{
		deps:           deps,
		healthHandler:  NewHealthHandler(cfg.ready, cfg.log),
		statsHandler:   NewStatsHandler(statsProvider, cfg.now),
		eventsHandler:  NewEventsHandler(deps, cfg.loc, cfg.now, cfg.log),
		authHandler:    NewAuthHandler(deps, cfg.log),
		chatHandler:    NewChatHandler(deps, cfg.log),
		requestTimeout: cfg.requestTimeout,
		log:            cfg.log,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events.ics", MetricsMiddleware(s.private(s.eventsHandler.HandleExport), "events_ics"))
	mux.HandleFunc("/events", MetricsMiddleware(s.private(s.eventsHandler.HandleEvents), "events"))
	mux.HandleFunc("/auth/token-status", MetricsMiddleware(s.private(s.authHandler.HandleTokenStatus), "token_status"))
	mux.HandleFunc("/chat", MetricsMiddleware(s.private(s.chatHandler.HandleChat), "chat"))
}

// private applies request ids, the request timeout and session
// authentication, in that order.
func (s *Server) private(next http.HandlerFunc) http.HandlerFunc {
	return RequestIDMiddleware(TimeoutMiddleware(SessionMiddleware(next, s.deps, s.log), s.requestTimeout))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as {error, code} with the status of its kind.
// Server-side failures are logged and their details withheld.
func writeError(ctx context.Context, log logger.Logger, w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed",
			logger.String("request_id", RequestID(ctx)),
			logger.String("kind", apperr.Code(err)),
			logger.Error(err),
		)
		msg = publicMessage(err)
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: apperr.Code(err)})
}

func publicMessage(err error) string {
	switch apperr.KindOf(err) {
	case apperr.ErrUpstreamUnavailable:
		return "calendar provider unavailable"
	default:
		return "internal server error"
	}
}
