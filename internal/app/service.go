// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/calmate/internal/adapters/gcal"
	repository "github.com/okian/calmate/internal/adapters/repository"
	"github.com/okian/calmate/internal/assistant"
	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/internal/domain/scoring"
	"github.com/okian/calmate/internal/domain/window"
	"github.com/okian/calmate/pkg/logger"
	"github.com/okian/calmate/pkg/metrics"
)

// Sentinel errors for service lifecycle.
var (
	ErrNotStarted  = errors.New("service not started")
	ErrNoRefresher = errors.New("token refresher is required")
)

// Store is what the service needs from persistence.
type Store interface {
	repository.Store
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// Service implements the API dependencies for the calendar assistant.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     Store
	refresher gcal.Refresher
	scopes    gcal.ScopeChecker
	engine    assistant.Engine

	// Configuration
	dbPath           string
	loc              *time.Location
	hours            window.Hours
	scorer           scoring.Scorer
	maxToolRounds    int
	assistantName    string
	signature        string
	calendarEndpoint string
	httpClient       *http.Client
	purgeInterval    time.Duration
	sessionTTL       time.Duration
	now              func() time.Time

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDBPath sets the sqlite file opened on Start when no store is given.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithStore sets the session and credential store.
func WithStore(st Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithRefresher sets the OAuth token refresher.
func WithRefresher(r gcal.Refresher) Option {
	return func(s *Service) {
		if r != nil {
			s.refresher = r
		}
	}
}

// WithScopeChecker enables the token-info scope check in TokenStatus.
func WithScopeChecker(sc gcal.ScopeChecker) Option {
	return func(s *Service) {
		if sc != nil {
			s.scopes = sc
		}
	}
}

// WithEngine sets the language model used by Chat.
func WithEngine(e assistant.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithLocation sets the zone calendar days are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithWorkingHours sets the default working hours.
func WithWorkingHours(h window.Hours) Option {
	return func(s *Service) {
		s.hours = h
	}
}

// WithScorer sets the meeting slot scorer.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithMaxToolRounds bounds the tool rounds of a chat turn.
func WithMaxToolRounds(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxToolRounds = n
		}
	}
}

// WithAssistantName sets the assistant's name.
func WithAssistantName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.assistantName = name
		}
	}
}

// WithSignature sets the line appended to descriptions of created events.
func WithSignature(sig string) Option {
	return func(s *Service) {
		s.signature = sig
	}
}

// WithCalendarEndpoint overrides the Calendar API base URL.
func WithCalendarEndpoint(endpoint string) Option {
	return func(s *Service) {
		s.calendarEndpoint = endpoint
	}
}

// WithHTTPClient sets the client used for calendar calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithSessionPurgeInterval sets how often expired sessions are deleted.
// Zero disables the purge loop.
func WithSessionPurgeInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.purgeInterval = d
		}
	}
}

// WithSessionTTL sets the lifetime of sessions created by Link.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:        "calmate.db",
		loc:           time.UTC,
		hours:         window.DefaultHours,
		maxToolRounds: assistant.DefaultMaxToolRounds,
		assistantName: assistant.DefaultAssistantName,
		httpClient:    http.DefaultClient,
		purgeInterval: 10 * time.Minute,
		sessionTTL:    30 * 24 * time.Hour,
		now:           time.Now,
		stopCh:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.scorer == nil {
		s.scorer = scoring.NewRuleScorer()
	}
	if s.signature == "" {
		s.signature = "Created by " + s.assistantName
	}
	return s
}

// Start opens the store and starts the session purge loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.refresher == nil {
		return ErrNoRefresher
	}

	s.logger.Info(ctx, "starting calendar assistant service...")

	if s.store == nil {
		st, err := repository.Open(ctx, s.dbPath)
		if err != nil {
			return err
		}
		s.store = st
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
	}
	if n, err := s.store.PurgeExpiredSessions(ctx); err != nil {
		s.logger.Warn(ctx, "purge expired sessions", logger.Error(err))
	} else if n > 0 {
		s.logger.Info(ctx, "purged expired sessions", logger.Int("count", int(n)))
	}

	s.stopCh = make(chan struct{})
	if s.purgeInterval > 0 {
		s.wg.Add(1)
		go s.purgeLoop(s.stopCh)
	}

	s.started = true
	s.logger.Info(ctx, "calendar assistant service started",
		logger.String("timeZone", s.loc.String()),
		logger.Int("maxToolRounds", s.maxToolRounds),
		logger.Bool("chat", s.engine != nil),
	)
	return nil
}

func (s *Service) purgeLoop(stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx := context.Background()
			if _, err := s.store.PurgeExpiredSessions(ctx); err != nil {
				s.logger.Warn(ctx, "purge expired sessions", logger.Error(err))
				metrics.RecordErrorByComponent("service", "session_purge")
			}
		}
	}
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping calendar assistant service...")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.wg.Wait()

	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "calendar assistant service stopped")
}

func (s *Service) running() (Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// Ready reports whether the service is started and its store answers.
func (s *Service) Ready(ctx context.Context) error {
	st, err := s.running()
	if err != nil {
		return err
	}
	if v, ok := st.(interface {
		Version(ctx context.Context) (int, error)
	}); ok {
		if _, err := v.Version(ctx); err != nil {
			return fmt.Errorf("credential store: %w", err)
		}
	}
	return nil
}

// gateway builds a calendar gateway acting for userID.
func (s *Service) gateway(userID string) (*gcal.Gateway, error) {
	const op = "service.gateway"
	st, err := s.running()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.ErrInternal, err)
	}
	if userID == "" {
		return nil, apperr.New(op, apperr.ErrUnauthorized, "no user")
	}
	opts := []gcal.Option{
		gcal.WithHTTPClient(s.httpClient),
		gcal.WithLocation(s.loc),
		gcal.WithClock(s.now),
		gcal.WithLogger(s.logger.Named("gcal")),
	}
	if s.calendarEndpoint != "" {
		opts = append(opts, gcal.WithEndpoint(s.calendarEndpoint))
	}
	if s.scopes != nil {
		opts = append(opts, gcal.WithScopeChecker(s.scopes))
	}
	g, err := gcal.New(userID, st, s.refresher, opts...)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.ErrInternal, err)
	}
	return g, nil
}

// ResolveSession maps a session token to its user.
func (s *Service) ResolveSession(ctx context.Context, token string) (model.Session, error) {
	const op = "service.resolve_session"
	st, err := s.running()
	if err != nil {
		return model.Session{}, apperr.Wrap(op, apperr.ErrInternal, err)
	}
	if token == "" {
		return model.Session{}, apperr.New(op, apperr.ErrUnauthorized, "missing session token")
	}
	return st.ResolveSession(ctx, token)
}

// Link stores a user's calendar credential and opens a session for them.
func (s *Service) Link(ctx context.Context, cred model.Credential) (model.Session, error) {
	const op = "service.link"
	st, err := s.running()
	if err != nil {
		return model.Session{}, apperr.Wrap(op, apperr.ErrInternal, err)
	}
	if cred.UserID == "" {
		return model.Session{}, apperr.Invalid(op, "user id is required")
	}
	if err := st.SaveCredential(ctx, cred); err != nil {
		return model.Session{}, err
	}
	sess := model.Session{
		Token:     uuid.NewString(),
		UserID:    cred.UserID,
		ExpiresAt: s.now().Add(s.sessionTTL),
	}
	if err := st.PutSession(ctx, sess); err != nil {
		return model.Session{}, err
	}
	s.logger.Info(ctx, "linked calendar account", logger.String("user", cred.UserID))
	return sess, nil
}

// ListEvents returns the user's events overlapping [from, to).
func (s *Service) ListEvents(ctx context.Context, userID string, from, to time.Time) ([]model.Event, error) {
	g, err := s.gateway(userID)
	if err != nil {
		return nil, err
	}
	return g.ListEvents(ctx, from, to)
}

// CreateEvent creates an event on the user's calendar.
func (s *Service) CreateEvent(ctx context.Context, userID string, in model.EventInput) (model.Event, error) {
	g, err := s.gateway(userID)
	if err != nil {
		return model.Event{}, err
	}
	return g.CreateEvent(ctx, in)
}

// DeleteEvent removes an event from the user's calendar.
func (s *Service) DeleteEvent(ctx context.Context, userID, id string) (model.DeleteOutcome, error) {
	g, err := s.gateway(userID)
	if err != nil {
		return "", err
	}
	return g.DeleteEvent(ctx, id)
}

// TokenStatus reports whether the user's calendar token is usable.
func (s *Service) TokenStatus(ctx context.Context, userID string) (model.TokenStatus, error) {
	g, err := s.gateway(userID)
	if err != nil {
		return model.TokenStatus{}, err
	}
	return g.TokenStatus(ctx)
}

// Chat runs one assistant turn for the user.
func (s *Service) Chat(ctx context.Context, userID, message string, history []assistant.Message) (assistant.Reply, error) {
	const op = "service.chat"
	if s.engine == nil {
		return assistant.Reply{}, apperr.New(op, apperr.ErrUpstreamUnavailable, "chat is not configured")
	}
	g, err := s.gateway(userID)
	if err != nil {
		return assistant.Reply{}, err
	}
	d, err := assistant.New(g,
		assistant.WithLocation(s.loc),
		assistant.WithClock(s.now),
		assistant.WithWorkingHours(s.hours),
		assistant.WithScorer(s.scorer),
		assistant.WithSignature(s.signature),
		assistant.WithLogger(s.logger.Named("assistant")),
	)
	if err != nil {
		return assistant.Reply{}, apperr.Wrap(op, apperr.ErrInternal, err)
	}
	chat, err := assistant.NewChat(s.engine, d,
		assistant.WithMaxToolRounds(s.maxToolRounds),
		assistant.WithAssistantName(s.assistantName),
		assistant.WithChatClock(s.now),
		assistant.WithChatLocation(s.loc),
		assistant.WithChatLogger(s.logger.Named("chat")),
	)
	if err != nil {
		return assistant.Reply{}, apperr.Wrap(op, apperr.ErrInternal, err)
	}
	return chat.Turn(ctx, message, history)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"timeZone":      s.loc.String(),
		"workingHours":  s.hours.Start.String() + "-" + s.hours.End.String(),
		"maxToolRounds": s.maxToolRounds,
		"chatEnabled":   s.engine != nil,
		"scopeCheck":    s.scopes != nil,
	}
	if s.started {
		if v, ok := s.store.(interface {
			Version(ctx context.Context) (int, error)
		}); ok {
			if version, err := v.Version(context.Background()); err == nil {
				stats["schemaVersion"] = version
			}
		}
	}
	return stats
}
