// Package gcal is the event store gateway to Google Calendar. It reads the
// user's stored credential before every call, refreshes it when expired and
// retries once when the provider rejects the access token.
package gcal

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/pkg/logger"
	"github.com/okian/calmate/pkg/metrics"
)

const defaultCalendarID = "primary"

// CredentialStore reads and persists linked calendar credentials.
// Credential returns an apperr NotFound error when the user has none.
type CredentialStore interface {
	Credential(ctx context.Context, userID string) (model.Credential, error)
	SaveCredential(ctx context.Context, c model.Credential) error
}

// Gateway performs calendar operations on behalf of one user.
type Gateway struct {
	userID     string
	store      CredentialStore
	refresher  Refresher
	scopes     ScopeChecker
	base       *http.Client
	endpoint   string
	calendarID string
	loc        *time.Location
	now        func() time.Time
	log        logger.Logger
}

// New builds a gateway for userID.
func New(userID string, store CredentialStore, refresher Refresher, opts ...Option) (*Gateway, error) {
	if store == nil {
		return nil, ErrNoStore
	}
	if refresher == nil {
		return nil, ErrNoRefresher
	}
	g := &Gateway{
		userID:     userID,
		store:      store,
		refresher:  refresher,
		base:       http.DefaultClient,
		calendarID: defaultCalendarID,
		loc:        time.UTC,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.Get().Named("gcal")
	}
	return g, nil
}

// ListEvents returns events overlapping [from, to) ordered by start, with
// recurring events expanded into instances.
func (g *Gateway) ListEvents(ctx context.Context, from, to time.Time) ([]model.Event, error) {
	var out []model.Event
	err := g.do(ctx, "gcal.list_events", func(svc *calendar.Service) error {
		out = out[:0]
		pageToken := ""
		for {
			call := svc.Events.List(g.calendarID).
				ShowDeleted(false).
				SingleEvents(true).
				OrderBy("startTime").
				TimeMin(from.Format(time.RFC3339)).
				TimeMax(to.Format(time.RFC3339)).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			res, err := call.Do()
			if err != nil {
				return err
			}
			for _, item := range res.Items {
				if item == nil || item.Status == "cancelled" {
					continue
				}
				out = append(out, toEvent(item, g.loc))
			}
			if res.NextPageToken == "" {
				return nil
			}
			pageToken = res.NextPageToken
		}
	})
	if err != nil {
		return nil, err
	}
	model.SortByStart(out)
	return out, nil
}

// CreateEvent inserts an event.
func (g *Gateway) CreateEvent(ctx context.Context, in model.EventInput) (model.Event, error) {
	const op = "gcal.create_event"
	if in.End.Before(in.Start) {
		return model.Event{}, apperr.Invalid(op, "end must not be before start")
	}
	var created model.Event
	err := g.do(ctx, op, func(svc *calendar.Service) error {
		res, err := svc.Events.Insert(g.calendarID, fromInput(in)).Context(ctx).Do()
		if err != nil {
			return err
		}
		created = toEvent(res, g.loc)
		return nil
	})
	return created, err
}

// UpdateEvent patches the fields present in p.
func (g *Gateway) UpdateEvent(ctx context.Context, id string, p model.EventPatch) (model.Event, error) {
	const op = "gcal.update_event"
	if id == "" {
		return model.Event{}, apperr.Invalid(op, "event id is required")
	}
	var updated model.Event
	err := g.do(ctx, op, func(svc *calendar.Service) error {
		res, err := svc.Events.Patch(g.calendarID, id, fromPatch(p)).Context(ctx).Do()
		if err != nil {
			return err
		}
		updated = toEvent(res, g.loc)
		return nil
	})
	return updated, err
}

// DeleteEvent removes an event. An event the provider reports as gone is
// AlreadyGone, not an error.
func (g *Gateway) DeleteEvent(ctx context.Context, id string) (model.DeleteOutcome, error) {
	const op = "gcal.delete_event"
	if id == "" {
		return "", apperr.Invalid(op, "event id is required")
	}
	result := model.Deleted
	err := g.do(ctx, op, func(svc *calendar.Service) error {
		err := svc.Events.Delete(g.calendarID, id).Context(ctx).Do()
		if statusOf(err) == http.StatusGone {
			result = model.AlreadyGone
			return nil
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// TokenStatus reports whether the stored token is usable and, if not,
// whether a refresh could fix it.
func (g *Gateway) TokenStatus(ctx context.Context) (model.TokenStatus, error) {
	const op = "gcal.token_status"
	cred, err := g.store.Credential(ctx, g.userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return model.TokenStatus{}, nil
	}
	if err != nil {
		return model.TokenStatus{}, apperr.Wrap(op, apperr.ErrInternal, err)
	}

	has := cred.AccessToken != "" && !cred.ExpiresAt.IsZero() && !cred.Expired(g.now())
	if has && g.scopes != nil {
		ok, err := g.scopes.HasScope(ctx, cred.AccessToken, model.CalendarScope)
		if err != nil {
			g.log.Warn(ctx, "scope check failed", logger.String("user", g.userID), logger.Error(err))
		}
		has = ok
	}
	return model.TokenStatus{HasToken: has, NeedsRefresh: !has && cred.CanRefresh()}, nil
}

// do runs fn with a service bound to a valid access token. An expired
// credential is refreshed first; an upstream 401 gets one refresh and retry
// unless a refresh already happened in this call.
func (g *Gateway) do(ctx context.Context, op string, fn func(*calendar.Service) error) error {
	start := time.Now()
	err := g.run(ctx, op, fn)
	metrics.RecordUpstreamCall(op, outcome(err))
	metrics.RecordUpstreamLatency(op, float64(time.Since(start).Milliseconds()))
	if err != nil {
		g.log.Debug(ctx, "calendar call failed", logger.String("op", op), logger.String("user", g.userID), logger.Error(err))
	}
	return err
}

func (g *Gateway) run(ctx context.Context, op string, fn func(*calendar.Service) error) error {
	cred, err := g.store.Credential(ctx, g.userID)
	if err != nil {
		return apperr.Wrap(op, apperr.ErrInternal, err)
	}
	if cred.AccessToken == "" && !cred.CanRefresh() {
		return apperr.New(op, apperr.ErrNotFound, "no calendar access token found")
	}

	refreshed := false
	if (cred.AccessToken == "" || cred.Expired(g.now())) && cred.CanRefresh() {
		if cred, err = g.refresh(ctx, cred); err != nil {
			return apperr.Wrap(op, apperr.ErrTokenExpired, err)
		}
		refreshed = true
	}

	err = g.attempt(ctx, cred, fn)
	if statusOf(err) == http.StatusUnauthorized && !refreshed && cred.CanRefresh() {
		g.log.Info(ctx, "access token rejected, refreshing", logger.String("op", op), logger.String("user", g.userID))
		if cred, err = g.refresh(ctx, cred); err != nil {
			return apperr.Wrap(op, apperr.ErrTokenExpired, err)
		}
		err = g.attempt(ctx, cred, fn)
	}
	return classify(op, err)
}

func (g *Gateway) attempt(ctx context.Context, cred model.Credential, fn func(*calendar.Service) error) error {
	client := &http.Client{
		Timeout: g.base.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.AccessToken, TokenType: "Bearer"}),
			Base:   g.base.Transport,
		},
	}
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return apperr.Wrap("gcal.service", apperr.ErrInternal, err)
	}
	return fn(svc)
}

func (g *Gateway) refresh(ctx context.Context, cred model.Credential) (model.Credential, error) {
	const op = "gcal.refresh_credential"
	tok, err := g.refresher.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		metrics.RecordTokenRefresh("failed")
		g.log.Warn(ctx, "token refresh failed", logger.String("user", g.userID), logger.Error(err))
		return cred, err
	}
	next := cred.Apply(tok)
	if err := g.store.SaveCredential(ctx, next); err != nil {
		metrics.RecordTokenRefresh("persist_failed")
		return cred, apperr.Wrap(op, apperr.ErrInternal, err)
	}
	metrics.RecordTokenRefresh("ok")
	return next, nil
}
