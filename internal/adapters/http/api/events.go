// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/calmate/internal/adapters/ics"
	"github.com/okian/calmate/internal/assistant"
	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/internal/domain/window"
	"github.com/okian/calmate/pkg/logger"
)

// EventDependencies defines the calendar operations behind /events.
type EventDependencies interface {
	ListEvents(ctx context.Context, userID string, from, to time.Time) ([]model.Event, error)
	CreateEvent(ctx context.Context, userID string, in model.EventInput) (model.Event, error)
	DeleteEvent(ctx context.Context, userID, id string) (model.DeleteOutcome, error)
}

// EventsHandler handles event requests
type EventsHandler struct {
	deps EventDependencies
	loc  *time.Location
	now  func() time.Time
	log  logger.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(deps EventDependencies, loc *time.Location, now func() time.Time, log logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, loc: loc, now: now, log: log}
}

// eventRequest mirrors the OpenAPI schema for POST /events.
type eventRequest struct {
	Title       string   `json:"title"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Attendees   []string `json:"attendees"`
}

func (e eventRequest) toInput(loc *time.Location) (model.EventInput, error) {
	const op = "api.event_request"
	if strings.TrimSpace(e.Title) == "" || strings.TrimSpace(e.Start) == "" || strings.TrimSpace(e.End) == "" {
		return model.EventInput{}, apperr.Invalid(op, "missing required fields: title, start and end")
	}
	start, err := window.ParseTimestamp(e.Start, loc)
	if err != nil {
		return model.EventInput{}, err
	}
	end, err := window.ParseTimestamp(e.End, loc)
	if err != nil {
		return model.EventInput{}, err
	}
	if end.Before(start) {
		return model.EventInput{}, apperr.Invalid(op, "end must not be before start")
	}
	return model.EventInput{
		Title:       strings.TrimSpace(e.Title),
		Start:       start,
		End:         end,
		Description: e.Description,
		Location:    e.Location,
		Attendees:   e.Attendees,
	}, nil
}

type eventsResponse struct {
	Events []model.Event `json:"events"`
}

type deleteResponse struct {
	Success bool                `json:"success"`
	Outcome model.DeleteOutcome `json:"outcome"`
}

// HandleEvents dispatches /events by method.
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.HandleListEvents(w, r)
	case http.MethodPost:
		h.HandlePostEvent(w, r)
	case http.MethodDelete:
		h.HandleDeleteEvent(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

// HandleListEvents handles GET /events requests
func (h *EventsHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.window(r)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	events, err := h.deps.ListEvents(r.Context(), UserID(r.Context()), from, to)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}

// HandlePostEvent handles POST /events requests
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req eventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(r.Context(), h.log, w, apperr.Wrap(op, apperr.ErrInvalidArguments, fmt.Errorf("%w: %v", ErrBadRequest, err)))
		return
	}
	in, err := req.toInput(h.loc)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	event, err := h.deps.CreateEvent(r.Context(), UserID(r.Context()), in)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// HandleDeleteEvent handles DELETE /events?eventId= requests. An event the
// provider already removed counts as deleted.
func (h *EventsHandler) HandleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_event"
	id := strings.TrimSpace(r.URL.Query().Get("eventId"))
	if id == "" {
		writeError(r.Context(), h.log, w, apperr.Invalid(op, "missing eventId"))
		return
	}
	outcome, err := h.deps.DeleteEvent(r.Context(), UserID(r.Context()), id)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Success: true, Outcome: outcome})
}

// HandleExport handles GET /events.ics requests.
func (h *EventsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	from, to, err := h.window(r)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	events, err := h.deps.ListEvents(r.Context(), UserID(r.Context()), from, to)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	w.Header().Set("Content-Type", ics.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	if err := ics.Encode(w, events, h.now()); err != nil {
		h.log.Error(r.Context(), "ics export failed", logger.String("request_id", RequestID(r.Context())), logger.Error(err))
	}
}

// window reads timeMin and timeMax. Missing bounds default to now and
// thirty days later.
func (h *EventsHandler) window(r *http.Request) (time.Time, time.Time, error) {
	const op = "api.events_window"
	now := h.now()
	q := r.URL.Query()
	from, err := h.bound(q.Get("timeMin"), now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := h.bound(q.Get("timeMax"), from.Add(assistant.DefaultWindow))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, apperr.Invalid(op, "timeMax must not be before timeMin")
	}
	return from, to, nil
}

func (h *EventsHandler) bound(s string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	if t, err := window.ParseTimestamp(s, h.loc); err == nil {
		return t, nil
	}
	return window.ParseDate(s, fallback, h.loc)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: ErrMethodNotAllowed.Error(), Code: "method_not_allowed"})
}
