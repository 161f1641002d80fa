package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/conflict"
	"github.com/okian/calmate/internal/domain/freetime"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/internal/domain/scoring"
	"github.com/okian/calmate/internal/domain/suggest"
	"github.com/okian/calmate/internal/domain/summary"
	"github.com/okian/calmate/internal/domain/timeblock"
	"github.com/okian/calmate/internal/domain/travel"
	"github.com/okian/calmate/internal/domain/window"
	"github.com/okian/calmate/pkg/logger"
	"github.com/okian/calmate/pkg/metrics"
)

// DefaultWindow is how far ahead event listings and searches look.
const DefaultWindow = 30 * 24 * time.Hour

// Calendar is the event store the tools act on.
type Calendar interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]model.Event, error)
	CreateEvent(ctx context.Context, in model.EventInput) (model.Event, error)
	UpdateEvent(ctx context.Context, id string, p model.EventPatch) (model.Event, error)
	DeleteEvent(ctx context.Context, id string) (model.DeleteOutcome, error)
}

// ErrorPayload is returned to the model in place of a result when a tool fails.
type ErrorPayload struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type handler func(ctx context.Context, args json.RawMessage) (any, error)

// Dispatcher validates tool calls and routes them to the scheduling components.
type Dispatcher struct {
	calendar  Calendar
	loc       *time.Location
	now       func() time.Time
	hours     window.Hours
	scorer    scoring.Scorer
	signature string
	log       logger.Logger

	finder     *freetime.Finder
	analyzer   *conflict.Analyzer
	suggester  *suggest.Suggester
	summarizer *summary.Summarizer
	travel     *travel.Engine
	planner    *timeblock.Planner

	handlers map[string]handler
}

// New builds a dispatcher acting on calendar.
func New(calendar Calendar, opts ...Option) (*Dispatcher, error) {
	if calendar == nil {
		return nil, ErrNoCalendar
	}
	d := &Dispatcher{
		calendar: calendar,
		loc:      time.UTC,
		now:      time.Now,
		hours:    window.DefaultHours,
		scorer:   scoring.NewRuleScorer(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Get().Named("assistant")
	}

	d.finder = freetime.NewFinder(calendar, freetime.WithLocation(d.loc))
	d.analyzer = conflict.NewAnalyzer(calendar, d.loc, d.now)
	d.suggester = suggest.New(d.finder,
		suggest.WithScorer(d.scorer),
		suggest.WithClock(d.now),
		suggest.WithLocation(d.loc),
	)
	d.summarizer = summary.NewSummarizer(calendar, d.loc, d.now)
	d.travel = travel.NewEngine(calendar, d.loc, d.now)
	d.planner = timeblock.NewPlanner(calendar, d.finder, d.loc, d.now, d.signature)

	d.handlers = map[string]handler{
		GetCalendarEvents:        d.getCalendarEvents,
		CreateCalendarEvent:      d.createCalendarEvent,
		DeleteCalendarEvent:      d.deleteCalendarEvent,
		FindAndDeleteEvents:      d.findAndDeleteEvents,
		UpdateCalendarEvent:      d.updateCalendarEvent,
		FindFreeTime:             d.findFreeTime,
		GetScheduleSummary:       d.getScheduleSummary,
		CreateRecurringEvent:     d.createRecurringEvent,
		SuggestMeetingTimes:      d.suggestMeetingTimes,
		AnalyzeScheduleConflicts: d.analyzeScheduleConflicts,
		CreateTimeBlocks:         d.createTimeBlocks,
		GetLocationInsights:      d.getLocationInsights,
	}
	return d, nil
}

// Call validates args against the tool's declaration and runs it. A panic in
// the handler is reported as an Internal error.
func (d *Dispatcher) Call(ctx context.Context, name string, args json.RawMessage) (result any, err error) {
	const op = "assistant.call"
	decl, ok := Lookup(name)
	h, hok := d.handlers[name]
	if !ok || !hok {
		return nil, apperr.Invalid(op, "unknown function: "+name)
	}
	if err := Validate(decl.Parameters, args); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error(ctx, "tool handler panicked", logger.String("tool", name), logger.Any("panic", r))
			result, err = nil, apperr.New(op, apperr.ErrInternal, fmt.Sprintf("%s failed unexpectedly", name))
		}
	}()
	return h(ctx, args)
}

// Dispatch runs the tool and encodes its result, or an ErrorPayload, as JSON.
// It never fails: every error is folded into the payload.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args json.RawMessage) json.RawMessage {
	start := time.Now()
	result, err := d.Call(ctx, name, args)

	label := name
	if _, ok := Lookup(name); !ok {
		label = "unknown"
	}
	outcome := "ok"
	if err != nil {
		outcome = apperr.Code(err)
		d.log.Warn(ctx, "tool call failed",
			logger.String("tool", name),
			logger.String("kind", outcome),
			logger.Error(err),
		)
		result = ErrorPayload{Error: err.Error(), Kind: outcome}
	}
	metrics.RecordToolInvocation(label, outcome)
	metrics.RecordToolLatency(label, float64(time.Since(start).Milliseconds()))

	body, merr := json.Marshal(result)
	if merr != nil {
		d.log.Error(ctx, "encode tool result", logger.String("tool", name), logger.Error(merr))
		body, _ = json.Marshal(ErrorPayload{Error: "result could not be encoded", Kind: apperr.Code(apperr.ErrInternal)})
	}
	return body
}

func decode(op string, raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperr.Invalid(op, fmt.Sprintf("decode arguments: %v", err))
	}
	return nil
}
