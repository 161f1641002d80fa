package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/freetime"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/internal/domain/recurrence"
	"github.com/okian/calmate/internal/domain/suggest"
	"github.com/okian/calmate/internal/domain/timeblock"
	"github.com/okian/calmate/internal/domain/window"
	"github.com/okian/calmate/pkg/logger"
)

// previewOccurrences is how many upcoming instances a recurring event reports.
const previewOccurrences = 5

type eventRef struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
}

func refOf(e model.Event) eventRef { return eventRef{ID: e.ID, Title: e.Title, Start: e.Start} }

// instant parses an RFC 3339 timestamp or, failing that, a calendar day.
func (d *Dispatcher) instant(s string) (time.Time, error) {
	if t, err := window.ParseTimestamp(s, d.loc); err == nil {
		return t, nil
	}
	return window.ParseDate(s, d.now(), d.loc)
}

// minutes converts a model-supplied minute count.
func minutes(op string, v float64) (time.Duration, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v > math.MaxInt32 {
		return 0, apperr.Invalid(op, "duration is out of range")
	}
	return time.Duration(math.Round(v)) * time.Minute, nil
}

func wholeNumber(op, field string, v float64) (int, error) {
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, apperr.Invalid(op, fmt.Sprintf("%s must be a whole number", field))
	}
	return int(v), nil
}

// search lists the default window and keeps events matching query.
func (d *Dispatcher) search(ctx context.Context, query string) ([]model.Event, error) {
	from := d.now()
	events, err := d.calendar.ListEvents(ctx, from, from.Add(DefaultWindow))
	if err != nil {
		return nil, err
	}
	out := make([]model.Event, 0)
	for _, e := range events {
		if e.Matches(query) {
			out = append(out, e)
		}
	}
	return out, nil
}

type getEventsArgs struct {
	TimeMin string `json:"timeMin"`
	TimeMax string `json:"timeMax"`
}

type eventsResult struct {
	Events []model.Event `json:"events"`
	Count  int           `json:"count"`
}

func (d *Dispatcher) getCalendarEvents(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "assistant.get_calendar_events"
	var args getEventsArgs
	if err := decode(op, raw, &args); err != nil {
		return nil, err
	}
	from := d.now()
	if strings.TrimSpace(args.TimeMin) != "" {
		t, err := d.instant(args.TimeMin)
		if err != nil {
			return nil, err
		}
		from = t
	}
	to := from.Add(DefaultWindow)
	if strings.TrimSpace(args.TimeMax) != "" {
		t, err := d.instant(args.TimeMax)
		if err != nil {
			return nil, err
		}
		to = t
	}
	if to.Before(from) {
		return nil, apperr.Invalid(op, "timeMax must not be before timeMin")
	}
	events, err := d.calendar.ListEvents(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.Event{}
	}
	return eventsResult{Events: events, Count: len(events)}, nil
}

type createEventArgs struct {
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

func (d *Dispatcher) eventInput(op string, args createEventArgs) (model.EventInput, error) {
	if strings.TrimSpace(args.Title) == "" {
		return model.EventInput{}, apperr.Invalid(op, "title is required")
	}
	start, err := window.ParseTimestamp(args.Start, d.loc)
	if err != nil {
		return model.EventInput{}, err
	}
	end, err := window.ParseTimestamp(args.End, d.loc)
	if err != nil {
		return model.EventInput{}, err
	}
	return model.EventInput{
		Title:       strings.TrimSpace(args.Title),
		Start:       start,
		End:         end,
		Description: args.Description,
		Location:    args.Location,
	}, nil
}

func (d *Dispatcher) createCalendarEvent(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "assistant.create_calendar_event"
	var args createEventArgs
	if err := decode(op, raw, &args); err != nil {
		return nil, err
	}
	in, err := d.eventInput(op, args)
	if err != nil {
		return nil, err
	}
	ev, err := d.calendar.CreateEvent(ctx, in)
	if err != nil {
		return nil, err
	}
	return struct {
		Message string      `json:"message"`
		Event   model.Event `json:"event"`
	}{fmt.Sprintf("Created event: %s", ev.Title), ev}, nil
}

func (d *Dispatcher) deleteCalendarEvent(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "assistant.delete_calendar_event"
	var args struct {
		EventID string `json:"eventId"`
	}
	if err := decode(op, raw, &args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.EventID) == "" {
		return nil, apperr.Invalid(op, "eventId is required")
	}
	outcome, err := d.calendar.DeleteEvent(ctx, args.EventID)
	if err != nil {
		return nil, err
	}
	return struct {
		Success bool                `json:"success"`
		Outcome model.DeleteOutcome `json:"outcome"`
	}{true, outcome}, nil
}

type failedDelete struct {
	Title string `json:"title"`
	Error string `json:"error"`
}

func (d *Dispatcher) findAndDeleteEvents(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "assistant.find_and_delete_events"
	var args struct {
		SearchQuery   string `json:"searchQuery"`
		DateFilter    string `json:"dateFilter"`
		ConfirmDelete bool   `json:"confirmDelete"`
	}
	if err := decode(op, raw, &args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.SearchQuery) == "" {
		return nil, apperr.Invalid(op, "searchQuery is required")
	}
	matches, err := d.search(ctx, args.SearchQuery)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.DateFilter) != "" {
		day, err := window.ParseDate(args.DateFilter, d.now(), d.loc)
		if err != nil {
			return nil, err
		}
		key := window.DayKey(day)
		kept := matches[:0]
		for _, e := range matches {
			if window.DayKey(e.Start.In(d.loc)) == key {
				kept = append(kept, e)
			}
		}
		matches = kept
	}
	if len(matches) == 0 {
		return nil, apperr.NotFound(op, fmt.Sprintf("No events found matching %q", args.SearchQuery))
	}

	if !args.ConfirmDelete {
		refs := make([]eventRef, 0, len(matches))
		for _, e := range matches {
			refs = append(refs, refOf(e))
		}
		return struct {
			Message string     `json:"message"`
			Events  []eventRef `json:"events"`
			Preview bool       `json:"preview"`
		}{fmt.Sprintf("Found %d events matching %q", len(matches), args.SearchQuery), refs, true}, nil
	}

	// Best effort: a failure does not stop or undo the remaining deletes.
	deleted := make([]string, 0, len(matches))
	failed := make([]failedDelete, 0)
	for _, e := range matches {
		if _, err := d.calendar.DeleteEvent(ctx, e.ID); err != nil {
			failed = append(failed, failedDelete{Title: e.Title, Error: err.Error()})
			continue
		}
		deleted = append(deleted, e.Title)
	}
	msg := fmt.Sprintf("Deleted %d events", len(deleted))
	if len(failed) > 0 {
		msg += fmt.Sprintf(", %d failed", len(failed))
	}
	return struct {
		Message       string         `json:"message"`
		DeletedEvents []string       `json:"deletedEvents"`
		FailedEvents  []failedDelete `json:"failedEvents,omitempty"`
	}{msg, deleted, failed}, nil
}

type eventUpdates struct {
	Title       *string `json:"title"`
	Start       *string `json:"start"`
	End         *string `json:"end"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
}

func (d *Dispatcher) patchOf(u eventUpdates) (model.EventPatch, error) {
	p := model.EventPatch{Title: u.Title, Description: u.Description, Location: u.Location}
	if u.Start != nil {
		t, err := window.ParseTimestamp(*u.Start, d.loc)
		if err != nil {
			return p, err
		}
		p.Start = &t
	}
	if u.End != nil {
		t, err := window.ParseTimestamp(*u.End, d.loc)
		if err != nil {
			return p, err
		}
		p.End = &t
	}
	return p, nil
}

func (d *Dispatcher) updateCalendarEvent(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "assistant.update_calendar_event"
	var args struct {
		SearchQuery string       `json:"searchQuery"`
		Updates     eventUpdates `json:"updates"`
	}
	if err := decode(op, raw, &args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.SearchQuery) == "" {
		return nil, apperr.Invalid(op, "searchQuery is required")
	}
	patch, err := d.patchOf(args.Updates)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, apperr.Invalid(op, "updates must change at least one field")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperr.Invalid(op, "title must not be blank")
	}
	matches, err := d.search(ctx, args.SearchQuery)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, apperr.NotFound(op, fmt.Sprintf("No event found matching %q", args.SearchQuery))
	}
	original := matches[0]
	updated, err := d.calendar.UpdateEvent(ctx, original.ID, patch)
	if err != nil {
		return nil, err
	}
	return struct {
		Message       string      `json:"message"`
		OriginalEvent eventRef    `json:"originalEvent"`
		UpdatedEvent  model.Event `json:"updatedEvent"`
	}{fmt.Sprintf("Updated event: %s", original.Title), refOf(original), updated}, nil
}

type hoursArgs struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (d *Dispatcher) workingHours(start, end string) (window.Hours, error) {
	if strings.TrimSpace(start) == "" {
		start = d.hours.Start.String()
	}
	if strings.TrimSpace(end) == "" {
		end = d.hours.End.String()
	}
	return window.ParseHours(start, end)
}

func (d *Dispatcher) findFreeTime(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "assistant.find_free_time"
	var args struct {
		Date         string    `json:"date"`
		Duration     float64   `json:"duration"`
		WorkingHours hoursArgs `json:"workingHours"`
	}
	if err := decode(op, raw, &args); err != nil {
		return nil, err
	}
	day, err := window.ParseDate(args.Date, d.now(), d.loc)
	if err != nil {
		return nil, err
	}
	dur, err := minutes(op, args.Duration)
	if err != nil {
		return nil, err
	}
	hours, err := d.workingHours(args.WorkingHours.Start, args.WorkingHours.End)
	if err != nil {
		return nil, err
	}
	return d.finder.Find(ctx, freetime.Request{Day: day, Duration: dur, Hours: hours})
}

func (d *Dispatcher) getScheduleSummary(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "assistant.get_schedule_summary"
	var args struct {
		Period       string `json:"period"`
		IncludeStats *bool  `json:"includeStats"`
	}
	if err := decode(op, raw, &args); err != nil {
		return nil, err
	}
	includeStats := args.IncludeStats == nil || *args.IncludeStats
	return d.summarizer.Summary(ctx, args.Period, includeStats)
}

type recurrenceArgs struct {
	Frequency  string    `json:"frequency"`
	Interval   float64   `json:"interval"`
	Until      string    `json:"until"`
	Count      float64   `json:"count"`
	DaysOfWeek []float64 `json:"daysOfWeek"`
}

func (d *Dispatcher) recurrenceSpec(op string, args recurrenceArgs) (recurrence.Spec, error) {
	spec := recurrence.Spec{Frequency: args.Frequency}
	var err error
	if spec.Interval, err = wholeNumber(op, "interval", args.Interval); err != nil {
		return spec, err
	}
	if spec.Count, err = wholeNumber(op, "count", args.Count); err != nil {
		return spec, err
	}
	for _, v := range args.DaysOfWeek {
		day, err := wholeNumber(op, "daysOfWeek", v)
		if err != nil {
			return spec, err
		}
		spec.DaysOfWeek = append(spec.DaysOfWeek, day)
	}
	if strings.TrimSpace(args.Until) != "" {
		until, err := d.instant(args.Until)
		if err != nil {
			return spec, err
		}
		spec.Until = &until
	}
	return spec, nil
}

func (d *Dispatcher) createRecurringEvent(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "assistant.create_recurring_event"
	var args struct {
		createEventArgs
		Recurrence recurrenceArgs `json:"recurrence"`
	}
	if err := decode(op, raw, &args); err != nil {
		return nil, err
	}
	in, err := d.eventInput(op, args.createEventArgs)
	if err != nil {
		return nil, err
	}
	spec, err := d.recurrenceSpec(op, args.Recurrence)
	if err != nil {
		return nil, err
	}
	rule, err := recurrence.Build(spec)
	if err != nil {
		return nil, err
	}
	in.Recurrence = []string{rule.Line()}

	ev, err := d.calendar.CreateEvent(ctx, in)
	if err != nil {
		return nil, err
	}
	next, err := recurrence.Preview(rule, in.Start, previewOccurrences)
	if err != nil {
		// the event exists; only the preview is lost
		d.log.Warn(ctx, "recurrence preview failed", logger.String("rule", rule.Text), logger.Error(err))
		next = nil
	}

	type recurringEvent struct {
		ID             string    `json:"id"`
		Title          string    `json:"title"`
		Start          time.Time `json:"start"`
		End            time.Time `json:"end"`
		RecurrenceRule string    `json:"recurrenceRule"`
		NextOccurrence time.Time `json:"nextOccurrence"`
	}
	return struct {
		Message  string         `json:"message"`
		Event    recurringEvent `json:"event"`
		Upcoming []time.Time    `json:"upcomingOccurrences"`
		Warnings []string       `json:"warnings,omitempty"`
	}{
		Message: fmt.Sprintf("Created recurring event: %s", ev.Title),
		Event: recurringEvent{
			ID:             ev.ID,
			Title:          ev.Title,
			Start:          ev.Start,
			End:            ev.End,
			RecurrenceRule: rule.Text,
			NextOccurrence: ev.Start,
		},
		Upcoming: next,
		Warnings: rule.Warnings,
	}, nil
}

func (d *Dispatcher) suggestMeetingTimes(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "assistant.suggest_meeting_times"
	var args struct {
		Attendees       []string `json:"attendees"`
		Duration        float64  `json:"duration"`
		PreferredDates  []string `json:"preferredDates"`
		TimePreferences struct {
			EarliestTime string `json:"earliestTime"`
			LatestTime   string `json:"latestTime"`
			AvoidLunch   *bool  `json:"avoidLunch"`
		} `json:"timePreferences"`
	}
	if err := decode(op, raw, &args); err != nil {
		return nil, err
	}
	dur, err := minutes(op, args.Duration)
	if err != nil {
		return nil, err
	}
	hours, err := d.workingHours(args.TimePreferences.EarliestTime, args.TimePreferences.LatestTime)
	if err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, len(args.PreferredDates))
	for _, s := range args.PreferredDates {
		day, err := window.ParseDate(s, d.now(), d.loc)
		if err != nil {
			return nil, err
		}
		dates = append(dates, day)
	}
	res, err := d.suggester.Suggest(ctx, suggest.Request{
		Attendees:  args.Attendees,
		Duration:   dur,
		Dates:      dates,
		Hours:      hours,
		AvoidLunch: args.TimePreferences.AvoidLunch == nil || *args.TimePreferences.AvoidLunch,
	})
	if err != nil {
		return nil, err
	}
	return struct {
		Message string `json:"message"`
		suggest.Result
	}{fmt.Sprintf("Found %d potential meeting times", len(res.Suggestions)), res}, nil
}

func (d *Dispatcher) analyzeScheduleConflicts(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "assistant.analyze_schedule_conflicts"
	var args struct {
		TimeRange     string `json:"timeRange"`
		IncludeTravel bool   `json:"includeTravel"`
	}
	if err := decode(op, raw, &args); err != nil {
		return nil, err
	}
	return d.analyzer.Analyze(ctx, args.TimeRange, args.IncludeTravel)
}

func (d *Dispatcher) createTimeBlocks(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "assistant.create_time_blocks"
	var args struct {
		BlockType   string  `json:"blockType"`
		Duration    float64 `json:"duration"`
		Date        string  `json:"date"`
		BeforeEvent string  `json:"beforeEvent"`
		AfterEvent  string  `json:"afterEvent"`
	}
	if err := decode(op, raw, &args); err != nil {
		return nil, err
	}
	dur, err := minutes(op, args.Duration)
	if err != nil {
		return nil, err
	}
	return d.planner.Create(ctx, timeblock.Request{
		Type:        args.BlockType,
		Duration:    dur,
		Date:        args.Date,
		BeforeEvent: args.BeforeEvent,
		AfterEvent:  args.AfterEvent,
	})
}

func (d *Dispatcher) getLocationInsights(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "assistant.get_location_insights"
	var args struct {
		TimeRange    string `json:"timeRange"`
		HomeLocation string `json:"homeLocation"`
	}
	if err := decode(op, raw, &args); err != nil {
		return nil, err
	}
	return d.travel.Insights(ctx, args.TimeRange, args.HomeLocation)
}
