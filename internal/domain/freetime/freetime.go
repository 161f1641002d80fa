// Package freetime finds open slots inside working hours on a calendar day.
package freetime

import (
	"context"
	"time"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/internal/domain/window"
)

// DefaultDuration is the slot length used when a request names none.
const DefaultDuration = 60 * time.Minute

// EventSource lists events overlapping [from, to).
type EventSource interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]model.Event, error)
}

// Request describes one free-time query.
type Request struct {
	// Day is any instant on the target calendar day.
	Day      time.Time
	Duration time.Duration
	Hours    window.Hours
}

// Result is what find_free_time reports.
type Result struct {
	Date              string           `json:"date"`
	RequestedDuration int              `json:"requestedDuration"`
	FreeSlots         []model.FreeSlot `json:"freeSlots"`
	TotalFreeTime     int              `json:"totalFreeTime"`
}

// Slots computes the free slots of at least duration on the day of day.
// events may arrive in any order. All-day events block their whole span.
func Slots(events []model.Event, day time.Time, hours window.Hours, duration time.Duration) []model.FreeSlot {
	workStart, workEnd := hours.On(day)
	slots := make([]model.FreeSlot, 0)
	cursor := workStart

	emit := func(end time.Time) {
		if end.Sub(cursor) >= duration {
			slots = append(slots, model.NewFreeSlot(cursor, end))
		}
	}

	for _, e := range model.SortedCopy(events) {
		end := e.Start
		if end.After(workEnd) {
			end = workEnd
		}
		emit(end)
		if e.End.After(cursor) {
			cursor = e.End
		}
	}
	emit(workEnd)
	return slots
}

// Total sums the minutes of slots.
func Total(slots []model.FreeSlot) int {
	total := 0
	for _, s := range slots {
		total += s.DurationMinutes
	}
	return total
}

// Finder fetches a day's events and computes its free slots.
type Finder struct {
	source EventSource
	loc    *time.Location
}

// Option configures a Finder.
type Option func(*Finder)

// WithLocation sets the zone calendar days are resolved in.
func WithLocation(loc *time.Location) Option {
	return func(f *Finder) {
		if loc != nil {
			f.loc = loc
		}
	}
}

// NewFinder builds a Finder over source.
func NewFinder(source EventSource, opts ...Option) *Finder {
	f := &Finder{source: source, loc: time.UTC}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Find runs req against the source. It is read-only: repeating it against
// an unchanged calendar returns the same slots.
func (f *Finder) Find(ctx context.Context, req Request) (Result, error) {
	const op = "freetime.find"
	if req.Duration < 0 {
		return Result{}, apperr.Invalid(op, "duration must be positive")
	}
	if req.Duration == 0 {
		req.Duration = DefaultDuration
	}
	if req.Hours == (window.Hours{}) {
		req.Hours = window.DefaultHours
	}

	dayStart, dayEnd := window.Day(req.Day.In(f.loc))
	events, err := f.source.ListEvents(ctx, dayStart, dayEnd)
	if err != nil {
		return Result{}, apperr.Wrap(op, apperr.ErrUpstreamUnavailable, err)
	}

	slots := Slots(events, dayStart, req.Hours, req.Duration)
	return Result{
		Date:              window.DayKey(dayStart),
		RequestedDuration: int(req.Duration / time.Minute),
		FreeSlots:         slots,
		TotalFreeTime:     Total(slots),
	}, nil
}
