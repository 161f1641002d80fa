// Package model contains domain models passed between layers.
package model

import (
	"sort"
	"strings"
	"time"
)

// DefaultTitle is used when the upstream event carries no summary.
const DefaultTitle = "Untitled Event"

// Attendee is a single invitee of an event.
type Attendee struct {
	Email          string `json:"email"`
	ResponseStatus string `json:"responseStatus,omitempty"`
}

// Event is the normalized calendar event used by every scheduling component.
// Start never exceeds End; zero-length events are allowed.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	IsAllDay    bool       `json:"isAllDay"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Attendees   []Attendee `json:"attendees,omitempty"`
}

// Duration returns End - Start.
func (e Event) Duration() time.Duration { return e.End.Sub(e.Start) }

// Minutes returns the event length in whole minutes.
func (e Event) Minutes() int { return int(e.Duration() / time.Minute) }

// Matches reports whether query occurs in the title or description,
// ignoring case.
func (e Event) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	return strings.Contains(strings.ToLower(e.Title), q) ||
		strings.Contains(strings.ToLower(e.Description), q)
}

// EventInput carries the fields needed to create an event.
type EventInput struct {
	Title       string
	Start       time.Time
	End         time.Time
	Description string
	Location    string
	Attendees   []string
	// Recurrence holds RFC 5545 lines such as "RRULE:FREQ=WEEKLY".
	Recurrence []string
}

// EventPatch lists the fields to change on an existing event. Nil fields are
// left untouched upstream.
type EventPatch struct {
	Title       *string
	Start       *time.Time
	End         *time.Time
	Description *string
	Location    *string
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Start == nil && p.End == nil && p.Description == nil && p.Location == nil
}

// DeleteOutcome distinguishes a real delete from an already-removed event.
type DeleteOutcome string

const (
	Deleted     DeleteOutcome = "deleted"
	AlreadyGone DeleteOutcome = "already_gone"
)

// FreeSlot is an open interval inside working hours.
type FreeSlot struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration"`
}

// NewFreeSlot builds a slot of the whole minutes between start and end.
// A trailing partial minute is dropped so End - Start always equals
// DurationMinutes.
func NewFreeSlot(start, end time.Time) FreeSlot {
	minutes := int(end.Sub(start) / time.Minute)
	return FreeSlot{Start: start, End: start.Add(time.Duration(minutes) * time.Minute), DurationMinutes: minutes}
}

// SortByStart orders events by start time, keeping input order for ties.
func SortByStart(events []Event) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
}

// SortedCopy returns a start-ordered copy, leaving the input intact.
func SortedCopy(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	SortByStart(out)
	return out
}
