package gcal

import (
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/okian/calmate/internal/domain/model"
)

const dateLayout = "2006-01-02"

// toEvent converts a provider event. A date-only start marks an all-day
// event; its dates are read in loc.
func toEvent(item *calendar.Event, loc *time.Location) model.Event {
	e := model.Event{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
	}
	if strings.TrimSpace(e.Title) == "" {
		e.Title = model.DefaultTitle
	}
	if item.Start != nil {
		e.Start, e.IsAllDay = parseEventTime(item.Start, loc)
	}
	if item.End != nil {
		e.End, _ = parseEventTime(item.End, loc)
	}
	if e.End.Before(e.Start) {
		e.End = e.Start
	}
	for _, a := range item.Attendees {
		if a == nil {
			continue
		}
		e.Attendees = append(e.Attendees, model.Attendee{Email: a.Email, ResponseStatus: a.ResponseStatus})
	}
	return e
}

func parseEventTime(t *calendar.EventDateTime, loc *time.Location) (time.Time, bool) {
	if t.DateTime != "" {
		ts, err := time.Parse(time.RFC3339, t.DateTime)
		if err == nil {
			return ts.In(loc), false
		}
	}
	if t.Date != "" {
		d, err := time.ParseInLocation(dateLayout, t.Date, loc)
		if err == nil {
			return d, true
		}
	}
	return time.Time{}, t.DateTime == ""
}

func toEventDateTime(t time.Time) *calendar.EventDateTime {
	return &calendar.EventDateTime{DateTime: t.UTC().Format(time.RFC3339), TimeZone: "UTC"}
}

// fromInput builds the provider body for an insert.
func fromInput(in model.EventInput) *calendar.Event {
	ev := &calendar.Event{
		Summary:     in.Title,
		Description: in.Description,
		Location:    in.Location,
		Start:       toEventDateTime(in.Start),
		End:         toEventDateTime(in.End),
		Recurrence:  in.Recurrence,
	}
	for _, email := range in.Attendees {
		if email = strings.TrimSpace(email); email != "" {
			ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{Email: email})
		}
	}
	return ev
}

// fromPatch builds a PATCH body carrying only the fields present in p.
// Cleared text fields are force-sent so the provider empties them.
func fromPatch(p model.EventPatch) *calendar.Event {
	ev := &calendar.Event{}
	if p.Title != nil {
		ev.Summary = *p.Title
		if ev.Summary == "" {
			ev.ForceSendFields = append(ev.ForceSendFields, "Summary")
		}
	}
	if p.Description != nil {
		ev.Description = *p.Description
		if ev.Description == "" {
			ev.ForceSendFields = append(ev.ForceSendFields, "Description")
		}
	}
	if p.Location != nil {
		ev.Location = *p.Location
		if ev.Location == "" {
			ev.ForceSendFields = append(ev.ForceSendFields, "Location")
		}
	}
	if p.Start != nil {
		ev.Start = toEventDateTime(*p.Start)
	}
	if p.End != nil {
		ev.End = toEventDateTime(*p.End)
	}
	return ev
}
