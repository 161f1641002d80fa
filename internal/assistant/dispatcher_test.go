package assistant_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/okian/calmate/internal/assistant"
	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// Monday 2025-03-10 08:00 UTC.
var now = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func at(day, h, m int) time.Time { return time.Date(2025, 3, day, h, m, 0, 0, time.UTC) }

type window struct{ from, to time.Time }

type fakeCalendar struct {
	events   []model.Event
	created  []model.EventInput
	patched  map[string]model.EventPatch
	deleted  []string
	failIDs  map[string]bool
	lists    []window
	listErr  error
	panicky  bool
	sequence int
}

func newCalendar(events ...model.Event) *fakeCalendar {
	return &fakeCalendar{events: events, patched: map[string]model.EventPatch{}, failIDs: map[string]bool{}}
}

func (f *fakeCalendar) ListEvents(_ context.Context, from, to time.Time) ([]model.Event, error) {
	if f.panicky {
		panic("list exploded")
	}
	f.lists = append(f.lists, window{from, to})
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Event
	for _, e := range f.events {
		if e.Start.Before(to) && e.End.After(from) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, in model.EventInput) (model.Event, error) {
	f.created = append(f.created, in)
	f.sequence++
	ev := model.Event{
		ID:          fmt.Sprintf("new-%d", f.sequence),
		Title:       in.Title,
		Start:       in.Start,
		End:         in.End,
		Description: in.Description,
		Location:    in.Location,
	}
	f.events = append(f.events, ev)
	return ev, nil
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, id string, p model.EventPatch) (model.Event, error) {
	for i, e := range f.events {
		if e.ID != id {
			continue
		}
		f.patched[id] = p
		if p.Title != nil {
			e.Title = *p.Title
		}
		if p.Location != nil {
			e.Location = *p.Location
		}
		if p.Start != nil {
			e.Start = *p.Start
		}
		if p.End != nil {
			e.End = *p.End
		}
		f.events[i] = e
		return e, nil
	}
	return model.Event{}, apperr.NotFound("fake.update", "no such event")
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, id string) (model.DeleteOutcome, error) {
	if f.failIDs[id] {
		return "", apperr.New("fake.delete", apperr.ErrUpstreamUnavailable, "calendar is down")
	}
	f.deleted = append(f.deleted, id)
	return model.Deleted, nil
}

func newDispatcher(cal *fakeCalendar) *assistant.Dispatcher {
	d, err := assistant.New(cal,
		assistant.WithClock(func() time.Time { return now }),
		assistant.WithSignature("Created by calmate"),
	)
	So(err, ShouldBeNil)
	return d
}

func dispatch(d *assistant.Dispatcher, name, args string) map[string]any {
	raw := d.Dispatch(context.Background(), name, json.RawMessage(args))
	var out map[string]any
	So(json.Unmarshal(raw, &out), ShouldBeNil)
	return out
}

func TestDispatcherRouting(t *testing.T) {
	Convey("Given a dispatcher over an in-memory calendar", t, func() {
		cal := newCalendar(
			model.Event{ID: "a", Title: "Standup", Start: at(10, 9, 30), End: at(10, 10, 0)},
			model.Event{ID: "b", Title: "Design review", Description: "quarterly planning", Start: at(11, 14, 0), End: at(11, 15, 0)},
			model.Event{ID: "c", Title: "Standup", Start: at(11, 9, 30), End: at(11, 10, 0)},
		)
		d := newDispatcher(cal)

		Convey("New rejects a nil calendar", func() {
			_, err := assistant.New(nil)
			So(err, ShouldEqual, assistant.ErrNoCalendar)
		})

		Convey("An unknown tool yields an unknown function payload", func() {
			out := dispatch(d, "book_flight", `{}`)
			So(out["error"], ShouldContainSubstring, "unknown function: book_flight")
			So(out["kind"], ShouldEqual, "invalid_arguments")
		})

		Convey("Arguments failing validation never reach the calendar", func() {
			out := dispatch(d, assistant.CreateCalendarEvent, `{"title":"Lunch","start":"2025-03-10T12:00:00Z"}`)
			So(out["kind"], ShouldEqual, "invalid_arguments")
			So(out["error"], ShouldContainSubstring, "arguments.end is required")
			So(cal.created, ShouldBeEmpty)
		})

		Convey("get_calendar_events defaults to the next 30 days", func() {
			out := dispatch(d, assistant.GetCalendarEvents, ``)
			So(out["count"], ShouldEqual, 3.0)
			So(cal.lists, ShouldHaveLength, 1)
			So(cal.lists[0].from, ShouldEqual, now)
			So(cal.lists[0].to, ShouldEqual, now.Add(assistant.DefaultWindow))
		})

		Convey("get_calendar_events rejects an inverted range", func() {
			out := dispatch(d, assistant.GetCalendarEvents, `{"timeMin":"2025-03-12","timeMax":"2025-03-11"}`)
			So(out["kind"], ShouldEqual, "invalid_arguments")
		})

		Convey("create_calendar_event creates the event", func() {
			out := dispatch(d, assistant.CreateCalendarEvent,
				`{"title":"Lunch","start":"2025-03-10T12:00:00Z","end":"2025-03-10T13:00:00Z","location":"Cafe"}`)
			So(out["message"], ShouldEqual, "Created event: Lunch")
			So(cal.created, ShouldHaveLength, 1)
			So(cal.created[0].Start, ShouldEqual, at(10, 12, 0))
			So(cal.created[0].Location, ShouldEqual, "Cafe")
		})

		Convey("delete_calendar_event reports success", func() {
			out := dispatch(d, assistant.DeleteCalendarEvent, `{"eventId":"a"}`)
			So(out["success"], ShouldEqual, true)
			So(cal.deleted, ShouldResemble, []string{"a"})
		})

		Convey("A calendar failure keeps its kind", func() {
			cal.listErr = apperr.New("fake.list", apperr.ErrTokenExpired, "refresh failed")
			out := dispatch(d, assistant.GetScheduleSummary, `{"period":"week"}`)
			So(out["kind"], ShouldEqual, "token_expired")
		})

		Convey("A panicking handler is reported as internal", func() {
			cal.panicky = true
			out := dispatch(d, assistant.AnalyzeScheduleConflicts, `{}`)
			So(out["kind"], ShouldEqual, "internal")
			So(out["error"], ShouldContainSubstring, "failed unexpectedly")
		})

		Convey("An unknown summary period is invalid", func() {
			out := dispatch(d, assistant.GetScheduleSummary, `{"period":"decade"}`)
			So(out["kind"], ShouldEqual, "invalid_arguments")
		})
	})
}

func TestFindAndDelete(t *testing.T) {
	Convey("Given matching events", t, func() {
		cal := newCalendar(
			model.Event{ID: "a", Title: "Standup", Start: at(10, 9, 30), End: at(10, 10, 0)},
			model.Event{ID: "b", Title: "Review", Description: "weekly STANDUP notes", Start: at(11, 14, 0), End: at(11, 15, 0)},
			model.Event{ID: "c", Title: "Standup", Start: at(11, 9, 30), End: at(11, 10, 0)},
			model.Event{ID: "d", Title: "Lunch", Start: at(11, 12, 0), End: at(11, 13, 0)},
		)
		d := newDispatcher(cal)

		Convey("Without confirmation it only previews", func() {
			out := dispatch(d, assistant.FindAndDeleteEvents, `{"searchQuery":"standup"}`)
			So(out["preview"], ShouldEqual, true)
			So(out["events"], ShouldHaveLength, 3)
			So(cal.deleted, ShouldBeEmpty)
		})

		Convey("A date filter keeps same-day matches", func() {
			out := dispatch(d, assistant.FindAndDeleteEvents, `{"searchQuery":"standup","dateFilter":"2025-03-11"}`)
			So(out["events"], ShouldHaveLength, 2)
		})

		Convey("Confirmed deletes are best effort", func() {
			cal.failIDs["b"] = true
			out := dispatch(d, assistant.FindAndDeleteEvents, `{"searchQuery":"standup","confirmDelete":true}`)
			So(cal.deleted, ShouldResemble, []string{"a", "c"})
			So(out["deletedEvents"], ShouldResemble, []any{"Standup", "Standup"})
			So(out["failedEvents"], ShouldHaveLength, 1)
			So(out["message"], ShouldEqual, "Deleted 2 events, 1 failed")
		})

		Convey("No match is not found", func() {
			out := dispatch(d, assistant.FindAndDeleteEvents, `{"searchQuery":"offsite","confirmDelete":true}`)
			So(out["kind"], ShouldEqual, "not_found")
			So(cal.deleted, ShouldBeEmpty)
		})
	})
}

func TestUpdateCalendarEvent(t *testing.T) {
	Convey("Given two matching events", t, func() {
		cal := newCalendar(
			model.Event{ID: "a", Title: "Standup", Start: at(10, 9, 30), End: at(10, 10, 0)},
			model.Event{ID: "c", Title: "Standup", Start: at(11, 9, 30), End: at(11, 10, 0)},
		)
		d := newDispatcher(cal)

		Convey("Only the first match is patched", func() {
			out := dispatch(d, assistant.UpdateCalendarEvent,
				`{"searchQuery":"standup","updates":{"location":"Room 4","start":"2025-03-10T09:45:00Z"}}`)
			So(out["message"], ShouldEqual, "Updated event: Standup")
			So(cal.patched, ShouldHaveLength, 1)
			p := cal.patched["a"]
			So(*p.Location, ShouldEqual, "Room 4")
			So(*p.Start, ShouldEqual, at(10, 9, 45))
			So(p.Title, ShouldBeNil)
		})

		Convey("An empty update is invalid", func() {
			out := dispatch(d, assistant.UpdateCalendarEvent, `{"searchQuery":"standup","updates":{}}`)
			So(out["kind"], ShouldEqual, "invalid_arguments")
		})

		Convey("No match is not found", func() {
			out := dispatch(d, assistant.UpdateCalendarEvent, `{"searchQuery":"retro","updates":{"title":"Retro"}}`)
			So(out["kind"], ShouldEqual, "not_found")
		})
	})
}

func TestSchedulingTools(t *testing.T) {
	Convey("Given a calendar with one meeting on Tuesday", t, func() {
		cal := newCalendar(model.Event{ID: "a", Title: "Sync", Start: at(11, 10, 0), End: at(11, 11, 0)})
		d := newDispatcher(cal)

		Convey("find_free_time on an empty day returns the whole working day", func() {
			out := dispatch(d, assistant.FindFreeTime, `{"date":"2025-03-12"}`)
			So(out["date"], ShouldEqual, "2025-03-12")
			So(out["totalFreeTime"], ShouldEqual, 480.0)
			So(out["freeSlots"], ShouldHaveLength, 1)
		})

		Convey("find_free_time honours custom hours and duration", func() {
			out := dispatch(d, assistant.FindFreeTime,
				`{"date":"2025-03-11","duration":90,"workingHours":{"start":"09:00","end":"12:00"}}`)
			So(out["requestedDuration"], ShouldEqual, 90.0)
			So(out["freeSlots"], ShouldHaveLength, 0)
		})

		Convey("find_free_time rejects malformed hours", func() {
			out := dispatch(d, assistant.FindFreeTime, `{"workingHours":{"start":"nine"}}`)
			So(out["kind"], ShouldEqual, "invalid_arguments")
		})

		Convey("suggest_meeting_times ranks free starts and notes attendee limits", func() {
			out := dispatch(d, assistant.SuggestMeetingTimes,
				`{"attendees":["a@example.com"],"duration":60,"preferredDates":["2025-03-11"]}`)
			So(out["message"], ShouldEqual, "Found 2 potential meeting times")
			So(out["note"], ShouldNotBeBlank)
		})

		Convey("suggest_meeting_times requires attendees", func() {
			out := dispatch(d, assistant.SuggestMeetingTimes, `{"duration":60}`)
			So(out["kind"], ShouldEqual, "invalid_arguments")
		})

		Convey("create_recurring_event builds the rule and creates the series", func() {
			out := dispatch(d, assistant.CreateRecurringEvent, `{
				"title":"Gym","start":"2025-03-10T18:00:00Z","end":"2025-03-10T19:00:00Z",
				"recurrence":{"frequency":"weekly","count":4,"daysOfWeek":[1,3]}}`)
			So(out["message"], ShouldEqual, "Created recurring event: Gym")
			So(cal.created, ShouldHaveLength, 1)
			So(cal.created[0].Recurrence, ShouldResemble, []string{"RRULE:FREQ=WEEKLY;COUNT=4;BYDAY=MO,WE"})
			event := out["event"].(map[string]any)
			So(event["recurrenceRule"], ShouldEqual, "FREQ=WEEKLY;COUNT=4;BYDAY=MO,WE")
			So(out["upcomingOccurrences"], ShouldHaveLength, 4)
		})

		Convey("create_recurring_event rejects fractional counts", func() {
			out := dispatch(d, assistant.CreateRecurringEvent, `{
				"title":"Gym","start":"2025-03-10T18:00:00Z","end":"2025-03-10T19:00:00Z",
				"recurrence":{"frequency":"weekly","count":1.5}}`)
			So(out["kind"], ShouldEqual, "invalid_arguments")
			So(cal.created, ShouldBeEmpty)
		})

		Convey("create_recurring_event rejects an unknown frequency", func() {
			out := dispatch(d, assistant.CreateRecurringEvent, `{
				"title":"Gym","start":"2025-03-10T18:00:00Z","end":"2025-03-10T19:00:00Z",
				"recurrence":{"frequency":"hourly"}}`)
			So(out["kind"], ShouldEqual, "invalid_arguments")
		})

		Convey("create_time_blocks places a block after a matching event", func() {
			out := dispatch(d, assistant.CreateTimeBlocks, `{"blockType":"focus","duration":30,"afterEvent":"sync"}`)
			So(out["message"], ShouldEqual, "Created 30-minute focus block")
			So(cal.created, ShouldHaveLength, 1)
			So(cal.created[0].Start, ShouldEqual, at(11, 11, 0))
			So(cal.created[0].Description, ShouldEndWith, "Created by calmate")
		})

		Convey("analyze_schedule_conflicts reports the range", func() {
			out := dispatch(d, assistant.AnalyzeScheduleConflicts, `{"timeRange":"month"}`)
			So(out["range"], ShouldEqual, "month")
			So(cal.lists[0].to, ShouldEqual, now.AddDate(0, 1, 0))
		})

		Convey("get_location_insights runs over the week", func() {
			out := dispatch(d, assistant.GetLocationInsights, `{"homeLocation":"Home"}`)
			So(out, ShouldNotContainKey, "error")
			So(cal.lists[0].to, ShouldEqual, now.AddDate(0, 0, 7))
		})
	})
}
