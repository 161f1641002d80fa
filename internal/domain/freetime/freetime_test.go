package freetime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/freetime"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/internal/domain/window"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeSource struct {
	events []model.Event
	err    error
	calls  int
	from   time.Time
	to     time.Time
}

func (f *fakeSource) ListEvents(_ context.Context, from, to time.Time) ([]model.Event, error) {
	f.calls++
	f.from, f.to = from, to
	return f.events, f.err
}

func at(h, m int) time.Time { return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC) }

func ev(id string, sh, sm, eh, em int) model.Event {
	return model.Event{ID: id, Title: id, Start: at(sh, sm), End: at(eh, em)}
}

func TestSlots(t *testing.T) {
	day := at(0, 0)

	Convey("Given an empty day with default hours", t, func() {
		slots := freetime.Slots(nil, day, window.DefaultHours, 60*time.Minute)

		Convey("Then one 480-minute slot covers the window", func() {
			So(len(slots), ShouldEqual, 1)
			So(slots[0].Start, ShouldEqual, at(9, 0))
			So(slots[0].End, ShouldEqual, at(17, 0))
			So(slots[0].DurationMinutes, ShouldEqual, 480)
		})
	})

	Convey("Given a window shorter than the duration", t, func() {
		hours, _ := window.ParseHours("09:00", "09:30")
		slots := freetime.Slots(nil, day, hours, 60*time.Minute)

		Convey("Then no slot is returned", func() {
			So(slots, ShouldBeEmpty)
		})
	})

	Convey("Given a day with meetings", t, func() {
		events := []model.Event{
			ev("lunch", 12, 0, 13, 0),
			ev("standup", 9, 0, 9, 30),
			ev("review", 14, 0, 14, 45),
			ev("sync", 15, 0, 16, 0),
		}

		Convey("When asking for 60 minutes", func() {
			slots := freetime.Slots(events, day, window.DefaultHours, 60*time.Minute)

			Convey("Then only gaps of at least an hour are returned", func() {
				So(len(slots), ShouldEqual, 3)
				So(slots[0].Start, ShouldEqual, at(9, 30))
				So(slots[0].End, ShouldEqual, at(12, 0))
				So(slots[1].Start, ShouldEqual, at(13, 0))
				So(slots[1].End, ShouldEqual, at(14, 0))
				So(slots[2].Start, ShouldEqual, at(16, 0))
				So(slots[2].End, ShouldEqual, at(17, 0))
			})

			Convey("And no slot overlaps an event or leaves working hours", func() {
				for _, s := range slots {
					So(s.End.Sub(s.Start), ShouldBeGreaterThanOrEqualTo, 60*time.Minute)
					So(s.Start.Before(at(9, 0)), ShouldBeFalse)
					So(s.End.After(at(17, 0)), ShouldBeFalse)
					for _, e := range events {
						So(s.Start.Before(e.End) && e.Start.Before(s.End), ShouldBeFalse)
					}
				}
				So(freetime.Total(slots), ShouldEqual, 150+60+60)
			})
		})
	})

	Convey("Given events that spill past working hours", t, func() {
		events := []model.Event{
			ev("early", 7, 0, 10, 0),
			ev("overlapA", 11, 0, 12, 30),
			ev("overlapB", 11, 30, 12, 0),
			ev("late", 16, 30, 19, 0),
		}
		slots := freetime.Slots(events, day, window.DefaultHours, 30*time.Minute)

		Convey("Then nested events do not rewind the cursor", func() {
			So(len(slots), ShouldEqual, 2)
			So(slots[0].Start, ShouldEqual, at(10, 0))
			So(slots[0].End, ShouldEqual, at(11, 0))
			So(slots[1].Start, ShouldEqual, at(12, 30))
			So(slots[1].End, ShouldEqual, at(16, 30))
		})
	})

	Convey("Given an all-day event", t, func() {
		events := []model.Event{{ID: "holiday", IsAllDay: true, Start: at(0, 0), End: at(0, 0).AddDate(0, 0, 1)}}
		slots := freetime.Slots(events, day, window.DefaultHours, 60*time.Minute)

		Convey("Then the day has no free time", func() {
			So(slots, ShouldBeEmpty)
		})
	})

	Convey("Given an all-day event that ended the previous day and a meeting", t, func() {
		events := []model.Event{
			{ID: "trip", IsAllDay: true, Start: at(0, 0).AddDate(0, 0, -2), End: at(0, 0)},
			ev("review", 13, 0, 14, 0),
		}
		slots := freetime.Slots(events, day, window.DefaultHours, 60*time.Minute)

		Convey("Then only the meeting blocks time", func() {
			So(len(slots), ShouldEqual, 2)
			So(slots[0].Start, ShouldEqual, at(9, 0))
			So(slots[0].End, ShouldEqual, at(13, 0))
			So(slots[1].Start, ShouldEqual, at(14, 0))
		})
	})

	Convey("Given events whose bounds carry seconds", t, func() {
		events := []model.Event{{ID: "call", Start: at(9, 0), End: at(10, 0).Add(30 * time.Second)}}
		slots := freetime.Slots(events, day, window.DefaultHours, 60*time.Minute)

		Convey("Then every slot length equals its minute count", func() {
			So(len(slots), ShouldEqual, 1)
			So(slots[0].DurationMinutes, ShouldEqual, 419)
			So(slots[0].End.Sub(slots[0].Start), ShouldEqual, 419*time.Minute)
			So(slots[0].Start, ShouldEqual, at(10, 0).Add(30*time.Second))
			So(slots[0].End.After(at(17, 0)), ShouldBeFalse)
		})
	})
}

func TestFinder(t *testing.T) {
	Convey("Given a finder over a fake source", t, func() {
		src := &fakeSource{events: []model.Event{ev("standup", 9, 0, 10, 0)}}
		finder := freetime.NewFinder(src, freetime.WithLocation(time.UTC))
		ctx := context.Background()

		Convey("When finding with defaults", func() {
			res, err := finder.Find(ctx, freetime.Request{Day: at(15, 0)})

			Convey("Then the full calendar day is fetched", func() {
				So(err, ShouldBeNil)
				So(src.from, ShouldEqual, at(0, 0))
				So(src.to, ShouldEqual, at(0, 0).AddDate(0, 0, 1))
			})

			Convey("And the result reports date, duration and total", func() {
				So(res.Date, ShouldEqual, "2025-03-10")
				So(res.RequestedDuration, ShouldEqual, 60)
				So(len(res.FreeSlots), ShouldEqual, 1)
				So(res.TotalFreeTime, ShouldEqual, 420)
			})

			Convey("And repeating it yields the same slots", func() {
				again, err := finder.Find(ctx, freetime.Request{Day: at(15, 0)})
				So(err, ShouldBeNil)
				So(again, ShouldResemble, res)
			})
		})

		Convey("When the source fails", func() {
			src.err = errors.New("dial tcp: timeout")
			_, err := finder.Find(ctx, freetime.Request{Day: at(9, 0)})

			Convey("Then the error is upstream unavailable", func() {
				So(errors.Is(err, apperr.ErrUpstreamUnavailable), ShouldBeTrue)
			})
		})

		Convey("When the duration is negative", func() {
			_, err := finder.Find(ctx, freetime.Request{Day: at(9, 0), Duration: -time.Minute})
			So(errors.Is(err, apperr.ErrInvalidArguments), ShouldBeTrue)
			So(src.calls, ShouldEqual, 0)
		})
	})
}
