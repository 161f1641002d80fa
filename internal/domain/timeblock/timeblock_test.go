package timeblock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/freetime"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/internal/domain/timeblock"
	. "github.com/smartystreets/goconvey/convey"
)

func at(h, m int) time.Time { return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC) }

type fakeCalendar struct {
	events  []model.Event
	created []model.EventInput
}

func (f *fakeCalendar) ListEvents(context.Context, time.Time, time.Time) ([]model.Event, error) {
	return f.events, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, in model.EventInput) (model.Event, error) {
	f.created = append(f.created, in)
	return model.Event{ID: "new", Title: in.Title, Start: in.Start, End: in.End, Location: in.Location}, nil
}

type fakeFinder struct {
	slots []model.FreeSlot
	day   time.Time
}

func (f *fakeFinder) Find(_ context.Context, req freetime.Request) (freetime.Result, error) {
	f.day = req.Day
	return freetime.Result{FreeSlots: f.slots}, nil
}

func TestPlanner(t *testing.T) {
	Convey("Given a planner over a calendar with a review meeting", t, func() {
		cal := &fakeCalendar{events: []model.Event{{ID: "r", Title: "Design Review", Start: at(14, 0), End: at(15, 0)}}}
		finder := &fakeFinder{slots: []model.FreeSlot{model.NewFreeSlot(at(10, 0), at(12, 0))}}
		p := timeblock.NewPlanner(cal, finder, time.UTC, func() time.Time { return at(8, 0) }, "Created by Calmate Assistant")
		ctx := context.Background()

		Convey("When placing prep before the review", func() {
			res, err := p.Create(ctx, timeblock.Request{Type: "prep", Duration: 30 * time.Minute, BeforeEvent: "review"})

			Convey("Then it ends when the review starts", func() {
				So(err, ShouldBeNil)
				So(res.Block.Start, ShouldEqual, at(13, 30))
				So(res.Block.End, ShouldEqual, at(14, 0))
				So(res.Block.Title, ShouldEqual, "Preparation Time - Before Design Review")
				So(res.Message, ShouldEqual, "Created 30-minute prep block")
				So(cal.created[0].Description, ShouldEqual, "Meeting preparation\n\nCreated by Calmate Assistant")
			})
		})

		Convey("When placing travel after the review", func() {
			res, err := p.Create(ctx, timeblock.Request{Type: "travel", Duration: 20 * time.Minute, AfterEvent: "REVIEW"})

			Convey("Then it starts when the review ends and is in transit", func() {
				So(err, ShouldBeNil)
				So(res.Block.Start, ShouldEqual, at(15, 0))
				So(res.Block.Title, ShouldEqual, "Travel Time - After Design Review")
				So(cal.created[0].Location, ShouldEqual, timeblock.TransitLocation)
			})
		})

		Convey("When the anchor does not exist", func() {
			_, err := p.Create(ctx, timeblock.Request{Type: "focus", Duration: time.Hour, BeforeEvent: "offsite"})
			So(errors.Is(err, apperr.ErrNotFound), ShouldBeTrue)
			So(cal.created, ShouldBeEmpty)
		})

		Convey("When no placement is given", func() {
			res, err := p.Create(ctx, timeblock.Request{Type: "focus", Duration: time.Hour})

			Convey("Then the first free slot today is used", func() {
				So(err, ShouldBeNil)
				So(res.Block.Start, ShouldEqual, at(10, 0))
				So(res.Block.Title, ShouldEqual, "Focus Time")
				So(finder.day, ShouldEqual, at(0, 0))
			})
		})

		Convey("When an exact start is given", func() {
			res, err := p.Create(ctx, timeblock.Request{Type: "lunch", Duration: 45 * time.Minute, Date: "2025-03-11T12:15:00Z"})
			So(err, ShouldBeNil)
			So(res.Block.Start, ShouldEqual, time.Date(2025, 3, 11, 12, 15, 0, 0, time.UTC))
			So(res.Block.Duration, ShouldEqual, 45)
		})

		Convey("When the day has no room", func() {
			finder.slots = nil
			_, err := p.Create(ctx, timeblock.Request{Type: "focus", Duration: time.Hour, Date: "2025-03-12"})
			So(errors.Is(err, apperr.ErrNotFound), ShouldBeTrue)
			So(finder.day, ShouldEqual, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC))
		})

		Convey("When the type is unknown", func() {
			res, err := p.Create(ctx, timeblock.Request{Type: "gym", Duration: time.Hour})
			So(err, ShouldBeNil)
			So(res.Block.Title, ShouldEqual, "gym")
			So(cal.created[0].Description, ShouldEqual, "Created by Calmate Assistant")
		})

		Convey("When the duration is missing", func() {
			_, err := p.Create(ctx, timeblock.Request{Type: "focus"})
			So(errors.Is(err, apperr.ErrInvalidArguments), ShouldBeTrue)
		})
	})
}
