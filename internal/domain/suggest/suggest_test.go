package suggest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/freetime"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/internal/domain/suggest"
	"github.com/okian/calmate/internal/domain/window"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeFinder struct {
	slots map[string][]model.FreeSlot
	err   error
	days  []string
}

func (f *fakeFinder) Find(_ context.Context, req freetime.Request) (freetime.Result, error) {
	if f.err != nil {
		return freetime.Result{}, f.err
	}
	key := window.DayKey(req.Day)
	f.days = append(f.days, key)
	return freetime.Result{Date: key, FreeSlots: f.slots[key]}, nil
}

func slot(day, h, m, minutes int) model.FreeSlot {
	start := time.Date(2025, 3, day, h, m, 0, 0, time.UTC)
	return model.NewFreeSlot(start, start.Add(time.Duration(minutes)*time.Minute))
}

func day(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

func TestSuggest(t *testing.T) {
	Convey("Given a finder with slots on two days", t, func() {
		finder := &fakeFinder{slots: map[string][]model.FreeSlot{
			"2025-03-10": {slot(10, 12, 0, 240)},
			"2025-03-11": {slot(11, 9, 0, 60), slot(11, 10, 30, 60), slot(11, 14, 0, 120), slot(11, 16, 0, 60)},
		}}
		s := suggest.New(finder)
		ctx := context.Background()

		Convey("When avoiding lunch", func() {
			res, err := s.Suggest(ctx, suggest.Request{
				Attendees:  []string{"a@example.com"},
				Duration:   30 * time.Minute,
				Dates:      []time.Time{day(10), day(11)},
				AvoidLunch: true,
			})

			Convey("Then the lunch-only day contributes nothing", func() {
				So(err, ShouldBeNil)
				for _, sg := range res.Suggestions {
					So(sg.Date, ShouldNotEqual, "2025-03-10")
				}
			})

			Convey("And suggestions are ranked by score", func() {
				So(len(res.Suggestions), ShouldEqual, 4)
				So(res.Suggestions[0].Start.Hour(), ShouldEqual, 10)
				So(res.Suggestions[0].Score, ShouldEqual, 110)
				So(res.Suggestions[1].Start.Hour(), ShouldEqual, 14)
				So(res.Suggestions[1].Score, ShouldEqual, 105)
				So(res.Suggestions[2].Start.Hour(), ShouldEqual, 9)
				So(res.Suggestions[3].Start.Hour(), ShouldEqual, 16)
			})

			Convey("And each suggestion spans the requested duration", func() {
				for _, sg := range res.Suggestions {
					So(sg.End.Sub(sg.Start), ShouldEqual, 30*time.Minute)
				}
			})

			Convey("And the note and criteria are reported", func() {
				So(res.Note, ShouldEqual, suggest.Note)
				So(res.SearchCriteria.Duration, ShouldEqual, 30)
				So(res.SearchCriteria.Attendees, ShouldResemble, []string{"a@example.com"})
				So(res.SearchCriteria.Dates, ShouldResemble, []string{"2025-03-10", "2025-03-11"})
			})
		})

		Convey("When lunch is allowed", func() {
			res, err := s.Suggest(ctx, suggest.Request{Duration: 30 * time.Minute, Dates: []time.Time{day(10)}})
			So(err, ShouldBeNil)
			So(len(res.Suggestions), ShouldEqual, 1)
			So(res.Suggestions[0].Reason, ShouldEqual, "Mid-day slot")
		})
	})

	Convey("Given more candidates than the cap", t, func() {
		slots := []model.FreeSlot{}
		for h := 9; h <= 16; h++ {
			slots = append(slots, slot(11, h, 0, 30))
		}
		finder := &fakeFinder{slots: map[string][]model.FreeSlot{"2025-03-11": slots}}
		res, err := suggest.New(finder).Suggest(context.Background(), suggest.Request{Dates: []time.Time{day(11)}, AvoidLunch: true})

		Convey("Then at most five are returned", func() {
			So(err, ShouldBeNil)
			So(len(res.Suggestions), ShouldEqual, suggest.MaxSuggestions)
		})
	})

	Convey("Given no dates", t, func() {
		finder := &fakeFinder{slots: map[string][]model.FreeSlot{}}
		thursday := time.Date(2025, 3, 13, 15, 0, 0, 0, time.UTC)
		s := suggest.New(finder, suggest.WithClock(func() time.Time { return thursday }))
		_, err := s.Suggest(context.Background(), suggest.Request{})

		Convey("Then the next five business days are searched in order", func() {
			So(err, ShouldBeNil)
			So(finder.days, ShouldResemble, []string{"2025-03-14", "2025-03-17", "2025-03-18", "2025-03-19", "2025-03-20"})
		})
	})

	Convey("Given a failing finder", t, func() {
		finder := &fakeFinder{err: errors.New("boom")}
		_, err := suggest.New(finder).Suggest(context.Background(), suggest.Request{Dates: []time.Time{day(11)}})
		So(errors.Is(err, apperr.ErrUpstreamUnavailable), ShouldBeTrue)
	})
}
