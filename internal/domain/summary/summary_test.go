package summary_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/internal/domain/summary"
	. "github.com/smartystreets/goconvey/convey"
)

func at(day, h, m int) time.Time { return time.Date(2025, 3, day, h, m, 0, 0, time.UTC) }

func TestSummarize(t *testing.T) {
	Convey("Given no events", t, func() {
		r := summary.Summarize(nil, at(10, 8, 0), true, time.UTC)

		Convey("Then the average is zero, not a division error", func() {
			So(r.TotalEvents, ShouldEqual, 0)
			So(r.Stats.AverageEventDuration, ShouldEqual, 0)
			So(r.Stats.TotalMeetingTime, ShouldEqual, 0)
			So(r.Stats.BusiestDay, ShouldBeNil)
			So(r.Stats.UpcomingEvents, ShouldBeEmpty)
		})
	})

	Convey("Given a week of events", t, func() {
		events := []model.Event{
			{ID: "1", Start: at(10, 9, 0), End: at(10, 10, 0)},
			{ID: "2", Start: at(11, 9, 0), End: at(11, 9, 30)},
			{ID: "3", Start: at(11, 11, 0), End: at(11, 11, 45)},
			{ID: "4", Start: at(12, 9, 0), End: at(12, 9, 20)},
			{ID: "5", Start: at(12, 13, 0), End: at(12, 14, 0)},
			{ID: "6", Start: at(13, 9, 0), End: at(13, 9, 15)},
		}
		now := at(11, 10, 0)

		Convey("When stats are included", func() {
			r := summary.Summarize(events, now, true, time.UTC)

			Convey("Then totals and the mean are computed", func() {
				So(r.TotalEvents, ShouldEqual, 6)
				So(r.Stats.TotalMeetingTime, ShouldEqual, 60+30+45+20+60+15)
				So(r.Stats.AverageEventDuration, ShouldEqual, 38)
			})

			Convey("And only five events are listed", func() {
				So(len(r.Events), ShouldEqual, 5)
				So(r.Events[0].ID, ShouldEqual, "1")
			})

			Convey("And the busiest day keeps the earliest of ties", func() {
				So(r.Stats.BusiestDay.Day, ShouldEqual, "2025-03-11")
				So(r.Stats.BusiestDay.Count, ShouldEqual, 2)
			})

			Convey("And up to three upcoming events follow now", func() {
				So(len(r.Stats.UpcomingEvents), ShouldEqual, 3)
				So(r.Stats.UpcomingEvents[0].ID, ShouldEqual, "3")
			})
		})

		Convey("When stats are excluded", func() {
			r := summary.Summarize(events, now, false, time.UTC)
			So(r.Stats, ShouldBeNil)
		})
	})
}

type fakeSource struct {
	from, to time.Time
	err      error
}

func (f *fakeSource) ListEvents(_ context.Context, from, to time.Time) ([]model.Event, error) {
	f.from, f.to = from, to
	return nil, f.err
}

func TestSummarizer(t *testing.T) {
	Convey("Given a summarizer with a fixed clock", t, func() {
		src := &fakeSource{}
		now := at(10, 15, 0)
		s := summary.NewSummarizer(src, time.UTC, func() time.Time { return now })

		Convey("When the period is blank", func() {
			r, err := s.Summary(context.Background(), "", true)
			So(err, ShouldBeNil)
			So(r.Period, ShouldEqual, "today")
			So(src.from, ShouldEqual, at(10, 0, 0))
		})

		Convey("When the period is tomorrow", func() {
			_, err := s.Summary(context.Background(), "Tomorrow", true)
			So(err, ShouldBeNil)
			So(src.from, ShouldEqual, at(11, 0, 0))
			So(src.to, ShouldEqual, at(12, 0, 0))
		})

		Convey("When the period is unknown", func() {
			_, err := s.Summary(context.Background(), "year", true)
			So(errors.Is(err, apperr.ErrInvalidArguments), ShouldBeTrue)
		})

		Convey("When the source fails", func() {
			src.err = errors.New("boom")
			_, err := s.Summary(context.Background(), "week", true)
			So(errors.Is(err, apperr.ErrUpstreamUnavailable), ShouldBeTrue)
		})
	})
}
