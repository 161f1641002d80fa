package window_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/window"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseHours(t *testing.T) {
	Convey("Given working-hour strings", t, func() {
		Convey("When both are blank", func() {
			h, err := window.ParseHours("", "")
			So(err, ShouldBeNil)
			So(h, ShouldResemble, window.DefaultHours)
		})

		Convey("When they are valid", func() {
			h, err := window.ParseHours("08:30", "18:15")
			So(err, ShouldBeNil)
			So(h.Start.String(), ShouldEqual, "08:30")
			So(h.End.String(), ShouldEqual, "18:15")
		})

		Convey("When end precedes start", func() {
			_, err := window.ParseHours("17:00", "09:00")
			So(errors.Is(err, apperr.ErrInvalidArguments), ShouldBeTrue)
		})

		Convey("When the format is wrong", func() {
			_, err := window.ParseHours("9am", "")
			So(errors.Is(err, apperr.ErrInvalidArguments), ShouldBeTrue)
		})
	})
}

func TestPeriod(t *testing.T) {
	Convey("Given a fixed now", t, func() {
		now := time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC)

		Convey("Then today is the whole calendar day", func() {
			from, to, err := window.Period("today", now)
			So(err, ShouldBeNil)
			So(from, ShouldEqual, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC))
			So(to, ShouldEqual, time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC))
		})

		Convey("Then tomorrow is the next calendar day", func() {
			from, _, err := window.Period("tomorrow", now)
			So(err, ShouldBeNil)
			So(from, ShouldEqual, time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC))
		})

		Convey("Then week and month start at now", func() {
			from, to, _ := window.Period("week", now)
			So(from, ShouldEqual, now)
			So(to, ShouldEqual, now.AddDate(0, 0, 7))
			_, to, _ = window.Period("month", now)
			So(to, ShouldEqual, time.Date(2025, 4, 12, 14, 30, 0, 0, time.UTC))
		})

		Convey("Then an unknown period is rejected", func() {
			_, _, err := window.Period("decade", now)
			So(errors.Is(err, apperr.ErrInvalidArguments), ShouldBeTrue)
		})

		Convey("Then an unknown range falls back to a week", func() {
			_, to := window.Range("fortnight", now)
			So(to, ShouldEqual, now.AddDate(0, 0, 7))
			So(window.RangeName("fortnight"), ShouldEqual, window.Week)
			So(window.RangeName("MONTH"), ShouldEqual, window.Month)
		})
	})
}

func TestNextBusinessDays(t *testing.T) {
	Convey("Given a Thursday", t, func() {
		now := time.Date(2025, 3, 13, 10, 0, 0, 0, time.UTC)
		days := window.NextBusinessDays(now, 5)

		Convey("Then weekends are skipped", func() {
			So(len(days), ShouldEqual, 5)
			So(days[0].Weekday(), ShouldEqual, time.Friday)
			So(days[1].Weekday(), ShouldEqual, time.Monday)
			So(days[4].Weekday(), ShouldEqual, time.Thursday)
			So(days[0].Hour(), ShouldEqual, 0)
		})
	})
}

func TestParseDate(t *testing.T) {
	Convey("Given date strings", t, func() {
		now := time.Date(2025, 3, 13, 10, 0, 0, 0, time.UTC)

		Convey("Then blank means today", func() {
			d, err := window.ParseDate("", now, time.UTC)
			So(err, ShouldBeNil)
			So(window.DayKey(d), ShouldEqual, "2025-03-13")
		})

		Convey("Then an RFC 3339 timestamp is truncated to its day", func() {
			d, err := window.ParseDate("2025-03-20T15:00:00Z", now, time.UTC)
			So(err, ShouldBeNil)
			So(d, ShouldEqual, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC))
		})

		Convey("Then garbage is invalid", func() {
			_, err := window.ParseDate("next tuesday", now, time.UTC)
			So(errors.Is(err, apperr.ErrInvalidArguments), ShouldBeTrue)
		})

		Convey("Then local timestamps use the configured zone", func() {
			ts, err := window.ParseTimestamp("2025-03-20T15:00:00", time.UTC)
			So(err, ShouldBeNil)
			So(ts.Hour(), ShouldEqual, 15)
		})
	})
}
