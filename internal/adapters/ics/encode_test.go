package ics_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"github.com/okian/calmate/internal/adapters/ics"
	"github.com/okian/calmate/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEncode(t *testing.T) {
	Convey("Given a timed and an all-day event", t, func() {
		stamp := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
		events := []model.Event{
			{
				ID: "e1", Title: "Planning", Location: "Room 4", Description: "Q2 goals",
				Start: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
				Attendees: []model.Attendee{{Email: "kim@example.com", ResponseStatus: "accepted"}, {Email: " "}},
			},
			{
				ID: "e2", Title: "Offsite", IsAllDay: true,
				Start: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
			},
		}

		var buf bytes.Buffer
		So(ics.Encode(&buf, events, stamp), ShouldBeNil)
		out := buf.String()

		Convey("Then the document carries both events", func() {
			So(out, ShouldStartWith, "BEGIN:VCALENDAR")
			So(strings.Count(out, "BEGIN:VEVENT"), ShouldEqual, 2)
			So(out, ShouldContainSubstring, "DTSTART:20250310T090000Z")
			So(out, ShouldContainSubstring, "DTSTART;VALUE=DATE:20250311")
			So(out, ShouldContainSubstring, "PARTSTAT=ACCEPTED")
			So(strings.Count(out, "ATTENDEE"), ShouldEqual, 1)
		})

		Convey("Then it decodes back", func() {
			cal, err := ical.NewDecoder(strings.NewReader(out)).Decode()
			So(err, ShouldBeNil)
			evs := cal.Events()
			So(len(evs), ShouldEqual, 2)
			summary, err := evs[0].Props.Text(ical.PropSummary)
			So(err, ShouldBeNil)
			So(summary, ShouldEqual, "Planning")
			loc, _ := evs[0].Props.Text(ical.PropLocation)
			So(loc, ShouldEqual, "Room 4")
		})
	})

	Convey("Given no events", t, func() {
		var buf bytes.Buffer
		So(ics.Encode(&buf, nil, time.Now()), ShouldBeNil)
		So(buf.String(), ShouldContainSubstring, "PRODID:"+ics.ProductID)
	})
}
