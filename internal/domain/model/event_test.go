package model_test

import (
	"testing"
	"time"

	model "github.com/okian/calmate/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestEvent(t *testing.T) {
	convey.Convey("Given an Event struct", t, func() {
		start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

		convey.Convey("When it spans ninety minutes", func() {
			event := model.Event{ID: "e1", Title: "Standup", Start: start, End: start.Add(90 * time.Minute)}

			convey.Convey("Then duration and minutes agree", func() {
				convey.So(event.Duration(), convey.ShouldEqual, 90*time.Minute)
				convey.So(event.Minutes(), convey.ShouldEqual, 90)
			})
		})

		convey.Convey("When matching a query", func() {
			event := model.Event{Title: "Dentist Appointment", Description: "Bring insurance card"}

			convey.Convey("Then title and description match ignoring case", func() {
				convey.So(event.Matches("dentist"), convey.ShouldBeTrue)
				convey.So(event.Matches("INSURANCE"), convey.ShouldBeTrue)
				convey.So(event.Matches("gym"), convey.ShouldBeFalse)
			})

			convey.Convey("And a blank query matches nothing", func() {
				convey.So(event.Matches("  "), convey.ShouldBeFalse)
			})
		})
	})
}

func TestSortByStart(t *testing.T) {
	convey.Convey("Given unordered events", t, func() {
		base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
		events := []model.Event{
			{ID: "c", Start: base.Add(2 * time.Hour)},
			{ID: "a", Start: base},
			{ID: "b1", Start: base.Add(time.Hour)},
			{ID: "b2", Start: base.Add(time.Hour)},
		}

		convey.Convey("When taking a sorted copy", func() {
			sorted := model.SortedCopy(events)

			convey.Convey("Then the copy is ordered and stable", func() {
				ids := []string{sorted[0].ID, sorted[1].ID, sorted[2].ID, sorted[3].ID}
				convey.So(ids, convey.ShouldResemble, []string{"a", "b1", "b2", "c"})
			})

			convey.Convey("And the input is untouched", func() {
				convey.So(events[0].ID, convey.ShouldEqual, "c")
			})
		})
	})
}

func TestFreeSlot(t *testing.T) {
	convey.Convey("Given slot bounds", t, func() {
		start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
		slot := model.NewFreeSlot(start, start.Add(45*time.Minute))

		convey.Convey("Then the duration is derived from the bounds", func() {
			convey.So(slot.DurationMinutes, convey.ShouldEqual, 45)
			convey.So(slot.End, convey.ShouldEqual, start.Add(45*time.Minute))
		})
	})

	convey.Convey("Given bounds that end mid-minute", t, func() {
		start := time.Date(2025, 3, 10, 10, 0, 30, 0, time.UTC)
		slot := model.NewFreeSlot(start, time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC))

		convey.Convey("Then the partial minute is dropped from the end", func() {
			convey.So(slot.DurationMinutes, convey.ShouldEqual, 419)
			convey.So(slot.End, convey.ShouldEqual, time.Date(2025, 3, 10, 16, 59, 30, 0, time.UTC))
			convey.So(slot.End.Sub(slot.Start), convey.ShouldEqual, time.Duration(slot.DurationMinutes)*time.Minute)
		})
	})
}

func TestCredential(t *testing.T) {
	convey.Convey("Given a stored credential", t, func() {
		now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
		cred := model.Credential{UserID: "u1", AccessToken: "old", RefreshToken: "r1", ExpiresAt: now.Add(-time.Minute)}

		convey.Convey("Then it is expired and refreshable", func() {
			convey.So(cred.Expired(now), convey.ShouldBeTrue)
			convey.So(cred.CanRefresh(), convey.ShouldBeTrue)
		})

		convey.Convey("When applying a refresh without rotation", func() {
			next := cred.Apply(model.RefreshedToken{AccessToken: "new", ExpiresAt: now.Add(time.Hour)})

			convey.Convey("Then the refresh token is kept", func() {
				convey.So(next.AccessToken, convey.ShouldEqual, "new")
				convey.So(next.RefreshToken, convey.ShouldEqual, "r1")
				convey.So(next.Expired(now), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the expiry is unknown", func() {
			cred.ExpiresAt = time.Time{}

			convey.Convey("Then it never counts as expired", func() {
				convey.So(cred.Expired(now), convey.ShouldBeFalse)
			})
		})
	})
}

func TestEventPatch(t *testing.T) {
	convey.Convey("Given an event patch", t, func() {
		convey.So(model.EventPatch{}.Empty(), convey.ShouldBeTrue)
		title := "New"
		convey.So(model.EventPatch{Title: &title}.Empty(), convey.ShouldBeFalse)
	})
}
