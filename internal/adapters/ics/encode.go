// Package ics renders events as an iCalendar document.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/okian/calmate/internal/domain/model"
)

// ProductID identifies documents written by this package.
const ProductID = "-//calmate//calendar export//EN"

// ContentType is the MIME type of an encoded document.
const ContentType = "text/calendar; charset=utf-8"

var partStat = map[string]string{
	"accepted":    "ACCEPTED",
	"declined":    "DECLINED",
	"tentative":   "TENTATIVE",
	"needsAction": "NEEDS-ACTION",
}

// Encode writes events as a VCALENDAR. stamp is used for DTSTAMP.
func Encode(w io.Writer, events []model.Event, stamp time.Time) error {
	// go-ical refuses a VCALENDAR without components.
	if len(events) == 0 {
		_, err := io.WriteString(w, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:"+ProductID+"\r\nEND:VCALENDAR\r\n")
		return err
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	for _, e := range events {
		cal.Children = append(cal.Children, toComponent(e, stamp))
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func toComponent(e model.Event, stamp time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, e.ID+"@calmate")
	ve.Props.SetText(ical.PropSummary, e.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	if e.IsAllDay {
		ve.Props.SetDate(ical.PropDateTimeStart, e.Start)
		ve.Props.SetDate(ical.PropDateTimeEnd, e.End)
	} else {
		ve.Props.SetDateTime(ical.PropDateTimeStart, e.Start.UTC())
		ve.Props.SetDateTime(ical.PropDateTimeEnd, e.End.UTC())
	}
	if e.Description != "" {
		ve.Props.SetText(ical.PropDescription, e.Description)
	}
	if e.Location != "" {
		ve.Props.SetText(ical.PropLocation, e.Location)
	}
	for _, a := range e.Attendees {
		if strings.TrimSpace(a.Email) == "" {
			continue
		}
		p := ical.NewProp(ical.PropAttendee)
		p.Value = "mailto:" + a.Email
		if ps, ok := partStat[a.ResponseStatus]; ok {
			p.Params.Set(ical.ParamParticipationStatus, ps)
		}
		ve.Props.Add(p)
	}
	return ve
}
