// Package window resolves the time windows the scheduling components reason
// over: working hours, calendar days, summary periods and analysis ranges.
package window

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/calmate/internal/domain/apperr"
)

const dateLayout = "2006-01-02"

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" in 24h form.
func ParseClock(s string) (Clock, error) {
	const op = "window.parse_clock"
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return Clock{}, apperr.Invalid(op, fmt.Sprintf("invalid time of day %q; want HH:MM", s))
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// MustClock is ParseClock for constants.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

func (c Clock) minutes() int { return c.Hour*60 + c.Minute }

// On places the clock on the calendar day of day, in day's location.
func (c Clock) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}

// Hours is a working-hours window within a day.
type Hours struct {
	Start Clock
	End   Clock
}

// DefaultHours is 09:00-17:00.
var DefaultHours = Hours{Start: Clock{Hour: 9}, End: Clock{Hour: 17}}

// ParseHours parses a start/end pair; blanks fall back to DefaultHours.
func ParseHours(start, end string) (Hours, error) {
	h := DefaultHours
	var err error
	if strings.TrimSpace(start) != "" {
		if h.Start, err = ParseClock(start); err != nil {
			return Hours{}, err
		}
	}
	if strings.TrimSpace(end) != "" {
		if h.End, err = ParseClock(end); err != nil {
			return Hours{}, err
		}
	}
	if h.End.minutes() <= h.Start.minutes() {
		return Hours{}, apperr.Invalid("window.parse_hours", fmt.Sprintf("working hours end %s must be after start %s", h.End, h.Start))
	}
	return h, nil
}

// On returns the concrete bounds of the window on day.
func (h Hours) On(day time.Time) (time.Time, time.Time) {
	return h.Start.On(day), h.End.On(day)
}

// Day returns the calendar day containing t as [midnight, next midnight).
func Day(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 and returns midnight of that day
// in loc. A blank string yields today.
func ParseDate(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		start, _ := Day(now.In(loc))
		return start, nil
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		start, _ := Day(t.In(loc))
		return start, nil
	}
	return time.Time{}, apperr.Invalid("window.parse_date", fmt.Sprintf("invalid date %q; want YYYY-MM-DD", s))
}

// ParseTimestamp parses an RFC 3339 timestamp, falling back to a local
// "2006-01-02T15:04:05" form interpreted in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Invalid("window.parse_timestamp", fmt.Sprintf("invalid timestamp %q; want RFC 3339", s))
}

// DayKey formats the calendar day of t.
func DayKey(t time.Time) string { return t.Format(dateLayout) }

// Period names accepted by the schedule summary.
const (
	Today    = "today"
	Tomorrow = "tomorrow"
	Week     = "week"
	Month    = "month"
)

// Period resolves a summary period relative to now. Blank means today.
func Period(name string, now time.Time) (time.Time, time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Today:
		from, to := Day(now)
		return from, to, nil
	case Tomorrow:
		from, to := Day(now.AddDate(0, 0, 1))
		return from, to, nil
	case Week:
		return now, now.AddDate(0, 0, 7), nil
	case Month:
		return now, now.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, time.Time{}, apperr.Invalid("window.period", fmt.Sprintf("unknown period %q", name))
	}
}

// Range resolves an analysis range. Only "month" widens the window; every
// other value, blank included, means the next seven days.
func Range(name string, now time.Time) (time.Time, time.Time) {
	if strings.EqualFold(strings.TrimSpace(name), Month) {
		return now, now.AddDate(0, 1, 0)
	}
	return now, now.AddDate(0, 0, 7)
}

// RangeName normalizes a range name the way Range interprets it.
func RangeName(name string) string {
	if strings.EqualFold(strings.TrimSpace(name), Month) {
		return Month
	}
	return Week
}

// NextBusinessDays returns midnight of the next n weekdays, starting tomorrow.
func NextBusinessDays(now time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	day, _ := Day(now)
	for len(out) < n {
		day = day.AddDate(0, 0, 1)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out = append(out, day)
	}
	return out
}
