// Package recurrence builds RFC 5545 recurrence rules from a small spec and
// previews their occurrences.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/okian/calmate/internal/domain/apperr"
)

// Frequencies.
const (
	Daily   = "daily"
	Weekly  = "weekly"
	Monthly = "monthly"
)

// UntilWinsWarning is reported when both until and count are supplied.
const UntilWinsWarning = "both until and count were given; until takes precedence and count was ignored"

const untilLayout = "20060102T150405Z"

var frequencies = map[string]rrule.Frequency{
	Daily:   rrule.DAILY,
	Weekly:  rrule.WEEKLY,
	Monthly: rrule.MONTHLY,
}

// weekdays is indexed 0=Sunday .. 6=Saturday.
var weekdays = [7]struct {
	code string
	day  rrule.Weekday
}{
	{"SU", rrule.SU},
	{"MO", rrule.MO},
	{"TU", rrule.TU},
	{"WE", rrule.WE},
	{"TH", rrule.TH},
	{"FR", rrule.FR},
	{"SA", rrule.SA},
}

// Spec describes a recurrence.
type Spec struct {
	Frequency  string
	Interval   int
	Until      *time.Time
	Count      int
	DaysOfWeek []int
}

// Rule is a built recurrence rule.
type Rule struct {
	// Text is the rule body without the "RRULE:" prefix.
	Text     string
	Warnings []string
	option   rrule.ROption
}

// Line returns the rule as an RFC 5545 content line.
func (r Rule) Line() string { return "RRULE:" + r.Text }

// Build validates spec and produces its rule.
func Build(spec Spec) (Rule, error) {
	const op = "recurrence.build"
	freqName := strings.ToLower(strings.TrimSpace(spec.Frequency))
	freq, ok := frequencies[freqName]
	if !ok {
		return Rule{}, apperr.Invalid(op, fmt.Sprintf("unsupported frequency %q; want daily, weekly or monthly", spec.Frequency))
	}
	if spec.Interval < 0 {
		return Rule{}, apperr.Invalid(op, "interval must not be negative")
	}
	if spec.Count < 0 {
		return Rule{}, apperr.Invalid(op, "count must not be negative")
	}

	opt := rrule.ROption{Freq: freq}
	parts := []string{"FREQ=" + strings.ToUpper(freqName)}
	var warnings []string

	if spec.Interval > 1 {
		opt.Interval = spec.Interval
		parts = append(parts, "INTERVAL="+strconv.Itoa(spec.Interval))
	}

	switch {
	case spec.Until != nil:
		until := spec.Until.UTC().Truncate(time.Second)
		opt.Until = until
		parts = append(parts, "UNTIL="+until.Format(untilLayout))
		if spec.Count > 0 {
			warnings = append(warnings, UntilWinsWarning)
		}
	case spec.Count > 0:
		opt.Count = spec.Count
		parts = append(parts, "COUNT="+strconv.Itoa(spec.Count))
	}

	if freq == rrule.WEEKLY && len(spec.DaysOfWeek) > 0 {
		seen := map[int]bool{}
		codes := make([]string, 0, len(spec.DaysOfWeek))
		for _, d := range spec.DaysOfWeek {
			if d < 0 || d > 6 {
				return Rule{}, apperr.Invalid(op, fmt.Sprintf("day of week %d out of range 0..6", d))
			}
			if seen[d] {
				continue
			}
			seen[d] = true
			codes = append(codes, weekdays[d].code)
			opt.Byweekday = append(opt.Byweekday, weekdays[d].day)
		}
		parts = append(parts, "BYDAY="+strings.Join(codes, ","))
	}

	return Rule{Text: strings.Join(parts, ";"), Warnings: warnings, option: opt}, nil
}

// Preview returns up to n occurrences of rule starting at dtstart.
func Preview(rule Rule, dtstart time.Time, n int) ([]time.Time, error) {
	const op = "recurrence.preview"
	opt := rule.option
	opt.Dtstart = dtstart
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.ErrInvalidArguments, err)
	}
	out := make([]time.Time, 0, n)
	next := r.Iterator()
	for len(out) < n {
		t, ok := next()
		if !ok {
			break
		}
		out = append(out, t)
	}
	return out, nil
}
