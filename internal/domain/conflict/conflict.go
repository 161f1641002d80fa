// Package conflict inspects a schedule for overlaps, back-to-back meetings,
// tight travel gaps and overloaded days.
package conflict

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/internal/domain/window"
)

// Thresholds.
const (
	TravelBuffer  = 30 * time.Minute
	OverpackedDay = 8 * time.Hour
)

// Variant tags.
const (
	TypeOverlap    = "overlap"
	TypeBackToBack = "back-to-back"
	TypeTravelTime = "travel-time"
)

// Ref identifies an event inside a finding.
type Ref struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func refOf(e model.Event) Ref { return Ref{ID: e.ID, Title: e.Title, Start: e.Start, End: e.End} }

// Conflict is a hard overlap between two events.
type Conflict struct {
	Type           string `json:"type"`
	Event1         Ref    `json:"event1"`
	Event2         Ref    `json:"event2"`
	OverlapMinutes int    `json:"overlapMinutes"`
}

// Warning is a soft issue: back-to-back events or too little travel time.
type Warning struct {
	Type           string     `json:"type"`
	Event1         Ref        `json:"event1"`
	Event2         Ref        `json:"event2"`
	Time           *time.Time `json:"time,omitempty"`
	From           string     `json:"from,omitempty"`
	To             string     `json:"to,omitempty"`
	MinutesBetween int        `json:"minutesBetween,omitempty"`
	Suggestion     string     `json:"suggestion"`
}

// DayLoad is the scheduled time on one calendar day.
type DayLoad struct {
	Date       string  `json:"date"`
	Hours      float64 `json:"hours"`
	EventCount int     `json:"eventCount"`
}

// Summary aggregates a report.
type Summary struct {
	TotalEvents   int      `json:"totalEvents"`
	ConflictCount int      `json:"conflicts"`
	WarningCount  int      `json:"warnings"`
	HasConflicts  bool     `json:"hasConflicts"`
	HasWarnings   bool     `json:"hasWarnings"`
	BusiestDay    *DayLoad `json:"busiestDay"`
}

// Report is the output of a conflict analysis.
type Report struct {
	Range          string     `json:"range"`
	Conflicts      []Conflict `json:"conflicts"`
	Warnings       []Warning  `json:"warnings"`
	OverpackedDays []DayLoad  `json:"overpackedDays"`
	Summary        Summary    `json:"summary"`
}

// Analyze inspects adjacent pairs of the start-ordered events. All-day
// events take part with their full span. Day loads are attributed to the day
// each event starts on, in loc.
func Analyze(events []model.Event, includeTravel bool, loc *time.Location) Report {
	if loc == nil {
		loc = time.UTC
	}
	sorted := model.SortedCopy(events)

	r := Report{
		Conflicts:      make([]Conflict, 0),
		Warnings:       make([]Warning, 0),
		OverpackedDays: make([]DayLoad, 0),
	}

	for i := 0; i+1 < len(sorted); i++ {
		cur, next := sorted[i], sorted[i+1]
		switch {
		case cur.End.After(next.Start):
			end := cur.End
			if next.End.Before(end) {
				end = next.End
			}
			r.Conflicts = append(r.Conflicts, Conflict{
				Type:           TypeOverlap,
				Event1:         refOf(cur),
				Event2:         refOf(next),
				OverlapMinutes: roundMinutes(end.Sub(next.Start)),
			})
		case cur.End.Equal(next.Start):
			at := next.Start
			r.Warnings = append(r.Warnings, Warning{
				Type:       TypeBackToBack,
				Event1:     refOf(cur),
				Event2:     refOf(next),
				Time:       &at,
				Suggestion: "Consider adding buffer time",
			})
		case includeTravel && differentPlaces(cur.Location, next.Location) && next.Start.Sub(cur.End) < TravelBuffer:
			r.Warnings = append(r.Warnings, Warning{
				Type:           TypeTravelTime,
				Event1:         refOf(cur),
				Event2:         refOf(next),
				From:           cur.Location,
				To:             next.Location,
				MinutesBetween: roundMinutes(next.Start.Sub(cur.End)),
				Suggestion:     "May need more travel time between locations",
			})
		}
	}

	loads := dayLoads(sorted, loc)
	var busiest *DayLoad
	for i := range loads {
		if loads[i].Hours > OverpackedDay.Hours() {
			r.OverpackedDays = append(r.OverpackedDays, loads[i])
		}
		if busiest == nil || loads[i].Hours > busiest.Hours {
			busiest = &loads[i]
		}
	}

	r.Summary = Summary{
		TotalEvents:   len(sorted),
		ConflictCount: len(r.Conflicts),
		WarningCount:  len(r.Warnings),
		HasConflicts:  len(r.Conflicts) > 0,
		HasWarnings:   len(r.Warnings) > 0,
		BusiestDay:    busiest,
	}
	return r
}

func differentPlaces(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && b != "" && !strings.EqualFold(a, b)
}

func roundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}

// dayLoads returns per-day totals ordered by date.
func dayLoads(events []model.Event, loc *time.Location) []DayLoad {
	byDay := map[string]*DayLoad{}
	minutes := map[string]time.Duration{}
	for _, e := range events {
		key := window.DayKey(e.Start.In(loc))
		if byDay[key] == nil {
			byDay[key] = &DayLoad{Date: key}
		}
		byDay[key].EventCount++
		minutes[key] += e.Duration()
	}
	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]DayLoad, 0, len(keys))
	for _, k := range keys {
		d := byDay[k]
		d.Hours = math.Round(minutes[k].Hours()*10) / 10
		out = append(out, *d)
	}
	return out
}

// EventSource lists events overlapping [from, to).
type EventSource interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]model.Event, error)
}

// Analyzer runs Analyze over a named range fetched from a source.
type Analyzer struct {
	source EventSource
	loc    *time.Location
	now    func() time.Time
}

// NewAnalyzer builds an Analyzer. now may be nil for wall-clock time.
func NewAnalyzer(source EventSource, loc *time.Location, now func() time.Time) *Analyzer {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Analyzer{source: source, loc: loc, now: now}
}

// Analyze fetches the range ("week" or "month"; anything else is a week)
// and analyzes it.
func (a *Analyzer) Analyze(ctx context.Context, rangeName string, includeTravel bool) (Report, error) {
	const op = "conflict.analyze"
	from, to := window.Range(rangeName, a.now().In(a.loc))
	events, err := a.source.ListEvents(ctx, from, to)
	if err != nil {
		return Report{}, apperr.Wrap(op, apperr.ErrUpstreamUnavailable, err)
	}
	r := Analyze(events, includeTravel, a.loc)
	r.Range = window.RangeName(rangeName)
	return r, nil
}
