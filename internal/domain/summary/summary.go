// Package summary condenses a period of the calendar into counts and stats.
package summary

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

const (
	listedEvents   = 5
	upcomingEvents = 3
)

// BusiestDay is the day with the most events.
type BusiestDay struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Stats are computed when requested.
type Stats struct {
	TotalMeetingTime     int           `json:"totalMeetingTime"`
	AverageEventDuration int           `json:"averageEventDuration"`
	BusiestDay           *BusiestDay   `json:"busiestDay"`
	UpcomingEvents       []model.Event `json:"upcomingEvents"`
}

// Result is what get_schedule_summary reports.
type Result struct {
	Period      string        `json:"period"`
	From        time.Time     `json:"from"`
	To          time.Time     `json:"to"`
	TotalEvents int           `json:"totalEvents"`
	Events      []model.Event `json:"events"`
	Stats       *Stats        `json:"stats,omitempty"`
}

// Summarize builds the summary of events as seen at now.
func Summarize(events []model.Event, now time.Time, includeStats bool, loc *time.Location) Result {
	if loc == nil {
		loc = time.UTC
	}
	sorted := model.SortedCopy(events)
	listed := sorted
	if len(listed) > listedEvents {
		listed = listed[:listedEvents]
	}
	r := Result{TotalEvents: len(sorted), Events: listed}
	if !includeStats {
		return r
	}

	var total time.Duration
	counts := map[string]int{}
	upcoming := make([]model.Event, 0, upcomingEvents)
	for _, e := range sorted {
		total += e.Duration()
		counts[window.DayKey(e.Start.In(loc))]++
		if e.Start.After(now) && len(upcoming) < upcomingEvents {
			upcoming = append(upcoming, e)
		}
	}

	avg := 0
	if len(sorted) > 0 {
		avg = int(math.Round(total.Minutes() / float64(len(sorted))))
	}

	r.Stats = &Stats{
		TotalMeetingTime:     int(total / time.Minute),
		AverageEventDuration: avg,
		BusiestDay:           busiest(counts),
		UpcomingEvents:       upcoming,
	}
	return r
}

// busiest picks the day with the strictly highest count; ties keep the
// earliest day.
func busiest(counts map[string]int) *BusiestDay {
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	var best *BusiestDay
	for _, d := range days {
		if best == nil || counts[d] > best.Count {
			best = &BusiestDay{Day: d, Count: counts[d]}
		}
	}
	return best
}

// EventSource lists events overlapping [from, to).
type EventSource interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]model.Event, error)
}

// Summarizer resolves a period, fetches it and summarizes it.
type Summarizer struct {
	source EventSource
	loc    *time.Location
	now    func() time.Time
}

// NewSummarizer builds a Summarizer. now may be nil for wall-clock time.
func NewSummarizer(source EventSource, loc *time.Location, now func() time.Time) *Summarizer {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Summarizer{source: source, loc: loc, now: now}
}

// Summary summarizes period: today, tomorrow, week or month.
func (s *Summarizer) Summary(ctx context.Context, period string, includeStats bool) (Result, error) {
	const op = "summary.summary"
	now := s.now().In(s.loc)
	from, to, err := window.Period(period, now)
	if err != nil {
		return Result{}, err
	}
	events, err := s.source.ListEvents(ctx, from, to)
	if err != nil {
		return Result{}, apperr.Wrap(op, apperr.ErrUpstreamUnavailable, err)
	}
	r := Summarize(events, now, includeStats, s.loc)
	r.Period = strings.ToLower(strings.TrimSpace(period))
	if r.Period == "" {
		r.Period = window.Today
	}
	r.From, r.To = from, to
	return r, nil
}
