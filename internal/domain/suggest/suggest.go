// Package suggest proposes ranked meeting start times from free slots.
package suggest

import (
	"context"
	"sort"
	"time"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/freetime"
	"github.com/okian/calmate/internal/domain/scoring"
	"github.com/okian/calmate/internal/domain/window"
)

// Tunables.
const (
	DefaultDays    = 5
	MaxSuggestions = 5
	lunchFromHour  = 12
	lunchToHour    = 13
)

// Note is attached to every result: only the caller's calendar is read.
const Note = "Suggestions are based on your calendar only. Attendee availability is not checked."

// Finder is the subset of the free-time finder the suggester needs.
type Finder interface {
	Find(ctx context.Context, req freetime.Request) (freetime.Result, error)
}

// Request describes a suggestion query.
type Request struct {
	Attendees []string
	Duration  time.Duration
	// Dates are the days to search; empty means the next business days.
	Dates      []time.Time
	Hours      window.Hours
	AvoidLunch bool
}

// Suggestion is one ranked candidate.
type Suggestion struct {
	Date   string    `json:"date"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Score  int       `json:"score"`
	Reason string    `json:"reason"`
}

// Criteria echoes what was searched.
type Criteria struct {
	Duration  int      `json:"duration"`
	Attendees []string `json:"attendees"`
	Earliest  string   `json:"earliestTime"`
	Latest    string   `json:"latestTime"`
	Dates     []string `json:"dates"`
}

// Result is what suggest_meeting_times reports.
type Result struct {
	Suggestions    []Suggestion `json:"suggestions"`
	SearchCriteria Criteria     `json:"searchCriteria"`
	Note           string       `json:"note"`
}

// Suggester ranks candidate starts across days.
type Suggester struct {
	finder Finder
	scorer scoring.Scorer
	now    func() time.Time
	loc    *time.Location
}

// Option configures a Suggester.
type Option func(*Suggester)

// WithScorer replaces the default rule scorer.
func WithScorer(s scoring.Scorer) Option {
	return func(sg *Suggester) {
		if s != nil {
			sg.scorer = s
		}
	}
}

// WithClock sets the time source used for default dates.
func WithClock(now func() time.Time) Option {
	return func(sg *Suggester) {
		if now != nil {
			sg.now = now
		}
	}
}

// WithLocation sets the zone default dates are computed in.
func WithLocation(loc *time.Location) Option {
	return func(sg *Suggester) {
		if loc != nil {
			sg.loc = loc
		}
	}
}

// New builds a Suggester.
func New(finder Finder, opts ...Option) *Suggester {
	s := &Suggester{
		finder: finder,
		scorer: scoring.NewRuleScorer(),
		now:    time.Now,
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Suggest queries each date in order and returns the best candidates.
func (s *Suggester) Suggest(ctx context.Context, req Request) (Result, error) {
	const op = "suggest.suggest"
	if req.Duration < 0 {
		return Result{}, apperr.Invalid(op, "duration must be positive")
	}
	if req.Duration == 0 {
		req.Duration = freetime.DefaultDuration
	}
	if req.Hours == (window.Hours{}) {
		req.Hours = window.DefaultHours
	}
	dates := req.Dates
	if len(dates) == 0 {
		dates = window.NextBusinessDays(s.now().In(s.loc), DefaultDays)
	}

	candidates := make([]Suggestion, 0)
	searched := make([]string, 0, len(dates))
	for _, day := range dates {
		res, err := s.finder.Find(ctx, freetime.Request{Day: day, Duration: req.Duration, Hours: req.Hours})
		if err != nil {
			return Result{}, apperr.Wrap(op, apperr.ErrUpstreamUnavailable, err)
		}
		searched = append(searched, res.Date)
		for _, slot := range res.FreeSlots {
			hour := slot.Start.Hour()
			if req.AvoidLunch && hour >= lunchFromHour && hour <= lunchToHour {
				continue
			}
			scored := s.scorer.Score(scoring.Input{Start: slot.Start})
			candidates = append(candidates, Suggestion{
				Date:   res.Date,
				Start:  slot.Start,
				End:    slot.Start.Add(req.Duration),
				Score:  scored.Score,
				Reason: scored.Reason,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > MaxSuggestions {
		candidates = candidates[:MaxSuggestions]
	}

	attendees := req.Attendees
	if attendees == nil {
		attendees = []string{}
	}
	return Result{
		Suggestions: candidates,
		SearchCriteria: Criteria{
			Duration:  int(req.Duration / time.Minute),
			Attendees: attendees,
			Earliest:  req.Hours.Start.String(),
			Latest:    req.Hours.End.String(),
			Dates:     searched,
		},
		Note: Note,
	}, nil
}
