// Package scoring ranks candidate meeting start times by time of day.
package scoring

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Default scoring configuration constants.
const (
	defaultBase       = 100
	latePenaltyFrom   = 17
	earlyPenaltyUntil = 8
	offHoursPenalty   = -20
	morningBonus      = 10
	afternoonBonus    = 5
	lastHour          = 23
)

// Rule adjusts the score of start hours in [FromHour, ToHour].
type Rule struct {
	FromHour int
	ToHour   int
	Delta    int
}

func (r Rule) covers(hour int) bool { return hour >= r.FromHour && hour <= r.ToHour }

// DefaultRules penalize starts before 9 or after 16, and favor late morning
// and early afternoon.
func DefaultRules() []Rule {
	return []Rule{
		{FromHour: 0, ToHour: earlyPenaltyUntil, Delta: offHoursPenalty},
		{FromHour: latePenaltyFrom, ToHour: lastHour, Delta: offHoursPenalty},
		{FromHour: 10, ToHour: 11, Delta: morningBonus},
		{FromHour: 14, ToHour: 15, Delta: afternoonBonus},
	}
}

// Option applies a configuration option to the RuleScorer.
type Option func(*RuleScorer)

// WithBase sets the score every candidate starts from.
func WithBase(base int) Option {
	return func(s *RuleScorer) {
		if base > 0 {
			s.base = base
		}
	}
}

// WithRules replaces the hour rules.
func WithRules(rules []Rule) Option {
	return func(s *RuleScorer) {
		if len(rules) > 0 {
			s.rules = append([]Rule(nil), rules...)
		}
	}
}

// WithHourAdjustmentsFromConfig builds rules from a config map keyed by an
// hour ("10") or an inclusive hour range ("10-11"). Malformed keys are
// skipped.
func WithHourAdjustmentsFromConfig(adjustments map[string]int) Option {
	return func(s *RuleScorer) {
		rules := make([]Rule, 0, len(adjustments))
		for key, delta := range adjustments {
			r, err := ParseRule(key, delta)
			if err != nil {
				continue
			}
			rules = append(rules, r)
		}
		if len(rules) > 0 {
			s.rules = rules
		}
	}
}

// ParseRule parses "H" or "H-H" into a rule.
func ParseRule(key string, delta int) (Rule, error) {
	from, to, found := strings.Cut(strings.TrimSpace(key), "-")
	if !found {
		to = from
	}
	fh, err1 := strconv.Atoi(strings.TrimSpace(from))
	th, err2 := strconv.Atoi(strings.TrimSpace(to))
	if err1 != nil || err2 != nil || fh < 0 || th > lastHour || fh > th {
		return Rule{}, fmt.Errorf("invalid hour range %q", key)
	}
	return Rule{FromHour: fh, ToHour: th, Delta: delta}, nil
}

// Input is one candidate start.
type Input struct {
	Start time.Time
}

// Result carries the score and a human-readable reason.
type Result struct {
	Score  int
	Reason string
}

// Scorer scores candidate meeting starts.
type Scorer interface {
	Score(in Input) Result
}

// RuleScorer implements Scorer with additive hour rules.
type RuleScorer struct {
	base  int
	rules []Rule
}

// NewRuleScorer creates a scorer with default base and rules.
func NewRuleScorer(opts ...Option) *RuleScorer {
	s := &RuleScorer{
		base:  defaultBase,
		rules: DefaultRules(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score applies every matching rule to the base score.
func (s *RuleScorer) Score(in Input) Result {
	hour := in.Start.Hour()
	score := s.base
	for _, r := range s.rules {
		if r.covers(hour) {
			score += r.Delta
		}
	}
	return Result{Score: score, Reason: Reason(hour)}
}

// Reason explains a start hour.
func Reason(hour int) string {
	switch {
	case hour >= 9 && hour <= 11:
		return "Morning - High energy time"
	case hour >= 14 && hour <= 16:
		return "Afternoon - Good for collaboration"
	case hour < 9:
		return "Early morning - Fewer conflicts"
	case hour > 16:
		return "Late afternoon - May conflict with end of day"
	default:
		return "Mid-day slot"
	}
}
