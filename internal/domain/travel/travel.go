// Package travel derives location statistics and travel-time warnings from a
// schedule.
package travel

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/internal/domain/window"
)

// Tunables.
const (
	MinBuffer          = 30 * time.Minute
	topLocations       = 5
	clusteringTripsMin = 5
	homeOfficeMinutes  = 45
	defaultMinutes     = 30
	insufficientTime   = "Potentially insufficient travel time"
	notSpecified       = "Not specified"
	noLocation         = "None"
)

// Category is a coarse place type inferred from a location string.
type Category string

const (
	Office     Category = "office"
	Home       Category = "home"
	Restaurant Category = "restaurant"
	Meeting    Category = "meeting"
	Other      Category = "other"
)

var keywords = []struct {
	cat   Category
	words []string
}{
	{Office, []string{"office", "work", "building"}},
	{Home, []string{"home", "house"}},
	{Restaurant, []string{"restaurant", "cafe", "lunch"}},
	{Meeting, []string{"meeting", "conference", "zoom"}},
}

// Categorize returns the first category whose keyword occurs in location.
func Categorize(location string) Category {
	l := strings.ToLower(location)
	for _, k := range keywords {
		for _, w := range k.words {
			if strings.Contains(l, w) {
				return k.cat
			}
		}
	}
	return Other
}

// EstimateMinutes guesses the travel time between two locations.
func EstimateMinutes(from, to string) int {
	if strings.EqualFold(strings.TrimSpace(from), strings.TrimSpace(to)) {
		return 0
	}
	a, b := Categorize(from), Categorize(to)
	switch {
	case (a == Home && b == Office) || (a == Office && b == Home):
		return homeOfficeMinutes
	case a == Meeting || b == Meeting:
		return 0
	default:
		return defaultMinutes
	}
}

// LocationCount is one row of the top-locations table.
type LocationCount struct {
	Location   string `json:"location"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// Trip is a change of location between consecutive located events.
type Trip struct {
	From                string    `json:"from"`
	To                  string    `json:"to"`
	FromEvent           string    `json:"fromEvent"`
	ToEvent             string    `json:"toEvent"`
	Departure           time.Time `json:"departure"`
	TimeBetween         int       `json:"timeBetween"`
	SufficientTime      bool      `json:"sufficientTime"`
	EstimatedTravelTime int       `json:"estimatedTravelTime"`
	Warning             string    `json:"warning,omitempty"`
}

// Analysis aggregates the trips.
type Analysis struct {
	TotalTrips                int `json:"totalTrips"`
	TripsWithInsufficientTime int `json:"tripsWithInsufficientTime"`
	AverageTimeBetweenEvents  int `json:"averageTimeBetweenEvents"`
}

// Insights is what get_location_insights reports.
type Insights struct {
	Range                   string          `json:"range"`
	TotalEventsWithLocation int             `json:"totalEventsWithLocation"`
	UniqueLocations         int             `json:"uniqueLocations"`
	TopLocations            []LocationCount `json:"topLocations"`
	TravelAnalysis          Analysis        `json:"travelAnalysis"`
	Trips                   []Trip          `json:"trips"`
	Recommendations         []string        `json:"recommendations"`
	HomeLocation            string          `json:"homeLocation"`
	MostCommonLocation      string          `json:"mostCommonLocation"`
}

// Analyze builds insights from events. homeLocation is echoed back.
func Analyze(events []model.Event, homeLocation string) Insights {
	located := make([]model.Event, 0, len(events))
	for _, e := range events {
		if strings.TrimSpace(e.Location) != "" {
			located = append(located, e)
		}
	}
	model.SortByStart(located)

	in := Insights{
		TotalEventsWithLocation: len(located),
		TopLocations:            countLocations(located),
		Trips:                   make([]Trip, 0),
		HomeLocation:            homeLocation,
		MostCommonLocation:      noLocation,
	}
	if strings.TrimSpace(in.HomeLocation) == "" {
		in.HomeLocation = notSpecified
	}
	in.UniqueLocations = uniqueCount(located)
	if len(in.TopLocations) > 0 {
		in.MostCommonLocation = in.TopLocations[0].Location
	}

	var gapTotal int
	for i := 0; i+1 < len(located); i++ {
		cur, next := located[i], located[i+1]
		if strings.EqualFold(strings.TrimSpace(cur.Location), strings.TrimSpace(next.Location)) {
			continue
		}
		gap := int(math.Round(next.Start.Sub(cur.End).Minutes()))
		trip := Trip{
			From:                cur.Location,
			To:                  next.Location,
			FromEvent:           cur.Title,
			ToEvent:             next.Title,
			Departure:           cur.End,
			TimeBetween:         gap,
			SufficientTime:      gap >= int(MinBuffer/time.Minute),
			EstimatedTravelTime: EstimateMinutes(cur.Location, next.Location),
		}
		if !trip.SufficientTime {
			trip.Warning = insufficientTime
			in.TravelAnalysis.TripsWithInsufficientTime++
		}
		gapTotal += gap
		in.Trips = append(in.Trips, trip)
	}
	in.TravelAnalysis.TotalTrips = len(in.Trips)
	if len(in.Trips) > 0 {
		in.TravelAnalysis.AverageTimeBetweenEvents = int(math.Round(float64(gapTotal) / float64(len(in.Trips))))
	}
	in.Recommendations = recommend(in)
	return in
}

func uniqueCount(events []model.Event) int {
	seen := map[string]bool{}
	for _, e := range events {
		seen[strings.ToLower(strings.TrimSpace(e.Location))] = true
	}
	return len(seen)
}

// countLocations ranks locations by count; ties keep first appearance. The
// first-seen spelling of each location is reported.
func countLocations(events []model.Event) []LocationCount {
	index := map[string]int{}
	rows := make([]LocationCount, 0)
	for _, e := range events {
		key := strings.ToLower(strings.TrimSpace(e.Location))
		i, ok := index[key]
		if !ok {
			i = len(rows)
			index[key] = i
			rows = append(rows, LocationCount{Location: strings.TrimSpace(e.Location)})
		}
		rows[i].Count++
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	if len(rows) > topLocations {
		rows = rows[:topLocations]
	}
	for i := range rows {
		rows[i].Percentage = int(math.Round(float64(rows[i].Count) / float64(len(events)) * 100))
	}
	return rows
}

func recommend(in Insights) []string {
	out := make([]string, 0, 3)
	if len(in.TopLocations) > 0 {
		top := in.TopLocations[0]
		out = append(out, fmt.Sprintf("You spend most time at: %s (%d%% of events)", top.Location, top.Percentage))
	}
	if n := in.TravelAnalysis.TripsWithInsufficientTime; n > 0 {
		out = append(out, fmt.Sprintf("%d trips may need more travel time - consider adding buffer time", n))
	}
	if in.TravelAnalysis.TotalTrips > clusteringTripsMin {
		out = append(out, "Consider clustering meetings by location to reduce travel time")
	}
	if len(out) == 0 {
		out = append(out, "Your schedule looks well organized!")
	}
	return out
}

// EventSource lists events overlapping [from, to).
type EventSource interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]model.Event, error)
}

// Engine fetches a range and analyzes it.
type Engine struct {
	source EventSource
	loc    *time.Location
	now    func() time.Time
}

// NewEngine builds an Engine. now may be nil for wall-clock time.
func NewEngine(source EventSource, loc *time.Location, now func() time.Time) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{source: source, loc: loc, now: now}
}

// Insights analyzes "week" (default) or "month".
func (e *Engine) Insights(ctx context.Context, rangeName, homeLocation string) (Insights, error) {
	const op = "travel.insights"
	from, to := window.Range(rangeName, e.now().In(e.loc))
	events, err := e.source.ListEvents(ctx, from, to)
	if err != nil {
		return Insights{}, apperr.Wrap(op, apperr.ErrUpstreamUnavailable, err)
	}
	in := Analyze(events, homeLocation)
	in.Range = window.RangeName(rangeName)
	return in, nil
}
