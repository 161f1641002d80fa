// Package timeblock places focus, break, travel, prep and lunch blocks on the
// calendar.
package timeblock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/internal/domain/freetime"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/internal/domain/window"
)

// SearchWindow bounds the lookup of an anchor event.
const SearchWindow = 30 * 24 * time.Hour

// TransitLocation is set on travel blocks.
const TransitLocation = "In Transit"

// Kind describes a block type.
type Kind struct {
	Title       string
	Description string
}

var kinds = map[string]Kind{
	"focus":  {Title: "Focus Time", Description: "Deep work - no interruptions"},
	"break":  {Title: "Break", Description: "Rest and recharge"},
	"travel": {Title: "Travel Time", Description: "Time to get to next location"},
	"prep":   {Title: "Preparation Time", Description: "Meeting preparation"},
	"lunch":  {Title: "Lunch Break", Description: "Meal time"},
}

// Lookup returns the kind for blockType. Unknown types use their own name as
// the title.
func Lookup(blockType string) Kind {
	if k, ok := kinds[strings.ToLower(strings.TrimSpace(blockType))]; ok {
		return k
	}
	return Kind{Title: blockType}
}

// Request describes a block to create.
type Request struct {
	Type     string
	Duration time.Duration
	// Date is an RFC 3339 start, or a calendar day whose first free slot is
	// used. Blank means the first free slot today.
	Date        string
	BeforeEvent string
	AfterEvent  string
}

// Block is the created block.
type Block struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Duration int       `json:"duration"`
}

// Result is what create_time_blocks reports.
type Result struct {
	Message string `json:"message"`
	Block   Block  `json:"block"`
}

// Calendar is the gateway subset the planner needs.
type Calendar interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]model.Event, error)
	CreateEvent(ctx context.Context, in model.EventInput) (model.Event, error)
}

// SlotFinder finds free slots.
type SlotFinder interface {
	Find(ctx context.Context, req freetime.Request) (freetime.Result, error)
}

// Planner resolves a block's placement and creates it.
type Planner struct {
	calendar  Calendar
	finder    SlotFinder
	loc       *time.Location
	now       func() time.Time
	signature string
}

// NewPlanner builds a Planner. signature ends every block description.
func NewPlanner(calendar Calendar, finder SlotFinder, loc *time.Location, now func() time.Time, signature string) *Planner {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Planner{calendar: calendar, finder: finder, loc: loc, now: now, signature: signature}
}

// Create places and creates the block.
func (p *Planner) Create(ctx context.Context, req Request) (Result, error) {
	const op = "timeblock.create"
	if strings.TrimSpace(req.Type) == "" {
		return Result{}, apperr.Invalid(op, "blockType is required")
	}
	if req.Duration <= 0 {
		return Result{}, apperr.Invalid(op, "duration must be positive")
	}

	kind := Lookup(req.Type)
	title := kind.Title
	var start time.Time

	switch {
	case req.BeforeEvent != "" || req.AfterEvent != "":
		query, before := req.BeforeEvent, true
		if query == "" {
			query, before = req.AfterEvent, false
		}
		anchor, err := p.findAnchor(ctx, query)
		if err != nil {
			return Result{}, err
		}
		if before {
			start = anchor.Start.Add(-req.Duration)
			title = fmt.Sprintf("%s - Before %s", kind.Title, anchor.Title)
		} else {
			start = anchor.End
			title = fmt.Sprintf("%s - After %s", kind.Title, anchor.Title)
		}
	default:
		var err error
		if start, err = p.resolveStart(ctx, req); err != nil {
			return Result{}, err
		}
	}

	in := model.EventInput{
		Title:       title,
		Start:       start,
		End:         start.Add(req.Duration),
		Description: strings.TrimLeft(kind.Description+"\n\n"+p.signature, "\n"),
	}
	if strings.EqualFold(req.Type, "travel") {
		in.Location = TransitLocation
	}
	created, err := p.calendar.CreateEvent(ctx, in)
	if err != nil {
		return Result{}, err
	}

	minutes := int(req.Duration / time.Minute)
	return Result{
		Message: fmt.Sprintf("Created %d-minute %s block", minutes, req.Type),
		Block: Block{
			ID:       created.ID,
			Type:     req.Type,
			Title:    created.Title,
			Start:    created.Start,
			End:      created.End,
			Duration: minutes,
		},
	}, nil
}

func (p *Planner) findAnchor(ctx context.Context, query string) (model.Event, error) {
	const op = "timeblock.find_anchor"
	now := p.now()
	events, err := p.calendar.ListEvents(ctx, now, now.Add(SearchWindow))
	if err != nil {
		return model.Event{}, err
	}
	q := strings.ToLower(query)
	for _, e := range events {
		if strings.Contains(strings.ToLower(e.Title), q) {
			return e, nil
		}
	}
	return model.Event{}, apperr.NotFound(op, fmt.Sprintf("Event not found: %s", query))
}

func (p *Planner) resolveStart(ctx context.Context, req Request) (time.Time, error) {
	const op = "timeblock.resolve_start"
	if req.Date != "" {
		if ts, err := time.Parse(time.RFC3339, req.Date); err == nil {
			return ts, nil
		}
	}
	day, err := window.ParseDate(req.Date, p.now(), p.loc)
	if err != nil {
		return time.Time{}, err
	}
	res, err := p.finder.Find(ctx, freetime.Request{Day: day, Duration: req.Duration})
	if err != nil {
		return time.Time{}, err
	}
	if len(res.FreeSlots) == 0 {
		return time.Time{}, apperr.NotFound(op, "No available time slots found")
	}
	return res.FreeSlots[0].Start, nil
}
