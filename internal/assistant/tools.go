// Package assistant exposes the scheduling components to a tool-calling
// language model: tool declarations, argument validation, dispatch and the
// chat turn loop.
package assistant

import (
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Tool names understood by the dispatcher.
const (
	GetCalendarEvents        = "get_calendar_events"
	CreateCalendarEvent      = "create_calendar_event"
	DeleteCalendarEvent      = "delete_calendar_event"
	FindAndDeleteEvents      = "find_and_delete_events"
	UpdateCalendarEvent      = "update_calendar_event"
	FindFreeTime             = "find_free_time"
	GetScheduleSummary       = "get_schedule_summary"
	CreateRecurringEvent     = "create_recurring_event"
	SuggestMeetingTimes      = "suggest_meeting_times"
	AnalyzeScheduleConflicts = "analyze_schedule_conflicts"
	CreateTimeBlocks         = "create_time_blocks"
	GetLocationInsights      = "get_location_insights"
)

// Declaration is a tool the model may call.
type Declaration struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

func str(desc string) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.String, Description: desc}
}

func num(desc string) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.Number, Description: desc}
}

func boolean(desc string) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.Boolean, Description: desc}
}

func object(props map[string]jsonschema.Definition, required ...string) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.Object, Properties: props, Required: required}
}

var declarations = []Declaration{
	{
		Name:        GetCalendarEvents,
		Description: "Get calendar events for a specific date range",
		Parameters: object(map[string]jsonschema.Definition{
			"timeMin": str("Start date in ISO format (optional, defaults to now)"),
			"timeMax": str("End date in ISO format (optional, defaults to 30 days from now)"),
		}),
	},
	{
		Name:        CreateCalendarEvent,
		Description: "Create a new calendar event",
		Parameters: object(map[string]jsonschema.Definition{
			"title":       str("Event title"),
			"start":       str("Event start date and time in ISO format"),
			"end":         str("Event end date and time in ISO format"),
			"description": str("Event description (optional)"),
			"location":    str("Event location (optional)"),
		}, "title", "start", "end"),
	},
	{
		Name:        DeleteCalendarEvent,
		Description: "Delete a calendar event by ID",
		Parameters: object(map[string]jsonschema.Definition{
			"eventId": str("The ID of the event to delete"),
		}, "eventId"),
	},
	{
		Name:        FindAndDeleteEvents,
		Description: "Find and delete events by title, date, or description. Safer than deleting by ID.",
		Parameters: object(map[string]jsonschema.Definition{
			"searchQuery":   str("Search term to match in event title or description"),
			"dateFilter":    str("Optional date to filter events (ISO format)"),
			"confirmDelete": boolean("Set to true to actually delete, false to just preview what would be deleted"),
		}, "searchQuery"),
	},
	{
		Name:        UpdateCalendarEvent,
		Description: "Update an existing calendar event by finding it first",
		Parameters: object(map[string]jsonschema.Definition{
			"searchQuery": str("Search term to find the event to update"),
			"updates": object(map[string]jsonschema.Definition{
				"title":       str("New title"),
				"start":       str("New start in ISO format"),
				"end":         str("New end in ISO format"),
				"description": str("New description"),
				"location":    str("New location"),
			}),
		}, "searchQuery", "updates"),
	},
	{
		Name:        FindFreeTime,
		Description: "Find available time slots between events for scheduling",
		Parameters: object(map[string]jsonschema.Definition{
			"date":     str("Date to check for free time (ISO format, optional - defaults to today)"),
			"duration": num("Duration needed in minutes (optional - defaults to 60)"),
			"workingHours": object(map[string]jsonschema.Definition{
				"start": str("Start of working hours, HH:MM (default 09:00)"),
				"end":   str("End of working hours, HH:MM (default 17:00)"),
			}),
		}),
	},
	{
		Name:        GetScheduleSummary,
		Description: "Get a summary of the schedule for a period with optional statistics",
		Parameters: object(map[string]jsonschema.Definition{
			"period": {
				Type:        jsonschema.String,
				Description: "Period to summarize (defaults to today)",
				Enum:        []string{"today", "tomorrow", "week", "month"},
			},
			"includeStats": boolean("Include meeting time statistics (defaults to true)"),
		}),
	},
	{
		Name:        CreateRecurringEvent,
		Description: "Create a recurring calendar event",
		Parameters: object(map[string]jsonschema.Definition{
			"title":       str("Event title"),
			"start":       str("First occurrence start in ISO format"),
			"end":         str("First occurrence end in ISO format"),
			"description": str("Event description (optional)"),
			"location":    str("Event location (optional)"),
			"recurrence": object(map[string]jsonschema.Definition{
				"frequency": {
					Type:        jsonschema.String,
					Description: "How often the event repeats",
					Enum:        []string{"daily", "weekly", "monthly"},
				},
				"interval": num("Repeat every N periods (default 1)"),
				"until":    str("Last date of the series in ISO format"),
				"count":    num("Number of occurrences"),
				"daysOfWeek": {
					Type:        jsonschema.Array,
					Description: "Weekdays for weekly events, 0=Sunday through 6=Saturday",
					Items:       &jsonschema.Definition{Type: jsonschema.Number},
				},
			}, "frequency"),
		}, "title", "start", "end", "recurrence"),
	},
	{
		Name:        SuggestMeetingTimes,
		Description: "Suggest the best meeting times over the coming days",
		Parameters: object(map[string]jsonschema.Definition{
			"attendees": {
				Type:        jsonschema.Array,
				Description: "Attendee email addresses",
				Items:       &jsonschema.Definition{Type: jsonschema.String},
			},
			"duration": num("Meeting length in minutes"),
			"preferredDates": {
				Type:        jsonschema.Array,
				Description: "Dates to consider (ISO format, optional - defaults to the next 5 business days)",
				Items:       &jsonschema.Definition{Type: jsonschema.String},
			},
			"timePreferences": object(map[string]jsonschema.Definition{
				"earliestTime": str("Earliest start, HH:MM"),
				"latestTime":   str("Latest end, HH:MM"),
				"avoidLunch":   boolean("Skip starts between 12:00 and 13:59 (defaults to true)"),
			}),
		}, "attendees", "duration"),
	},
	{
		Name:        AnalyzeScheduleConflicts,
		Description: "Detect overlapping meetings, back-to-back meetings and travel-time problems",
		Parameters: object(map[string]jsonschema.Definition{
			"timeRange": {
				Type:        jsonschema.String,
				Description: "Range to analyze (defaults to week)",
				Enum:        []string{"week", "month"},
			},
			"includeTravel": boolean("Warn about short gaps between different locations"),
		}),
	},
	{
		Name:        CreateTimeBlocks,
		Description: "Block out time for focus, breaks, travel, preparation or lunch",
		Parameters: object(map[string]jsonschema.Definition{
			"blockType": {
				Type:        jsonschema.String,
				Description: "Kind of block",
				Enum:        []string{"focus", "break", "travel", "prep", "lunch"},
			},
			"duration":    num("Block length in minutes"),
			"date":        str("Start time or day in ISO format (optional - defaults to the first free slot today)"),
			"beforeEvent": str("Place the block right before the event matching this title"),
			"afterEvent":  str("Place the block right after the event matching this title"),
		}, "blockType", "duration"),
	},
	{
		Name:        GetLocationInsights,
		Description: "Analyze where events take place and how much travel they need",
		Parameters: object(map[string]jsonschema.Definition{
			"timeRange": {
				Type:        jsonschema.String,
				Description: "Range to analyze (defaults to week)",
				Enum:        []string{"week", "month"},
			},
			"homeLocation": str("The user's home location, used for travel estimates"),
		}),
	},
}

var declarationIndex = func() map[string]Declaration {
	m := make(map[string]Declaration, len(declarations))
	for _, d := range declarations {
		m[d.Name] = d
	}
	return m
}()

// Declarations returns every tool declaration in a stable order.
func Declarations() []Declaration {
	out := make([]Declaration, len(declarations))
	copy(out, declarations)
	return out
}

// Lookup returns the declaration named name.
func Lookup(name string) (Declaration, bool) {
	d, ok := declarationIndex[name]
	return d, ok
}

// Tools renders the declarations for a chat-completions request.
func Tools() []openai.Tool {
	out := make([]openai.Tool, 0, len(declarations))
	for _, d := range declarations {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}
