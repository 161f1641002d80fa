package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/pkg/logger"
	"github.com/okian/calmate/pkg/metrics"
)

const (
	// DefaultMaxToolRounds bounds the tool rounds of a single turn.
	DefaultMaxToolRounds = 3
	// DefaultAssistantName is how the assistant introduces itself.
	DefaultAssistantName = "Calmate"

	emptyReply = "Sorry, I couldn't come up with a response. Could you rephrase that?"
)

// Engine completes a conversation, possibly requesting tool calls.
type Engine interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error)
}

// ToolRunner executes one tool call and returns its JSON payload.
type ToolRunner interface {
	Dispatch(ctx context.Context, name string, args json.RawMessage) json.RawMessage
}

// Message is one prior message of the conversation as the client sends it.
type Message struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

// Reply is the result of a chat turn.
type Reply struct {
	Message        string   `json:"message"`
	ConversationID string   `json:"conversationId"`
	ToolCalls      []string `json:"toolCalls,omitempty"`
}

// Chat runs conversation turns against an engine, answering its tool calls.
// The transcript lives only for the duration of a turn.
type Chat struct {
	engine    Engine
	runner    ToolRunner
	maxRounds int
	name      string
	now       func() time.Time
	loc       *time.Location
	log       logger.Logger
}

// NewChat builds a Chat.
func NewChat(engine Engine, runner ToolRunner, opts ...ChatOption) (*Chat, error) {
	if engine == nil {
		return nil, ErrNoEngine
	}
	if runner == nil {
		return nil, ErrNoRunner
	}
	c := &Chat{
		engine:    engine,
		runner:    runner,
		maxRounds: DefaultMaxToolRounds,
		name:      DefaultAssistantName,
		now:       time.Now,
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("chat")
	}
	return c, nil
}

func (c *Chat) systemPrompt() string {
	now := c.now().In(c.loc)
	return fmt.Sprintf(`You are %s, a helpful AI assistant that manages calendars. You can:
- View calendar events
- Create, update and delete events
- Find free time and suggest meeting times
- Summarize the schedule, detect conflicts and analyze travel between locations
- Create recurring events and time blocks

Always be helpful and conversational. When users ask about scheduling, proactively suggest times and help them create events.
Use ISO 8601 timestamps with an offset when calling tools.
Current date: %s (%s)`, c.name, now.Format(time.RFC3339), now.Weekday())
}

// transcript builds the request messages for a new turn.
func (c *Chat) transcript(message string, history []Message) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt()})
	for _, m := range history {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		role := openai.ChatMessageRoleAssistant
		if strings.EqualFold(m.Sender, "user") {
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})
}

// Turn answers message given the prior history. Every tool call the engine
// requests is answered in order; after the last allowed round the engine is
// asked again without tools so it must reply in text.
func (c *Chat) Turn(ctx context.Context, message string, history []Message) (Reply, error) {
	const op = "assistant.turn"
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, apperr.Invalid(op, "message is required")
	}

	msgs := c.transcript(message, history)
	tools := Tools()
	var called []string
	for round := 0; ; round++ {
		offered := tools
		if round >= c.maxRounds {
			offered = nil
		}
		resp, err := c.engine.Complete(ctx, msgs, offered)
		if err != nil {
			metrics.RecordChatTurn(apperr.Code(err), round)
			return Reply{}, apperr.Wrap(op, apperr.ErrUpstreamUnavailable, err)
		}
		if len(resp.ToolCalls) == 0 || offered == nil {
			text := strings.TrimSpace(resp.Content)
			if text == "" {
				text = emptyReply
			}
			metrics.RecordChatTurn("ok", round)
			c.log.Debug(ctx, "chat turn complete", logger.Int("rounds", round), logger.Int("tool_calls", len(called)))
			return Reply{Message: text, ConversationID: uuid.NewString(), ToolCalls: called}, nil
		}

		msgs = append(msgs, resp)
		for _, call := range resp.ToolCalls {
			called = append(called, call.Function.Name)
			payload := c.runner.Dispatch(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    string(payload),
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
		}
	}
}
