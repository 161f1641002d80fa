// Package llm talks to an OpenAI-compatible chat-completions endpoint with
// tool calling. Gemini's compatible endpoint is the default.
package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/pkg/logger"
	"github.com/okian/calmate/pkg/metrics"
)

// Defaults for the Gemini OpenAI-compatible endpoint.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultModel   = "gemini-2.5-flash"
)

// Client completes chat transcripts.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	log         logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*settings)

type settings struct {
	baseURL     string
	model       string
	temperature float32
	httpClient  *http.Client
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(s *settings) {
		if u != "" {
			s.baseURL = u
		}
	}
}

// WithModel selects the model.
func WithModel(m string) Option {
	return func(s *settings) {
		if m != "" {
			s.model = m
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(s *settings) {
		if t >= 0 {
			s.temperature = t
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// New builds a client authenticated with apiKey.
func New(apiKey string, opts ...Option) *Client {
	s := settings{baseURL: DefaultBaseURL, model: DefaultModel, temperature: 0.3}
	for _, opt := range opts {
		opt(&s)
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = s.baseURL
	if s.httpClient != nil {
		cfg.HTTPClient = s.httpClient
	}
	return &Client{
		api:         openai.NewClientWithConfig(cfg),
		model:       s.model,
		temperature: s.temperature,
		log:         logger.Get().Named("llm"),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends the transcript and the tool declarations and returns the
// model's next message.
func (c *Client) Complete(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	const op = "llm.complete"
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Tools:       tools,
		Temperature: c.temperature,
	})
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordModelRequest("error", elapsed)
		c.log.Warn(ctx, "model request failed", logger.String("model", c.model), logger.Error(err))
		return openai.ChatCompletionMessage{}, classify(op, err)
	}
	if len(resp.Choices) == 0 {
		metrics.RecordModelRequest("empty", elapsed)
		return openai.ChatCompletionMessage{}, apperr.New(op, apperr.ErrUpstreamUnavailable, "model returned no choices")
	}
	metrics.RecordModelRequest("ok", elapsed)
	c.log.Debug(ctx, "model replied",
		logger.String("model", c.model),
		logger.Int("tool_calls", len(resp.Choices[0].Message.ToolCalls)),
		logger.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Choices[0].Message, nil
}

func classify(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusBadRequest {
		return apperr.Wrap(op, apperr.ErrInvalidArguments, err)
	}
	return apperr.Wrap(op, apperr.ErrUpstreamUnavailable, err)
}
