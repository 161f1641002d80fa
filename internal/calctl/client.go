// Package calctl implements the calctl developer CLI: an OAuth link flow that
// writes credentials and sessions to the local store, and commands that call
// the HTTP API with a session token.
package calctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/calmate/internal/assistant"
	"github.com/okian/calmate/internal/domain/model"
)

// APIError is a non-2xx response of the HTTP API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
	}
	return fmt.Sprintf("%d %s (%s): %s", e.Status, http.StatusText(e.Status), e.Code, e.Message)
}

// EventRequest is the body of POST /events.
type EventRequest struct {
	Title       string   `json:"title"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
}

// Client calls the HTTP API on behalf of a session.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Events lists events between from and to. Blank bounds use the server defaults.
func (c *Client) Events(ctx context.Context, from, to string) ([]model.Event, error) {
	var out struct {
		Events []model.Event `json:"events"`
	}
	err := c.do(ctx, http.MethodGet, "/events", window(from, to), nil, &out)
	return out.Events, err
}

// CreateEvent creates an event and returns it as stored.
func (c *Client) CreateEvent(ctx context.Context, req EventRequest) (model.Event, error) {
	var out model.Event
	err := c.do(ctx, http.MethodPost, "/events", nil, req, &out)
	return out, err
}

// DeleteEvent deletes an event and returns the outcome reported by the server.
func (c *Client) DeleteEvent(ctx context.Context, id string) (string, error) {
	var out struct {
		Success bool   `json:"success"`
		Outcome string `json:"outcome"`
	}
	err := c.do(ctx, http.MethodDelete, "/events", url.Values{"eventId": {id}}, nil, &out)
	return out.Outcome, err
}

// TokenStatus reports the state of the linked calendar token.
func (c *Client) TokenStatus(ctx context.Context) (model.TokenStatus, error) {
	var out model.TokenStatus
	err := c.do(ctx, http.MethodGet, "/auth/token-status", nil, nil, &out)
	return out, err
}

// Chat runs one assistant turn.
func (c *Client) Chat(ctx context.Context, message string, history []assistant.Message) (assistant.Reply, error) {
	body := struct {
		Message             string              `json:"message"`
		ConversationHistory []assistant.Message `json:"conversationHistory"`
	}{message, history}
	var out assistant.Reply
	err := c.do(ctx, http.MethodPost, "/chat", nil, body, &out)
	return out, err
}

// Export copies the iCalendar export of the window to w.
func (c *Client) Export(ctx context.Context, from, to string, w io.Writer) error {
	resp, err := c.send(ctx, http.MethodGet, "/events.ics", window(from, to), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func window(from, to string) url.Values {
	q := url.Values{}
	if from != "" {
		q.Set("timeMin", from)
	}
	if to != "" {
		q.Set("timeMax", to)
	}
	return q
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Code, apiErr.Message = body.Code, body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
