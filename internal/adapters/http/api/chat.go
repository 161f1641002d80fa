// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/calmate/internal/assistant"
	"github.com/okian/calmate/internal/domain/apperr"
	"github.com/okian/calmate/pkg/logger"
)

// ChatDependencies runs assistant turns for a user.
type ChatDependencies interface {
	Chat(ctx context.Context, userID, message string, history []assistant.Message) (assistant.Reply, error)
}

// ChatHandler handles chat requests.
type ChatHandler struct {
	deps ChatDependencies
	log  logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(deps ChatDependencies, log logger.Logger) *ChatHandler {
	return &ChatHandler{deps: deps, log: log}
}

// chatRequest mirrors the OpenAPI schema for POST /chat.
type chatRequest struct {
	Message             string              `json:"message"`
	ConversationHistory []assistant.Message `json:"conversationHistory"`
}

// HandleChat handles POST /chat requests.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	const op = "api.chat"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(r.Context(), h.log, w, apperr.Wrap(op, apperr.ErrInvalidArguments, fmt.Errorf("%w: %v", ErrBadRequest, err)))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(r.Context(), h.log, w, apperr.Invalid(op, "message is required"))
		return
	}
	reply, err := h.deps.Chat(r.Context(), UserID(r.Context()), req.Message, req.ConversationHistory)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
