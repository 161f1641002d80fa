// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/pkg/logger"
)

// TokenStatusDependencies reports on a user's calendar credential.
type TokenStatusDependencies interface {
	TokenStatus(ctx context.Context, userID string) (model.TokenStatus, error)
}

// AuthHandler handles credential status requests.
type AuthHandler struct {
	deps TokenStatusDependencies
	log  logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(deps TokenStatusDependencies, log logger.Logger) *AuthHandler {
	return &AuthHandler{deps: deps, log: log}
}

// HandleTokenStatus handles GET /auth/token-status requests.
func (h *AuthHandler) HandleTokenStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	status, err := h.deps.TokenStatus(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
