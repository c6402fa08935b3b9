package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"clowder-server/internal/engine"
	"clowder-server/internal/middleware"
	"clowder-server/internal/shared/errors"
	"clowder-server/internal/shared/response"
)

type SessionHandler struct {
	engine *engine.Engine
}

func NewSessionHandler(e *engine.Engine) *SessionHandler {
	return &SessionHandler{engine: e}
}

type sessionRequest struct {
	Nickname string `json:"nickname"`
}

// Register names the visitor session and upserts its player row. The
// refreshed token carries the nickname so later requests identify the
// player without another round trip.
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "register_session")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetSessionFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("no visitor session found in context"))
		return
	}

	var req sessionRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	nickname := strings.TrimSpace(req.Nickname)
	if len(nickname) > 32 {
		response.Error(w, r, logger, errors.Validation("nickname must be 32 characters or fewer"))
		return
	}

	registered, err := h.engine.RegisterSession(ctx, claims.SessionID, nickname)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	token, err := middleware.GenerateSessionToken(claims.SessionID, registered.Nickname)
	if err != nil {
		response.Error(w, r, logger, errors.WrapInternal("failed to refresh session token", err))
		return
	}
	middleware.SetSessionCookie(w, token)

	response.Success(w, http.StatusOK, registered)
}
