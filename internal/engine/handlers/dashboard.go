package handlers

import (
	"log/slog"
	"net/http"

	"clowder-server/internal/engine"
	"clowder-server/internal/middleware"
	"clowder-server/internal/shared/errors"
	"clowder-server/internal/shared/response"
)

type DashboardHandler struct {
	engine *engine.Engine
}

func NewDashboardHandler(e *engine.Engine) *DashboardHandler {
	return &DashboardHandler{engine: e}
}

// Get returns the full colony read model. Viewing counts as presence
// for the online tally but never mutates colony state.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "dashboard")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	sessionID := ""
	if claims := middleware.GetSessionFromContext(r); claims != nil {
		sessionID = claims.SessionID
	}

	dashboard, err := h.engine.Dashboard(ctx, sessionID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, dashboard)
}
