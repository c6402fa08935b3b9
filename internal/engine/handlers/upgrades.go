package handlers

import (
	"log/slog"
	"net/http"

	"clowder-server/internal/engine"
	"clowder-server/internal/middleware"
	"clowder-server/internal/shared/errors"
	"clowder-server/internal/shared/response"
)

type UpgradesHandler struct {
	engine *engine.Engine
}

func NewUpgradesHandler(e *engine.Engine) *UpgradesHandler {
	return &UpgradesHandler{engine: e}
}

// Purchase spends global upgrade points on the addressed upgrade key.
func (h *UpgradesHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "purchase_upgrade")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetSessionFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("no visitor session found in context"))
		return
	}

	key := r.PathValue("key")
	if key == "" {
		response.Error(w, r, logger, errors.Validation("upgrade key is required"))
		return
	}

	result, err := h.engine.PurchaseUpgrade(ctx, claims.SessionID, claims.Nickname, key)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}
