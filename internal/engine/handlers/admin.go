package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"clowder-server/internal/engine"
	"clowder-server/internal/shared/errors"
	"clowder-server/internal/shared/response"
)

type AdminHandler struct {
	engine *engine.Engine
}

func NewAdminHandler(e *engine.Engine) *AdminHandler {
	return &AdminHandler{engine: e}
}

// Tick advances the simulation once. Cron-style deployments call this
// on a fixed cadence instead of running the internal ticker.
func (h *AdminHandler) Tick(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "admin_tick")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	result, err := h.engine.Tick(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}

type accelerateRequest struct {
	Preset string `json:"preset"`
}

// Accelerate switches the time compression preset used by load and
// soak testing.
func (h *AdminHandler) Accelerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "admin_accelerate")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req accelerateRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	result, err := h.engine.SetTestAcceleration(ctx, req.Preset)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}
