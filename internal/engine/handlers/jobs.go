package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"clowder-server/internal/engine"
	"clowder-server/internal/job"
	"clowder-server/internal/middleware"
	"clowder-server/internal/shared/errors"
	"clowder-server/internal/shared/response"
)

type JobsHandler struct {
	engine *engine.Engine
}

func NewJobsHandler(e *engine.Engine) *JobsHandler {
	return &JobsHandler{engine: e}
}

type requestJobRequest struct {
	Kind string `json:"kind"`
}

// Request files a new job for the colony on the visitor's behalf.
// Ritual requests come back as {requested:true} instead of a job id.
func (h *JobsHandler) Request(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "request_job")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetSessionFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("no visitor session found in context"))
		return
	}

	var req requestJobRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	result, err := h.engine.RequestJob(ctx, claims.SessionID, claims.Nickname, job.Kind(req.Kind))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, result)
}

// Boost applies one click boost, shaving seconds off the addressed
// job's completion time.
func (h *JobsHandler) Boost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "boost_job")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetSessionFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("no visitor session found in context"))
		return
	}

	jobID := r.PathValue("id")
	if jobID == "" {
		response.Error(w, r, logger, errors.Validation("job id is required"))
		return
	}

	result, err := h.engine.ClickBoostJob(ctx, claims.SessionID, claims.Nickname, jobID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}
