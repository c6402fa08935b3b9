package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"clowder-server/internal/shared/database"
	"clowder-server/internal/shared/redis"
	"clowder-server/internal/shared/response"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Store     string `json:"store"`
	Presence  string `json:"presence"`
}

// HealthHandler reports liveness plus the state of the optional
// backends. db is nil when the colony runs on the memory store and
// rdb is nil when Redis presence tracking is disabled.
type HealthHandler struct {
	db  *database.DB
	rdb *redis.Client
}

func NewHealthHandler(db *database.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	storeStatus := "memory"
	if h.db != nil {
		storeStatus = "connected"
		if err := h.db.PingContext(r.Context()); err != nil {
			logger.Warn("Database ping failed", "error", err)
			storeStatus = "disconnected"
		}
	}

	presenceStatus := "memory"
	if h.rdb != nil {
		presenceStatus = "redis"
		if err := h.rdb.Ping(r.Context()).Err(); err != nil {
			logger.Warn("Redis ping failed", "error", err)
			presenceStatus = "disconnected"
		}
	}

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Store:     storeStatus,
		Presence:  presenceStatus,
	}

	response.Success(w, http.StatusOK, resp)
}
