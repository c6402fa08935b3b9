package server

import (
	"log/slog"
	"net/http"

	"clowder-server/internal/engine"
	engineHandlers "clowder-server/internal/engine/handlers"
	"clowder-server/internal/middleware"
	serverHandlers "clowder-server/internal/server/handlers"
	"clowder-server/internal/shared/database"
	"clowder-server/internal/shared/redis"
)

type Routes struct {
	db     *database.DB
	rdb    *redis.Client
	engine *engine.Engine
	logger *slog.Logger
}

func NewRoutes(db *database.DB, rdb *redis.Client, eng *engine.Engine, logger *slog.Logger) *Routes {
	return &Routes{
		db:     db,
		rdb:    rdb,
		engine: eng,
		logger: logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.db, r.rdb)
	sessionHandler := engineHandlers.NewSessionHandler(r.engine)
	jobsHandler := engineHandlers.NewJobsHandler(r.engine)
	upgradesHandler := engineHandlers.NewUpgradesHandler(r.engine)
	dashboardHandler := engineHandlers.NewDashboardHandler(r.engine)
	streamHandler := engineHandlers.NewStreamHandler(r.engine)
	adminHandler := engineHandlers.NewAdminHandler(r.engine)

	// Public endpoints
	mux.Handle("/api/server/health", healthHandler)
	mux.HandleFunc("/api/colony/stream", streamHandler.Stream)

	// Visitor endpoints (session cookie minted on first contact)
	mux.Handle("/api/session", middleware.EnsureSession(http.HandlerFunc(sessionHandler.Register)))
	mux.Handle("/api/jobs", middleware.EnsureSession(http.HandlerFunc(jobsHandler.Request)))
	mux.Handle("/api/jobs/{id}/boost", middleware.EnsureSession(http.HandlerFunc(jobsHandler.Boost)))
	mux.Handle("/api/upgrades/{key}/purchase", middleware.EnsureSession(http.HandlerFunc(upgradesHandler.Purchase)))
	mux.Handle("/api/colony/dashboard", middleware.EnsureSession(http.HandlerFunc(dashboardHandler.Get)))

	// Operational endpoints (shared tick token)
	mux.Handle("/api/admin/tick", middleware.TickTokenMiddleware(http.HandlerFunc(adminHandler.Tick)))
	mux.Handle("/api/admin/accelerate", middleware.TickTokenMiddleware(http.HandlerFunc(adminHandler.Accelerate)))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/colony/stream"},
		"visitor_endpoints", []string{"/api/session", "/api/jobs", "/api/jobs/{id}/boost", "/api/upgrades/{key}/purchase", "/api/colony/dashboard"},
		"admin_endpoints", []string{"/api/admin/tick", "/api/admin/accelerate"},
	)

	return mux
}
