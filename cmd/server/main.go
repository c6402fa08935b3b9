package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clowder-server/internal/balance"
	"clowder-server/internal/engine"
	"clowder-server/internal/middleware"
	"clowder-server/internal/presence"
	"clowder-server/internal/server"
	"clowder-server/internal/shared/config"
	"clowder-server/internal/shared/database"
	"clowder-server/internal/shared/logger"
	"clowder-server/internal/shared/redis"
	"clowder-server/internal/store"
	"clowder-server/internal/store/memory"
	"clowder-server/internal/store/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.Init(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init()

	cfg := config.GlobalConfig
	log := slog.With("component", "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bal, err := balance.Load(cfg.Colony.BalancePath)
	if err != nil {
		return fmt.Errorf("failed to load balance tables: %w", err)
	}

	var st store.Store
	var db *database.DB
	switch cfg.Store.Driver {
	case "postgres":
		db, err = database.Connect(ctx)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		st = postgres.New(db, slog.Default())
	default:
		st = memory.New(slog.Default())
		log.Warn("Using in-memory store, colony state is lost on restart")
	}
	defer st.Close()

	rdb, err := redis.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	eng := engine.New(st, bal, slog.Default())
	eng.OnlineWindow = cfg.Colony.OnlineWindow
	if rdb != nil {
		eng.Presence = presence.NewTracker(rdb, slog.Default())
	}

	if _, err := eng.Bootstrap(ctx, cfg.Colony.Seed); err != nil {
		return fmt.Errorf("failed to bootstrap colony: %w", err)
	}

	if cfg.Colony.TickInterval > 0 {
		go runTicker(ctx, eng, cfg.Colony.TickInterval)
	} else {
		log.Info("Internal ticker disabled, expecting external tick calls")
	}

	routes := server.NewRoutes(db, rdb, eng, slog.Default())
	mux := routes.Setup()

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)
	corsMiddleware := middleware.NewCORS()
	handler := corsMiddleware.Middleware(rateLimiter.Middleware(mux))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Clowder server listening",
			"port", cfg.Server.Port,
			"environment", cfg.Server.Environment,
			"store", cfg.Store.Driver,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}

	return nil
}

// runTicker drives the simulation on the configured cadence. A failed
// tick rolls back and is simply retried on the next beat.
func runTicker(ctx context.Context, eng *engine.Engine, interval time.Duration) {
	log := slog.With("component", "ticker")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("Internal ticker started", "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			log.Info("Internal ticker stopped")
			return
		case <-ticker.C:
			if _, err := eng.Tick(ctx); err != nil {
				log.Error("Tick failed", "error", err)
			}
		}
	}
}
