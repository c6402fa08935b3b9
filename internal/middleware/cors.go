package middleware

import (
	"log/slog"
	"net/http"

	"clowder-server/internal/shared/config"

	"github.com/rs/cors"
)

type CORSMiddleware struct {
	*cors.Cors
}

// NewCORS builds the CORS layer for the browser client. The API is
// GET/POST only and rides on the session cookie, so credentials must be
// allowed and the origin list stays pinned to the configured frontend.
func NewCORS() *CORSMiddleware {
	cfg := config.GlobalConfig
	logger := slog.With("component", "cors", "operation", "setup")

	allowedOrigins := []string{cfg.Frontend.URL}
	allowedMethods := []string{"GET", "POST", "OPTIONS"}

	corsConfig := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   []string{"Content-Type", "X-Tick-Token"},
		AllowCredentials: true,
		Debug:            cfg.Frontend.CORSDebug,
	})

	logger.Info("CORS middleware configured",
		"allowed_origins", allowedOrigins,
		"allowed_methods", allowedMethods,
		"allow_credentials", true,
	)

	return &CORSMiddleware{corsConfig}
}

func (c *CORSMiddleware) Middleware(h http.Handler) http.Handler {
	return c.Cors.Handler(h)
}
