package middleware

import (
	"log/slog"
	"net/http"

	"clowder-server/internal/shared/config"
	"clowder-server/internal/shared/errors"
	"clowder-server/internal/shared/response"
)

// TickTokenMiddleware guards the operational endpoints (tick, test
// acceleration) behind the shared X-Tick-Token secret. An empty
// configured token disables the guard, which the config layer only
// permits outside production.
func TickTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "tick_token",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		expected := config.GlobalConfig.Colony.TickToken
		if expected == "" {
			logger.Debug("Tick token guard disabled, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		provided := r.Header.Get("X-Tick-Token")
		if provided == "" {
			response.Error(w, r, logger, errors.Unauthorized("tick token required"))
			return
		}

		if provided != expected {
			logger.Warn("Rejected request with invalid tick token")
			response.Error(w, r, logger, errors.Forbidden("invalid tick token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
