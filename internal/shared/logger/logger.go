package logger

import (
	"log/slog"
	"os"

	"clowder-server/internal/shared/config"
)

// Init installs the process-wide logger. Production always emits JSON
// so the tick loop's structured output stays machine-readable; text
// format is a development convenience.
func Init() {
	if config.GlobalConfig == nil {
		panic("config must be initialized before logger")
	}

	cfg := config.GlobalConfig
	level := parseLogLevel(cfg.Logging.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Logging.JSONFormat || cfg.Server.Environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))

	slog.Debug("Logger initialized",
		"component", "logger",
		"level", level.String(),
		"environment", cfg.Server.Environment,
	)
}

// Unknown levels fall back to info; a ticking simulation at debug is
// too chatty to be a safe default.
func parseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
