package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger. JSON if LOG_FORMAT=json else text.
func Init(service string) *slog.Logger {
	json := strings.EqualFold(os.Getenv("LOG_FORMAT"), "json")
	opts := &slog.HandlerOptions{Level: levelFromEnv()}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	logger.Info("logging initialized", "json", json)
	return logger
}

func levelFromEnv() slog.Leveler {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
