package main

import (
	"log/slog"

	"github.com/nemoria/mavrouter/internal/logging"
)

// setupLogger builds the process-wide slog.Logger from config and installs
// it as the package-global logger every other package reads through
// logging.L().
func setupLogger(cfg appConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	l := logging.New(cfg.logFormat, level, nil)
	logging.Set(l)
	return l
}
