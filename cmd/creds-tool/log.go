package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"hermannm.dev/devlog"
)

var level slog.LevelVar

func init() {
	slog.SetDefault(slog.New(devlog.NewHandler(os.Stderr, &devlog.Options{
		Level: &level,
	})))
}

// setLogLevel parses debug, info, warn or error.
func setLogLevel(s string) error {
	switch strings.ToLower(s) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info", "":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn or error)", s)
	}
	return nil
}
