// Package logging sets up the process-wide slog.Logger the cmd/ tools
// and the mem/domain packages log through, grounded in the retrieval
// pack's utils/log package: a slog.TextHandler writing to an
// io.MultiWriter of stdout and a log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Init opens logPath (creating it if necessary) and installs a
// slog.TextHandler writing to both stdout and that file as the default
// logger, at the given level. Passing an empty logPath logs to stdout
// only.
func Init(logPath string, level slog.Level) (*slog.Logger, error) {
	w := io.Writer(os.Stdout)
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("logging: open %s: %w", logPath, err)
		}
		w = io.MultiWriter(os.Stdout, f)
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, nil
}

// LevelFromString converts a config-file level name to a slog.Level,
// defaulting to Info with an error on anything unrecognized.
func LevelFromString(s string) (slog.Level, error) {
	switch s {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q, using INFO", s)
	}
}
