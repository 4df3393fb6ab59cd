package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the process-wide logger. Production keeps JSON output
// lean; everywhere else the handler records call sites so log lines point
// back into the workflow code.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: cfg == nil || !cfg.IsProduction()}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", "meridian"))
}
