// Package obslog wires the ambient cmd/ binaries' structured logging. The
// kernel packages (q18, canon, khash, record, merkle, budget, slab,
// verifier) never import this package — they never log (spec §7: "The
// kernel never logs to any sink; the caller owns observability").
package obslog

import (
	"log/slog"
	"os"
)

// New returns a slog.Logger at the given level ("debug", "info", "warn",
// or "error"), writing structured text to stderr. Callers are expected
// to have already validated level with config.Validate.
func New(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
