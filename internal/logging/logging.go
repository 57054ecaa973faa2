// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Level picks the logger threshold. debug wins over quiet.
func Level(debug, quiet bool) slog.Level {
	switch {
	case debug:
		return slog.LevelDebug
	case quiet:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Setup installs a text logger on w (stderr when nil). Timestamps are
// dropped unless debugging; every command is a short-lived process.
func Setup(debug, quiet bool, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: Level(debug, quiet),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if !debug && len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, opts)))
}
