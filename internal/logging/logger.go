// Package logging builds the application logger. It writes to stderr (to
// keep stdout for task output) and standardizes common keys. When a run
// executes, logs are additionally fanned out to a log file under the
// output root.
package logging

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// LogFile is the name of the run log kept at the output root.
const LogFile = "hr.log"

// Level maps the -v count to a slog level: 0 warns, 1 informs, 2+ debugs.
func Level(verbose int) slog.Level {
	switch {
	case verbose <= 0:
		return slog.LevelWarn
	case verbose == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// New creates the stderr logger.
func New(verbose int) *slog.Logger {
	return slog.New(handler(os.Stderr, verbose))
}

// NewWithFile creates a logger that writes to stderr and tees every record
// to w (the run log). The file side always records at debug level.
func NewWithFile(verbose int, w io.Writer) *slog.Logger {
	return slog.New(slogmulti.Fanout(
		handler(os.Stderr, verbose),
		slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func handler(w io.Writer, verbose int) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: Level(verbose),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// standardize 'error' key to 'err'
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	})
}
