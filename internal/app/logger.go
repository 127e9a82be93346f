package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

func parseLevel(levelStr string) slog.Level {
	switch levelStr {
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

// newLogger creates and configures a new slog.Logger instance. It does not
// set the global logger, allowing for isolated logger instances. Extra
// handlers receive every record alongside the primary one.
func newLogger(levelStr, formatStr string, outW io.Writer, extra ...slog.Handler) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(levelStr)}
	var handler slog.Handler

	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	if len(extra) == 0 {
		return slog.New(handler)
	}
	return slog.New(slogmulti.Fanout(append([]slog.Handler{handler}, extra...)...))
}

// extraHandlers opens the optional log file and journal sinks named by cfg.
// The returned closers release the log file.
func extraHandlers(cfg *Config, warnW io.Writer) ([]slog.Handler, []io.Closer, error) {
	var (
		handlers []slog.Handler
		closers  []io.Closer
	)
	level := parseLevel(cfg.LogLevel)

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		closers = append(closers, f)
	}

	if cfg.LogJournal {
		journal, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: level,
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			// A missing journal socket is reported and skipped.
			h := slog.NewTextHandler(warnW, nil)
			record := slog.NewRecord(time.Now(), slog.LevelWarn, "systemd journal unavailable", 0)
			record.Add("error", err)
			_ = h.Handle(context.Background(), record)
		} else {
			handlers = append(handlers, journal)
		}
	}
	return handlers, closers, nil
}

// toJournalKey maps an attribute key to the upper-case form journald
// accepts.
func toJournalKey(key string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToUpper(key))
}
