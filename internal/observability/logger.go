package observability

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/lmittmann/tint"
)

// NewLogger builds the process logger on w and installs it as the slog
// default. Level names follow the shared service convention; format "text"
// renders colored human-readable lines and anything else emits JSON.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := levelOf(sharedobs.NewLogger(strings.TrimSpace(level), format))

	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		h = tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.DateTime,
		})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	}

	logger := slog.New(h).With("app", "precip-etl")
	slog.SetDefault(logger)
	return logger
}

// levelOf returns the lowest level l accepts.
func levelOf(l *slog.Logger) slog.Level {
	ctx := context.Background()
	for _, lvl := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn} {
		if l.Enabled(ctx, lvl) {
			return lvl
		}
	}
	return slog.LevelError
}
