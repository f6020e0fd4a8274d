package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the JSON logger; log records emitted inside a traced
// request pick up trace_id/span_id via the wrapping TraceHandler.
func NewLogger(env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(NewTraceHandler(handler))
}
