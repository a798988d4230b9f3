// Package logger installs the process-wide structured logger. Both binaries
// call Init once at startup and log through the slog default from then on.
package logger

import (
	"io"
	"log/slog"
)

// Init sets the slog default to a JSON handler at the given level. Attribute
// keys are renamed to timestamp/level/message to match the ingestion format
// the rest of the platform expects.
func Init(writer io.Writer, level slog.Level) {
	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: renameDefaultKeys,
	})
	slog.SetDefault(slog.New(handler))
}

func renameDefaultKeys(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.LevelKey:
		a.Key = "level"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}
