// Package telemetry records coarse product events. Tracking is best effort:
// it never returns an error and never blocks the caller.
package telemetry

import (
	"log/slog"

	"github.com/user/backlink-service/pkg/metrics"
)

// Tracker counts named events when enabled and is a no-op otherwise.
type Tracker struct {
	enabled bool
}

func New(enabled bool) *Tracker {
	return &Tracker{enabled: enabled}
}

// Track records one occurrence of the event.
func (t *Tracker) Track(event string, attrs map[string]string) {
	if !t.enabled {
		return
	}
	metrics.TelemetryEvents.WithLabelValues(event).Inc()

	args := make([]any, 0, 2*len(attrs))
	for k, v := range attrs {
		args = append(args, k, v)
	}
	slog.Debug("telemetry: "+event, args...)
}
