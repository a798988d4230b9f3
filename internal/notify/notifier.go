// Package notify delivers scan lifecycle notifications. The default
// implementation only logs; richer channels plug in behind the same interface.
package notify

import (
	"context"
	"log/slog"
)

// Notifier announces that a scan reached a terminal state.
type Notifier interface {
	ScanFinished(ctx context.Context, scanID int64, status string, backlinks int)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) ScanFinished(ctx context.Context, scanID int64, status string, backlinks int) {
	slog.Info("scan finished",
		"scan_id", scanID,
		"status", status,
		"backlinks", backlinks,
	)
}
