package entity

import "time"

// Job statuses. A queued job becomes running when claimed, then either
// completed, queued again with backoff, or dead once attempts exhaust.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusDead      = "dead"
)

// Job types the queue carries. The worker owns scan.run; the remaining types
// belong to external components that share the same queue.
const (
	JobTypeScanRun        = "scan.run"
	JobTypeWebhookDeliver = "webhook.deliver"
	JobTypeUpdaterCheck   = "updater.check"
	JobTypeUpdaterApply   = "updater.apply"
)

// Job mirrors the `jobs` table: one durable, at-least-once queue entry.
type Job struct {
	ID            int64
	Type          string
	Payload       []byte
	Status        string
	Attempts      int
	MaxAttempts   int
	AvailableAt   time.Time
	CorrelationID string
	LastError     *string
	LockedAt      *time.Time
	FinishedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ScanRunPayload is the JSON payload carried by scan.run jobs.
type ScanRunPayload struct {
	ScanID int64 `json:"scan_id"`
}
