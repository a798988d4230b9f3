package entity

import "time"

// Scan statuses. Completed, failed and cancelled are terminal; no code path
// mutates a scan after it reaches one of them.
const (
	ScanStatusQueued    = "queued"
	ScanStatusRunning   = "running"
	ScanStatusCompleted = "completed"
	ScanStatusFailed    = "failed"
	ScanStatusCancelled = "cancelled"
)

// IsTerminalScanStatus reports whether a scan status permits no further transitions.
func IsTerminalScanStatus(status string) bool {
	return status == ScanStatusCompleted || status == ScanStatusFailed || status == ScanStatusCancelled
}

// Scan mirrors the `scans` table: one audit run over a set of target URLs.
type Scan struct {
	ID               int64
	ProjectID        int64
	RequestedBy      int64
	Status           string
	Provider         string
	RootDomain       string
	TotalTargets     int
	ProcessedTargets int
	CorrelationID    string
	ErrorSummary     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	StartedAt        *time.Time
	FinishedAt       *time.Time
}

// Target statuses.
const (
	TargetStatusQueued    = "queued"
	TargetStatusCompleted = "completed"
)

// ScanTarget mirrors the `scan_targets` table: a single URL queued inside a scan.
type ScanTarget struct {
	ID            int64
	ScanID        int64
	URL           string
	NormalizedURL string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ScanTrend compares a scan's aggregates against the previous completed scan
// of the same project.
type ScanTrend struct {
	HasPrevious    bool    `json:"has_previous"`
	PreviousScanID int64   `json:"previous_scan_id,omitempty"`
	DeltaBacklinks int     `json:"delta_backlinks"`
	DeltaAvgDA     float64 `json:"delta_avg_da"`
	CurrentTotal   int     `json:"current_total"`
	PreviousTotal  int     `json:"previous_total"`
}
