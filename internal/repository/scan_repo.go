package repository

import (
	"context"
	"errors"

	"github.com/user/backlink-service/internal/entity"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ScanRepository persists scans, their targets and their results.
type ScanRepository interface {
	// CreateScan inserts the scan, one target per URL and the driving
	// scan.run job inside a single transaction, so a crash can never leave a
	// scan behind without a runnable job. Returns the new scan id.
	CreateScan(ctx context.Context, scan *entity.Scan, urls []string, job *entity.Job) (int64, error)

	FindScan(ctx context.Context, scanID int64) (*entity.Scan, error)
	ListScansByProject(ctx context.Context, projectID int64, limit int) ([]entity.Scan, error)
	ListTargets(ctx context.Context, scanID int64) ([]entity.ScanTarget, error)

	MarkRunning(ctx context.Context, scanID int64) error
	MarkCancelled(ctx context.Context, scanID int64) error
	MarkCompleted(ctx context.Context, scanID int64) error
	MarkFailed(ctx context.Context, scanID int64, summary string) error

	// SaveBatch writes one batch's results and links, flips the covered
	// targets to completed and advances the scan's processed counter to
	// `processed`, all inside a single transaction.
	SaveBatch(ctx context.Context, scanID int64, results []entity.ScanResult, processed int) error

	Results(ctx context.Context, scanID int64, filters entity.ResultFilters) ([]entity.ScanResult, error)

	// PreviousCompleted returns the most recent completed scan of the project
	// with an id lower than beforeID, or ErrNotFound.
	PreviousCompleted(ctx context.Context, projectID, beforeID int64) (*entity.Scan, error)
	Aggregates(ctx context.Context, scanID int64) (entity.ResultAggregate, error)
}
