package repository

import (
	"context"
	"time"

	"github.com/user/backlink-service/internal/entity"
)

// JobQueue is a durable, at-least-once work queue. Multiple workers may poll
// concurrently; ReserveNext must hand each job to at most one claimant.
type JobQueue interface {
	// Enqueue inserts a queued job. availableAt nil means available now; an
	// empty correlationID gets a fresh one.
	Enqueue(ctx context.Context, jobType string, payload any, availableAt *time.Time, correlationID string) (int64, error)

	// ReserveNext atomically claims the oldest queued job whose availability
	// has passed and flips it to running. Returns (nil, nil) when nothing is
	// eligible or a concurrent claimant won the race.
	ReserveNext(ctx context.Context) (*entity.Job, error)

	// Complete marks the job completed and records the finish time.
	Complete(ctx context.Context, jobID int64) error

	// Fail increments the attempt count. Exhausted jobs go dead; others are
	// recycled to queued with exponential backoff and the error recorded.
	Fail(ctx context.Context, jobID int64, message string) error
}
