// Package worker polls the durable job queue and dispatches jobs to their
// handlers. Several workers may run against the same queue; the claim step
// guarantees each job lands on exactly one of them.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/user/backlink-service/internal/entity"
	"github.com/user/backlink-service/internal/repository"
	"github.com/user/backlink-service/pkg/metrics"
)

// ScanRunner is the slice of the orchestrator the worker needs.
type ScanRunner interface {
	ProcessScan(ctx context.Context, scanID int64) error
}

// Worker is one polling queue consumer.
type Worker struct {
	queue        repository.JobQueue
	runner       ScanRunner
	pollInterval time.Duration
}

func New(queue repository.JobQueue, runner ScanRunner, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Worker{queue: queue, runner: runner, pollInterval: pollInterval}
}

// Run polls until the context is cancelled. An empty queue or a lost claim
// race both mean "sleep and poll again".
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.queue.ReserveNext(ctx)
		if err != nil {
			slog.Error("failed to reserve job", "error", err)
			w.sleep(ctx)
			continue
		}
		if job == nil {
			w.sleep(ctx)
			continue
		}

		w.handle(ctx, job)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.pollInterval):
	}
}

// handle runs one claimed job to a terminal queue state.
func (w *Worker) handle(ctx context.Context, job *entity.Job) {
	slog.Info("job claimed",
		"job_id", job.ID,
		"type", job.Type,
		"attempt", job.Attempts+1,
		"correlation_id", job.CorrelationID,
	)

	switch job.Type {
	case entity.JobTypeScanRun:
		w.handleScanRun(ctx, job)
	default:
		// Unknown types belong to other components sharing the queue. They
		// complete rather than retry so they cannot clog the claim scan.
		slog.Warn("unknown job type, completing", "job_id", job.ID, "type", job.Type)
		w.finish(ctx, job, nil)
	}
}

func (w *Worker) handleScanRun(ctx context.Context, job *entity.Job) {
	var payload entity.ScanRunPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		w.finish(ctx, job, err)
		return
	}
	w.finish(ctx, job, w.runner.ProcessScan(ctx, payload.ScanID))
}

func (w *Worker) finish(ctx context.Context, job *entity.Job, runErr error) {
	if runErr != nil {
		slog.Error("job failed", "job_id", job.ID, "type", job.Type, "error", runErr)
		metrics.JobsTotal.WithLabelValues(job.Type, "failed").Inc()
		if err := w.queue.Fail(ctx, job.ID, runErr.Error()); err != nil {
			slog.Error("failed to record job failure", "job_id", job.ID, "error", err)
		}
		return
	}

	metrics.JobsTotal.WithLabelValues(job.Type, "completed").Inc()
	if err := w.queue.Complete(ctx, job.ID); err != nil {
		slog.Error("failed to complete job", "job_id", job.ID, "error", err)
	}
	slog.Info("job completed", "job_id", job.ID, "type", job.Type)
}
