package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/backlink-service/internal/entity"
)

const jobColumns = `id, type, payload, status, attempts, max_attempts, available_at,
	correlation_id, last_error, locked_at, finished_at, created_at, updated_at`

// JobQueueImpl is the durable job queue backed by the jobs table.
type JobQueueImpl struct {
	db          *pgxpool.Pool
	maxAttempts int
}

// NewJobQueue creates a queue whose jobs default to maxAttempts retries.
func NewJobQueue(db *pgxpool.Pool, maxAttempts int) *JobQueueImpl {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &JobQueueImpl{db: db, maxAttempts: maxAttempts}
}

// Enqueue inserts a queued job available at availableAt (now when nil).
func (q *JobQueueImpl) Enqueue(ctx context.Context, jobType string, payload any, availableAt *time.Time, correlationID string) (int64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode payload: %w", err)
	}

	at := time.Now().UTC()
	if availableAt != nil {
		at = availableAt.UTC()
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	var id int64
	err = q.db.QueryRow(ctx,
		`INSERT INTO jobs (type, payload, status, attempts, max_attempts, available_at, correlation_id)
		 VALUES ($1, $2, $3, 0, $4, $5, $6)
		 RETURNING id`,
		jobType, body, entity.JobStatusQueued, q.maxAttempts, at, correlationID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("enqueue %s job: %w", jobType, err)
	}
	return id, nil
}

// ReserveNext claims the oldest eligible queued job. The row lock from
// FOR UPDATE SKIP LOCKED plus the conditional status check in the UPDATE
// guarantee at most one claimant per job; the loser gets (nil, nil).
func (q *JobQueueImpl) ReserveNext(ctx context.Context) (*entity.Job, error) {
	tx, err := q.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var jobID int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM jobs
		 WHERE status = $1 AND available_at <= NOW()
		 ORDER BY id ASC
		 LIMIT 1
		 FOR UPDATE SKIP LOCKED`,
		entity.JobStatusQueued,
	).Scan(&jobID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	job := &entity.Job{}
	err = tx.QueryRow(ctx,
		`UPDATE jobs
		 SET status = $1, locked_at = NOW(), updated_at = NOW()
		 WHERE id = $2 AND status = $3
		 RETURNING `+jobColumns,
		entity.JobStatusRunning, jobID, entity.JobStatusQueued,
	).Scan(
		&job.ID, &job.Type, &job.Payload, &job.Status, &job.Attempts, &job.MaxAttempts,
		&job.AvailableAt, &job.CorrelationID, &job.LastError, &job.LockedAt,
		&job.FinishedAt, &job.CreatedAt, &job.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return job, nil
}

// Complete marks the job completed and stamps the finish time.
func (q *JobQueueImpl) Complete(ctx context.Context, jobID int64) error {
	_, err := q.db.Exec(ctx,
		`UPDATE jobs SET status = $1, finished_at = NOW(), updated_at = NOW() WHERE id = $2`,
		entity.JobStatusCompleted, jobID)
	return err
}

// Fail increments the attempt count; exhausted jobs go dead, others are
// recycled to queued with exponential backoff.
func (q *JobQueueImpl) Fail(ctx context.Context, jobID int64, message string) error {
	var attempts, maxAttempts int
	err := q.db.QueryRow(ctx,
		`SELECT attempts, max_attempts FROM jobs WHERE id = $1`, jobID,
	).Scan(&attempts, &maxAttempts)
	if err == pgx.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	next := nextRetryState(attempts, maxAttempts)

	if next.status == entity.JobStatusDead {
		_, err = q.db.Exec(ctx,
			`UPDATE jobs SET status = $1, attempts = $2, last_error = $3, finished_at = NOW(), updated_at = NOW() WHERE id = $4`,
			next.status, next.attempts, message, jobID)
		return err
	}

	_, err = q.db.Exec(ctx,
		`UPDATE jobs SET status = $1, attempts = $2, last_error = $3, available_at = $4, updated_at = NOW() WHERE id = $5`,
		next.status, next.attempts, message, time.Now().UTC().Add(next.availableIn), jobID)
	return err
}

// retryState is the queue transition applied after one failed attempt.
type retryState struct {
	status      string
	attempts    int
	availableIn time.Duration
}

// nextRetryState increments the attempt count and decides between recycling
// the job with backoff and marking it dead.
func nextRetryState(attempts, maxAttempts int) retryState {
	attempts++
	if attempts >= maxAttempts {
		return retryState{status: entity.JobStatusDead, attempts: attempts}
	}
	return retryState{
		status:      entity.JobStatusQueued,
		attempts:    attempts,
		availableIn: retryBackoff(attempts),
	}
}

// retryBackoff returns 2^attempts seconds.
func retryBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 16 {
		attempts = 16
	}
	return time.Duration(1<<uint(attempts)) * time.Second
}

// insertJobTx inserts a job inside an existing transaction; used to make a
// scan's driving job atomic with its scan row.
func insertJobTx(ctx context.Context, tx pgx.Tx, job *entity.Job) (int64, error) {
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = 3
	}
	if job.CorrelationID == "" {
		job.CorrelationID = uuid.NewString()
	}
	payload := job.Payload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}

	var id int64
	err := tx.QueryRow(ctx,
		`INSERT INTO jobs (type, payload, status, attempts, max_attempts, available_at, correlation_id)
		 VALUES ($1, $2, $3, 0, $4, NOW(), $5)
		 RETURNING id`,
		job.Type, payload, entity.JobStatusQueued, job.MaxAttempts, job.CorrelationID,
	).Scan(&id)
	return id, err
}
