package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/backlink-service/internal/entity"
)

type fakeQueue struct {
	mu        sync.Mutex
	jobs      []*entity.Job
	completed []int64
	failed    map[int64]string
}

func newFakeQueue(jobs ...*entity.Job) *fakeQueue {
	return &fakeQueue{jobs: jobs, failed: map[int64]string{}}
}

func (f *fakeQueue) Enqueue(ctx context.Context, jobType string, payload any, availableAt *time.Time, correlationID string) (int64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeQueue) ReserveNext(ctx context.Context) (*entity.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		return nil, nil
	}
	job := f.jobs[0]
	f.jobs = f.jobs[1:]
	return job, nil
}

func (f *fakeQueue) Complete(ctx context.Context, jobID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, jobID)
	return nil
}

func (f *fakeQueue) Fail(ctx context.Context, jobID int64, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[jobID] = message
	return nil
}

func (f *fakeQueue) completedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.completed)
}

type fakeRunner struct {
	processed []int64
	err       error
}

func (f *fakeRunner) ProcessScan(ctx context.Context, scanID int64) error {
	f.processed = append(f.processed, scanID)
	return f.err
}

func scanJob(id, scanID int64) *entity.Job {
	payload, _ := json.Marshal(entity.ScanRunPayload{ScanID: scanID})
	return &entity.Job{ID: id, Type: entity.JobTypeScanRun, Payload: payload}
}

func TestWorkerRunsScanJob(t *testing.T) {
	queue := newFakeQueue(scanJob(1, 42))
	runner := &fakeRunner{}
	w := New(queue, runner, time.Millisecond)

	w.handle(context.Background(), scanJob(1, 42))

	assert.Equal(t, []int64{42}, runner.processed)
	assert.Equal(t, []int64{1}, queue.completed)
	assert.Empty(t, queue.failed)
}

func TestWorkerFailsJobOnProcessError(t *testing.T) {
	queue := newFakeQueue()
	runner := &fakeRunner{err: errors.New("provider down")}
	w := New(queue, runner, time.Millisecond)

	w.handle(context.Background(), scanJob(3, 7))

	assert.Empty(t, queue.completed)
	assert.Equal(t, "provider down", queue.failed[3])
}

func TestWorkerFailsJobOnMalformedPayload(t *testing.T) {
	queue := newFakeQueue()
	runner := &fakeRunner{}
	w := New(queue, runner, time.Millisecond)

	w.handle(context.Background(), &entity.Job{ID: 5, Type: entity.JobTypeScanRun, Payload: []byte("{broken")})

	assert.Empty(t, runner.processed)
	assert.Empty(t, queue.completed)
	assert.Contains(t, queue.failed, int64(5))
}

func TestWorkerCompletesUnknownJobTypes(t *testing.T) {
	queue := newFakeQueue()
	runner := &fakeRunner{}
	w := New(queue, runner, time.Millisecond)

	w.handle(context.Background(), &entity.Job{ID: 9, Type: entity.JobTypeWebhookDeliver, Payload: []byte(`{}`)})

	assert.Empty(t, runner.processed)
	assert.Equal(t, []int64{9}, queue.completed)
	assert.Empty(t, queue.failed)
}

func TestWorkerRunDrainsQueueAndStopsOnCancel(t *testing.T) {
	queue := newFakeQueue(scanJob(1, 10), scanJob(2, 20))
	runner := &fakeRunner{}
	w := New(queue, runner, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return queue.completedCount() == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}

	assert.Equal(t, []int64{10, 20}, runner.processed)
}
