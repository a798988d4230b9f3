package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/user/backlink-service/internal/entity"
)

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, retryBackoff(1))
	assert.Equal(t, 4*time.Second, retryBackoff(2))
	assert.Equal(t, 8*time.Second, retryBackoff(3))
	assert.Equal(t, time.Second, retryBackoff(0))
	assert.Equal(t, time.Second, retryBackoff(-1))
	// Attempts are capped so the shift can never overflow.
	assert.Equal(t, retryBackoff(16), retryBackoff(40))
}

func TestFailAttemptLadder(t *testing.T) {
	// With three attempts allowed, the first two failures recycle the job
	// with growing backoff and the third kills it.
	first := nextRetryState(0, 3)
	assert.Equal(t, entity.JobStatusQueued, first.status)
	assert.Equal(t, 1, first.attempts)
	assert.Equal(t, 2*time.Second, first.availableIn)

	second := nextRetryState(first.attempts, 3)
	assert.Equal(t, entity.JobStatusQueued, second.status)
	assert.Equal(t, 2, second.attempts)
	assert.Greater(t, second.availableIn, first.availableIn)

	third := nextRetryState(second.attempts, 3)
	assert.Equal(t, entity.JobStatusDead, third.status)
	assert.Equal(t, 3, third.attempts)
	assert.Zero(t, third.availableIn)
}

func TestFailLadderWithSingleAttempt(t *testing.T) {
	// maxAttempts of one means the first failure is terminal.
	st := nextRetryState(0, 1)
	assert.Equal(t, entity.JobStatusDead, st.status)
	assert.Equal(t, 1, st.attempts)
}
