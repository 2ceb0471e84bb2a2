package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender-server/internal/domain/notification"
	"tender-server/internal/infrastructure/queue"
)

// outboxQueue mimics the Postgres outbox: claims bump attempts and failed jobs return
// to pending only once their backoff elapsed.
type outboxQueue struct {
	mu          sync.Mutex
	now         time.Time
	backoff     time.Duration
	maxAttempts int
	jobs        []*notification.Job
}

func (q *outboxQueue) Enqueue(_ context.Context, job *notification.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job.Status = notification.JobPending
	job.NextAttemptAt = q.now
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *outboxQueue) Dequeue(context.Context) (*notification.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, job := range q.jobs {
		if job.Status == notification.JobPending && !job.NextAttemptAt.After(q.now) {
			job.Status = notification.JobProcessing
			job.Attempts++
			return job, nil
		}
	}
	return nil, nil
}

func (q *outboxQueue) MarkSent(_ context.Context, job *notification.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job.Status = notification.JobSent
	return nil
}

func (q *outboxQueue) MarkFailed(_ context.Context, job *notification.Job, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job.LastError = cause.Error()
	if job.Attempts >= q.maxAttempts {
		job.Status = notification.JobFailed
		return nil
	}
	job.Status = notification.JobPending
	job.NextAttemptAt = q.now.Add(queue.RetryDelay(q.backoff, job.Attempts))
	return nil
}

func (q *outboxQueue) Depth(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var depth int64
	for _, job := range q.jobs {
		if job.Status == notification.JobPending {
			depth++
		}
	}
	return depth, nil
}

func (q *outboxQueue) advance(d time.Duration) {
	q.mu.Lock()
	q.now = q.now.Add(d)
	q.mu.Unlock()
}

func (q *outboxQueue) job(id string) notification.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, job := range q.jobs {
		if job.ID == id {
			return *job
		}
	}
	return notification.Job{}
}

func TestDrainDoesNotRetryFailedJobImmediately(t *testing.T) {
	ctx := context.Background()
	q := &outboxQueue{now: time.Unix(1_700_000_000, 0), backoff: time.Minute, maxAttempts: 5}
	d := &recordingDeliverer{queue: q, fail: map[string]bool{"ntf_flaky": true}}
	w := NewWorker(1, d, nil, time.Hour, time.Second, zerolog.Nop())

	require.NoError(t, q.Enqueue(ctx, &notification.Job{ID: "ntf_flaky", Kind: notification.KindNewMessage}))

	for i := 0; i < 3; i++ {
		w.drain(ctx)
	}
	job := q.job("ntf_flaky")
	assert.Equal(t, 1, job.Attempts)
	assert.Equal(t, notification.JobPending, job.Status)
	assert.Equal(t, q.now.Add(time.Minute), job.NextAttemptAt)

	q.advance(time.Minute)
	w.drain(ctx)
	job = q.job("ntf_flaky")
	assert.Equal(t, 2, job.Attempts)
	assert.Equal(t, q.now.Add(2*time.Minute), job.NextAttemptAt)
}

func TestDrainGivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	q := &outboxQueue{now: time.Unix(1_700_000_000, 0), backoff: time.Second, maxAttempts: 3}
	d := &recordingDeliverer{queue: q, fail: map[string]bool{"ntf_dead": true}}
	w := NewWorker(1, d, nil, time.Hour, time.Second, zerolog.Nop())

	require.NoError(t, q.Enqueue(ctx, &notification.Job{ID: "ntf_dead", Kind: notification.KindNewRoom}))

	for i := 0; i < 10; i++ {
		w.drain(ctx)
		q.advance(time.Hour)
	}
	job := q.job("ntf_dead")
	assert.Equal(t, 3, job.Attempts)
	assert.Equal(t, notification.JobFailed, job.Status)
	assert.Equal(t, "provider rejected", job.LastError)
}

func TestDrainStopsAfterFailureAndResumesNextTick(t *testing.T) {
	ctx := context.Background()
	q := &outboxQueue{now: time.Unix(1_700_000_000, 0), backoff: time.Minute, maxAttempts: 5}
	d := &recordingDeliverer{queue: q, fail: map[string]bool{"ntf_1": true}}
	w := NewWorker(1, d, nil, time.Hour, time.Second, zerolog.Nop())

	for _, id := range []string{"ntf_1", "ntf_2"} {
		require.NoError(t, q.Enqueue(ctx, &notification.Job{ID: id, Kind: notification.KindNewMessage}))
	}

	w.drain(ctx)
	assert.Empty(t, d.sentIDs())

	w.drain(ctx)
	assert.Equal(t, []string{"ntf_2"}, d.sentIDs())
	assert.Equal(t, 1, q.job("ntf_1").Attempts)
}
