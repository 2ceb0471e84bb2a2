package queue

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"tender-server/internal/domain/notification"
)

// ErrQueueFull is returned by MemoryQueue.Enqueue when the buffer has no room left.
var ErrQueueFull = errors.New("notification queue is full")

// MemoryQueue is the best-effort dispatcher: a bounded in-process buffer, one delivery
// attempt per job and nothing survives a restart.
type MemoryQueue struct {
	jobs  chan *notification.Job
	ready chan struct{}
	log   zerolog.Logger
}

var _ notification.Queue = (*MemoryQueue)(nil)

func NewMemoryQueue(size int, log zerolog.Logger) *MemoryQueue {
	if size <= 0 {
		size = 256
	}
	return &MemoryQueue{
		jobs:  make(chan *notification.Job, size),
		ready: make(chan struct{}, 1),
		log:   log.With().Str("component", "memory-queue").Logger(),
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, job *notification.Job) error {
	select {
	case q.jobs <- job:
	default:
		return ErrQueueFull
	}
	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

func (q *MemoryQueue) Dequeue(_ context.Context) (*notification.Job, error) {
	select {
	case job := <-q.jobs:
		job.Status = notification.JobProcessing
		job.Attempts++
		job.UpdatedAt = time.Now().UTC()
		return job, nil
	default:
		return nil, nil
	}
}

func (q *MemoryQueue) MarkSent(_ context.Context, job *notification.Job) error {
	now := time.Now().UTC()
	job.Status = notification.JobSent
	job.UpdatedAt = now
	job.ProcessedAt = &now
	return nil
}

// MarkFailed drops the job; the best-effort mode never retries.
func (q *MemoryQueue) MarkFailed(_ context.Context, job *notification.Job, cause error) error {
	now := time.Now().UTC()
	job.Status = notification.JobDropped
	job.LastError = errorText(cause)
	job.UpdatedAt = now
	job.ProcessedAt = &now
	q.log.Warn().Err(cause).Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("notification dropped after failed send")
	return nil
}

func (q *MemoryQueue) Depth(context.Context) (int64, error) {
	return int64(len(q.jobs)), nil
}

// Ready signals that a job was enqueued.
func (q *MemoryQueue) Ready() <-chan struct{} {
	return q.ready
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 1000 {
		msg = msg[:1000]
	}
	return msg
}
