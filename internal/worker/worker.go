package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tender-server/internal/domain/notification"
	"tender-server/internal/infrastructure/metrics"
)

// Worker drains the notification queue.
type Worker struct {
	id           int
	deliverer    Deliverer
	ready        <-chan struct{}
	pollInterval time.Duration
	sendTimeout  time.Duration
	log          zerolog.Logger
	stopChan     chan struct{}
	stopOnce     sync.Once
}

// NewWorker creates a worker. ready may be nil, in which case only the poll ticker wakes it.
func NewWorker(id int, deliverer Deliverer, ready <-chan struct{}, pollInterval, sendTimeout time.Duration, log zerolog.Logger) *Worker {
	return &Worker{
		id:           id,
		deliverer:    deliverer,
		ready:        ready,
		pollInterval: pollInterval,
		sendTimeout:  sendTimeout,
		log:          log.With().Int("worker_id", id).Str("component", "worker").Logger(),
		stopChan:     make(chan struct{}),
	}
}

// Start processes jobs until ctx ends or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	w.log.Debug().Msg("worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug().Msg("worker stopped by context")
			return
		case <-w.stopChan:
			w.log.Debug().Msg("worker stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
		case <-w.ready:
			w.drain(ctx)
		}
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		default:
		}
		if !w.processNext(ctx) {
			return
		}
	}
}

// processNext delivers one job and reports whether to keep draining. A failed send that
// left the job pending for a retry ends the drain; the worker waits for the next tick.
func (w *Worker) processNext(ctx context.Context) bool {
	job, err := w.deliverer.Queue().Dequeue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to dequeue notification")
		return false
	}
	if job == nil {
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	if err := w.deliverer.Deliver(sendCtx, job); err != nil {
		metrics.EmailsTotal.WithLabelValues(string(job.Kind), "failed").Inc()
		w.log.Warn().Err(err).Str("job_id", job.ID).Str("kind", string(job.Kind)).Int("attempt", job.Attempts).Msg("notification send failed")
		return job.Status != notification.JobPending
	}
	metrics.EmailsTotal.WithLabelValues(string(job.Kind), "sent").Inc()
	w.log.Debug().Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("notification sent")
	return true
}
