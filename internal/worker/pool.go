package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tender-server/internal/domain/notification"
	"tender-server/internal/infrastructure/metrics"
)

// Deliverer sends claimed notification jobs.
type Deliverer interface {
	Queue() notification.Queue
	Deliver(ctx context.Context, job *notification.Job) error
}

// readySignaller is implemented by queues that can wake idle workers.
type readySignaller interface {
	Ready() <-chan struct{}
}

// Pool manages the notification delivery workers.
type Pool struct {
	workers      []*Worker
	deliverer    Deliverer
	workerCount  int
	pollInterval time.Duration
	sendTimeout  time.Duration
	log          zerolog.Logger
	wg           sync.WaitGroup
}

// Config contains worker pool configuration.
type Config struct {
	WorkerCount  int
	PollInterval time.Duration
	SendTimeout  time.Duration
}

// NewPool creates a new worker pool.
func NewPool(deliverer Deliverer, cfg Config, log zerolog.Logger) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Pool{
		deliverer:    deliverer,
		workerCount:  cfg.WorkerCount,
		pollInterval: cfg.PollInterval,
		sendTimeout:  cfg.SendTimeout,
		log:          log.With().Str("component", "worker-pool").Logger(),
	}
}

// Start launches the workers. They run until ctx ends or Stop is called.
func (p *Pool) Start(ctx context.Context) {
	p.log.Info().Int("worker_count", p.workerCount).Msg("starting worker pool")

	var ready <-chan struct{}
	if s, ok := p.deliverer.Queue().(readySignaller); ok {
		ready = s.Ready()
	}

	p.workers = make([]*Worker, p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		w := NewWorker(i+1, p.deliverer, ready, p.pollInterval, p.sendTimeout, p.log)
		p.workers[i] = w

		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Start(ctx)
		}(w)
	}
}

// Stop signals every worker and waits for in-flight sends, up to timeout.
func (p *Pool) Stop(timeout time.Duration) {
	p.log.Info().Msg("stopping worker pool")
	for _, w := range p.workers {
		w.Stop()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info().Msg("all workers stopped gracefully")
	case <-time.After(timeout):
		p.log.Warn().Msg("worker pool shutdown timed out")
	}
}

// RecordQueueDepth publishes the queue depth gauge.
func (p *Pool) RecordQueueDepth(ctx context.Context) {
	depth, err := p.deliverer.Queue().Depth(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("failed to read notification queue depth")
		return
	}
	metrics.QueueDepth.Set(float64(depth))
}
