package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender-server/internal/domain/notification"
	"tender-server/internal/infrastructure/queue"
)

type recordingDeliverer struct {
	queue notification.Queue
	fail  map[string]bool

	mu   sync.Mutex
	sent []string
}

func (d *recordingDeliverer) Queue() notification.Queue { return d.queue }

func (d *recordingDeliverer) Deliver(ctx context.Context, job *notification.Job) error {
	if d.fail[job.ID] {
		_ = d.queue.MarkFailed(ctx, job, errors.New("provider rejected"))
		return errors.New("provider rejected")
	}
	d.mu.Lock()
	d.sent = append(d.sent, job.ID)
	d.mu.Unlock()
	return d.queue.MarkSent(ctx, job)
}

func (d *recordingDeliverer) sentIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.sent...)
}

func TestPoolDrainsQueueOnReadySignal(t *testing.T) {
	q := queue.NewMemoryQueue(16, zerolog.Nop())
	d := &recordingDeliverer{queue: q, fail: map[string]bool{"ntf_2": true}}

	pool := NewPool(d, Config{WorkerCount: 2, PollInterval: time.Hour}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop(time.Second)

	for _, id := range []string{"ntf_1", "ntf_2", "ntf_3"} {
		require.NoError(t, q.Enqueue(ctx, &notification.Job{ID: id, Kind: notification.KindNewMessage}))
	}

	require.Eventually(t, func() bool {
		depth, _ := q.Depth(ctx)
		return depth == 0 && len(d.sentIDs()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"ntf_1", "ntf_3"}, d.sentIDs())
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	q := queue.NewMemoryQueue(1, zerolog.Nop())
	w := NewWorker(1, &recordingDeliverer{queue: q}, nil, time.Hour, time.Second, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()
	w.Stop()
	w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
