package crontab

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeExpirer) CloseExpired(context.Context) (int64, error) {
	f.calls.Add(1)
	return 2, f.err
}

type fakeOutbox struct {
	requeueAfter time.Duration
	retention    time.Duration
}

func (f *fakeOutbox) RequeueStale(_ context.Context, olderThan time.Duration) (int64, error) {
	f.requeueAfter = olderThan
	return 1, nil
}

func (f *fakeOutbox) Purge(_ context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return 0, nil
}

func TestRunExpiresOnStartAndStopsWithContext(t *testing.T) {
	expirer := &fakeExpirer{}
	c := NewCrontab("*/5 * * * *", expirer, nil, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return expirer.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("crontab did not stop")
	}
}

func TestRunRejectsBadSchedule(t *testing.T) {
	c := NewCrontab("not a schedule", &fakeExpirer{}, nil, nil, zerolog.Nop())
	err := c.Run(context.Background())
	assert.Error(t, err)
}

func TestExpireTendersSwallowsErrors(t *testing.T) {
	expirer := &fakeExpirer{err: errors.New("db down")}
	c := NewCrontab("* * * * *", expirer, nil, nil, zerolog.Nop())
	c.expireTenders(context.Background())
	assert.Equal(t, int32(1), expirer.calls.Load())
}

func TestHousekeepOutbox(t *testing.T) {
	outbox := &fakeOutbox{}
	c := NewCrontab("* * * * *", &fakeExpirer{}, outbox, nil, zerolog.Nop())
	c.housekeepOutbox(context.Background())
	assert.Equal(t, outboxStaleAfter, outbox.requeueAfter)
	assert.Equal(t, outboxRetention, outbox.retention)
}
