package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandhub/bandhub/internal/scheduler"
	"github.com/bandhub/bandhub/internal/vault"
)

type countingDistributor struct {
	calls   atomic.Int32
	trigger atomic.Value
}

func (c *countingDistributor) DistributeAll(_ context.Context, trigger string) (int, error) {
	c.calls.Add(1)
	c.trigger.Store(trigger)
	return 1, nil
}

func TestNew_RejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	_, err := scheduler.New("every now and then", &countingDistributor{})
	assert.Error(t, err)

	_, err = scheduler.New("@daily", &countingDistributor{})
	assert.NoError(t, err)

	_, err = scheduler.New("0 3 * * *", &countingDistributor{})
	assert.NoError(t, err)
}

func TestScheduler_RunsUntilCancelled(t *testing.T) {
	t.Parallel()

	dist := &countingDistributor{}
	s, err := scheduler.New("@every 1s", dist)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return dist.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, vault.TriggerSchedule, dist.trigger.Load())
}

type blockingDistributor struct {
	started chan struct{}
	ctxErr  chan error
}

func (b *blockingDistributor) DistributeAll(ctx context.Context, _ string) (int, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	select {
	case b.ctxErr <- ctx.Err():
	default:
	}
	return 0, ctx.Err()
}

func TestScheduler_CancelStopsRunningJob(t *testing.T) {
	t.Parallel()

	dist := &blockingDistributor{started: make(chan struct{}, 1), ctxErr: make(chan error, 1)}
	s, err := scheduler.New("@every 1s", dist)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-dist.started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler waited on a job that ignored cancellation")
	}
	assert.ErrorIs(t, <-dist.ctxErr, context.Canceled)
}
