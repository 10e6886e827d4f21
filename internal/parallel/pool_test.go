package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsEveryTask(t *testing.T) {
	p := NewPool(3)
	var n atomic.Int64
	for i := 0; i < 50; i++ {
		require.NoError(t, p.Submit(context.Background(), func() { n.Add(1) }))
	}
	p.Close()
	assert.Equal(t, int64(50), n.Load())
}

func TestSubmitAfterClose(t *testing.T) {
	p := NewPool(1)
	p.Close()
	assert.ErrorIs(t, p.Submit(context.Background(), func() {}), ErrPoolClosed)
	p.Close()
}

func TestSubmitHonoursContext(t *testing.T) {
	p := NewPool(1)
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() {
		close(started)
		<-release
	}))
	<-started
	// Fill the queue behind the blocked worker.
	for i := 0; i < 2; i++ {
		require.NoError(t, p.Submit(context.Background(), func() {}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Submit(ctx, func() {}), context.Canceled)

	close(release)
	p.Close()
}

func TestEach(t *testing.T) {
	boom := errors.New("boom")
	jobs := []int{1, 2, 3, 4, 5, 6}
	var sum atomic.Int64
	errs := Each(context.Background(), 2, jobs, func(_ context.Context, j int) error {
		sum.Add(int64(j))
		if j == 4 {
			return boom
		}
		return nil
	})
	require.Len(t, errs, len(jobs))
	assert.Equal(t, int64(21), sum.Load())
	for i, err := range errs {
		if jobs[i] == 4 {
			assert.ErrorIs(t, err, boom)
		} else {
			assert.NoError(t, err)
		}
	}
}
