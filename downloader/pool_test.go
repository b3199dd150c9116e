package downloader

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsEveryJobWithBoundedConcurrency(t *testing.T) {
	const workers = 4
	var running, peak atomic.Int32

	handler := func(ctx context.Context, job TrackJob) *DownloadTask {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return &DownloadTask{Job: job, Outcome: OutcomeSucceeded}
	}

	pool := NewPool(context.Background(), workers, handler)
	go func() {
		defer pool.Close()
		for i := 0; i < 40; i++ {
			assert.NoError(t, pool.Submit(context.Background(), TrackJob{Ordinal: i}))
		}
	}()

	seen := make(map[int]bool)
	for task := range pool.Results() {
		seen[task.Job.Ordinal] = true
	}
	require.NoError(t, pool.Wait())

	assert.Len(t, seen, 40)
	assert.LessOrEqual(t, peak.Load(), int32(workers))
}

func TestPool_SubmitHonorsContext(t *testing.T) {
	block := make(chan struct{})
	pool := NewPool(context.Background(), 1, func(ctx context.Context, job TrackJob) *DownloadTask {
		<-block
		return &DownloadTask{Job: job}
	})

	ctx, cancel := context.WithCancel(context.Background())
	// one job in the worker, one in the queue
	require.NoError(t, pool.Submit(ctx, TrackJob{Ordinal: 0}))
	require.NoError(t, pool.Submit(ctx, TrackJob{Ordinal: 1}))
	cancel()

	err := pool.Submit(ctx, TrackJob{Ordinal: 2})
	assert.True(t, IsDownloadError(err, ErrorCancelled))

	pool.Close()
	close(block)
	count := 0
	for range pool.Results() {
		count++
	}
	assert.Equal(t, 2, count)
	assert.NoError(t, pool.Wait())
}

func TestPool_CloseIsIdempotent(t *testing.T) {
	pool := NewPool(context.Background(), 0, func(ctx context.Context, job TrackJob) *DownloadTask {
		return &DownloadTask{Job: job}
	})
	pool.Close()
	pool.Close()
	for range pool.Results() {
	}
	assert.NoError(t, pool.Wait())
}
