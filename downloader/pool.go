package downloader

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// JobHandler runs one job to a terminal state
type JobHandler func(ctx context.Context, job TrackJob) *DownloadTask

// Pool is a bounded job queue drained by a fixed set of workers.
// Terminal tasks are delivered on Results, which is closed once every worker has exited.
type Pool struct {
	jobs    chan TrackJob
	results chan *DownloadTask
	done    chan struct{}
	err     error

	closeOnce sync.Once
}

// NewPool starts workers goroutines that call handler for every submitted job
func NewPool(ctx context.Context, workers int, handler JobHandler) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	p := &Pool{
		jobs:    make(chan TrackJob, workers),
		results: make(chan *DownloadTask, workers),
		done:    make(chan struct{}),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			for job := range p.jobs {
				p.results <- handler(groupCtx, job)
			}
			return nil
		})
	}

	go func() {
		p.err = group.Wait()
		close(p.results)
		close(p.done)
	}()

	return p
}

// Submit enqueues job, blocking while the queue is full
func (p *Pool) Submit(ctx context.Context, job TrackJob) error {
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return NewDownloadErrorWithCause(ErrorCancelled, "job submission cancelled", ctx.Err())
	}
}

// Close stops accepting jobs; queued jobs still run
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.jobs)
	})
}

// Results returns the channel of terminal tasks
func (p *Pool) Results() <-chan *DownloadTask {
	return p.results
}

// Wait blocks until every worker has exited. Close must have been called and
// Results must be drained, otherwise workers block on delivery.
func (p *Pool) Wait() error {
	<-p.done
	return p.err
}
