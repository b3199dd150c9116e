package downloader

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProgressTracker pushes ProgressCounter snapshots to a reporter with a 2-second interval
type ProgressTracker struct {
	// Configuration
	updateInterval time.Duration
	counter        *ProgressCounter
	reporter       ProgressReporter
	logger         *zap.Logger

	// State management
	mu           sync.RWMutex
	isRunning    bool
	lastReported Progress

	// Goroutine management
	ctx      context.Context
	cancel   context.CancelFunc
	ticker   *time.Ticker
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewProgressTracker creates a new ProgressTracker with the specified reporter
func NewProgressTracker(counter *ProgressCounter, reporter ProgressReporter, logger *zap.Logger) *ProgressTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressTracker{
		updateInterval: 2 * time.Second,
		counter:        counter,
		reporter:       reporter,
		logger:         logger,
		lastReported:   Progress{Completed: -1},
	}
}

// NewProgressTrackerWithInterval creates a ProgressTracker with a custom update interval
func NewProgressTrackerWithInterval(counter *ProgressCounter, reporter ProgressReporter, logger *zap.Logger, interval time.Duration) *ProgressTracker {
	pt := NewProgressTracker(counter, reporter, logger)
	pt.updateInterval = interval
	return pt
}

// Start begins the periodic updates
func (pt *ProgressTracker) Start(ctx context.Context) error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.isRunning {
		return NewDownloadError(ErrorUnknown, "progress tracker is already running")
	}

	pt.stopChan = make(chan struct{})
	pt.doneChan = make(chan struct{})
	pt.ctx, pt.cancel = context.WithCancel(ctx)
	pt.ticker = time.NewTicker(pt.updateInterval)
	pt.isRunning = true

	go pt.updateLoop()

	return nil
}

// Stop stops the periodic updates and waits for the loop to exit
func (pt *ProgressTracker) Stop() {
	pt.mu.Lock()
	if !pt.isRunning {
		pt.mu.Unlock()
		return
	}

	close(pt.stopChan)
	if pt.cancel != nil {
		pt.cancel()
	}
	pt.isRunning = false
	pt.mu.Unlock()

	<-pt.doneChan

	if pt.ticker != nil {
		pt.ticker.Stop()
		pt.ticker = nil
	}
}

// IsRunning returns whether the tracker is currently running
func (pt *ProgressTracker) IsRunning() bool {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.isRunning
}

func (pt *ProgressTracker) updateLoop() {
	defer close(pt.doneChan)

	for {
		select {
		case <-pt.ctx.Done():
			return

		case <-pt.stopChan:
			return

		case <-pt.ticker.C:
			pt.report()
		}
	}
}

// report sends the current snapshot if the completed count moved since the last report
func (pt *ProgressTracker) report() {
	if pt.reporter == nil || pt.counter == nil {
		return
	}

	snapshot := pt.counter.Snapshot()
	if snapshot.Completed == pt.lastReported.Completed {
		return
	}
	if err := pt.reporter.UpdateProgress(snapshot); err != nil {
		pt.logger.Debug("Progress update failed", zap.Error(err))
		return
	}
	pt.lastReported = snapshot
}
