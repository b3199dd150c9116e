package downloader

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// progressScale converts fractional track progress into bar units
const progressScale = 1000

// ProgressCounter accumulates fractional completion across every track of a batch.
// It is safe for concurrent use.
type ProgressCounter struct {
	mu      sync.Mutex
	total   int
	current float64
	started time.Time

	barOut io.Writer
	bar    *progressbar.ProgressBar
}

// CounterOption configures a ProgressCounter
type CounterOption func(*ProgressCounter)

// WithProgressBar renders the counter as a terminal progress bar on w
func WithProgressBar(w io.Writer) CounterOption {
	return func(c *ProgressCounter) {
		c.barOut = w
	}
}

// NewProgressCounter creates an empty counter
func NewProgressCounter(opts ...CounterOption) *ProgressCounter {
	c := &ProgressCounter{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTotal sets the number of tracks in the batch and resets the count
func (c *ProgressCounter) SetTotal(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total = total
	c.current = 0
	c.started = time.Now()

	if c.barOut == nil {
		return
	}
	c.bar = progressbar.NewOptions64(int64(total)*progressScale,
		progressbar.OptionSetWriter(c.barOut),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]Downloading %d track(s)[reset]", total)),
	)
}

// Add increments the counter by delta tracks
func (c *ProgressCounter) Add(delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current += delta
	if c.bar != nil {
		_ = c.bar.Set64(int64(c.current * progressScale))
	}
}

// Value returns the completed track count
func (c *ProgressCounter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Snapshot returns the current progress
func (c *ProgressCounter) Snapshot() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := Progress{Completed: c.current, Total: c.total}
	if c.total > 0 {
		p.Percentage = c.current / float64(c.total) * 100
	}
	if !c.started.IsZero() {
		p.Elapsed = time.Since(c.started)
	}
	return p
}

// Finish completes the progress bar, if any
func (c *ProgressCounter) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bar != nil {
		_ = c.bar.Finish()
		c.bar = nil
	}
}

// LogWriter wraps w so that log lines written through it do not interleave
// with the progress bar.
func (c *ProgressCounter) LogWriter(w io.Writer) io.Writer {
	return &barSafeWriter{counter: c, out: w}
}

type barSafeWriter struct {
	counter *ProgressCounter
	out     io.Writer
}

func (w *barSafeWriter) Write(p []byte) (int, error) {
	w.counter.mu.Lock()
	defer w.counter.mu.Unlock()

	if w.counter.bar != nil {
		_ = w.counter.bar.Clear()
	}
	n, err := w.out.Write(p)
	if w.counter.bar != nil {
		_ = w.counter.bar.RenderBlank()
	}
	return n, err
}
