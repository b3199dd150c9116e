package downloader

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 5
	DefaultWorkers     = 16
	maxRetryDelay      = 30 * time.Second
)

// Options controls how tracks are named, selected and retried
type Options struct {
	OutputTemplate   string
	FilenameTemplate string
	Quality          QualityPreference
	Workers          int
	MaxAttempts      int
	RetryDelay       time.Duration

	// ChunkSizes, when set, returns a fresh read-size generator for every copy
	ChunkSizes func() iter.Seq[int]
}

// Orchestrator drives a batch from locator to tagged files
type Orchestrator struct {
	session  Session
	expander *Expander
	selector VariantSelector
	tagger   TagWriter
	progress *ProgressCounter
	archive  Archive
	uploader Uploader
	reporter ProgressReporter
	opts     Options
	logger   *zap.Logger
}

// OrchestratorOption configures optional collaborators
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the orchestrator logger
func WithLogger(logger *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithProgressCounter shares counter with the caller, e.g. for log/bar coordination
func WithProgressCounter(counter *ProgressCounter) OrchestratorOption {
	return func(o *Orchestrator) {
		o.progress = counter
	}
}

// WithArchive skips archived tracks and records new downloads
func WithArchive(archive Archive) OrchestratorOption {
	return func(o *Orchestrator) {
		o.archive = archive
	}
}

// WithUploader uploads every finished file
func WithUploader(uploader Uploader) OrchestratorOption {
	return func(o *Orchestrator) {
		o.uploader = uploader
	}
}

// WithReporter reports batch progress to an external system
func WithReporter(reporter ProgressReporter) OrchestratorOption {
	return func(o *Orchestrator) {
		o.reporter = reporter
	}
}

// WithSelector overrides the preference-based quality selector
func WithSelector(selector VariantSelector) OrchestratorOption {
	return func(o *Orchestrator) {
		o.selector = selector
	}
}

// NewOrchestrator creates an Orchestrator for one authenticated session
func NewOrchestrator(session Session, tagger TagWriter, opts Options, options ...OrchestratorOption) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.OutputTemplate == "" {
		opts.OutputTemplate = "."
	}
	if opts.FilenameTemplate == "" {
		opts.FilenameTemplate = "{artist} - {title}"
	}

	o := &Orchestrator{
		session:  session,
		selector: NewQualitySelector(opts.Quality),
		tagger:   tagger,
		opts:     opts,
	}
	for _, option := range options {
		option(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.progress == nil {
		o.progress = NewProgressCounter()
	}
	o.expander = NewExpander(session, o.logger)
	return o
}

// Run expands locator and downloads every track it names. Single tracks run on
// the calling goroutine; batches go through the worker pool. Per-track failures
// are reported in the summary, never as the returned error.
func (o *Orchestrator) Run(ctx context.Context, locator ResourceLocator) (*Summary, error) {
	start := time.Now()

	expansion, err := o.expander.Expand(ctx, locator)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Title: expansion.Title, Total: len(expansion.Jobs)}
	o.progress.SetTotal(len(expansion.Jobs))
	stopReporting := o.startReporting(ctx, summary)

	if locator.Kind == KindTrack {
		for _, job := range expansion.Jobs {
			summary.add(o.Process(ctx, job))
		}
	} else {
		o.runPool(ctx, expansion.Jobs, summary)
	}

	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].Job.Ordinal < summary.Results[j].Job.Ordinal
	})
	summary.Elapsed = time.Since(start)
	o.progress.Finish()
	stopReporting(ctx.Err())

	o.logger.Info(fmt.Sprintf("Finished %q in %s", summary.Title, summary.Elapsed.Round(time.Second)),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (o *Orchestrator) runPool(ctx context.Context, jobs []TrackJob, summary *Summary) {
	pool := NewPool(ctx, o.opts.Workers, o.Process)

	go func() {
		defer pool.Close()
		for _, job := range jobs {
			if err := pool.Submit(ctx, job); err != nil {
				o.logger.Warn("Stopped queueing tracks", zap.Error(err))
				return
			}
		}
	}()

	for task := range pool.Results() {
		summary.add(task)
	}
	if err := pool.Wait(); err != nil {
		o.logger.Error("Worker pool stopped with error", zap.Error(err))
	}
}

func (o *Orchestrator) startReporting(ctx context.Context, summary *Summary) func(error) {
	if o.reporter == nil {
		return func(error) {}
	}
	if err := o.reporter.StartTracking(ctx, summary.Title, summary.Total); err != nil {
		o.logger.Warn("Progress reporting disabled", zap.Error(err))
		return func(error) {}
	}

	tracker := NewProgressTracker(o.progress, o.reporter, o.logger)
	if err := tracker.Start(ctx); err != nil {
		o.logger.Warn("Progress tracker did not start", zap.Error(err))
	}

	return func(runErr error) {
		tracker.Stop()
		var err error
		if runErr != nil {
			err = o.reporter.ReportError(runErr)
		} else {
			err = o.reporter.ReportComplete(summary)
		}
		if err != nil {
			o.logger.Warn("Final progress report failed", zap.Error(err))
		}
		o.reporter.Stop()
	}
}

// Process runs job to a terminal state, retrying failed attempts
func (o *Orchestrator) Process(ctx context.Context, job TrackJob) *DownloadTask {
	task := &DownloadTask{ID: uuid.NewString(), Job: job}
	logger := o.logger.With(
		zap.String("task", task.ID),
		zap.String("track", job.TrackID.String()),
		zap.Int("ordinal", job.Ordinal),
	)
	start := time.Now()
	defer func() {
		task.Duration = time.Since(start)
	}()

	if o.isArchived(ctx, job, logger) {
		task.Outcome = OutcomeSkipped
		o.progress.Add(1)
		return task
	}

	for attempt := 1; attempt <= o.opts.MaxAttempts; attempt++ {
		task.Attempts = attempt
		result := o.attempt(ctx, job, logger)
		if result.err == nil {
			task.Path = result.path
			task.Track = result.track
			task.Err = nil
			task.Outcome = OutcomeSucceeded
			o.finish(ctx, task, logger)
			return task
		}
		task.Err = result.err

		if IsDownloadError(result.err, ErrorNoUsableVariant) {
			logger.Warn("Skipping track", zap.Error(result.err))
			task.Outcome = OutcomeSkipped
			o.progress.Add(1)
			return task
		}
		if !IsRetryable(result.err) || ctx.Err() != nil || attempt == o.opts.MaxAttempts {
			logger.Error(fmt.Sprintf("Failed #%d attempt: %v", attempt, result.err))
			break
		}

		logger.Error(fmt.Sprintf("Failed #%d attempt. Retrying: %v", attempt, result.err))
		if err := sleepContext(ctx, o.retryDelay(attempt)); err != nil {
			task.Err = err
			break
		}
	}

	logger.DPanic(fmt.Sprintf("Giving up after %d tries", task.Attempts), zap.Error(task.Err))
	task.Outcome = OutcomeFailed
	return task
}

// attemptResult is the outcome of one attempt
type attemptResult struct {
	path  string
	track *TrackMetadata
	err   error
}

func (o *Orchestrator) attempt(ctx context.Context, job TrackJob, logger *zap.Logger) (result attemptResult) {
	progress := &trackProgress{counter: o.progress}
	defer func() {
		if r := recover(); r != nil {
			result = attemptResult{err: NewDownloadError(ErrorUnknown, fmt.Sprintf("panic: %v", r))}
		}
		if result.err != nil {
			progress.rollback()
		}
	}()

	if err := ctx.Err(); err != nil {
		return attemptResult{err: NewDownloadErrorWithCause(ErrorCancelled, "download cancelled", err)}
	}

	stream, err := o.session.OpenAudioStream(ctx, job.TrackID, o.selector)
	if err != nil {
		return attemptResult{err: err}
	}
	defer stream.Body.Close()

	path, err := BuildOutputPath(o.opts.OutputTemplate, o.opts.FilenameTemplate, stream.Track, stream.Variant.Codec)
	if err != nil {
		return attemptResult{err: NewDownloadErrorWithCause(ErrorFileSystemError, "failed to build output path", err)}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return attemptResult{err: NewDownloadErrorWithCause(ErrorFileSystemError, "failed to create output directory", err).
			WithContext("path", path)}
	}

	logger.Info(fmt.Sprintf("Downloading %s", path),
		zap.String("format", stream.Variant.Format),
		zap.String("size", humanize.Bytes(uint64(max(stream.Size, 0)))))

	if err := o.writeFile(path, stream, progress, logger); err != nil {
		return attemptResult{err: err}
	}

	cover := o.fetchCover(ctx, stream.CoverFileID, logger)
	tagged, err := o.tagFile(ctx, path, stream.Track, cover)
	switch {
	case err != nil:
		logger.Error("Failed to write metadata", zap.String("path", path), zap.Error(err))
	case !tagged:
		logger.Debug("No tagger for container, leaving file untagged", zap.String("path", path))
	}

	return attemptResult{path: path, track: &stream.Track}
}

// tagFile runs the tag writer on a finished file. A panicking tagger yields a
// tagging error so the download itself still counts.
func (o *Orchestrator) tagFile(ctx context.Context, path string, meta TrackMetadata, cover []byte) (tagged bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			tagged = false
			err = NewDownloadError(ErrorTaggingFailure, fmt.Sprintf("tagger panicked: %v", r)).
				WithContext("path", path)
		}
	}()
	return o.tagger.Write(ctx, path, meta, cover)
}

func (o *Orchestrator) writeFile(path string, stream *AudioStream, progress ProgressSink, logger *zap.Logger) error {
	f, err := os.Create(path)
	if err != nil {
		return NewDownloadErrorWithCause(ErrorFileSystemError, "failed to create output file", err).
			WithContext("path", path)
	}

	opts := []CopyOption{WithProgress(progress)}
	if stream.Transform != nil {
		opts = append(opts, WithTransform(stream.Transform))
	}
	if o.opts.ChunkSizes != nil {
		opts = append(opts, WithChunkSizes(o.opts.ChunkSizes()))
	}

	written, err := CopyStream(stream.Body, f, stream.Size, opts...)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = NewDownloadErrorWithCause(ErrorFileSystemError, "failed to close output file", closeErr)
	}
	if err != nil {
		return err
	}

	if written < stream.Size {
		logger.Warn("Source ended early, output zero-padded",
			zap.String("received", humanize.Bytes(uint64(written))),
			zap.String("expected", humanize.Bytes(uint64(stream.Size))))
	}
	return nil
}

// fetchCover returns nil when the track has no cover or the fetch fails; the
// file is then tagged without a picture.
func (o *Orchestrator) fetchCover(ctx context.Context, fileID string, logger *zap.Logger) []byte {
	if fileID == "" {
		return nil
	}
	cover, err := o.session.FetchBlob(ctx, fileID)
	if err != nil {
		logger.Warn("Cover art unavailable, tagging without it", zap.String("file_id", fileID), zap.Error(err))
		return nil
	}
	return cover
}

func (o *Orchestrator) isArchived(ctx context.Context, job TrackJob, logger *zap.Logger) bool {
	if o.archive == nil {
		return false
	}
	archived, err := o.archive.Has(ctx, job.TrackID)
	if err != nil {
		logger.Warn("Archive lookup failed", zap.Error(err))
		return false
	}
	if archived {
		logger.Info("Already downloaded, skipping")
	}
	return archived
}

func (o *Orchestrator) finish(ctx context.Context, task *DownloadTask, logger *zap.Logger) {
	if o.archive != nil {
		if err := o.archive.Record(ctx, task.Job.TrackID, task.Path); err != nil {
			logger.Warn("Failed to record download in archive", zap.Error(err))
		}
	}
	if o.uploader != nil {
		location, err := o.uploader.Upload(ctx, task.Path)
		if err != nil {
			logger.Error("Upload failed", zap.String("path", task.Path), zap.Error(err))
			return
		}
		logger.Info(fmt.Sprintf("Uploaded %s", location))
	}
}

func (o *Orchestrator) retryDelay(attempt int) time.Duration {
	if o.opts.RetryDelay <= 0 {
		return 0
	}
	delay := o.opts.RetryDelay
	for i := 1; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	return min(delay, maxRetryDelay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return NewDownloadErrorWithCause(ErrorCancelled, "retry wait cancelled", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// trackProgress forwards one attempt's progress and can take it back if the attempt fails
type trackProgress struct {
	counter *ProgressCounter
	added   float64
}

func (p *trackProgress) Add(delta float64) {
	p.added += delta
	p.counter.Add(delta)
}

func (p *trackProgress) rollback() {
	if p.added != 0 {
		p.counter.Add(-p.added)
		p.added = 0
	}
}
