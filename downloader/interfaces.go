package downloader

import (
	"context"
	"time"
)

// Catalog answers album and playlist listing queries
type Catalog interface {
	// Album returns the discs and track gids of an album
	Album(ctx context.Context, id string) (*Album, error)

	// Playlist returns the item URIs of a playlist
	Playlist(ctx context.Context, id string) (*Playlist, error)
}

// Session is an authenticated connection to the streaming service
type Session interface {
	Catalog

	// OpenAudioStream lists the track's variants, lets selector choose one and opens it
	OpenAudioStream(ctx context.Context, id TrackID, selector VariantSelector) (*AudioStream, error)

	// FetchBlob downloads a small non-streamed file such as cover art
	FetchBlob(ctx context.Context, fileID string) ([]byte, error)
}

// VariantSelector picks one encoding among those a track offers
type VariantSelector interface {
	Select(variants []QualityVariant) (QualityVariant, error)
}

// ProgressSink receives fractional track progress from the stream writer
type ProgressSink interface {
	Add(delta float64)
}

// TagWriter embeds metadata and cover art into a finished file.
// tagged is false when the container is not supported.
type TagWriter interface {
	Write(ctx context.Context, path string, meta TrackMetadata, cover []byte) (tagged bool, err error)
}

// Archive remembers which tracks were already downloaded
type Archive interface {
	Has(ctx context.Context, id TrackID) (bool, error)
	Record(ctx context.Context, id TrackID, path string) error
}

// Uploader copies a finished file to remote storage and returns its location
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Progress is a point-in-time view of a batch
type Progress struct {
	Completed  float64       `json:"completed"`
	Total      int           `json:"total"`
	Percentage float64       `json:"percentage"`
	Elapsed    time.Duration `json:"elapsed"`
}

// ProgressReporter interface defines the contract for reporting batch progress to an external system
type ProgressReporter interface {
	// StartTracking begins progress tracking for a named batch
	StartTracking(ctx context.Context, title string, total int) error

	// UpdateProgress reports the current batch progress
	UpdateProgress(progress Progress) error

	// ReportError reports an error that aborted the batch
	ReportError(err error) error

	// ReportComplete reports the final batch summary
	ReportComplete(summary *Summary) error

	// Stop stops progress tracking and cleans up resources
	Stop()
}
