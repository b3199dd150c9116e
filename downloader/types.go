package downloader

import (
	"io"
	"time"
)

// LocatorKind is the resource type named by a locator
type LocatorKind int

const (
	KindTrack LocatorKind = iota
	KindAlbum
	KindPlaylist
)

// String returns the URL path segment for the kind
func (k LocatorKind) String() string {
	switch k {
	case KindTrack:
		return "track"
	case KindAlbum:
		return "album"
	case KindPlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// ResourceLocator is a parsed track, album or playlist reference
type ResourceLocator struct {
	Kind LocatorKind `json:"kind"`
	ID   string      `json:"id"`
}

// TrackJob is a single track scheduled for download
type TrackJob struct {
	TrackID TrackID `json:"track_id"`
	Ordinal int     `json:"ordinal"`
}

// TrackMetadata contains the catalog fields written into tags and templates
type TrackMetadata struct {
	Title        string        `json:"title"`
	Artists      []string      `json:"artists"`
	AlbumArtists []string      `json:"album_artists"`
	Album        string        `json:"album"`
	TrackNumber  int           `json:"track_number"`
	DiscNumber   int           `json:"disc_number"`
	ReleaseYear  int           `json:"release_year"`
	Copyright    string        `json:"copyright"`
	Duration     time.Duration `json:"duration"`
}

// Album is the catalog view of an album: discs in catalog order
type Album struct {
	Name  string `json:"name"`
	Discs []Disc `json:"discs"`
}

// Disc lists the hex gids of its tracks in catalog order
type Disc struct {
	Number    int      `json:"number"`
	TrackGIDs []string `json:"track_gids"`
}

// Playlist is the catalog view of a playlist
type Playlist struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ItemURIs    []string `json:"item_uris"`
}

// ChunkTransform rewrites a chunk before it reaches the destination
type ChunkTransform func([]byte) ([]byte, error)

// AudioStream is an opened, size-declared audio payload for one track
type AudioStream struct {
	Variant     QualityVariant
	Body        io.ReadCloser
	Size        int64
	Track       TrackMetadata
	CoverFileID string
	Transform   ChunkTransform
}

// Outcome is the terminal state of a DownloadTask
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DownloadTask binds a job to its destination and records how it ended
type DownloadTask struct {
	ID       string         `json:"id"`
	Job      TrackJob       `json:"job"`
	Path     string         `json:"path,omitempty"`
	Track    *TrackMetadata `json:"track,omitempty"`
	Attempts int            `json:"attempts"`
	Outcome  Outcome        `json:"outcome"`
	Err      error          `json:"-"`
	Duration time.Duration  `json:"duration"`
}

// Summary aggregates the terminal tasks of one run
type Summary struct {
	Title     string          `json:"title"`
	Total     int             `json:"total"`
	Succeeded int             `json:"succeeded"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	Results   []*DownloadTask `json:"results"`
	Elapsed   time.Duration   `json:"elapsed"`
}

func (s *Summary) add(task *DownloadTask) {
	s.Results = append(s.Results, task)
	switch task.Outcome {
	case OutcomeSucceeded:
		s.Succeeded++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

// HasFailures reports whether any task gave up
func (s *Summary) HasFailures() bool {
	return s.Failed > 0
}
