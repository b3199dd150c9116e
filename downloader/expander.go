package downloader

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Expander turns a locator into the ordered list of tracks it names
type Expander struct {
	catalog Catalog
	logger  *zap.Logger
}

// Expansion is the result of expanding one locator
type Expansion struct {
	Title string
	Jobs  []TrackJob
}

// NewExpander creates an Expander backed by catalog
func NewExpander(catalog Catalog, logger *zap.Logger) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{catalog: catalog, logger: logger}
}

// Expand lists the track jobs for locator. Albums are flattened disc-major,
// playlists keep item order. A catalog error fails the whole expansion.
func (e *Expander) Expand(ctx context.Context, locator ResourceLocator) (*Expansion, error) {
	switch locator.Kind {
	case KindTrack:
		id, err := TrackIDFromBase62(locator.ID)
		if err != nil {
			return nil, err
		}
		return &Expansion{Title: id.Base62(), Jobs: []TrackJob{{TrackID: id, Ordinal: 0}}}, nil
	case KindAlbum:
		return e.expandAlbum(ctx, locator.ID)
	case KindPlaylist:
		return e.expandPlaylist(ctx, locator.ID)
	default:
		return nil, NewDownloadError(ErrorUnsupportedLocatorKind, fmt.Sprintf("unsupported locator kind %s", locator.Kind)).
			WithContext("id", locator.ID)
	}
}

func (e *Expander) expandAlbum(ctx context.Context, id string) (*Expansion, error) {
	if err := ValidateBase62ID(id); err != nil {
		return nil, err
	}

	album, err := e.catalog.Album(ctx, id)
	if err != nil {
		return nil, catalogError("album", id, err)
	}
	e.logger.Info(fmt.Sprintf("Album | %s", album.Name))

	var jobs []TrackJob
	for _, disc := range album.Discs {
		e.logger.Info(fmt.Sprintf("Disc %d | %d tracks", disc.Number, len(disc.TrackGIDs)))
		for _, gid := range disc.TrackGIDs {
			tid, err := TrackIDFromHex(gid)
			if err != nil {
				return nil, catalogError("album", id, err)
			}
			jobs = append(jobs, TrackJob{TrackID: tid, Ordinal: len(jobs)})
		}
	}
	return &Expansion{Title: album.Name, Jobs: jobs}, nil
}

func (e *Expander) expandPlaylist(ctx context.Context, id string) (*Expansion, error) {
	if id == "" {
		return nil, NewDownloadError(ErrorInvalidLocator, "empty playlist id")
	}

	playlist, err := e.catalog.Playlist(ctx, id)
	if err != nil {
		return nil, catalogError("playlist", id, err)
	}
	e.logger.Info(fmt.Sprintf("Playlist | %s", playlist.Name))
	if playlist.Description != "" {
		e.logger.Info(playlist.Description)
	}
	e.logger.Info(fmt.Sprintf("Tracks: %d", len(playlist.ItemURIs)))

	jobs := make([]TrackJob, 0, len(playlist.ItemURIs))
	for _, uri := range playlist.ItemURIs {
		tid, err := TrackIDFromURI(uri)
		if err != nil {
			return nil, catalogError("playlist", id, err)
		}
		jobs = append(jobs, TrackJob{TrackID: tid, Ordinal: len(jobs)})
	}
	return &Expansion{Title: playlist.Name, Jobs: jobs}, nil
}

func catalogError(kind, id string, err error) error {
	if IsDownloadError(err, ErrorAuthFailure, ErrorCancelled) {
		return err
	}
	return NewDownloadErrorWithCause(ErrorCatalogFailure, fmt.Sprintf("failed to list %s", kind), err).
		WithContext("id", id)
}
