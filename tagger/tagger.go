// Package tagger writes catalog metadata and cover art into downloaded audio
// files. The container format is picked from the file extension through a
// lookup table of strategies.
package tagger

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mos9527/librespot-dl/downloader"
	"go.uber.org/zap"
)

// Strategy tags one container format in place
type Strategy interface {
	Name() string
	Write(ctx context.Context, path string, meta downloader.TrackMetadata, cover []byte) error
}

// Writer dispatches to the Strategy registered for a file's extension
type Writer struct {
	strategies map[string]Strategy
	logger     *zap.Logger
}

// NewWriter returns a Writer with the MP4, MP3, FLAC and Ogg strategies registered
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Writer{
		strategies: make(map[string]Strategy),
		logger:     logger,
	}

	mp4 := NewMP4Strategy(logger)
	for _, ext := range []string{"m4a", "m4b", "m4p", "mp4"} {
		w.Register(ext, mp4)
	}
	w.Register("mp3", NewMP3Strategy(logger))
	w.Register("flac", NewFLACStrategy(logger))
	ogg := NewOggStrategy(logger)
	for _, ext := range []string{"ogg", "ogv"} {
		w.Register(ext, ogg)
	}
	return w
}

// Register binds s to ext. The extension is matched case-insensitively and
// may be given with or without the leading dot.
func (w *Writer) Register(ext string, s Strategy) {
	w.strategies[normalizeExt(ext)] = s
}

// Lookup returns the strategy that handles path, if any
func (w *Writer) Lookup(path string) (Strategy, bool) {
	s, ok := w.strategies[normalizeExt(filepath.Ext(path))]
	return s, ok
}

// Write tags path with meta and cover. Files without a registered strategy are
// left untouched and reported as not tagged.
// A strategy that panics on a malformed file is reported as a tagging failure.
func (w *Writer) Write(ctx context.Context, path string, meta downloader.TrackMetadata, cover []byte) (tagged bool, err error) {
	s, ok := w.Lookup(path)
	if !ok {
		w.logger.Debug("No tagger for file type, skipping", zap.String("path", path))
		return false, nil
	}

	defer func() {
		if r := recover(); r != nil {
			tagged = false
			err = downloader.NewDownloadError(downloader.ErrorTaggingFailure,
				fmt.Sprintf("%s tagger panicked: %v", s.Name(), r)).
				WithContext("path", path)
		}
	}()

	if err := s.Write(ctx, path, meta, cover); err != nil {
		return false, downloader.NewDownloadErrorWithCause(downloader.ErrorTaggingFailure,
			fmt.Sprintf("%s tagging failed", s.Name()), err).
			WithContext("path", path)
	}
	return true, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// field is one logical tag with its values in catalog order
type field struct {
	key    string
	values []string
}

func (f field) joined() string {
	return strings.Join(f.values, ", ")
}

// metadataFields lists the populated tag fields of meta. Zero numbers and
// empty strings are left out so existing values in the file survive.
func metadataFields(meta downloader.TrackMetadata) []field {
	var fields []field
	add := func(key string, values ...string) {
		var kept []string
		for _, v := range values {
			if v != "" {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			fields = append(fields, field{key: key, values: kept})
		}
	}
	number := func(n int) string {
		if n <= 0 {
			return ""
		}
		return strconv.Itoa(n)
	}

	add("title", meta.Title)
	add("artist", meta.Artists...)
	add("albumartist", meta.AlbumArtists...)
	add("album", meta.Album)
	add("tracknumber", number(meta.TrackNumber))
	add("date", number(meta.ReleaseYear))
	add("copyright", meta.Copyright)
	add("discnumber", number(meta.DiscNumber))
	return fields
}

// coverMIME sniffs the image type of cover, defaulting to JPEG
func coverMIME(cover []byte) string {
	if mime := http.DetectContentType(cover); mime == "image/png" {
		return mime
	}
	return "image/jpeg"
}
