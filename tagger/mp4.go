package tagger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Sorrow446/go-mp4tag"
	"github.com/abema/go-mp4"
	"github.com/mos9527/librespot-dl/downloader"
	"go.uber.org/zap"
)

// MP4Strategy writes iTunes-style atoms into MP4/M4A containers
type MP4Strategy struct {
	logger *zap.Logger
}

// NewMP4Strategy creates an MP4Strategy
func NewMP4Strategy(logger *zap.Logger) *MP4Strategy {
	return &MP4Strategy{logger: logger}
}

// Name implements Strategy
func (s *MP4Strategy) Name() string { return "mp4" }

// Write refuses files without a moov box, then replaces the ilst atoms
func (s *MP4Strategy) Write(ctx context.Context, path string, meta downloader.TrackMetadata, cover []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// go-mp4tag rewrites the file around moov, so refuse anything without one
	if err := probeMoov(path); err != nil {
		return err
	}

	file, err := mp4tag.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open mp4 file: %w", err)
	}
	defer file.Close()

	tags := &mp4tag.MP4Tags{}
	for _, f := range metadataFields(meta) {
		switch f.key {
		case "title":
			tags.Title = f.joined()
		case "artist":
			tags.Artist = f.joined()
		case "albumartist":
			tags.AlbumArtist = f.joined()
		case "album":
			tags.Album = f.joined()
		case "tracknumber":
			tags.TrackNumber = int16(meta.TrackNumber)
		case "discnumber":
			tags.DiscNumber = int16(meta.DiscNumber)
		case "date":
			tags.Year = int32(meta.ReleaseYear)
		case "copyright":
			tags.Copyright = f.joined()
		}
	}
	var remove []string
	if len(cover) > 0 {
		format := mp4tag.ImageTypeJPEG
		if coverMIME(cover) == "image/png" {
			format = mp4tag.ImageTypePNG
		}
		tags.Pictures = []*mp4tag.MP4Picture{{Format: format, Data: cover}}
		// go-mp4tag appends to the existing covr atom unless told to drop it
		remove = append(remove, "allpictures")
	}

	if err := file.Write(tags, remove); err != nil {
		return fmt.Errorf("failed to write mp4 tags: %w", err)
	}
	s.logger.Debug("Wrote mp4 tags", zap.String("path", path), zap.String("fields", fieldKeys(meta)))
	return nil
}

func probeMoov(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	boxes, err := mp4.ExtractBox(f, nil, mp4.BoxPath{mp4.BoxTypeMoov()})
	if err != nil {
		return fmt.Errorf("failed to read mp4 structure: %w", err)
	}
	if len(boxes) == 0 {
		return errors.New("no moov box found")
	}
	return nil
}

func fieldKeys(meta downloader.TrackMetadata) string {
	var keys []string
	for _, f := range metadataFields(meta) {
		keys = append(keys, f.key)
	}
	return strings.Join(keys, ",")
}
