package tagger

import (
	"context"
	"fmt"

	"github.com/bogem/id3v2/v2"
	"github.com/mos9527/librespot-dl/downloader"
	"go.uber.org/zap"
)

// id3Frames maps logical fields onto ID3v2.3 text frames
var id3Frames = map[string]string{
	"title":       "TIT2",
	"artist":      "TPE1",
	"albumartist": "TPE2",
	"album":       "TALB",
	"tracknumber": "TRCK",
	"date":        "TYER",
	"copyright":   "TCOP",
	"discnumber":  "TPOS",
}

// MP3Strategy writes an ID3v2.3 tag, creating one when the file has none
type MP3Strategy struct {
	logger *zap.Logger
}

// NewMP3Strategy creates an MP3Strategy
func NewMP3Strategy(logger *zap.Logger) *MP3Strategy {
	return &MP3Strategy{logger: logger}
}

// Name implements Strategy
func (s *MP3Strategy) Name() string { return "id3" }

// Write opens or creates the ID3v2.3 tag and saves it with the new frames
func (s *MP3Strategy) Write(ctx context.Context, path string, meta downloader.TrackMetadata, cover []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open id3 tag: %w", err)
	}
	defer tag.Close()

	tag.SetVersion(3)
	tag.SetDefaultEncoding(id3v2.EncodingUTF16)

	for _, f := range metadataFields(meta) {
		frameID, ok := id3Frames[f.key]
		if !ok {
			s.logger.Warn("No id3 frame for field", zap.String("field", f.key))
			continue
		}
		tag.AddTextFrame(frameID, id3v2.EncodingUTF16, f.joined())
	}

	if len(cover) > 0 {
		tag.DeleteFrames("APIC")
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingISO,
			MimeType:    coverMIME(cover),
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     cover,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save id3 tag: %w", err)
	}
	return nil
}
