package tagger

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	"github.com/mos9527/librespot-dl/downloader"
	"go.uber.org/zap"
)

// FLACStrategy rewrites the Vorbis comment block and front cover picture
type FLACStrategy struct {
	logger *zap.Logger
}

// NewFLACStrategy creates a FLACStrategy
func NewFLACStrategy(logger *zap.Logger) *FLACStrategy {
	return &FLACStrategy{logger: logger}
}

// Name implements Strategy
func (s *FLACStrategy) Name() string { return "flac" }

// Write replaces the VORBIS_COMMENT and PICTURE blocks and rewrites the file
func (s *FLACStrategy) Write(ctx context.Context, path string, meta downloader.TrackMetadata, cover []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse flac file: %w", err)
	}

	cmts, idx, err := vorbisComments(f)
	if err != nil {
		return err
	}

	fields := metadataFields(meta)
	cmts.Comments = dropKeys(cmts.Comments, fields)
	for _, fl := range fields {
		for _, v := range fl.values {
			if err := cmts.Add(strings.ToUpper(fl.key), v); err != nil {
				s.logger.Warn("Failed to set flac field",
					zap.String("field", fl.key), zap.Error(err))
			}
		}
	}

	block := cmts.Marshal()
	if idx >= 0 {
		f.Meta[idx] = &block
	} else {
		f.Meta = append(f.Meta, &block)
	}

	if len(cover) > 0 {
		picture, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front cover", cover, coverMIME(cover))
		if err != nil {
			s.logger.Warn("Failed to build flac picture", zap.Error(err))
		} else {
			pictureBlock := picture.Marshal()
			f.Meta = append(removePictures(f.Meta), &pictureBlock)
		}
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save flac file: %w", err)
	}
	return nil
}

// vorbisComments returns the existing comment block and its index, or a new
// block and -1
func vorbisComments(f *flac.File) (*flacvorbis.MetaDataBlockVorbisComment, int, error) {
	for i, meta := range f.Meta {
		if meta.Type != flac.VorbisComment {
			continue
		}
		cmts, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err != nil {
			return nil, -1, fmt.Errorf("failed to parse vorbis comments: %w", err)
		}
		return cmts, i, nil
	}
	return flacvorbis.New(), -1, nil
}

func dropKeys(comments []string, fields []field) []string {
	replaced := make(map[string]bool, len(fields))
	for _, f := range fields {
		replaced[strings.ToUpper(f.key)] = true
	}

	kept := comments[:0]
	for _, c := range comments {
		key, _, _ := strings.Cut(c, "=")
		if !replaced[strings.ToUpper(key)] {
			kept = append(kept, c)
		}
	}
	return kept
}

func removePictures(blocks []*flac.MetaDataBlock) []*flac.MetaDataBlock {
	kept := blocks[:0]
	for _, b := range blocks {
		if b.Type != flac.Picture {
			kept = append(kept, b)
		}
	}
	return kept
}
