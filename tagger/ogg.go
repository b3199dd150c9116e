package tagger

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-flac/flacpicture"
	"github.com/mos9527/librespot-dl/downloader"
	"go.uber.org/zap"
)

// ErrFFmpegNotFound is returned when the ffmpeg binary cannot be located
var ErrFFmpegNotFound = errors.New("ffmpeg not found in PATH")

// OggStrategy remuxes Ogg Vorbis files through ffmpeg with a new comment
// header. The cover is embedded as a METADATA_BLOCK_PICTURE comment.
type OggStrategy struct {
	ffmpegPath string
	logger     *zap.Logger
}

// NewOggStrategy creates an OggStrategy that runs ffmpeg from PATH
func NewOggStrategy(logger *zap.Logger) *OggStrategy {
	return &OggStrategy{ffmpegPath: "ffmpeg", logger: logger}
}

// Name implements Strategy
func (s *OggStrategy) Name() string { return "vorbis" }

// Write remuxes path with the new comments and renames the result over it
func (s *OggStrategy) Write(ctx context.Context, path string, meta downloader.TrackMetadata, cover []byte) error {
	ffmpegPath, err := exec.LookPath(s.ffmpegPath)
	if err != nil {
		return ErrFFmpegNotFound
	}

	picture := ""
	if len(cover) > 0 {
		picture, err = metadataBlockPicture(cover)
		if err != nil {
			s.logger.Warn("Failed to encode cover for vorbis comment", zap.Error(err))
		}
	}

	dir := filepath.Dir(path)
	metaFile, err := os.CreateTemp(dir, ".tags-*.txt")
	if err != nil {
		return fmt.Errorf("failed to create metadata file: %w", err)
	}
	defer os.Remove(metaFile.Name())

	if _, err := metaFile.WriteString(renderFFMetadata(metadataFields(meta), picture)); err != nil {
		metaFile.Close()
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	if err := metaFile.Close(); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	ext := filepath.Ext(path)
	tmpPath := strings.TrimSuffix(path, ext) + ".tagging" + ext
	args := []string{
		"-y", "-v", "error",
		"-i", path,
		"-f", "ffmetadata", "-i", metaFile.Name(),
		"-map", "0:a",
		"-map_metadata:s:a:0", "1:g",
		"-c", "copy",
		tmpPath,
	}

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(tmpPath)
		return newFFmpegError(cmd, stderr.Bytes(), err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace original file: %w", err)
	}
	return nil
}

// renderFFMetadata renders fields as an ffmetadata document. Multi-valued
// fields are comma-joined since ffmetadata keeps one value per key.
func renderFFMetadata(fields []field, picture string) string {
	var b strings.Builder
	b.WriteString(";FFMETADATA1\n")
	for _, f := range fields {
		b.WriteString(strings.ToUpper(f.key))
		b.WriteByte('=')
		b.WriteString(escapeFFMetadata(f.joined()))
		b.WriteByte('\n')
	}
	if picture != "" {
		b.WriteString("METADATA_BLOCK_PICTURE=")
		b.WriteString(picture)
		b.WriteByte('\n')
	}
	return b.String()
}

var ffmetadataEscaper = strings.NewReplacer(
	`\`, `\\`,
	"=", `\=`,
	";", `\;`,
	"#", `\#`,
	"\n", "\\\n",
)

func escapeFFMetadata(v string) string {
	return ffmetadataEscaper.Replace(v)
}

// metadataBlockPicture encodes cover the way Vorbis comments carry pictures:
// a base64 FLAC picture block without the block header
func metadataBlockPicture(cover []byte) (string, error) {
	picture, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front cover", cover, coverMIME(cover))
	if err != nil {
		return "", err
	}
	block := picture.Marshal()
	return base64.StdEncoding.EncodeToString(block.Data), nil
}

// ffmpegError wraps ffmpeg failures with the command line and its output
type ffmpegError struct {
	cmd     string
	output  string
	wrapped error
}

func (e *ffmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %s\nCommand: %s\nOutput: %s", e.wrapped, e.cmd, e.output)
}

func (e *ffmpegError) Unwrap() error {
	return e.wrapped
}

func newFFmpegError(cmd *exec.Cmd, output []byte, err error) error {
	cmdStr := cmd.String()
	if len(cmdStr) > 200 {
		cmdStr = cmdStr[:200] + "..."
	}
	return &ffmpegError{
		cmd:     cmdStr,
		output:  string(output),
		wrapped: err,
	}
}
