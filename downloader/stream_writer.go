package downloader

import (
	"errors"
	"io"
	"iter"
)

// DefaultChunkSize is the read size used when no chunk size generator is supplied
const DefaultChunkSize = 65536

type copyConfig struct {
	chunkSizes iter.Seq[int]
	transform  ChunkTransform
	progress   ProgressSink
}

// CopyOption configures CopyStream
type CopyOption func(*copyConfig)

// WithChunkSizes pulls each read size from seq. When seq is exhausted or yields
// a non-positive size, DefaultChunkSize is used instead.
func WithChunkSizes(seq iter.Seq[int]) CopyOption {
	return func(c *copyConfig) {
		c.chunkSizes = seq
	}
}

// WithTransform rewrites every chunk before it is written
func WithTransform(fn ChunkTransform) CopyOption {
	return func(c *copyConfig) {
		c.transform = fn
	}
}

// WithProgress reports len(chunk)/expectedSize to sink after every read
func WithProgress(sink ProgressSink) CopyOption {
	return func(c *copyConfig) {
		c.progress = sink
	}
}

// CopyStream copies up to expectedSize bytes from src to dst. A source that ends
// early is not an error: dst is padded with zero bytes up to expectedSize.
// The returned count excludes the padding.
func CopyStream(src io.Reader, dst io.Writer, expectedSize int64, opts ...CopyOption) (int64, error) {
	cfg := &copyConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	nextSize := func() int { return DefaultChunkSize }
	if cfg.chunkSizes != nil {
		next, stop := iter.Pull(cfg.chunkSizes)
		defer stop()
		nextSize = func() int {
			if size, ok := next(); ok && size > 0 {
				return size
			}
			return DefaultChunkSize
		}
	}

	var (
		bytesRead    int64
		bytesWritten int64
		buf          []byte
	)
	for bytesRead < expectedSize {
		size := int64(nextSize())
		if remaining := expectedSize - bytesRead; size > remaining {
			size = remaining
		}
		if int64(len(buf)) < size {
			buf = make([]byte, size)
		}

		n, err := io.ReadFull(src, buf[:size])
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return bytesWritten, NewDownloadErrorWithCause(ErrorNetworkFailure, "failed to read audio stream", err).
				WithContext("offset", bytesRead)
		}
		if n == 0 {
			break
		}
		bytesRead += int64(n)

		if cfg.progress != nil {
			cfg.progress.Add(float64(n) / float64(expectedSize))
		}

		chunk := buf[:n]
		if cfg.transform != nil {
			if chunk, err = cfg.transform(chunk); err != nil {
				return bytesWritten, NewDownloadErrorWithCause(ErrorUnknown, "chunk transform failed", err).
					WithContext("offset", bytesRead)
			}
		}

		written, err := dst.Write(chunk)
		bytesWritten += int64(written)
		if err != nil {
			return bytesWritten, NewDownloadErrorWithCause(ErrorFileSystemError, "failed to write audio data", err)
		}
	}

	if pad := expectedSize - bytesWritten; pad > 0 {
		if err := writeZeros(dst, pad); err != nil {
			return bytesWritten, NewDownloadErrorWithCause(ErrorFileSystemError, "failed to pad output", err).
				WithContext("padding", pad)
		}
	}
	return bytesWritten, nil
}

func writeZeros(dst io.Writer, n int64) error {
	zeros := make([]byte, min(n, DefaultChunkSize))
	for n > 0 {
		size := min(n, int64(len(zeros)))
		written, err := dst.Write(zeros[:size])
		if err != nil {
			return err
		}
		n -= int64(written)
	}
	return nil
}
