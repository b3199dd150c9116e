// Package storage uploads finished downloads to Google Cloud Storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const uploadTimeout = 5 * time.Minute

// GCSUploader copies local files into a bucket, keeping their layout
// relative to a base directory. It implements downloader.Uploader.
type GCSUploader struct {
	client  *storage.Client
	bucket  string
	prefix  string
	baseDir string
	logger  *zap.Logger
}

// NewGCSUploader creates an uploader for bucket. Objects are named
// prefix/<path relative to baseDir>. Without credentialsFile the application
// default credentials are used.
func NewGCSUploader(ctx context.Context, bucket, prefix, baseDir, credentialsFile string, logger *zap.Logger) (*GCSUploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var client *storage.Client
	var err error
	if credentialsFile != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	} else {
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSUploader{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		baseDir: baseDir,
		logger:  logger,
	}, nil
}

// Upload copies localPath into the bucket and returns its gs:// URL
func (u *GCSUploader) Upload(ctx context.Context, localPath string) (string, error) {
	objectName, err := ObjectName(u.prefix, u.baseDir, localPath)
	if err != nil {
		return "", err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	wc := u.client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentType(localPath)
	if _, err = io.Copy(wc, f); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to copy file to GCS: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}

	url := fmt.Sprintf("gs://%s/%s", u.bucket, objectName)
	u.logger.Debug("Uploaded file", zap.String("path", localPath), zap.String("object", url))
	return url, nil
}

// Close releases the storage client
func (u *GCSUploader) Close() error {
	return u.client.Close()
}

// ObjectName maps localPath onto an object name under prefix. Paths inside
// baseDir keep their relative layout; anything else is stored by file name.
func ObjectName(prefix, baseDir, localPath string) (string, error) {
	absPath, err := filepath.Abs(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", localPath, err)
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", baseDir, err)
	}

	name := filepath.Base(absPath)
	if rel, err := filepath.Rel(absBase, absPath); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		name = filepath.ToSlash(rel)
	}

	return path.Join(strings.Trim(prefix, "/"), name), nil
}

func contentType(localPath string) string {
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".ogg":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	case ".aac":
		return "audio/aac"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}
