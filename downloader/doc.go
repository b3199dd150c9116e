// Package downloader implements the resolve-and-retrieve pipeline: locator
// parsing, catalog expansion, quality selection, fixed-length stream copies and
// the retrying, pooled orchestration of track downloads.
//
// The package defines core interfaces and data structures for:
//   - Session and Catalog: the streaming service as seen by the pipeline
//   - TagWriter, Archive and Uploader: post-download collaborators
//   - ProgressReporter: batch progress reporting for external systems
//   - Error handling with structured DownloadError types
package downloader
