// Package playlist exports finished batches as M3U8 playlists.
package playlist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grafov/m3u8"
	"github.com/mos9527/librespot-dl/downloader"
)

// Entry is one playlist line
type Entry struct {
	Path     string
	Title    string
	Duration time.Duration
}

// FromSummary lists the succeeded tracks of a batch in ordinal order
func FromSummary(summary *downloader.Summary) []Entry {
	var entries []Entry
	for _, task := range summary.Results {
		if task.Outcome != downloader.OutcomeSucceeded || task.Path == "" {
			continue
		}
		entry := Entry{Path: task.Path}
		if task.Track != nil {
			entry.Title = displayTitle(*task.Track)
			entry.Duration = task.Track.Duration
		}
		entries = append(entries, entry)
	}
	return entries
}

func displayTitle(meta downloader.TrackMetadata) string {
	if len(meta.Artists) == 0 {
		return meta.Title
	}
	return strings.Join(meta.Artists, ", ") + " - " + meta.Title
}

// Write encodes entries as a closed media playlist at path. Entry paths are
// written relative to the playlist's directory when possible.
func Write(path string, entries []Entry) error {
	p, err := m3u8.NewMediaPlaylist(0, uint(max(len(entries), 1)))
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := p.Append(relativeURI(base, e.Path), e.Duration.Seconds(), e.Title); err != nil {
			return fmt.Errorf("failed to add %s: %w", e.Path, err)
		}
	}
	p.Close()

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create playlist directory: %w", err)
	}
	if err := os.WriteFile(path, p.Encode().Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write playlist: %w", err)
	}
	return nil
}

func relativeURI(base, target string) string {
	abs, err := filepath.Abs(target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}
