package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name      string
		prefix    string
		localPath string
		expected  string
	}{
		{"relative layout kept", "", filepath.Join(base, "Artist", "Album", "01 Song.ogg"), "Artist/Album/01 Song.ogg"},
		{"prefix applied", "music/", filepath.Join(base, "Song.mp3"), "music/Song.mp3"},
		{"nested prefix trimmed", "/a/b/", filepath.Join(base, "x", "Song.mp3"), "a/b/x/Song.mp3"},
		{"outside base falls back to name", "music", filepath.Join(filepath.Dir(base), "elsewhere.ogg"), "music/elsewhere.ogg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ObjectName(tt.prefix, base, tt.localPath)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "audio/ogg", contentType("a/b.OGG"))
	assert.Equal(t, "audio/mpeg", contentType("b.mp3"))
	assert.Equal(t, "application/octet-stream", contentType("b.bin"))
}
