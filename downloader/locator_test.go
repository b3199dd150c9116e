package downloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected ResourceLocator
	}{
		{
			name:     "track URL",
			input:    "https://open.spotify.com/track/6rqhFgbbKwnb9MLmUQDhG6",
			expected: ResourceLocator{Kind: KindTrack, ID: "6rqhFgbbKwnb9MLmUQDhG6"},
		},
		{
			name:     "album URL with query string",
			input:    "https://open.spotify.com/album/1DFixLWuPkv3KT3TnV35m3?si=abc123",
			expected: ResourceLocator{Kind: KindAlbum, ID: "1DFixLWuPkv3KT3TnV35m3"},
		},
		{
			name:     "playlist URL with locale prefix",
			input:    "https://open.spotify.com/intl-de/playlist/37i9dQZF1DXcBWIGoYBM5M",
			expected: ResourceLocator{Kind: KindPlaylist, ID: "37i9dQZF1DXcBWIGoYBM5M"},
		},
		{
			name:     "bare path",
			input:    "track/abc",
			expected: ResourceLocator{Kind: KindTrack, ID: "abc"},
		},
		{
			name:     "first match wins",
			input:    "album/AAA/track/BBB",
			expected: ResourceLocator{Kind: KindAlbum, ID: "AAA"},
		},
		{
			name:     "id stops at first non-alphanumeric",
			input:    "playlist/abc-def",
			expected: ResourceLocator{Kind: KindPlaylist, ID: "abc"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestResolve_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"https://open.spotify.com/artist/0OdUWJ0sBjDrqHygGUXeCF",
		"spotify:track:6rqhFgbbKwnb9MLmUQDhG6",
		"https://open.spotify.com/track/",
		"tracks",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Resolve(input)
			require.Error(t, err)
			assert.True(t, IsDownloadError(err, ErrorInvalidLocator), "expected invalid_locator, got %v", err)
		})
	}
}
