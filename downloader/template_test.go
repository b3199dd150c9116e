package downloader

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMetadata() TrackMetadata {
	return TrackMetadata{
		Title:        "Harder, Better",
		Artists:      []string{"Daft Punk", "Guest"},
		AlbumArtists: []string{"Daft Punk"},
		Album:        "Discovery",
		TrackNumber:  4,
		DiscNumber:   1,
		ReleaseYear:  2001,
		Copyright:    "Virgin",
	}
}

func TestTemplateFields(t *testing.T) {
	fields := TemplateFields(testMetadata())
	assert.Equal(t, map[string]string{
		"title":       "Harder, Better",
		"artist":      "Daft Punk,Guest",
		"albumartist": "Daft Punk",
		"album":       "Discovery",
		"tracknumber": "4",
		"date":        "2001",
		"copyright":   "Virgin",
		"discnumber":  "1",
	}, fields)
}

func TestRenderTemplate(t *testing.T) {
	fields := TemplateFields(testMetadata())
	testCases := []struct {
		name     string
		template string
		expected string
	}{
		{"default filename", "{artist} - {title}", "Daft Punk,Guest - Harder, Better"},
		{"literal text only", "music", "music"},
		{"escaped braces", "{{album}}", "{album}"},
		{"right aligned with fill", "{tracknumber:0>2} {title}", "04 Harder, Better"},
		{"left aligned", "[{date:<6}]", "[2001  ]"},
		{"centered", "[{discnumber:*^3}]", "[*1*]"},
		{"width smaller than value", "{album:2}", "Discovery"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RenderTemplate(tc.template, fields)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestRenderTemplate_Errors(t *testing.T) {
	fields := TemplateFields(testMetadata())
	for _, tmpl := range []string{"{genre}", "{title", "title}", "{tracknumber:abc}"} {
		t.Run(tmpl, func(t *testing.T) {
			_, err := RenderTemplate(tmpl, fields)
			assert.Error(t, err)
		})
	}
}

func TestValidateTemplate(t *testing.T) {
	assert.NoError(t, ValidateTemplate("{albumartist}/{album}"))
	assert.Error(t, ValidateTemplate("{year}"))
}

func TestBuildOutputPath(t *testing.T) {
	meta := testMetadata()
	meta.Artists = []string{"AC/DC"}

	path, err := BuildOutputPath("music/{albumartist}/{album}", "{tracknumber:0>2} {artist} - {title}", meta, CodecVorbis)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("music", "Daft Punk", "Discovery", "04 AC_DC - Harder, Better.ogg"), path)
}

func TestBuildOutputPath_Defaults(t *testing.T) {
	path, err := BuildOutputPath(".", "{artist} - {title}", testMetadata(), CodecMP3)
	require.NoError(t, err)
	assert.Equal(t, "Daft Punk,Guest - Harder, Better.mp3", path)
}
