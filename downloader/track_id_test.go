package downloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackID_Encodings(t *testing.T) {
	testCases := []struct {
		name   string
		hex    string
		base62 string
	}{
		{"zero", "00000000000000000000000000000000", "0000000000000000000000"},
		{"one", "00000000000000000000000000000001", "0000000000000000000001"},
		{"sixty-two", "0000000000000000000000000000003e", "0000000000000000000010"},
		{"sixty-one", "0000000000000000000000000000003d", "000000000000000000000Z"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fromHex, err := TrackIDFromHex(tc.hex)
			require.NoError(t, err)
			assert.Equal(t, tc.base62, fromHex.Base62())

			fromBase62, err := TrackIDFromBase62(tc.base62)
			require.NoError(t, err)
			assert.Equal(t, tc.hex, fromBase62.Hex())
			assert.Equal(t, fromHex, fromBase62)
		})
	}
}

func TestTrackID_RoundTrip(t *testing.T) {
	ids := []string{"6rqhFgbbKwnb9MLmUQDhG6", "1DFixLWuPkv3KT3TnV35m3", "37i9dQZF1DXcBWIGoYBM5M"}
	for _, s := range ids {
		id, err := TrackIDFromBase62(s)
		require.NoError(t, err)
		assert.Equal(t, s, id.Base62())

		again, err := TrackIDFromHex(id.Hex())
		require.NoError(t, err)
		assert.Equal(t, s, again.String())
	}
}

func TestTrackID_Invalid(t *testing.T) {
	_, err := TrackIDFromBase62("short")
	assert.True(t, IsDownloadError(err, ErrorInvalidLocator))

	_, err = TrackIDFromBase62("6rqhFgbbKwnb9MLmUQDh-6")
	assert.True(t, IsDownloadError(err, ErrorInvalidLocator))

	// 62^22 exceeds 2^128
	_, err = TrackIDFromBase62("ZZZZZZZZZZZZZZZZZZZZZZ")
	assert.True(t, IsDownloadError(err, ErrorInvalidLocator))

	_, err = TrackIDFromHex("xyz")
	assert.True(t, IsDownloadError(err, ErrorInvalidLocator))

	_, err = TrackIDFromHex("zz000000000000000000000000000000")
	assert.True(t, IsDownloadError(err, ErrorInvalidLocator))
}

func TestTrackIDFromURI(t *testing.T) {
	id, err := TrackIDFromURI("spotify:track:6rqhFgbbKwnb9MLmUQDhG6")
	require.NoError(t, err)
	assert.Equal(t, "6rqhFgbbKwnb9MLmUQDhG6", id.Base62())

	id, err = TrackIDFromURI("6rqhFgbbKwnb9MLmUQDhG6")
	require.NoError(t, err)
	assert.Equal(t, "6rqhFgbbKwnb9MLmUQDhG6", id.Base62())

	_, err = TrackIDFromURI("spotify:local:::")
	assert.Error(t, err)
}

func TestTrackID_TextMarshaling(t *testing.T) {
	id, err := TrackIDFromBase62("6rqhFgbbKwnb9MLmUQDhG6")
	require.NoError(t, err)

	text, err := id.MarshalText()
	require.NoError(t, err)

	var decoded TrackID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, id, decoded)
}
