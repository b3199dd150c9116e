package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/mos9527/librespot-dl/downloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "session-token"

var testTrackID = "6rqhFgbbKwnb9MLmUQDhG6"

// newBridge serves a minimal bridge with one album, one playlist and one track
func newBridge(t *testing.T) *httptest.Server {
	t.Helper()
	audio := make([]byte, 1234)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Username != "user@example.com" || req.Credentials != PasswordCredentials("", "secret").Credentials {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(loginResponse{Token: testToken})
	})

	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+testToken {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			h(w, r)
		}
	}

	mux.HandleFunc("GET /metadata/album/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "album1" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{"name":"Record","discs":[
			{"number":1,"tracks":[{"gid":"0000000000000000000000000000003e"}]},
			{"number":2,"tracks":[{"gid":"0000000000000000000000000000003d"},{"gid":"00000000000000000000000000000001"}]}]}`)
	}))
	mux.HandleFunc("GET /metadata/playlist/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"attributes":{"name":"Mix","description":"daily"},
			"contents":{"items":[{"uri":"spotify:track:`+testTrackID+`"}]}}`)
	}))
	mux.HandleFunc("GET /tracks/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"name":"Song","artists":[{"name":"A"},{"name":"B"}],
			"number":3,"disc_number":1,"duration":215000,
			"album":{"name":"Record","artists":[{"name":"A"}],"label":"Label","date":{"year":2020},
				"cover_group":{"image":[{"file_id":"cover1"},{"file_id":"cover2"}]}},
			"files":[{"file_id":"low","format":"OGG_VORBIS_96"},{"file_id":"high","format":"OGG_VORBIS_320"},
				{"file_id":"weird","format":"FLAC_FLAC"}]}`)
	}))
	mux.HandleFunc("GET /audio/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-File-Id", r.PathValue("id"))
		w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
		w.Write(audio)
	}))
	mux.HandleFunc("GET /image/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "cover1" {
			http.Error(w, "gone", http.StatusGone)
			return
		}
		io.WriteString(w, "jpeg-bytes")
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, srv *httptest.Server) *Session {
	t.Helper()
	s, err := Authenticate(context.Background(), srv.URL, PasswordCredentials("user@example.com", "secret"))
	require.NoError(t, err)
	return s
}

func TestAuthenticate(t *testing.T) {
	srv := newBridge(t)

	s := login(t, srv)
	assert.Equal(t, "user@example.com", s.Username())

	_, err := Authenticate(context.Background(), srv.URL, PasswordCredentials("user@example.com", "wrong"))
	require.Error(t, err)
	assert.True(t, downloader.IsDownloadError(err, downloader.ErrorAuthFailure))
	assert.False(t, downloader.IsRetryable(err))
}

func TestAuthenticate_InvalidInput(t *testing.T) {
	_, err := Authenticate(context.Background(), "://nope", PasswordCredentials("u", "p"))
	assert.Error(t, err)

	_, err = Authenticate(context.Background(), "http://127.0.0.1:1", Credentials{Username: "u"})
	assert.True(t, downloader.IsDownloadError(err, downloader.ErrorAuthFailure))
}

func TestSession_Album(t *testing.T) {
	s := login(t, newBridge(t))

	album, err := s.Album(context.Background(), "album1")
	require.NoError(t, err)
	assert.Equal(t, "Record", album.Name)
	require.Len(t, album.Discs, 2)
	assert.Equal(t, 2, album.Discs[1].Number)
	assert.Equal(t, []string{"0000000000000000000000000000003d", "00000000000000000000000000000001"}, album.Discs[1].TrackGIDs)

	_, err = s.Album(context.Background(), "missing")
	assert.True(t, downloader.IsDownloadError(err, downloader.ErrorNotFound))
}

func TestSession_Playlist(t *testing.T) {
	s := login(t, newBridge(t))

	p, err := s.Playlist(context.Background(), "pl")
	require.NoError(t, err)
	assert.Equal(t, "Mix", p.Name)
	assert.Equal(t, "daily", p.Description)
	assert.Equal(t, []string{"spotify:track:" + testTrackID}, p.ItemURIs)
}

func TestSession_OpenAudioStream(t *testing.T) {
	s := login(t, newBridge(t))
	id, err := downloader.TrackIDFromBase62(testTrackID)
	require.NoError(t, err)

	for _, tc := range []struct {
		pref   downloader.QualityPreference
		fileID string
	}{
		{downloader.PreferBest, "high"},
		{downloader.PreferWorst, "low"},
	} {
		stream, err := s.OpenAudioStream(context.Background(), id, &downloader.QualitySelector{Preference: tc.pref})
		require.NoError(t, err)

		assert.Equal(t, tc.fileID, stream.Variant.FileID)
		assert.Equal(t, int64(1234), stream.Size)
		assert.Equal(t, "cover1", stream.CoverFileID)
		assert.Equal(t, downloader.TrackMetadata{
			Title:        "Song",
			Artists:      []string{"A", "B"},
			AlbumArtists: []string{"A"},
			Album:        "Record",
			TrackNumber:  3,
			DiscNumber:   1,
			ReleaseYear:  2020,
			Copyright:    "Label",
			Duration:     215 * time.Second,
		}, stream.Track)

		data, err := io.ReadAll(stream.Body)
		require.NoError(t, err)
		assert.Len(t, data, 1234)
		stream.Body.Close()
	}
}

func TestSession_FetchBlob(t *testing.T) {
	s := login(t, newBridge(t))

	data, err := s.FetchBlob(context.Background(), "cover1")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	_, err = s.FetchBlob(context.Background(), "cover2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "410")
}

func TestSession_MissingContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			io.WriteString(w, `{"token":"t"}`)
		case "/tracks/" + testTrackID:
			io.WriteString(w, `{"files":[{"file_id":"f","format":"MP3_320"}]}`)
		default:
			// chunked encoding leaves Content-Length unset
			w.(http.Flusher).Flush()
			w.Write([]byte("data"))
		}
	}))
	defer srv.Close()

	s, err := Authenticate(context.Background(), srv.URL, PasswordCredentials("u", "p"))
	require.NoError(t, err)
	id, _ := downloader.TrackIDFromBase62(testTrackID)

	_, err = s.OpenAudioStream(context.Background(), id, &downloader.QualitySelector{})
	require.Error(t, err)
	assert.True(t, downloader.IsDownloadError(err, downloader.ErrorNetworkFailure))
}

func TestCredentials_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	creds := PasswordCredentials("user@example.com", "secret")
	assert.Equal(t, "c2VjcmV0", creds.Credentials)
	assert.Equal(t, AuthTypeUserPass, creds.Type)

	require.NoError(t, SaveCredentials(path, creds))

	loaded, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, creds, loaded)
}

func TestLoadCredentials_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCredentials(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(dir, "partial.json")
	require.NoError(t, SaveCredentials(path, Credentials{Username: "u"}))
	_, err = LoadCredentials(path)
	assert.Error(t, err)
}
