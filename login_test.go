package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mos9527/librespot-dl/config"
	"github.com/mos9527/librespot-dl/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newLoginBridge accepts only creds on POST /login
func newLoginBridge(t *testing.T, creds session.Credentials) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var got session.Credentials
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil || got != creds {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "t0k3n", "username": got.Username})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLogin_LoadAndSaveCopiesCredentials(t *testing.T) {
	dir := t.TempDir()
	stored := session.PasswordCredentials("user@example.com", "secret")
	in := filepath.Join(dir, "in.json")
	out := filepath.Join(dir, "out.json")
	require.NoError(t, session.SaveCredentials(in, stored))

	srv := newLoginBridge(t, stored)
	cfg := &config.Config{Bridge: srv.URL, Load: in, Save: out}

	sess, err := login(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", sess.Username())

	saved, err := session.LoadCredentials(out)
	require.NoError(t, err)
	assert.Equal(t, stored, saved)
}

func TestLogin_PasswordLoginSaves(t *testing.T) {
	out := filepath.Join(t.TempDir(), "creds.json")
	want := session.PasswordCredentials("user@example.com", "secret")

	srv := newLoginBridge(t, want)
	cfg := &config.Config{Bridge: srv.URL, Email: "user@example.com", Password: "secret", Save: out}

	_, err := login(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	saved, err := session.LoadCredentials(out)
	require.NoError(t, err)
	assert.Equal(t, want, saved)
}

func TestLogin_FailedLoginDoesNotSave(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	out := filepath.Join(dir, "out.json")
	require.NoError(t, session.SaveCredentials(in, session.PasswordCredentials("user@example.com", "wrong")))

	srv := newLoginBridge(t, session.PasswordCredentials("user@example.com", "secret"))
	cfg := &config.Config{Bridge: srv.URL, Load: in, Save: out}

	_, err := login(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.NoFileExists(t, out)
}
