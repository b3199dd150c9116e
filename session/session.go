// Package session talks to the local librespot bridge, the HTTP service that
// holds the streaming-service login and serves catalog metadata, audio
// payloads and cover images.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mos9527/librespot-dl/downloader"
	"go.uber.org/zap"
)

const (
	// DefaultBridgeURL is where the bridge listens unless configured otherwise
	DefaultBridgeURL = "http://127.0.0.1:24879"

	metadataTimeout = 30 * time.Second
)

// Session is an authenticated bridge connection. It implements downloader.Session.
type Session struct {
	baseURL  *url.URL
	token    string
	username string
	client   *http.Client
	logger   *zap.Logger
}

// Option configures a Session
type Option func(*Session)

// WithHTTPClient replaces the default HTTP client. Audio bodies are streamed
// so the client should not set an overall timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Session) {
		s.client = client
	}
}

// WithLogger sets the logger for debug output
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

type loginRequest struct {
	Username    string `json:"username"`
	Credentials string `json:"credentials"`
	Type        string `json:"type"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Authenticate logs in to the bridge at baseURL. Rejected credentials are
// reported as an ErrorAuthFailure.
func Authenticate(ctx context.Context, baseURL string, creds Credentials, opts ...Option) (*Session, error) {
	if baseURL == "" {
		baseURL = DefaultBridgeURL
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, downloader.NewDownloadErrorWithCause(downloader.ErrorNetworkFailure,
			fmt.Sprintf("invalid bridge URL %q", baseURL), err)
	}

	s := &Session{
		baseURL:  u,
		username: creds.Username,
		client:   &http.Client{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := creds.Validate(); err != nil {
		return nil, downloader.NewDownloadErrorWithCause(downloader.ErrorAuthFailure, "invalid credentials", err)
	}

	body, err := json.Marshal(loginRequest{
		Username:    creds.Username,
		Credentials: creds.Credentials,
		Type:        creds.Type,
	})
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := s.doJSON(ctx, http.MethodPost, "/login", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, downloader.NewDownloadError(downloader.ErrorAuthFailure, "bridge returned an empty session token")
	}

	s.token = resp.Token
	if resp.Username != "" {
		s.username = resp.Username
	}
	s.logger.Debug("Authenticated with bridge", zap.String("bridge", u.String()), zap.String("username", s.username))
	return s, nil
}

// Username returns the account the session is logged in as
func (s *Session) Username() string {
	return s.username
}

// Album fetches the disc layout of an album
func (s *Session) Album(ctx context.Context, id string) (*downloader.Album, error) {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	var resp albumResponse
	if err := s.doJSON(ctx, http.MethodGet, "/metadata/album/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.toAlbum(), nil
}

// Playlist fetches a playlist's attributes and item URIs
func (s *Session) Playlist(ctx context.Context, id string) (*downloader.Playlist, error) {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	var resp playlistResponse
	if err := s.doJSON(ctx, http.MethodGet, "/metadata/playlist/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.toPlaylist(), nil
}

// OpenAudioStream loads track metadata, lets selector pick a file and opens
// its payload. The caller owns the returned Body.
func (s *Session) OpenAudioStream(ctx context.Context, id downloader.TrackID, selector downloader.VariantSelector) (*downloader.AudioStream, error) {
	metaCtx, cancel := context.WithTimeout(ctx, metadataTimeout)
	var track trackResponse
	err := s.doJSON(metaCtx, http.MethodGet, "/tracks/"+id.Base62(), nil, &track)
	cancel()
	if err != nil {
		return nil, err
	}

	variants := make([]downloader.QualityVariant, 0, len(track.Files))
	for _, f := range track.Files {
		variants = append(variants, downloader.NewQualityVariant(f.FileID, f.Format))
	}
	variant, err := selector.Select(variants)
	if err != nil {
		return nil, err
	}

	resp, err := s.do(ctx, http.MethodGet, "/audio/"+url.PathEscape(variant.FileID), nil)
	if err != nil {
		return nil, err
	}

	size, err := declaredSize(resp)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}

	s.logger.Debug("Opened audio stream",
		zap.String("track", id.Base62()),
		zap.String("format", variant.Format),
		zap.Int64("size", size))

	return &downloader.AudioStream{
		Variant:     variant,
		Body:        resp.Body,
		Size:        size,
		Track:       track.toMetadata(),
		CoverFileID: track.coverFileID(),
	}, nil
}

// FetchBlob downloads an image by file id
func (s *Session) FetchBlob(ctx context.Context, fileID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	resp, err := s.do(ctx, http.MethodGet, "/image/"+url.PathEscape(fileID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, downloader.NewDownloadErrorWithCause(downloader.ErrorNetworkFailure, "failed to read image", err)
	}
	return data, nil
}

func declaredSize(resp *http.Response) (int64, error) {
	header := resp.Header.Get("Content-Length")
	if header == "" {
		return 0, downloader.NewDownloadError(downloader.ErrorNetworkFailure, "audio response has no Content-Length")
	}
	size, err := strconv.ParseInt(header, 10, 64)
	if err != nil || size < 0 {
		return 0, downloader.NewDownloadErrorWithCause(downloader.ErrorNetworkFailure,
			fmt.Sprintf("invalid Content-Length %q", header), err)
	}
	return size, nil
}

func (s *Session) doJSON(ctx context.Context, method, path string, body io.Reader, out any) error {
	resp, err := s.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return downloader.NewDownloadErrorWithCause(downloader.ErrorNetworkFailure,
			fmt.Sprintf("failed to decode %s response", path), err)
	}
	return nil
}

// do sends one request and maps transport failures and error statuses onto
// the download error taxonomy. The body of a returned response is open.
func (s *Session) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL.String()+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, downloader.NewDownloadErrorWithCause(downloader.ErrorTimeout, path+" timed out", err)
			}
			return nil, downloader.NewDownloadErrorWithCause(downloader.ErrorCancelled, path+" cancelled", err)
		}
		return nil, downloader.NewDownloadErrorWithCause(downloader.ErrorNetworkFailure, path+" failed", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()
	return nil, statusError(path, resp.StatusCode, strings.TrimSpace(string(detail)))
}

func statusError(path string, status int, detail string) error {
	errorType := downloader.ErrorNetworkFailure
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		errorType = downloader.ErrorAuthFailure
	case http.StatusNotFound:
		errorType = downloader.ErrorNotFound
	}

	msg := fmt.Sprintf("%s: HTTP %d", path, status)
	if detail != "" {
		msg += ": " + detail
	}
	return downloader.NewDownloadError(errorType, msg).WithContext("status", status)
}
