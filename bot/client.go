// Package bot posts batch progress to a Telegram chat through a gotgproto bot client.
package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/tg"
	"github.com/mos9527/librespot-dl/config"
	"go.uber.org/zap"
)

// TelegramBot wraps the gotgproto client and provides bot lifecycle management
type TelegramBot struct {
	client *gotgproto.Client
	peer   tg.InputPeerClass
	logger *zap.Logger
	config *config.TelegramConfig
}

// NewTelegramBot creates a new TelegramBot instance. The client connects on Start.
func NewTelegramBot(cfg *config.TelegramConfig, logger *zap.Logger) (*TelegramBot, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &TelegramBot{
		config: cfg,
		logger: logger.Named("telegram"),
	}, nil
}

// Start logs the bot in and resolves the target chat. The session and known
// peers are persisted in SQLite so restarts reuse them.
func (b *TelegramBot) Start() error {
	if b.client != nil {
		return errors.New("bot is already started")
	}
	b.logger.Debug("Starting Telegram bot", zap.String("session", b.config.SessionPath))

	clientOpts := &gotgproto.ClientOpts{
		Session:          sessionMaker.SqlSession(sqlite.Open(b.config.SessionPath)),
		Logger:           b.logger,
		DisableCopyright: true,
	}

	client, err := gotgproto.NewClient(b.config.APIID, b.config.APIHash, gotgproto.ClientTypeBot(b.config.Token), clientOpts)
	if err != nil {
		return fmt.Errorf("failed to create gotgproto client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	peer, err := resolvePeer(ctx, client.PeerStorage, client.API(), b.config.ChatID)
	if err != nil {
		client.Stop()
		return fmt.Errorf("failed to resolve chat %d: %w", b.config.ChatID, err)
	}

	b.client = client
	b.peer = peer
	b.logger.Info("Telegram notifications enabled", zap.Int64("chat", b.config.ChatID))
	return nil
}

// Stop gracefully shuts down the bot
func (b *TelegramBot) Stop() {
	if b.client == nil {
		return
	}
	b.client.Stop()
	b.client = nil
	b.peer = nil
	b.logger.Debug("Telegram bot stopped")
}

// IsRunning returns true if the bot is currently logged in
func (b *TelegramBot) IsRunning() bool {
	return b.client != nil
}

// Reporter returns a progress reporter posting to the configured chat
func (b *TelegramBot) Reporter() (*TelegramProgressReporter, error) {
	if b.client == nil {
		return nil, errors.New("bot is not started")
	}
	return NewTelegramProgressReporterForPeer(b.client.API(), b.config.ChatID, b.peer), nil
}
