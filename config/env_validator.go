package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvBridgeURL       = "LIBRESPOT_BRIDGE_URL"
	EnvGCSCredentials  = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvTelegramToken   = "TELEGRAM_BOT_TOKEN"
	EnvTelegramAPIID   = "TELEGRAM_API_ID"
	EnvTelegramAPIHash = "TELEGRAM_API_HASH"
	EnvTelegramChatID  = "TELEGRAM_CHAT_ID"
	EnvTelegramSession = "TELEGRAM_SESSION"

	defaultTelegramSession = "bot_session.db"
)

var telegramVars = []string{EnvTelegramToken, EnvTelegramAPIID, EnvTelegramAPIHash, EnvTelegramChatID}

// TelegramConfig holds the credentials of the optional batch notifier
type TelegramConfig struct {
	Token       string // Telegram bot token
	APIID       int    // Telegram API ID
	APIHash     string // Telegram API Hash
	ChatID      int64  // chat that receives progress messages
	SessionPath string // gotgproto SQLite session file
}

// EnvValidator reads and validates the environment variables the downloader understands
type EnvValidator struct{}

// NewEnvValidator creates a new environment validator instance
func NewEnvValidator() *EnvValidator {
	return &EnvValidator{}
}

// BridgeURL returns the bridge URL from the environment, if set
func (e *EnvValidator) BridgeURL() string {
	return os.Getenv(EnvBridgeURL)
}

// GCSCredentialsFile returns the service account key file for uploads
func (e *EnvValidator) GCSCredentialsFile() string {
	return os.Getenv(EnvGCSCredentials)
}

// ValidateTelegram checks that the Telegram variables are either all set or all unset
func (e *EnvValidator) ValidateTelegram() error {
	_, err := e.Telegram()
	return err
}

// Telegram returns the notifier configuration, or nil when none of the
// Telegram variables are set. A partial set is an error.
func (e *EnvValidator) Telegram() (*TelegramConfig, error) {
	var missingVars []string
	for _, varName := range telegramVars {
		if value := os.Getenv(varName); value == "" {
			missingVars = append(missingVars, varName)
		}
	}

	if len(missingVars) == len(telegramVars) {
		return nil, nil
	}
	if len(missingVars) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v. Set all of %v to enable Telegram notifications", missingVars, telegramVars)
	}

	apiIDStr := os.Getenv(EnvTelegramAPIID)
	apiID, err := strconv.Atoi(apiIDStr)
	if err != nil || apiID <= 0 {
		return nil, fmt.Errorf("%s must be a positive integer, got: %s", EnvTelegramAPIID, apiIDStr)
	}

	chatIDStr := os.Getenv(EnvTelegramChatID)
	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil || chatID == 0 {
		return nil, fmt.Errorf("%s must be a non-zero integer, got: %s", EnvTelegramChatID, chatIDStr)
	}

	sessionPath := os.Getenv(EnvTelegramSession)
	if sessionPath == "" {
		sessionPath = defaultTelegramSession
	}

	return &TelegramConfig{
		Token:       os.Getenv(EnvTelegramToken),
		APIID:       apiID,
		APIHash:     os.Getenv(EnvTelegramAPIHash),
		ChatID:      chatID,
		SessionPath: ExpandPath(sessionPath),
	}, nil
}
