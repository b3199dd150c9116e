package config

import (
	"strings"
	"testing"
)

func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for _, name := range append(telegramVars, EnvTelegramSession, EnvBridgeURL, EnvGCSCredentials) {
		t.Setenv(name, "")
	}
	for key, value := range vars {
		t.Setenv(key, value)
	}
}

func TestEnvValidator_Telegram(t *testing.T) {
	validator := NewEnvValidator()

	tests := []struct {
		name        string
		envVars     map[string]string
		expectNil   bool
		expectError bool
		errorMsg    string
	}{
		{
			name:      "no telegram variables",
			envVars:   map[string]string{},
			expectNil: true,
		},
		{
			name: "all telegram variables present",
			envVars: map[string]string{
				EnvTelegramToken:   "test_token",
				EnvTelegramAPIID:   "12345",
				EnvTelegramAPIHash: "test_hash",
				EnvTelegramChatID:  "-1001234567890",
			},
		},
		{
			name: "missing chat id",
			envVars: map[string]string{
				EnvTelegramToken:   "test_token",
				EnvTelegramAPIID:   "12345",
				EnvTelegramAPIHash: "test_hash",
			},
			expectError: true,
			errorMsg:    "missing required environment variables: [TELEGRAM_CHAT_ID]",
		},
		{
			name: "only a token",
			envVars: map[string]string{
				EnvTelegramToken: "test_token",
			},
			expectError: true,
			errorMsg:    "missing required environment variables: [TELEGRAM_API_ID TELEGRAM_API_HASH TELEGRAM_CHAT_ID]",
		},
		{
			name: "invalid API ID format",
			envVars: map[string]string{
				EnvTelegramToken:   "test_token",
				EnvTelegramAPIID:   "not_a_number",
				EnvTelegramAPIHash: "test_hash",
				EnvTelegramChatID:  "42",
			},
			expectError: true,
			errorMsg:    "TELEGRAM_API_ID must be a positive integer",
		},
		{
			name: "invalid chat id",
			envVars: map[string]string{
				EnvTelegramToken:   "test_token",
				EnvTelegramAPIID:   "12345",
				EnvTelegramAPIHash: "test_hash",
				EnvTelegramChatID:  "general",
			},
			expectError: true,
			errorMsg:    "TELEGRAM_CHAT_ID must be a non-zero integer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.envVars)

			cfg, err := validator.Telegram()

			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error but got none")
				}
				if !strings.HasPrefix(err.Error(), tt.errorMsg) {
					t.Errorf("expected error message to start with %q, got %q", tt.errorMsg, err.Error())
				}
				if validator.ValidateTelegram() == nil {
					t.Errorf("ValidateTelegram should agree with Telegram")
				}
				return
			}

			if err != nil {
				t.Fatalf("expected no error but got: %v", err)
			}
			if tt.expectNil {
				if cfg != nil {
					t.Errorf("expected no telegram config, got %+v", cfg)
				}
				return
			}
			if cfg.APIID != 12345 || cfg.ChatID != -1001234567890 || cfg.Token != "test_token" || cfg.APIHash != "test_hash" {
				t.Errorf("unexpected telegram config %+v", cfg)
			}
			if cfg.SessionPath != defaultTelegramSession {
				t.Errorf("expected default session path, got %q", cfg.SessionPath)
			}
		})
	}
}

func TestEnvValidator_BridgeAndGCS(t *testing.T) {
	setEnv(t, map[string]string{
		EnvBridgeURL:      "http://bridge:9000",
		EnvGCSCredentials: "/secrets/key.json",
	})
	validator := NewEnvValidator()

	if got := validator.BridgeURL(); got != "http://bridge:9000" {
		t.Errorf("BridgeURL() = %q", got)
	}
	if got := validator.GCSCredentialsFile(); got != "/secrets/key.json" {
		t.Errorf("GCSCredentialsFile() = %q", got)
	}
}
