package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mos9527/librespot-dl/config"
	"github.com/mos9527/librespot-dl/session"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// login authenticates with stored credentials or an email and password,
// prompting for the password on a terminal. The credentials that worked are
// saved when --save is set.
func login(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*session.Session, error) {
	creds, err := loadOrBuildCredentials(cfg, logger)
	if err != nil {
		return nil, err
	}

	sess, err := session.Authenticate(ctx, cfg.Bridge, creds, session.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	if cfg.Save != "" {
		logger.Info(fmt.Sprintf("Saving credentials to file %s", cfg.Save))
		if err := session.SaveCredentials(cfg.Save, creds); err != nil {
			logger.Warn("Failed to save credentials", zap.Error(err))
		}
	}
	return sess, nil
}

func loadOrBuildCredentials(cfg *config.Config, logger *zap.Logger) (session.Credentials, error) {
	if cfg.Load != "" {
		logger.Info(fmt.Sprintf("Loading credentials from file %s", cfg.Load))
		return session.LoadCredentials(cfg.Load)
	}

	password := cfg.Password
	if password == "" {
		var err error
		if password, err = promptPassword(); err != nil {
			return session.Credentials{}, err
		}
	}
	return session.PasswordCredentials(cfg.Email, password), nil
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--password is required when stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) == 0 {
		return "", errors.New("password cannot be empty")
	}
	return string(password), nil
}
