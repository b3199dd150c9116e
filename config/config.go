// Package config resolves the downloader's settings from CLI flags, an
// optional YAML defaults file, .env and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mos9527/librespot-dl/downloader"
	"github.com/mos9527/librespot-dl/session"
)

const (
	DefaultLogLevel         = "INFO"
	DefaultFilenameTemplate = "{artist} - {title}"
	DefaultOutputTemplate   = "."
	DefaultQuality          = "BEST"
)

// Config is the fully resolved run configuration
type Config struct {
	URL      string
	LogLevel string

	Load     string // stored credentials file
	Save     string // where to store credentials after logging in
	Email    string
	Password string

	Template string // filename template
	Output   string // output directory template
	Quality  downloader.QualityPreference

	Bridge       string
	Workers      int
	Attempts     int
	RetryDelay   time.Duration
	FailExitCode int
	NoProgress   bool

	Archive string
	M3U     string

	GCSBucket      string
	GCSPrefix      string
	GCSCredentials string

	Telegram *TelegramConfig
}

// LoadEnv loads .env from the working directory if present
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Resolve merges args over file over env over defaults, then validates the result
func Resolve(args *Args, file *FileConfig, env *EnvValidator) (*Config, error) {
	if file == nil {
		file = &FileConfig{}
	}
	if env == nil {
		env = NewEnvValidator()
	}

	quality := firstNonEmpty(args.Quality, file.Quality, DefaultQuality)
	pref, err := downloader.ParseQualityPreference(quality)
	if err != nil {
		return nil, err
	}

	telegram, err := env.Telegram()
	if err != nil {
		return nil, fmt.Errorf("environment validation failed: %w", err)
	}

	cfg := &Config{
		URL:            args.URL,
		LogLevel:       strings.ToUpper(firstNonEmpty(args.LogLevel, file.LogLevel, DefaultLogLevel)),
		Load:           ExpandPath(firstNonEmpty(args.Load, file.Load)),
		Save:           ExpandPath(args.Save),
		Email:          args.Email,
		Password:       args.Password,
		Template:       firstNonEmpty(args.Template, file.Template, DefaultFilenameTemplate),
		Output:         firstNonEmpty(args.Output, file.Output, DefaultOutputTemplate),
		Quality:        pref,
		Bridge:         firstNonEmpty(args.Bridge, file.Bridge, env.BridgeURL(), session.DefaultBridgeURL),
		Workers:        firstSet(args.Workers, file.Workers, downloader.DefaultWorkers),
		Attempts:       firstSet(args.Attempts, file.Attempts, downloader.DefaultMaxAttempts),
		RetryDelay:     file.RetryDelay,
		FailExitCode:   firstSet(args.FailExitCode, file.FailExitCode, 0),
		NoProgress:     args.NoProgress || file.NoProgress,
		Archive:        ExpandPath(firstNonEmpty(args.Archive, file.Archive)),
		M3U:            ExpandPath(firstNonEmpty(args.M3U, file.M3U)),
		GCSBucket:      firstNonEmpty(args.GCSBucket, file.GCSBucket),
		GCSPrefix:      firstNonEmpty(args.GCSPrefix, file.GCSPrefix),
		GCSCredentials: env.GCSCredentialsFile(),
		Telegram:       telegram,
	}
	if args.RetryDelay != nil {
		cfg.RetryDelay = *args.RetryDelay
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate performs additional validation on the resolved configuration
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("url cannot be empty")
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	if c.Load == "" && c.Email == "" {
		return errors.New("either --load or --email is required")
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got: %d", c.Workers)
	}
	if c.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1, got: %d", c.Attempts)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative, got: %s", c.RetryDelay)
	}
	if c.FailExitCode < 0 || c.FailExitCode > 255 {
		return fmt.Errorf("fail exit code must be between 0 and 255, got: %d", c.FailExitCode)
	}

	if err := downloader.ValidateTemplate(c.Template); err != nil {
		return fmt.Errorf("invalid filename template: %w", err)
	}
	if err := downloader.ValidateTemplate(c.Output); err != nil {
		return fmt.Errorf("invalid output template: %w", err)
	}

	if c.GCSPrefix != "" && c.GCSBucket == "" {
		return errors.New("--gcs-prefix requires --gcs-bucket")
	}
	return nil
}

// DownloaderOptions returns the orchestrator options for this configuration
func (c *Config) DownloaderOptions() downloader.Options {
	return downloader.Options{
		OutputTemplate:   c.Output,
		FilenameTemplate: c.Template,
		Quality:          c.Quality,
		Workers:          c.Workers,
		MaxAttempts:      c.Attempts,
		RetryDelay:       c.RetryDelay,
	}
}

// ExpandPath replaces a leading ~ with the user's home directory
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstSet(flag, file *int, def int) int {
	if flag != nil {
		return *flag
	}
	if file != nil {
		return *file
	}
	return def
}
