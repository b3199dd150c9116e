package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML defaults file. Every key mirrors a CLI flag;
// flags win over the file.
type FileConfig struct {
	LogLevel     string        `yaml:"log_level"`
	Load         string        `yaml:"load"`
	Template     string        `yaml:"template"`
	Output       string        `yaml:"output"`
	Quality      string        `yaml:"quality"`
	Bridge       string        `yaml:"bridge"`
	Workers      *int          `yaml:"workers"`
	Attempts     *int          `yaml:"attempts"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	Archive      string        `yaml:"archive"`
	M3U          string        `yaml:"m3u"`
	GCSBucket    string        `yaml:"gcs_bucket"`
	GCSPrefix    string        `yaml:"gcs_prefix"`
	FailExitCode *int          `yaml:"fail_exit_code"`
	NoProgress   bool          `yaml:"no_progress"`
}

// LoadFile reads a YAML defaults file. An empty path yields an empty config.
// Unknown keys are rejected.
func LoadFile(path string) (*FileConfig, error) {
	cfg := &FileConfig{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}
