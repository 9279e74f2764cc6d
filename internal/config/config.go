// Package config loads the FloorSync daemon configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	// DBPath is the location of the local SQLite database.
	DBPath string `yaml:"db_path"`
	// ListenAddr is the local API listen address.
	ListenAddr string `yaml:"listen_addr"`
	// RemoteURL is the base URL of the plant server.
	RemoteURL string `yaml:"remote_url"`
	// PushTimeout bounds a single batch upload.
	PushTimeout time.Duration `yaml:"push_timeout"`
	// StatusInterval is how often connectivity and pending counts are polled.
	StatusInterval time.Duration `yaml:"status_interval"`
	// SyncInterval is how often a background sync attempt is made.
	SyncInterval time.Duration `yaml:"sync_interval"`
	// SeedUsers controls whether the default accounts are created at startup.
	SeedUsers bool `yaml:"seed_users"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		DBPath:         filepath.Join(homeDir, ".floorsync", "floorsync.db"),
		ListenAddr:     "127.0.0.1:7610",
		RemoteURL:      "http://127.0.0.1:8080",
		PushTimeout:    30 * time.Second,
		StatusInterval: 30 * time.Second,
		SyncInterval:   5 * time.Minute,
		SeedUsers:      true,
	}
}

// Load reads the configuration file at path, filling omitted fields
// with defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.RemoteURL == "" {
		return fmt.Errorf("remote_url must not be empty")
	}
	if c.PushTimeout < 0 || c.StatusInterval < 0 || c.SyncInterval < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	return nil
}
