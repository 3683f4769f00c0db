package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.etijucas/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`
	API            API    `toml:"api"`
	Sync           Sync   `toml:"sync"`
	Cache          Cache  `toml:"cache"`
}

// API configures the remote eTijucas endpoint.
type API struct {
	BaseURL        string `toml:"base_url"`
	TenantToken    string `toml:"tenant_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Sync configures the outbox drain loop and the connectivity probe.
type Sync struct {
	ProbeIntervalSeconds int `toml:"probe_interval_seconds"`
	MaxAttempts          int `toml:"max_attempts"`
}

// Cache overrides the per-scope TTLs, in minutes. Zero keeps the default.
type Cache struct {
	HomeTTLMinutes     int `toml:"home_ttl_minutes"`
	ForecastTTLMinutes int `toml:"forecast_ttl_minutes"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		API: API{
			BaseURL:        "https://api.etijucas.com.br",
			TenantToken:    "global",
			TimeoutSeconds: 10,
		},
		Sync: Sync{
			ProbeIntervalSeconds: 30,
			MaxAttempts:          5,
		},
	}
}

// Timeout returns the HTTP client timeout.
func (a API) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// ProbeInterval returns the connectivity probe period. Zero disables probing.
func (s Sync) ProbeInterval() time.Duration {
	return time.Duration(s.ProbeIntervalSeconds) * time.Second
}

// Load reads config from the given path. Returns an error if the file is
// missing; callers that tolerate a missing file fall back to Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
