// Loads config.yaml for server tunables, creating it with defaults if missing.

package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds server tunables loaded from config.yaml in the data
// directory. Store credentials (repo, token, branch) deliberately live in
// the environment or .env, never in this file.
type Config struct {
	// MaxUploadBytes caps image uploads. Default 5 MiB.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	// AllowedImageTypes lists accepted upload MIME types.
	AllowedImageTypes []string `yaml:"allowed_image_types"`
	// LoginPerMinute and LoginBurst tune the auth endpoint rate limiter.
	LoginPerMinute int `yaml:"login_per_minute"`
	LoginBurst     int `yaml:"login_burst"`
	// SessionTTLHours is the lifetime of a login session token.
	SessionTTLHours int `yaml:"session_ttl_hours"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxUploadBytes:    5 * 1024 * 1024,
		AllowedImageTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		LoginPerMinute:    10,
		LoginBurst:        5,
		SessionTTLHours:   24,
	}
}

// LoadConfig reads config.yaml from dataDir, writing the defaults first when
// the file does not exist so the tunables are discoverable on disk.
func LoadConfig(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, "config.yaml")
	raw, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir flag, not user input
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, out, 0o644); err != nil { //nolint:gosec // G306: config holds no secrets
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("max_upload_bytes must be positive")
	}
	if cfg.SessionTTLHours <= 0 {
		return nil, fmt.Errorf("session_ttl_hours must be positive")
	}
	return cfg, nil
}
