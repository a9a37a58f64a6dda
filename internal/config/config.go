// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; secrets (database DSN, model API
// key) go to the OS keychain.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"sqlpilot/cli/internal/xdg"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel      string      `json:"log_level"`
	Dialect       string      `json:"dialect"`
	MaxRetries    int         `json:"max_retries"`
	CacheCapacity int64       `json:"cache_capacity_bytes"`
	Model         ModelConfig `json:"model"`
	SQLitePath    string      `json:"sqlite_path"`
	DSNInKeychain bool        `json:"dsn_in_keychain"`
}

// ModelConfig holds model-collaborator settings. The API key is never stored
// here; it is resolved from the keychain or environment at runtime.
type ModelConfig struct {
	BaseURL     string  `json:"base_url"`
	Name        string  `json:"name"`
	Temperature float64 `json:"temperature"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LogLevel:      "info",
		Dialect:       "sqlite",
		MaxRetries:    3,
		CacheCapacity: 100 * 1024 * 1024, // 100 MiB
		Model: ModelConfig{
			BaseURL:     "https://api.openai.com/v1",
			Name:        "gpt-4o-mini",
			Temperature: 0,
		},
		SQLitePath: "./database.db",
	}
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; missing file returns defaults.
func Load() (Config, error) {
	p, err := path()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return Config{}, err
	}
	c := Defaults()
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
