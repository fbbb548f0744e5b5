package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// AccountConfig holds the configuration for a single mailbox connection.
type AccountConfig struct {
	// ID is the unique identifier for this account. It keys the account's
	// contact set in the store and its secrets in the keyring.
	ID string `mapstructure:"id" yaml:"id"`

	// Type identifies the provider driver ("gmail" or "imap").
	Type string `mapstructure:"type" yaml:"type"`

	// Name is the user-defined label for this account.
	Name string `mapstructure:"name" yaml:"name"`

	// Email is the primary address of the mailbox.
	Email string `mapstructure:"email" yaml:"email"`

	// DisplayName is the sender name used when composing.
	DisplayName string `mapstructure:"display_name" yaml:"display_name"`

	// Config holds driver-specific key-value settings
	// (e.g., IMAP/SMTP hosts and ports, mailbox name overrides).
	Config map[string]string `mapstructure:"config" yaml:"config"`
}

// SuggestConfig holds tunables for the recipient suggestion flow.
type SuggestConfig struct {
	// DebounceMs is the quiet period after the last keystroke before a
	// suggestion query fires.
	DebounceMs int `mapstructure:"debounce_ms" yaml:"debounce_ms"`

	// Limit is the maximum number of suggestions returned per query.
	Limit int `mapstructure:"limit" yaml:"limit"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Accounts []AccountConfig `mapstructure:"accounts" yaml:"accounts"`
	Suggest  SuggestConfig   `mapstructure:"suggest" yaml:"suggest"`
	Display  DisplayConfig   `mapstructure:"display" yaml:"display"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/webmail/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "webmail", "config.yaml")
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "webmail.db")
	}
	return filepath.Join(home, ".config", "webmail", "webmail.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Accounts: []AccountConfig{},
		Suggest: SuggestConfig{
			DebounceMs: 300,
			Limit:      10,
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("suggest.debounce_ms", 300)
	v.SetDefault("suggest.limit", 10)
	v.SetDefault("display.theme", "default")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Suggest.DebounceMs <= 0 {
		cfg.Suggest.DebounceMs = 300
	}
	if cfg.Suggest.Limit <= 0 {
		cfg.Suggest.Limit = 10
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("accounts", cfg.Accounts)
	v.Set("suggest", cfg.Suggest)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
