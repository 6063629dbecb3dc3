package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Provider      ProviderConfig      `toml:"provider"`
	Notifications NotificationsConfig `toml:"notifications"`
	Web           WebConfig           `toml:"web"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	MaxAttempts    int    `toml:"max_attempts"`
	RunTimeoutSecs int    `toml:"run_timeout_secs"`
	BackupDir      string `toml:"backup_dir"`
	HistoryPath    string `toml:"history_path"`
}

// ProviderConfig holds AI backend settings
type ProviderConfig struct {
	Name           string `toml:"name"`
	Model          string `toml:"model"`
	APIKey         string `toml:"api_key"`
	TimeoutSecs    int    `toml:"timeout_secs"`
	OllamaURL      string `toml:"ollama_url"`
	MaxErrorBytes  int    `toml:"max_error_bytes"`
	MaxOutputBytes int    `toml:"max_output_bytes"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// WebConfig holds status server settings
type WebConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			MaxAttempts:    3,
			RunTimeoutSecs: 10,
			BackupDir:      ".bugrescue_backups",
			HistoryPath:    filepath.Join(home, ".bugrescue", "history.db"),
		},
		Provider: ProviderConfig{
			Name:           "ollama",
			Model:          "qwen2.5-coder:14b",
			TimeoutSecs:    120,
			OllamaURL:      "http://localhost:11434/api/generate",
			MaxErrorBytes:  1500,
			MaxOutputBytes: 1 << 20,
		},
		Notifications: NotificationsConfig{
			Desktop: true,
		},
		Web: WebConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Expand paths
	cfg.General.HistoryPath = ExpandPath(cfg.General.HistoryPath)

	return cfg, nil
}

// Save writes the configuration to a TOML file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "bugrescue", "config.toml")
}
