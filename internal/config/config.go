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
	AI            AIConfig            `toml:"ai"`
	Notifications NotificationsConfig `toml:"notifications"`
	Web           WebConfig           `toml:"web"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	ReposDir         string `toml:"repos_dir"`
	ReposManifest    string `toml:"repos_manifest"`
	DatabasePath     string `toml:"database_path"`
	PollSchedule     string `toml:"poll_schedule"`
	RetainWorkspaces bool   `toml:"retain_workspaces"`
}

// AIConfig holds generation settings
type AIConfig struct {
	Model string `toml:"model"`
	Host  string `toml:"host"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	SlackWebhook string `toml:"slack_webhook"`
}

// WebConfig holds web server settings
type WebConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			ReposDir:      "./repos",
			ReposManifest: "repos.yaml",
			DatabasePath:  filepath.Join(home, ".test-enhancer", "enhancer.db"),
			PollSchedule:  "@every 1m",
		},
		AI: AIConfig{
			Model: "qwen2.5-coder:14b",
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
	cfg.General.ReposDir = ExpandPath(cfg.General.ReposDir)
	cfg.General.ReposManifest = ExpandPath(cfg.General.ReposManifest)
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)

	return cfg, nil
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
	return filepath.Join(home, ".config", "test-enhancer", "config.toml")
}
