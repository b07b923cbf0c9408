package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	NewsAPI    NewsAPIConfig    `yaml:"newsapi"`
	Feeds      []Feed           `yaml:"feeds"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Extraction Extraction       `yaml:"extraction"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Output     Output           `yaml:"output"`
	Server     Server           `yaml:"server"`
	Logging    Logging          `yaml:"logging"`
}

type NewsAPIConfig struct {
	APIKeyEnv  string   `yaml:"api_key_env"`
	Country    string   `yaml:"country"`
	Language   string   `yaml:"language"`
	Categories []string `yaml:"categories"`
	// BaseURL overrides the production endpoint, mainly for tests.
	BaseURL string `yaml:"base_url"`
}

// Feed is a supplemental RSS/Atom headline source. Entries flow through the
// same extraction and dedup path as NewsAPI headlines.
type Feed struct {
	URL      string `yaml:"url"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

type SummarizerConfig struct {
	BaseURL string `yaml:"base_url"`
}

type Extraction struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type SchedulerConfig struct {
	FetchTime           string `yaml:"fetch_time"` // HH:MM, local time
	StartupDelaySeconds int    `yaml:"startup_delay_seconds"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for newsdigest.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "newsdigest")
}

// DataDir returns the XDG data directory for newsdigest.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "newsdigest")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/newsdigest/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'newsdigest init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		NewsAPI: NewsAPIConfig{
			APIKeyEnv:  "NEWSAPI_KEY",
			Country:    "us",
			Language:   "en",
			Categories: []string{"business", "technology"},
		},
		Summarizer: SummarizerConfig{BaseURL: "http://localhost:8000"},
		Extraction: Extraction{TimeoutSeconds: 10},
		Scheduler: SchedulerConfig{
			FetchTime:           "00:00",
			StartupDelaySeconds: 10,
		},
		Server:  Server{Port: 8080},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.NewsAPI.Categories) == 0 {
		cfg.NewsAPI.Categories = []string{"business", "technology"}
	}
	if _, err := time.Parse("15:04", cfg.Scheduler.FetchTime); err != nil {
		return nil, fmt.Errorf("invalid scheduler fetch_time %q: expected HH:MM", cfg.Scheduler.FetchTime)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// ExtractionTimeout returns the per-article extraction budget.
func (c *Config) ExtractionTimeout() time.Duration {
	return time.Duration(c.Extraction.TimeoutSeconds) * time.Second
}

// StartupDelay returns the delay before the initial scheduled fetch.
func (c *Config) StartupDelay() time.Duration {
	return time.Duration(c.Scheduler.StartupDelaySeconds) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
