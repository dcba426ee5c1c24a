// Package config loads runtime settings from an optional YAML file and
// the process environment. Environment always wins; the page token and
// webhook URL are env-only and never read from the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "config.yaml"
	DefaultStateFile  = ".fb-discord-watcher/state.json"
	DefaultPostsLimit = 5
	MaxPostsLimit     = 100
	DefaultImageMode  = "link"
	DefaultSchedule   = "@every 5m"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
)

type Config struct {
	Page    PageConfig    `yaml:"page"`
	Webhook WebhookConfig `yaml:"webhook"`
	State   StateConfig   `yaml:"state"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
	Watch   WatchConfig   `yaml:"watch"`
}

type PageConfig struct {
	ID           string `yaml:"id"`
	PostsLimit   int    `yaml:"posts_limit"`
	GraphBaseURL string `yaml:"graph_base_url"`

	// Env-only; never read from the file.
	AccessToken string `yaml:"-"`
}

type WebhookConfig struct {
	Username  string `yaml:"username"`
	Content   string `yaml:"content"`
	ImageMode string `yaml:"image_mode"`

	// Env-only; never read from the file.
	URL string `yaml:"-"`
}

type StateConfig struct {
	Path string `yaml:"path"`
}

type HistoryConfig struct {
	// Path to the sqlite delivery archive. Empty disables archiving.
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type WatchConfig struct {
	Schedule string `yaml:"schedule"`
}

// ConfigError reports required settings that are absent. It is raised
// before any network call is made.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing required configuration: " + strings.Join(e.Missing, ", ")
}

// LoadEnv loads a local .env file into the process environment if one
// exists. Call it before Load so the overlay sees the file's values.
func LoadEnv(logger *logrus.Logger) {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Overload(".env"); err != nil && logger != nil {
		logger.WithError(err).Warn("failed to load .env")
	}
}

// Load reads the YAML file at path if it exists, applies defaults, and
// overlays the environment. A missing file is not an error; the
// environment alone can configure a run. Call Validate before anything
// that needs the page or webhook credentials.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultConfigFile
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// env-only configuration
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyDefaults(&cfg)
	overlayEnv(&cfg)

	if err := validateModes(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings a relay pass cannot run without. The
// returned error names every missing setting, not just the first.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Page.ID) == "" {
		missing = append(missing, "PAGE_ID")
	}
	if strings.TrimSpace(c.Page.AccessToken) == "" {
		missing = append(missing, "PAGE_ACCESS_TOKEN")
	}
	if strings.TrimSpace(c.Webhook.URL) == "" {
		missing = append(missing, "WEBHOOK_URL")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.State.Path == "" {
		cfg.State.Path = DefaultStateFile
	}
	if cfg.Page.PostsLimit == 0 {
		cfg.Page.PostsLimit = DefaultPostsLimit
	}
	if cfg.Webhook.ImageMode == "" {
		cfg.Webhook.ImageMode = DefaultImageMode
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Watch.Schedule == "" {
		cfg.Watch.Schedule = DefaultSchedule
	}
}

func overlayEnv(cfg *Config) {
	if v := os.Getenv("PAGE_ID"); v != "" {
		cfg.Page.ID = v
	}
	cfg.Page.AccessToken = os.Getenv("PAGE_ACCESS_TOKEN")
	cfg.Webhook.URL = os.Getenv("WEBHOOK_URL")
	if v := os.Getenv("POSTS_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			cfg.Page.PostsLimit = limit
		}
	}
	if v := os.Getenv("GRAPH_BASE_URL"); v != "" {
		cfg.Page.GraphBaseURL = v
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		cfg.State.Path = v
	}
	if v := os.Getenv("HISTORY_DB"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("WEBHOOK_USERNAME"); v != "" {
		cfg.Webhook.Username = v
	}
	if v := os.Getenv("WEBHOOK_CONTENT"); v != "" {
		cfg.Webhook.Content = v
	}
	if v := os.Getenv("IMAGE_MODE"); v != "" {
		cfg.Webhook.ImageMode = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("WATCH_SCHEDULE"); v != "" {
		cfg.Watch.Schedule = v
	}

	// Out-of-range limits fall back to the default window.
	if cfg.Page.PostsLimit < 1 {
		cfg.Page.PostsLimit = DefaultPostsLimit
	}
	if cfg.Page.PostsLimit > MaxPostsLimit {
		cfg.Page.PostsLimit = MaxPostsLimit
	}
}

func validateModes(cfg *Config) error {
	switch cfg.Webhook.ImageMode {
	case "link", "upload":
		// valid
	default:
		return fmt.Errorf("webhook.image_mode: unknown mode %q (want link or upload)", cfg.Webhook.ImageMode)
	}

	switch cfg.Log.Format {
	case "text", "json":
		// valid
	default:
		return fmt.Errorf("log.format: unknown format %q (want text or json)", cfg.Log.Format)
	}

	return nil
}
