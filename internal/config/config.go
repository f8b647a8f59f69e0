// Package config handles the configuration directory, the config file and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "tasker"

	// ConfigFile is the YAML settings filename.
	ConfigFile = "config.yaml"

	// EnvFile is an optional dotenv file loaded before env overrides.
	EnvFile = ".env"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"
)

// Backend names.
const (
	BackendREST   = "rest"
	BackendGoogle = "google"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `yaml:"-"`

	// Debug enables debug logging.
	Debug bool `yaml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `yaml:"-"`

	Backend          string        `yaml:"backend"`
	REST             RESTConfig    `yaml:"rest"`
	Google           GoogleConfig  `yaml:"google"`
	Cache            CacheConfig   `yaml:"cache"`
	Timeout          time.Duration `yaml:"timeout"`
	LogLevel         string        `yaml:"log_level"`
	Serve            ServeConfig   `yaml:"serve"`
	MetricsNamespace string        `yaml:"metrics_namespace"`
}

// RESTConfig configures the JSON/HTTP remote source.
type RESTConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// GoogleConfig configures the Google Tasks remote source.
type GoogleConfig struct {
	ListID string `yaml:"list_id"`
}

// CacheConfig configures the local cache source.
type CacheConfig struct {
	Driver      string `yaml:"driver"` // json | sqlite | postgres | memory
	Path        string `yaml:"path"`
	DatabaseURL string `yaml:"database_url"`
}

// ServeConfig configures the local HTTP API.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a config rooted at dir with built-in defaults.
func Default(dir string) *Config {
	return &Config{
		Dir:     dir,
		Backend: BackendREST,
		REST: RESTConfig{
			BaseURL: "http://127.0.0.1:8080/v1",
		},
		Google: GoogleConfig{
			ListID: "@default",
		},
		Cache: CacheConfig{
			Driver: "json",
		},
		Timeout:          5 * time.Second,
		LogLevel:         "info",
		Serve:            ServeConfig{Addr: "127.0.0.1:8080"},
		MetricsNamespace: AppName,
	}
}

// New creates a Config for the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/tasker or $HOME/.config/tasker.
// Settings are layered: defaults, config.yaml, .env, then environment.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := Default(dir)

	if err := cfg.loadFile(); err != nil {
		return nil, err
	}
	if err := loadDotEnv(filepath.Join(dir, EnvFile)); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.ConfigPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", c.ConfigPath(), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", c.ConfigPath(), err)
	}
	return nil
}

// loadDotEnv loads path into the process environment without overriding
// variables that are already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Backend = envOrDefault("TASKER_BACKEND", c.Backend)
	c.REST.BaseURL = envOrDefault("TASKER_BASE_URL", c.REST.BaseURL)
	c.REST.Token = envOrDefault("TASKER_TOKEN", c.REST.Token)
	c.Google.ListID = envOrDefault("TASKER_GOOGLE_LIST", c.Google.ListID)
	c.Cache.Driver = envOrDefault("TASKER_CACHE_DRIVER", c.Cache.Driver)
	c.Cache.Path = envOrDefault("TASKER_CACHE_PATH", c.Cache.Path)
	c.Cache.DatabaseURL = envOrDefault("DATABASE_URL", c.Cache.DatabaseURL)
	c.LogLevel = envOrDefault("TASKER_LOG_LEVEL", c.LogLevel)
	c.Serve.Addr = envOrDefault("TASKER_SERVE_ADDR", c.Serve.Addr)

	var err error
	c.Timeout, err = durationFromEnv("TASKER_TIMEOUT", c.Timeout)
	return err
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendREST:
		if strings.TrimSpace(c.REST.BaseURL) == "" {
			return fmt.Errorf("rest.base_url is required for the rest backend")
		}
	case BackendGoogle:
		if strings.TrimSpace(c.Google.ListID) == "" {
			return fmt.Errorf("google.list_id must not be empty")
		}
	default:
		return fmt.Errorf("backend: unknown value %q (expected rest|google)", c.Backend)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unknown value %q (expected debug|info|warn|error)", c.LogLevel)
	}
	return nil
}

// ConfigPath returns the path to the YAML config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// CachePath returns the cache file path, defaulting into the config dir.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	if strings.EqualFold(c.Cache.Driver, "sqlite") {
		return filepath.Join(c.Dir, "cache.db")
	}
	return filepath.Join(c.Dir, "tasks.json")
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}
