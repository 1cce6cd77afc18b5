// Package config loads CredoSafe client configuration. Configuration is
// explicit: environment variables (optionally seeded from a .env file) or a
// YAML file. There is no runtime host inspection; the API base URL must be
// provided.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the full client configuration.
type Config struct {
	// APIBaseURL is the API origin including the /api prefix.
	APIBaseURL string `env:"CREDOSAFE_API_URL" yaml:"api_base_url"`

	// HTTPTimeout bounds each API request.
	HTTPTimeout time.Duration `env:"CREDOSAFE_HTTP_TIMEOUT,default=30s" yaml:"http_timeout"`

	// IdleTimeout is the inactivity window before auto-logout.
	IdleTimeout time.Duration `env:"CREDOSAFE_IDLE_TIMEOUT,default=5m" yaml:"idle_timeout"`

	// ChatPollInterval is the support chat refresh interval.
	ChatPollInterval time.Duration `env:"CREDOSAFE_CHAT_POLL_INTERVAL,default=3s" yaml:"chat_poll_interval"`

	// CacheTTL is the response cache validity window.
	CacheTTL time.Duration `env:"CREDOSAFE_CACHE_TTL,default=5m" yaml:"cache_ttl"`

	// RedisAddr enables the Redis cache backend when set.
	RedisAddr     string `env:"CREDOSAFE_REDIS_ADDR" yaml:"redis_addr"`
	RedisPassword string `env:"CREDOSAFE_REDIS_PASSWORD" yaml:"redis_password"`
	RedisDB       int    `env:"CREDOSAFE_REDIS_DB,default=0" yaml:"redis_db"`

	// CredentialsFile is where the encrypted token lives.
	CredentialsFile string `env:"CREDOSAFE_CREDENTIALS_FILE" yaml:"credentials_file"`
	// CredentialsSecret protects the token at rest.
	CredentialsSecret string `env:"CREDOSAFE_CREDENTIALS_SECRET" yaml:"credentials_secret"`

	// StateFile is where the store snapshot lives.
	StateFile string `env:"CREDOSAFE_STATE_FILE" yaml:"state_file"`

	// HealthTargets is a comma-separated list of name=url pairs polled by
	// the health watcher.
	HealthTargets string `env:"CREDOSAFE_HEALTH_TARGETS" yaml:"health_targets"`
	// HealthInterval is the poll schedule.
	HealthInterval time.Duration `env:"CREDOSAFE_HEALTH_INTERVAL,default=3m" yaml:"health_interval"`
	// HealthListenAddr is the watcher's own HTTP listen address.
	HealthListenAddr string `env:"CREDOSAFE_HEALTH_LISTEN,default=:8090" yaml:"health_listen_addr"`
}

// Load reads configuration from the environment, seeding it from .env when
// one exists.
func Load() (*Config, error) {
	// A missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads configuration from a YAML file, with environment variables
// filling any field the file leaves empty.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var envCfg Config
	if decodeErr := envdecode.Decode(&envCfg); decodeErr == nil {
		cfg.fillFrom(envCfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) fillFrom(other Config) {
	if c.APIBaseURL == "" {
		c.APIBaseURL = other.APIBaseURL
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = other.HTTPTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = other.IdleTimeout
	}
	if c.ChatPollInterval == 0 {
		c.ChatPollInterval = other.ChatPollInterval
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = other.CacheTTL
	}
	if c.RedisAddr == "" {
		c.RedisAddr = other.RedisAddr
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = other.CredentialsFile
	}
	if c.CredentialsSecret == "" {
		c.CredentialsSecret = other.CredentialsSecret
	}
	if c.StateFile == "" {
		c.StateFile = other.StateFile
	}
	if c.HealthTargets == "" {
		c.HealthTargets = other.HealthTargets
	}
	if c.HealthInterval == 0 {
		c.HealthInterval = other.HealthInterval
	}
	if c.HealthListenAddr == "" {
		c.HealthListenAddr = other.HealthListenAddr
	}
}

// Validate checks value sanity. The API base URL is only validated when set;
// tools that never call the API (the health watcher) run without one.
func (c *Config) Validate() error {
	if c.APIBaseURL != "" && !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("api base URL must be http(s): %q", c.APIBaseURL)
	}
	if c.IdleTimeout < 0 || c.ChatPollInterval < 0 || c.CacheTTL < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

// RequireAPI errors unless an API base URL is configured. Explicit
// configuration only; there is no fallback heuristic.
func (c *Config) RequireAPI() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api base URL is required (CREDOSAFE_API_URL)")
	}
	return nil
}

// Targets parses HealthTargets ("name=url,name=url") into pairs. Entries
// without a name take their URL as the name.
func (c *Config) Targets() []Target {
	if c.HealthTargets == "" {
		return nil
	}
	var targets []Target
	for _, part := range strings.Split(c.HealthTargets, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, url, found := strings.Cut(part, "=")
		if !found {
			targets = append(targets, Target{Name: part, URL: part})
			continue
		}
		targets = append(targets, Target{Name: name, URL: url})
	}
	return targets
}

// Target is one health check destination.
type Target struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}
