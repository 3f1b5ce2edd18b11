// Package config loads the SDK's configuration from YAML files and
// environment variables using Viper.
//
// Configuration can come from:
//   - YAML file (config/config.yaml)
//   - Environment variables (prefixed with GQLFLUX_)
//
// Example:
//
//	cfg, err := config.Load("config/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Recognized environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
	EnvLocal       = "local"
)

// Config is the complete SDK configuration: backend endpoints, session
// policy, optional Redis persistence and logging.
type Config struct {
	Environment string        `mapstructure:"environment"`
	API         APIConfig     `mapstructure:"api"`
	Session     SessionConfig `mapstructure:"session"`
	Redis       RedisConfig   `mapstructure:"redis"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// APIConfig contains the backend endpoint URLs.
type APIConfig struct {
	// URL is the authenticated GraphQL endpoint.
	URL string `mapstructure:"url"`

	// Public is the unauthenticated GraphQL endpoint used for
	// sign-up, sign-in and password recovery.
	Public string `mapstructure:"public"`

	// UploadImage is the image upload endpoint, outside the GraphQL
	// envelope. Optional.
	UploadImage string `mapstructure:"upload_image"`

	// Timeout bounds a single HTTP request.
	Timeout time.Duration `mapstructure:"timeout"`
}

// SessionConfig contains the token refresh policy.
type SessionConfig struct {
	// MinMinutes is the refresh window: a token expiring within this
	// many minutes is refreshed before the next authenticated call.
	MinMinutes int `mapstructure:"min_minutes"`
}

// RedisConfig contains the optional session persistence settings.
type RedisConfig struct {
	// Enabled turns on Redis-backed session persistence.
	Enabled bool `mapstructure:"enabled"`

	// Addresses contains Redis server addresses.
	Addresses []string `mapstructure:"addresses"`

	// Password for Redis authentication (optional).
	Password string `mapstructure:"password"`

	// DB is the Redis database number (0-15).
	DB int `mapstructure:"db"`

	// KeySuffix distinguishes multiple SDK instances sharing one
	// Redis (e.g. per-profile). Optional.
	KeySuffix string `mapstructure:"key_suffix"`

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level sets the log level ("debug", "info", "warn", "error").
	Level string `mapstructure:"level"`

	// Format sets the log format ("json", "console").
	Format string `mapstructure:"format"`

	// Development enables development mode (more verbose output).
	Development bool `mapstructure:"development"`
}

// RefreshWindow returns the session refresh window as a duration.
func (c *Config) RefreshWindow() time.Duration {
	return time.Duration(c.Session.MinMinutes) * time.Minute
}

// Load loads configuration from the specified file path and
// environment variables. Environment variables override file values
// and are prefixed with GQLFLUX_ (e.g. GQLFLUX_API_URL=...). The file
// is optional when every value comes from the environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("GQLFLUX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", EnvDevelopment)

	v.SetDefault("api.timeout", "30s")

	v.SetDefault("session.min_minutes", 5)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", "5s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.development", false)
}

// Validate checks the configuration and returns an error on any
// invalid value. Call after Load.
func (c *Config) Validate() error {
	if err := c.validateEnvironment(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateRedis(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateEnvironment() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest, EnvLocal:
		return nil
	}
	return fmt.Errorf("invalid environment: %s (must be development, production, test, or local)", c.Environment)
}

func (c *Config) validateAPI() error {
	if c.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}
	if c.API.Public == "" {
		return fmt.Errorf("api.public is required")
	}
	for name, raw := range map[string]string{
		"api.url":          c.API.URL,
		"api.public":       c.API.Public,
		"api.upload_image": c.API.UploadImage,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s: %q (must be an absolute URL)", name, raw)
		}
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("invalid api.timeout: %s (must be > 0)", c.API.Timeout)
	}
	return nil
}

func (c *Config) validateSession() error {
	if c.Session.MinMinutes < 1 {
		return fmt.Errorf("invalid session.min_minutes: %d (must be >= 1)", c.Session.MinMinutes)
	}
	return nil
}

func (c *Config) validateRedis() error {
	if !c.Redis.Enabled {
		return nil
	}
	if len(c.Redis.Addresses) == 0 {
		return fmt.Errorf("redis.addresses cannot be empty when redis is enabled")
	}
	if c.Redis.DB < 0 || c.Redis.DB > 15 {
		return fmt.Errorf("invalid redis.db: %d (must be 0-15)", c.Redis.DB)
	}
	return nil
}

func (c *Config) validateLogging() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid logging format: %s (must be json or console)", c.Logging.Format)
	}
	return nil
}
