package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/gqlflux/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(writeConfig(t, `
environment: test
api:
  url: https://api.example.com/graphql
  public: https://api.example.com/public
`))
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := validConfig(t)

	assert.Equal(t, config.EnvTest, cfg.Environment)
	assert.Equal(t, 5, cfg.Session.MinMinutes)
	assert.Equal(t, 5*time.Minute, cfg.RefreshWindow())
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	require.NoError(t, cfg.Validate())
}

func TestLoad_FullFile(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
environment: production
api:
  url: https://api.example.com/graphql
  public: https://api.example.com/public
  upload_image: https://api.example.com/upload
  timeout: 10s
session:
  min_minutes: 15
redis:
  enabled: true
  addresses: ["redis-1:6379", "redis-2:6379"]
  db: 3
  key_suffix: profile-a
logging:
  level: debug
  format: console
  development: true
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 15*time.Minute, cfg.RefreshWindow())
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, []string{"redis-1:6379", "redis-2:6379"}, cfg.Redis.Addresses)
	assert.Equal(t, "profile-a", cfg.Redis.KeySuffix)
	assert.True(t, cfg.Logging.Development)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GQLFLUX_API_URL", "https://env.example.com/graphql")
	t.Setenv("GQLFLUX_SESSION_MIN_MINUTES", "42")

	cfg, err := config.Load(writeConfig(t, `
api:
  url: https://file.example.com/graphql
  public: https://file.example.com/public
`))
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com/graphql", cfg.API.URL)
	assert.Equal(t, 42, cfg.Session.MinMinutes)
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("GQLFLUX_API_URL", "https://env.example.com/graphql")
	t.Setenv("GQLFLUX_API_PUBLIC", "https://env.example.com/public")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "valid",
			mutate:  func(*config.Config) {},
			wantErr: "",
		},
		{
			name:    "bad environment",
			mutate:  func(c *config.Config) { c.Environment = "staging" },
			wantErr: "invalid environment",
		},
		{
			name:    "missing api url",
			mutate:  func(c *config.Config) { c.API.URL = "" },
			wantErr: "api.url is required",
		},
		{
			name:    "missing public url",
			mutate:  func(c *config.Config) { c.API.Public = "" },
			wantErr: "api.public is required",
		},
		{
			name:    "relative url",
			mutate:  func(c *config.Config) { c.API.URL = "/graphql" },
			wantErr: "absolute URL",
		},
		{
			name:    "zero refresh window",
			mutate:  func(c *config.Config) { c.Session.MinMinutes = 0 },
			wantErr: "session.min_minutes",
		},
		{
			name: "redis enabled without addresses",
			mutate: func(c *config.Config) {
				c.Redis.Enabled = true
				c.Redis.Addresses = nil
			},
			wantErr: "redis.addresses",
		},
		{
			name: "redis db out of range",
			mutate: func(c *config.Config) {
				c.Redis.Enabled = true
				c.Redis.DB = 16
			},
			wantErr: "redis.db",
		},
		{
			name:    "bad log level",
			mutate:  func(c *config.Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid logging level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantErr: "invalid logging format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
