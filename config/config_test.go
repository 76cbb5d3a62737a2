package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Verify defaults
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Storage.Adapter)
	assert.Equal(t, 10, cfg.Rewards.HistoryPageSize)
	assert.Equal(t, "sync", cfg.Rewards.DispatchMode)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LOYALTYKIT_STORAGE_ADAPTER", "file")
	t.Setenv("LOYALTYKIT_REWARDS_HISTORY_PAGE_SIZE", "25")
	t.Setenv("LOYALTYKIT_REWARDS_DISPATCH_MODE", "async")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Storage.Adapter)
	assert.Equal(t, 25, cfg.Rewards.HistoryPageSize)
	assert.Equal(t, "async", cfg.Rewards.DispatchMode)
}

func TestLoadFromFile(t *testing.T) {
	configContent := `{
		"environment": "testing",
		"server": {
			"address": ":9090"
		},
		"storage": {
			"adapter": "memory"
		},
		"rewards": {
			"history_page_size": 5,
			"dispatch_mode": "async",
			"webhook_endpoints": ["http://cms.local/hooks/loyalty"]
		}
	}`

	tmpFile, err := os.CreateTemp("", "config_test_*.json")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(configContent)
	require.NoError(t, err)
	tmpFile.Close()

	cfg, err := LoadFromFile(tmpFile.Name())
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, EnvTesting, cfg.Environment)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 5, cfg.Rewards.HistoryPageSize)
	assert.Equal(t, []string{"http://cms.local/hooks/loyalty"}, cfg.Rewards.WebhookEndpoints)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:        "unknown storage adapter",
			mutate:      func(c *Config) { c.Storage.Adapter = "cassandra" },
			expectError: true,
		},
		{
			name:        "sql adapter requires dsn",
			mutate:      func(c *Config) { c.Storage.Adapter = "sql"; c.Storage.SQL.DSN = "" },
			expectError: true,
		},
		{
			name:        "zero history page size",
			mutate:      func(c *Config) { c.Rewards.HistoryPageSize = 0 },
			expectError: true,
		},
		{
			name:        "bad dispatch mode",
			mutate:      func(c *Config) { c.Rewards.DispatchMode = "eventually" },
			expectError: true,
		},
		{
			name:        "bad log level",
			mutate:      func(c *Config) { c.Logging.Level = "verbose" },
			expectError: true,
		},
		{
			name: "rate limit enabled without budget",
			mutate: func(c *Config) {
				c.Security.EnableRateLimit = true
				c.Security.RateLimit.RequestsPerMinute = 0
			},
			expectError: true,
		},
		{
			name:        "negative server timeout",
			mutate:      func(c *Config) { c.Server.ReadTimeout = -time.Second },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadSecretsFromEnv(t *testing.T) {
	t.Setenv("LOYALTYKIT_STORAGE_SQL_DSN", "postgres://app:secret@db/loyalty")
	t.Setenv("LOYALTYKIT_STORAGE_REDIS_PASSWORD", "hunter2")
	t.Setenv("LOYALTYKIT_SECURITY_API_KEYS", "key-a, key-b")

	cfg := DefaultConfig()
	LoadSecretsFromEnv(cfg)

	assert.Equal(t, "postgres://app:secret@db/loyalty", cfg.Storage.SQL.DSN)
	assert.Equal(t, "hunter2", cfg.Storage.Redis.Password)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.Security.APIKeys)

	// redaction
	s := cfg.String()
	assert.NotContains(t, s, "secret@db")
	assert.NotContains(t, s, "hunter2")
}
