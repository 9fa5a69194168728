package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		DatabaseURL:        "postgres://localhost/payroll",
		JWTSecret:          "test-secret",
		MaxBodyBytes:       4096,
		PayrollWorkers:     4,
		JobWorkers:         2,
		RateLimitPerMinute: 60,
		Environment:        "development",
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("PAYROLL_WORKERS", "3")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("SHUTDOWN_TIMEOUT", "2s")
	t.Setenv("MAX_BODY_BYTES", "not-a-number")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 3, cfg.PayrollWorkers)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int64(1048576), cfg.MaxBodyBytes)
	assert.Equal(t, 240, cfg.RateLimitPerMinute)
	assert.Equal(t, 2, cfg.JobWorkers)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := map[string]func(*Config){
		"missing database": func(c *Config) { c.DatabaseURL = "" },
		"missing secret":   func(c *Config) { c.JWTSecret = " " },
		"small body limit": func(c *Config) { c.MaxBodyBytes = 10 },
		"no workers":       func(c *Config) { c.PayrollWorkers = 0 },
		"no job workers":   func(c *Config) { c.JobWorkers = 0 },
		"tiny rate limit":  func(c *Config) { c.RateLimitPerMinute = 1 },
		"weak prod secret": func(c *Config) { c.Environment = "production"; c.DataEncryptionKey = "k" },
		"prod without key": func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "0123456789abcdef0123456789abcdef"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
