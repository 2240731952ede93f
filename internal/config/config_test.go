package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:               "development",
		Port:              "3000",
		JWTSecret:         "secure-secret-at-least-32-chars-long",
		JWTTTLHours:       24,
		StoreDriver:       StoreMemory,
		MaxPhotoBytes:     5 << 20,
		MaxMediaBytes:     10 << 20,
		DispatchWorkers:   2,
		DispatchQueueSize: 16,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid memory config", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"unknown store driver", func(c *Config) { c.StoreDriver = "mongo" }, true},
		{"redis driver without url", func(c *Config) { c.StoreDriver = StoreRedis }, true},
		{"redis driver with url", func(c *Config) {
			c.StoreDriver = StoreRedis
			c.RedisURL = "localhost:6379"
		}, false},
		{"postgres driver missing host", func(c *Config) { c.StoreDriver = StorePostgres }, true},
		{"zero photo limit", func(c *Config) { c.MaxPhotoBytes = 0 }, true},
		{"zero dispatch workers", func(c *Config) { c.DispatchWorkers = 0 }, true},
		{"production default secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = defaultJWTSecret
		}, true},
		{"production short secret", func(c *Config) {
			c.Env = "prod"
			c.JWTSecret = "short"
		}, true},
		{"production postgres ssl disabled", func(c *Config) {
			c.Env = "production"
			c.StoreDriver = StorePostgres
			c.DBHost, c.DBName, c.DBUser = "db", "socialhub", "app"
			c.DBSSLMode = "disable"
		}, true},
		{"production postgres ssl required", func(c *Config) {
			c.Env = "production"
			c.StoreDriver = StorePostgres
			c.DBHost, c.DBName, c.DBUser = "db", "socialhub", "app"
			c.DBSSLMode = "require"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("STORE_DRIVER", "  SQLite ")
	t.Setenv("BASE_URL", "http://example.test/")
	t.Setenv("JWT_TTL_HOURS", "12")

	c, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "test", c.Env)
	assert.Equal(t, StoreSQLite, c.StoreDriver)
	assert.Equal(t, "http://example.test", c.BaseURL)
	assert.Equal(t, 12, c.JWTTTLHours)
	assert.Equal(t, int64(5*1024*1024), c.MaxPhotoBytes)
	assert.Equal(t, "uploads", c.UploadDir)
}

func TestLoadConfig_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")

	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
