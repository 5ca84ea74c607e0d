package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// c2VjcmV0 is base64 for "secret".
const testKey = "c2VjcmV0"

func TestLoadFromYAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "naptrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
auth_token_key: c2VjcmV0
storage_backend: memory
default_timezone: Europe/Berlin
cors_origins: ["https://app.example"]
shutdown_timeout: 5s
`), 0o600))
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.StorageBackend)
	assert.Equal(t, []string{"https://app.example"}, cfg.CORSOrigins)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())

	key, err := cfg.TokenKey()
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), key)
}

func TestLoadFromEnvOnly(t *testing.T) {
	t.Setenv("AUTH_TOKEN_KEY", testKey)
	t.Setenv("PORT", "7000")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.StorageBackend)
	assert.Len(t, cfg.CORSOrigins, 2)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing key", mutate: func(c *Config) { c.AuthTokenKey = "" }},
		{name: "bad key", mutate: func(c *Config) { c.AuthTokenKey = "%%%" }},
		{name: "postgres without url", mutate: func(c *Config) { c.DatabaseURL = "" }},
		{name: "unknown backend", mutate: func(c *Config) { c.StorageBackend = "file" }},
		{name: "unknown env", mutate: func(c *Config) { c.Env = "qa" }},
		{name: "bad timezone", mutate: func(c *Config) { c.DefaultTimezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.AuthTokenKey = testKey
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
