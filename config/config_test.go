package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "warbler_session", cfg.Session.CookieName)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 10, cfg.RateLimit.LoginBurst)
	assert.False(t, cfg.NATS.Enabled)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := chdirTemp(t)
	yaml := []byte("server:\n  port: 9090\ndatabase:\n  driver: postgres\n  dsn: postgres://x\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))
	t.Setenv("WARBLER_SERVER_PORT", "9191")
	t.Setenv("WARBLER_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://x", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Driver: "mysql"}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{
		Server:   ServerConfig{Mode: "release"},
		Database: DatabaseConfig{Driver: "sqlite"},
		JWT:      JWTConfig{Secret: defaultJWTSecret},
	}
	assert.Error(t, cfg.Validate())

	cfg.JWT.Secret = "prod-secret"
	assert.NoError(t, cfg.Validate())
}
