package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cleanenv.ReadEnv(&cfg))

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, 15*time.Minute, cfg.Messaging.EditWindow)
	assert.Equal(t, 7*24*time.Hour, cfg.Messaging.DeleteWindow)
	assert.Equal(t, 10*time.Second, cfg.Typing.TTL)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.False(t, cfg.Typing.UseRedis())
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TYPING_BACKEND", "Redis")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DM_EDIT_WINDOW", "5m")

	var cfg Config
	require.NoError(t, cleanenv.ReadEnv(&cfg))

	assert.True(t, cfg.Typing.UseRedis())
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.Equal(t, 5*time.Minute, cfg.Messaging.EditWindow)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
typing:
  ttl: 3s
log:
  level: nonsense
`), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Typing.TTL)
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
	assert.Equal(t, 100, cfg.Messaging.MaxPageSize)
}
