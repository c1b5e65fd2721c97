package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvBotToken, "")

	path := writeConfig(t, `
bot_token: file-token
guild_events: [GUILD_CREATE, MESSAGE_CREATE]
compress: true
max_reconnect_attempts: 3
shutdown_timeout: 2s
rest:
  base_url: http://localhost:8080
  max_failures: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.BotToken)
	assert.Equal(t, []string{"GUILD_CREATE", "MESSAGE_CREATE"}, cfg.GuildEvents)
	assert.True(t, cfg.Compress)
	assert.Equal(t, 3, cfg.MaxReconnectAttempts)
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://localhost:8080", cfg.REST.BaseURL)
	assert.Equal(t, uint32(5), cfg.REST.MaxFailures)

	// defaults survive a partial file
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, uint8(50), cfg.LargeThreshold)
	assert.Equal(t, 30*time.Second, cfg.REST.BreakerReset)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv(EnvBotToken, "env-token")

	cfg, err := Load(writeConfig(t, "bot_token: file-token\n"))
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.BotToken)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.BotToken)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(EnvBotToken, "")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrMissingBotToken)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "bot_token: [unterminated"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "bot_token: x\nintents: 1\nguild_events: [GUILD_CREATE]\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "bot_token: x\nmax_reconnect_attempts: -1\n"))
	assert.Error(t, err)
}
