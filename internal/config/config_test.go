package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, 2*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.Sound)
	assert.Empty(t, cfg.WSURL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "api_url: https://tasks.example.com/\nreconnect_delay: 5s\nsound: false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://tasks.example.com", cfg.APIURL)
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	assert.False(t, cfg.Sound)

	t.Setenv("TASKFLOW_API_URL", "http://localhost:9000")
	t.Setenv("TASKFLOW_REQUEST_TIMEOUT", "3s")
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", cfg.APIURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TASKFLOW_WS_URL=ws://sockets.local:8001\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("TASKFLOW_WS_URL") })

	cfg, err := Load(dir, envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "ws://sockets.local:8001", cfg.WSURL)
}

func TestLoad_RejectsBadURL(t *testing.T) {
	t.Setenv("TASKFLOW_API_URL", "ftp://nope")
	_, err := Load(t.TempDir())
	require.Error(t, err)
}

func TestSetAPIURL(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, cfg.SetAPIURL("https://x.example.com/"))
	assert.Equal(t, "https://x.example.com", cfg.APIURL)
	require.Error(t, cfg.SetAPIURL("not a url"))
}
