package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:8090", cfg.BackendURL)
	require.Equal(t, 3*time.Second, cfg.ReconnectDelay)
	require.Equal(t, 10*time.Second, cfg.ProbeInterval)
	require.Equal(t, "/api/workflow/ws", cfg.SocketPath)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "campsync.yaml")
	content := "backend_url: http://backend.internal:9000\nreconnect_delay: 5s\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CAMPSYNC_PROBE_INTERVAL", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://backend.internal:9000", cfg.BackendURL)
	require.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 30*time.Second, cfg.ProbeInterval)
}

func TestLoadRejectsBadBackendURL(t *testing.T) {
	t.Setenv("CAMPSYNC_BACKEND_URL", "ftp://nope")
	_, err := Load("")
	require.Error(t, err)
}

func TestTransportConfigMapping(t *testing.T) {
	cfg := Default()
	cfg.BackendURL = "https://backend.example"
	tc := cfg.TransportConfig()
	require.Equal(t, "https://backend.example", tc.BaseURL)
	require.Equal(t, cfg.ReconnectDelay, tc.ReconnectDelay)
	require.Equal(t, cfg.StatusPath, tc.StatusPath)
}
