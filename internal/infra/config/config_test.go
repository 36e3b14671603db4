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
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
catalog:
  url: http://jellyfin.local:8096
  token: abc123
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.Server.Addr)
	assert.Equal(t, "mpv", cfg.Player.Type)
	assert.Equal(t, 0, cfg.Volume.Min)
	assert.Equal(t, 60, cfg.Volume.Max)
	assert.Equal(t, 30, cfg.Volume.Initial)
	assert.Equal(t, 10, cfg.Catalog.TimeoutSec)
	assert.Equal(t, 0, cfg.Playback.AutoRecoverSec)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
catalog:
  url: http://jellyfin.local:8096
  token: abc123
  timeout_sec: 5
player:
  type: "null"
volume:
  max: 40
  initial: 80
playback:
  auto_recover_sec: 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "null", cfg.Player.Type)
	assert.Equal(t, 5, cfg.Catalog.TimeoutSec)
	assert.Equal(t, 30, cfg.Playback.AutoRecoverSec)
	assert.Equal(t, 40, cfg.Volume.Max)
	assert.Equal(t, 40, cfg.Volume.Initial, "initial volume is pulled down to the ceiling")
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "missing catalog url",
			content: "catalog:\n  token: abc123\n",
			errMsg:  "URL",
		},
		{
			name:    "missing catalog token",
			content: "catalog:\n  url: http://jellyfin.local:8096\n",
			errMsg:  "Token",
		},
		{
			name: "volume max below min",
			content: `
catalog:
  url: http://jellyfin.local:8096
  token: abc123
volume:
  min: 50
  max: 20
`,
			errMsg: "Max",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TONBOX_CATALOG_URL", "http://other.local:8096")
	t.Setenv("TONBOX_CATALOG_TOKEN", "env-token")

	path := writeConfig(t, `
catalog:
  url: http://jellyfin.local:8096
  token: file-token
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://other.local:8096", cfg.Catalog.URL)
	assert.Equal(t, "env-token", cfg.Catalog.Token)
}

func TestLoadClient_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadClient(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8090", cfg.ServerURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval())
	assert.Equal(t, 200*time.Millisecond, cfg.VolumeDebounce())
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout())
}

func TestLoadClient_File(t *testing.T) {
	path := writeConfig(t, `
server_url: http://kiosk.local:8090
poll_interval_ms: 1000
volume_debounce_ms: 300
`)

	cfg, err := LoadClient(path)
	require.NoError(t, err)
	assert.Equal(t, "http://kiosk.local:8090", cfg.ServerURL)
	assert.Equal(t, time.Second, cfg.PollInterval())
	assert.Equal(t, 300*time.Millisecond, cfg.VolumeDebounce())
}

func TestLoadClient_PollFloor(t *testing.T) {
	path := writeConfig(t, "poll_interval_ms: 10\n")

	_, err := LoadClient(path)
	require.Error(t, err, "sub-250ms polling would hammer the server")
}
