package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoader_YAMLLayer(t *testing.T) {
	path := writeFile(t, "visionflow.yaml", `
logging:
  level: debug
worker:
  queue_size: 4
  overflow: block
  block_timeout: 200ms
workspace:
  path: /tmp/ws.json
  autosave: true
modules:
  disabled: [stream]
`)
	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format, "unset keys keep defaults")
	assert.Equal(t, 4, cfg.Worker.QueueSize)
	assert.Equal(t, "block", cfg.Worker.Overflow)
	assert.Equal(t, 200*time.Millisecond, cfg.Worker.BlockTimeout)
	assert.Equal(t, 10*time.Millisecond, cfg.Worker.PollInterval)
	assert.True(t, cfg.Workspace.Autosave)
	assert.Equal(t, []string{"stream"}, cfg.Modules.Disabled)
}

func TestLoader_JSONLayersOverride(t *testing.T) {
	base := writeFile(t, "base.json", `{"logging": {"level": "warn", "format": "json"}, "metrics": {"enabled": true, "port": 9100}}`)
	local := writeFile(t, "local.json", `{"logging": {"level": "error"}, "worker": {"stop_timeout": "5s"}}`)

	l := NewLoader()
	l.AddLayer(base)
	l.AddLayer(local)
	l.EnableValidation(true)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9100, cfg.Metrics.Port)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 5*time.Second, cfg.Worker.StopTimeout)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown key", "a.yaml", "nats:\n  urls: [x]\n"},
		{"bad duration", "b.yaml", "worker:\n  poll_interval: soon\n"},
		{"unbalanced json", "c.json", `{"logging": {"level": "info"}`},
		{"wrong extension", "d.toml", "logging = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadFile(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := NewLoader().LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoader_Validation(t *testing.T) {
	path := writeFile(t, "bad.yaml", "worker:\n  overflow: spill\n")

	_, err := NewLoader().LoadFile(path)
	assert.NoError(t, err, "validation is off by default")

	l := NewLoader()
	l.EnableValidation(true)
	_, err = l.LoadFile(path)
	assert.Error(t, err)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("VISIONFLOW_LOG_LEVEL", "DEBUG")
	t.Setenv("VISIONFLOW_WORKSPACE", "/data/ws.json")
	t.Setenv("VISIONFLOW_METRICS_PORT", "9200")
	t.Setenv("VISIONFLOW_DISABLED_MODULES", "stream, computer_vision,")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/data/ws.json", cfg.Workspace.Path)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9200, cfg.Metrics.Port)
	assert.Equal(t, []string{"stream", "computer_vision"}, cfg.Modules.Disabled)

	t.Setenv("VISIONFLOW_METRICS_PORT", "many")
	_, err = NewLoader().Load()
	assert.Error(t, err)
}

func TestConfig_SaveToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := Defaults()
	cfg.Workspace.Path = "ws.json"
	cfg.Modules.Disabled = []string{"stream"}

	for _, name := range []string{"out.yaml", "out.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, cfg.SaveToFile(path))

		loaded, err := NewLoader().LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, cfg, loaded, name)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	assert.Error(t, cfg.SaveToFile(filepath.Join(dir, "out.txt")))
}

func TestValidateJSONDepth(t *testing.T) {
	assert.NoError(t, validateJSONDepth([]byte(`{"a": "[[[{{{"}`)))
	assert.Error(t, validateJSONDepth([]byte(strings.Repeat("[", maxJSONDepth+1)+strings.Repeat("]", maxJSONDepth+1))))
	assert.Error(t, validateJSONDepth([]byte(`}`)))
}

func TestValidateConfigPath(t *testing.T) {
	assert.Error(t, validateConfigPath(""))
	assert.Error(t, validateConfigPath("../outside.yaml"))
	assert.NoError(t, validateConfigPath("inside.yml"))
	assert.Error(t, validateConfigPath(strings.Repeat("a", maxPathLen+1)+".json"))
}
