package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/visionflow/config"
)

func TestParseFlags(t *testing.T) {
	t.Setenv("VISIONFLOW_CONFIG", "")
	t.Setenv("VISIONFLOW_SHUTDOWN_TIMEOUT", "")

	var out bytes.Buffer
	cfg, err := parseFlags([]string{"-c", "app.yaml", "-workspace", "ws.json", "-log-level", "debug", "-list-kinds"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "app.yaml", cfg.ConfigPath)
	assert.Equal(t, "ws.json", cfg.WorkspacePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, cfg.LogFormat)
	assert.True(t, cfg.ListKinds)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, out.String())
}

func TestParseFlags_EnvFallback(t *testing.T) {
	t.Setenv("VISIONFLOW_CONFIG", "/etc/visionflow.yaml")
	t.Setenv("VISIONFLOW_SHUTDOWN_TIMEOUT", "3s")

	cfg, err := parseFlags(nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "/etc/visionflow.yaml", cfg.ConfigPath)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestParseFlags_HelpPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, err := parseFlags([]string{"-h"}, &out)
	require.NoError(t, err)
	assert.True(t, cfg.ShowHelp)
	assert.Contains(t, out.String(), "-list-kinds")
}

func TestParseFlags_Unknown(t *testing.T) {
	_, err := parseFlags([]string{"-nope"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestValidateFlags(t *testing.T) {
	existing := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(existing, []byte("version: 1.0.0\n"), 0o600))

	tests := []struct {
		name    string
		cfg     CLIConfig
		wantErr bool
	}{
		{"defaults", CLIConfig{ShutdownTimeout: time.Second}, false},
		{"existing config", CLIConfig{ConfigPath: existing, ShutdownTimeout: time.Second}, false},
		{"missing config", CLIConfig{ConfigPath: "/nope/config.yaml", ShutdownTimeout: time.Second}, true},
		{"bad level", CLIConfig{LogLevel: "trace", ShutdownTimeout: time.Second}, true},
		{"bad format", CLIConfig{LogFormat: "xml", ShutdownTimeout: time.Second}, true},
		{"zero timeout", CLIConfig{}, true},
		{"version skips checks", CLIConfig{ShowVersion: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFlags(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfiguration_FlagsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n  format: json\n"), 0o600))

	cfg, err := loadConfiguration(&CLIConfig{ConfigPath: path, LogLevel: "debug", WorkspacePath: "ws.json"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "ws.json", cfg.Workspace.Path)
}

func TestSetupLogger(t *testing.T) {
	var out bytes.Buffer
	logger := setupLogger("warn", "json", &out)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), `"msg":"shown"`)
	assert.Contains(t, out.String(), `"service":"visionflow"`)
}

func TestRun_WriteConfig(t *testing.T) {
	t.Setenv("VISIONFLOW_CONFIG", "")
	t.Setenv("VISIONFLOW_SHUTDOWN_TIMEOUT", "")
	path := filepath.Join(t.TempDir(), "effective.yaml")

	require.NoError(t, run([]string{"-log-level", "warn", "-workspace", "ws.json", "-write-config", path}))

	loaded, err := config.NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", loaded.Logging.Level)
	assert.Equal(t, "ws.json", loaded.Workspace.Path)
	assert.Equal(t, config.CurrentVersion, loaded.Version)
}
