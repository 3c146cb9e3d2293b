package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/visionflow/component"
	"github.com/c360/visionflow/config"
	"github.com/c360/visionflow/modules/basicui"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Workspace.Path = filepath.Join(t.TempDir(), "session.json")
	cfg.Workspace.Autosave = true
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *app {
	t.Helper()
	a, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, a.start())
	return a
}

func TestApp_SessionRoundTrip(t *testing.T) {
	cfg := testConfig(t)

	a := newTestApp(t, cfg)
	_, err := a.reg.CreateModule(basicui.HelloWorldKind, nil, component.Placement{})
	require.NoError(t, err)
	_, err = a.reg.CreateModule(basicui.ButtonKind, nil, component.Placement{})
	require.NoError(t, err)

	require.NoError(t, a.shutdown(context.Background(), time.Second))
	assert.Equal(t, 0, a.reg.Len())
	assert.FileExists(t, cfg.Workspace.Path)

	b := newTestApp(t, cfg)
	defer func() { _ = b.shutdown(context.Background(), time.Second) }()
	assert.Equal(t, 2, b.reg.Len())
}

func TestApp_MissingWorkspaceStartsEmpty(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	defer func() { _ = a.shutdown(context.Background(), time.Second) }()
	assert.Equal(t, 0, a.reg.Len())
}

func TestApp_SnapshotVersions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workspace.Autosave = false

	a := newTestApp(t, cfg)
	ctx := context.Background()
	_, err := a.reg.CreateModule(basicui.HelloWorldKind, nil, component.Placement{})
	require.NoError(t, err)

	require.NoError(t, a.saveSnapshot(ctx))
	require.NoError(t, a.saveSnapshot(ctx))

	snap, err := a.store.Get(ctx, sessionSnapshot)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Version)
	assert.Len(t, snap.Document.Windows, 1)

	require.NoError(t, a.shutdown(ctx, time.Second))
	_, err = os.Stat(cfg.Workspace.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestApp_DisabledGroup(t *testing.T) {
	cfg := testConfig(t)
	cfg.Modules.Disabled = []string{"stream"}

	a := newTestApp(t, cfg)
	defer func() { _ = a.shutdown(context.Background(), time.Second) }()

	for _, id := range a.reg.KindIDs() {
		assert.NotContains(t, id, "stream.")
	}
	_, ok := a.reg.Kind(basicui.HelloWorldKind)
	assert.True(t, ok)
}

func TestPrintKinds(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	defer func() { _ = a.shutdown(context.Background(), time.Second) }()

	var out bytes.Buffer
	require.NoError(t, printKinds(&out, a.reg))
	assert.Contains(t, out.String(), "KIND")
	assert.Contains(t, out.String(), basicui.HelloWorldKind)
	assert.Contains(t, out.String(), "Text:text")
}
