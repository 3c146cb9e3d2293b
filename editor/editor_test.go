package editor

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/visionflow/component"
	"github.com/c360/visionflow/errors"
	"github.com/c360/visionflow/surface"
	"github.com/c360/visionflow/testutil"
	"github.com/c360/visionflow/workspace"
)

func setup(t *testing.T) (*component.Registry, *Editor) {
	t.Helper()
	reg := component.NewRegistry(component.WithSurface(surface.NewMemory()))
	require.NoError(t, testutil.RegisterRecorder(reg, "test.source",
		component.Outputs{{Name: "Text", Type: component.Text}, {Name: "Value", Type: component.Number}}))
	require.NoError(t, testutil.RegisterRecorder(reg, "test.sink", component.NoOutputs, component.Text))
	return reg, New(reg, nil)
}

func addNode(t *testing.T, e *Editor, kind, label string) component.Module {
	t.Helper()
	raw, err := json.Marshal(testutil.RecorderConfig{Label: label})
	require.NoError(t, err)
	m, err := e.AddNode(kind, raw, component.Placement{})
	require.NoError(t, err)
	return m
}

func TestEditor_LinkDelink(t *testing.T) {
	_, e := setup(t)
	src := addNode(t, e, "test.source", "src")
	sink := addNode(t, e, "test.sink", "sink")

	id, err := e.LinkByName(src.ID(), sink.ID(), "Text")
	require.NoError(t, err)
	assert.Len(t, src.Connections()["Text"], 1)

	again, err := e.Link(src.ID(), component.PortIndex(0), sink.ID())
	require.NoError(t, err)
	assert.Equal(t, id, again, "same edge keeps its link")
	assert.Len(t, e.Links(), 1)

	_, err = e.LinkByName(src.ID(), sink.ID(), "Value")
	assert.True(t, stderrors.Is(err, errors.ErrIncompatiblePort))
	assert.Len(t, e.Links(), 1)

	_, err = e.LinkByName(src.ID(), sink.ID(), "Missing")
	assert.True(t, stderrors.Is(err, errors.ErrUnknownPort))

	_, err = e.LinkByName("ghost", sink.ID(), "Text")
	assert.True(t, stderrors.Is(err, errors.ErrUnknownModule))

	assert.True(t, e.Delink(id))
	assert.Empty(t, src.Connections()["Text"])
	assert.Empty(t, e.Links())
	assert.False(t, e.Delink(id))
}

func TestEditor_DeleteNode(t *testing.T) {
	reg, e := setup(t)
	src := addNode(t, e, "test.source", "src")
	a := addNode(t, e, "test.sink", "a")
	b := addNode(t, e, "test.sink", "b")

	_, err := e.LinkByName(src.ID(), a.ID(), "Text")
	require.NoError(t, err)
	keep, err := e.LinkByName(src.ID(), b.ID(), "Text")
	require.NoError(t, err)

	require.NoError(t, e.DeleteNode(a.ID()))
	_, ok := reg.Module(a.ID())
	assert.False(t, ok)

	links := e.Links()
	require.Len(t, links, 1)
	assert.Equal(t, keep, links[0].ID)
	targets := src.Connections()["Text"]
	require.Len(t, targets, 1)
	assert.Equal(t, b.ID(), targets[0].ID())

	assert.Error(t, e.DeleteNode(a.ID()))
}

func TestEditor_AddNodeUnknownKind(t *testing.T) {
	_, e := setup(t)
	_, err := e.AddNode("test.nope", nil, component.Placement{})
	assert.True(t, stderrors.Is(err, errors.ErrUnknownKind))
}

func TestEditor_RebuildFromInstances(t *testing.T) {
	reg, e := setup(t)
	src := addNode(t, e, "test.source", "src")
	a := addNode(t, e, "test.sink", "a")
	b := addNode(t, e, "test.sink", "b")
	require.True(t, src.Connect(a, component.PortName("Text")))
	require.True(t, src.Connect(b, component.PortName("Text")))

	doc := workspace.Export(reg.Modules())
	workspace.NewImporter(reg).Import(doc)

	links := e.RebuildFromInstances()
	require.Len(t, links, 2)
	assert.Equal(t, Link{ID: links[0].ID, Source: src.ID(), Port: "Text", Target: a.ID()}, links[0])
	assert.Equal(t, b.ID(), links[1].Target)

	assert.True(t, e.Delink(links[0].ID))
	restored, ok := reg.Module(src.ID())
	require.True(t, ok)
	assert.Len(t, restored.Connections()["Text"], 1)
}

func TestFusion_DropRestore(t *testing.T) {
	reg, e := setup(t)
	a := addNode(t, e, "test.sink", "a")
	b := addNode(t, e, "test.sink", "b")
	f := NewFusion(reg, nil)

	require.NoError(t, f.Drop(a.ID(), a.ID()), "dropping on itself is ignored")
	assert.False(t, a.IsMerged())

	require.NoError(t, f.Drop(a.ID(), b.ID()))
	rows := f.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, Row{ID: a.ID(), Label: "a", MergedInto: "b", Merged: true}, rows[0])
	assert.Equal(t, Row{ID: b.ID(), Label: "b"}, rows[1])

	err := f.Drop(b.ID(), a.ID())
	assert.True(t, stderrors.Is(err, errors.ErrMergeCycle))

	require.NoError(t, f.Restore(a.ID()))
	assert.False(t, a.IsMerged())
	assert.True(t, stderrors.Is(f.Restore(a.ID()), errors.ErrNotMerged))

	assert.True(t, stderrors.Is(f.Drop("ghost", b.ID()), errors.ErrUnknownModule))
	assert.True(t, stderrors.Is(f.Drop(a.ID(), "ghost"), errors.ErrUnknownModule))
	assert.True(t, stderrors.Is(f.Restore("ghost"), errors.ErrUnknownModule))
}
