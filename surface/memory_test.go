package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_WindowLifecycle(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.CreateWindow("w1", "Viewer", true))
	assert.Error(t, m.CreateWindow("w1", "Viewer", true))
	assert.True(t, m.HasWindow("w1"))
	assert.True(t, m.Visible("w1"))
	assert.Equal(t, "Viewer", m.Label("w1"))

	m.Hide("w1")
	assert.False(t, m.Visible("w1"))
	m.Show("w1")
	assert.True(t, m.Visible("w1"))

	require.NoError(t, m.AddElement("w1", "w1/text"))
	assert.True(t, m.Exists("w1/text"))

	m.DeleteWindow("w1")
	assert.False(t, m.HasWindow("w1"))
	assert.False(t, m.Exists("w1/text"))
	assert.Empty(t, m.Windows())
}

func TestMemory_AddElement(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.CreateWindow("w1", "a", true))

	require.NoError(t, m.AddElement("w1", "e1"))
	require.NoError(t, m.AddElement("w1", "e2"))
	assert.Error(t, m.AddElement("w1", "e1"), "duplicate element")
	assert.Error(t, m.AddElement("missing", "e3"), "unknown window")

	assert.Equal(t, []string{"e1", "e2"}, m.Children("w1"))
	assert.Nil(t, m.Children("missing"))
}

func TestMemory_Move(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.CreateWindow("a", "a", true))
	require.NoError(t, m.CreateWindow("b", "b", true))
	require.NoError(t, m.AddElement("a", "x"))
	require.NoError(t, m.AddElement("b", "y"))

	require.NoError(t, m.Move("x", "b"))
	assert.Empty(t, m.Children("a"))
	assert.Equal(t, []string{"y", "x"}, m.Children("b"))

	require.NoError(t, m.Move("x", "b"), "move in place is a no-op")
	assert.Equal(t, []string{"y", "x"}, m.Children("b"))

	assert.Error(t, m.Move("ghost", "a"))
	assert.Error(t, m.Move("x", "ghost"))

	// deleting the host window deletes moved-in elements too
	m.DeleteWindow("b")
	assert.False(t, m.Exists("x"))
	assert.False(t, m.Exists("y"))
}

func TestMemory_ChildrenIsCopy(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.CreateWindow("a", "a", true))
	require.NoError(t, m.AddElement("a", "x"))

	children := m.Children("a")
	children[0] = "mutated"
	assert.Equal(t, []string{"x"}, m.Children("a"))
}
