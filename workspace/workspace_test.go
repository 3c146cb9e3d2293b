package workspace

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/visionflow/component"
	"github.com/c360/visionflow/metric"
	"github.com/c360/visionflow/surface"
)

type node struct {
	*component.Base
	greeting string
}

func (n *node) Input(component.Message) bool { return true }

type nodeConfig struct {
	Label    string `json:"label"`
	Greeting string `json:"greeting"`
}

func nodeFactory(kind string, outputs component.Outputs, accepts []component.PortType) component.Factory {
	return func(raw json.RawMessage, deps component.Dependencies) (component.Module, error) {
		var cfg nodeConfig
		if err := component.SafeUnmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		if cfg.Greeting == "explode" {
			return nil, fmt.Errorf("refused greeting")
		}
		n := &node{greeting: cfg.Greeting}
		b, err := component.NewBase(component.BaseConfig{
			Kind:    kind,
			Label:   cfg.Label,
			Outputs: outputs,
			Accepts: accepts,
			Persist: func() map[string]any { return map[string]any{"greeting": n.greeting} },
		}, deps)
		if err != nil {
			return nil, err
		}
		if _, err := b.AddElement("view"); err != nil {
			return nil, err
		}
		n.Base = b
		return n, nil
	}
}

func newRegistry(t *testing.T) *component.Registry {
	t.Helper()
	r := component.NewRegistry(component.WithSurface(surface.NewMemory()))
	require.NoError(t, r.RegisterWithConfig(component.RegistrationConfig{
		Kind:    "test.source",
		Factory: nodeFactory("test.source", component.Outputs{{Name: "Text", Type: component.Text}, {Name: "Value", Type: component.Number}}, nil),
		Outputs: component.Outputs{{Name: "Text", Type: component.Text}, {Name: "Value", Type: component.Number}},
	}))
	require.NoError(t, r.RegisterWithConfig(component.RegistrationConfig{
		Kind:    "test.sink",
		Factory: nodeFactory("test.sink", component.NoOutputs, []component.PortType{component.Text, component.Number}),
		Outputs: component.NoOutputs,
		Accepts: []component.PortType{component.Text, component.Number},
	}))
	return r
}

func create(t *testing.T, r *component.Registry, kind, label string) component.Module {
	t.Helper()
	m, err := r.CreateModule(kind, json.RawMessage(fmt.Sprintf(`{"label":%q,"greeting":"hi %s"}`, label, label)), component.Placement{})
	require.NoError(t, err)
	return m
}

type edge struct{ from, port, to string }

func edgesOf(modules []component.Module) []edge {
	var out []edge
	for _, m := range modules {
		conns := m.Connections()
		for _, p := range m.OutputPorts() {
			for _, tgt := range conns[p.Name] {
				out = append(out, edge{m.ID(), p.Name, tgt.ID()})
			}
		}
	}
	return out
}

func TestTargets_JSON(t *testing.T) {
	var single Targets
	require.NoError(t, json.Unmarshal([]byte(`"abc"`), &single))
	assert.Equal(t, To("abc"), single)

	var legacy Targets
	require.NoError(t, json.Unmarshal([]byte(`["a","b"]`), &legacy))
	assert.Equal(t, Targets{IDs: []string{"a", "b"}, Legacy: true}, legacy)

	var bad Targets
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))

	data, err := json.Marshal(To("abc"))
	require.NoError(t, err)
	assert.JSONEq(t, `"abc"`, string(data))

	data, err = json.Marshal(legacy)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(data))
}

func TestOutputKey_JSON(t *testing.T) {
	var conn Connection
	require.NoError(t, json.Unmarshal([]byte(`{"from":"a","output":1,"to":"b"}`), &conn))
	assert.Equal(t, OutputKey("1"), conn.Output)

	require.NoError(t, json.Unmarshal([]byte(`{"from":"a","output":"Text","to":"b"}`), &conn))
	assert.Equal(t, OutputKey("Text"), conn.Output)
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"empty workspace", `{"windows":[],"connections":[]}`, false},
		{"window and edge", `{"windows":[{"module":"a.b","uuid":"1","pos":[1,2]}],"connections":[{"from":"1","output":"Text","to":"2"}]}`, false},
		{"legacy targets", `{"windows":[],"connections":[{"from":"1","output":"Text","to":["2","3"]}]}`, false},
		{"missing windows", `{"connections":[]}`, true},
		{"window without module", `{"windows":[{"uuid":"1"}],"connections":[]}`, true},
		{"bad pos", `{"windows":[{"module":"a","uuid":"1","pos":[1]}],"connections":[]}`, true},
		{"fractional pos", `{"windows":[{"module":"a","uuid":"1","pos":[10.5,2]}],"connections":[]}`, true},
		{"fractional size", `{"windows":[{"module":"a","uuid":"1","size":[-1,0.5]}],"connections":[]}`, true},
		{"numeric target", `{"windows":[],"connections":[{"from":"1","to":5}]}`, true},
		{"not json", `{windows`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument([]byte(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	r := newRegistry(t)
	src := create(t, r, "test.source", "src")
	sinkA := create(t, r, "test.sink", "sinkA")
	sinkB := create(t, r, "test.sink", "sinkB")

	require.True(t, src.Connect(sinkA, component.PortName("Text")))
	require.True(t, src.Connect(sinkB, component.PortName("Text")))
	require.True(t, src.Connect(sinkB, component.PortName("Value")))
	require.True(t, sinkB.MergeInto(sinkA))

	doc := Export(r.Modules())
	require.Len(t, doc.Windows, 3)
	require.Len(t, doc.Connections, 3)
	assert.Equal(t, sinkA.ID(), doc.Windows[2].Params[component.MergedIntoParam])

	data, err := Encode(doc)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)

	wantEdges := edgesOf(r.Modules())
	fresh := newRegistry(t)
	modules := NewImporter(fresh).Import(decoded)
	require.Len(t, modules, 3)

	for i, m := range modules {
		orig := doc.Windows[i]
		rec := m.Serialize()
		assert.Equal(t, orig.UUID, rec.UUID)
		assert.Equal(t, orig.Module, rec.Module)
		assert.Equal(t, orig.Params["label"], rec.Params["label"])
		assert.Equal(t, orig.Params["greeting"], rec.Params["greeting"])
	}
	assert.Equal(t, wantEdges, edgesOf(modules))

	restoredB, ok := fresh.Module(sinkB.ID())
	require.True(t, ok)
	require.NotNil(t, restoredB.MergedInto())
	assert.Equal(t, sinkA.ID(), restoredB.MergedInto().ID())
}

func TestImport_LegacyTargetsUseFirstOutput(t *testing.T) {
	r := newRegistry(t)
	doc := Document{
		Windows: []component.Record{
			{Module: "test.source", UUID: "s", Params: map[string]any{"label": "s"}},
			{Module: "test.sink", UUID: "a", Params: map[string]any{"label": "a"}},
			{Module: "test.sink", UUID: "b", Params: map[string]any{"label": "b"}},
		},
		Connections: []Connection{
			{From: "s", Output: "Value", To: Targets{IDs: []string{"a", "b", "missing"}, Legacy: true}},
		},
	}

	modules := NewImporter(r).Import(doc)
	require.Len(t, modules, 3)
	assert.Equal(t, []edge{{"s", "Text", "a"}, {"s", "Text", "b"}}, edgesOf(modules))
}

func TestImport_NumericOutputIndex(t *testing.T) {
	r := newRegistry(t)
	doc := Document{
		Windows: []component.Record{
			{Module: "test.source", UUID: "s", Params: map[string]any{"label": "s"}},
			{Module: "test.sink", UUID: "a", Params: map[string]any{"label": "a"}},
		},
		Connections: []Connection{{From: "s", Output: "1", To: To("a")}},
	}

	modules := NewImporter(r).Import(doc)
	assert.Equal(t, []edge{{"s", "Value", "a"}}, edgesOf(modules))
}

func TestImport_SkipsBrokenWindows(t *testing.T) {
	r := newRegistry(t)
	doc := Document{
		Windows: []component.Record{
			{Module: "test.source", UUID: "s", Params: map[string]any{"label": "s"}},
			{Module: "test.unknown", UUID: "u"},
			{Module: "test.sink", UUID: "x", Params: map[string]any{"greeting": "explode"}},
			{Module: "test.sink", UUID: "a", Params: map[string]any{"label": "a", component.MergedIntoParam: "u"}},
		},
		Connections: []Connection{
			{From: "s", Output: "Text", To: To("x")},
			{From: "u", Output: "Text", To: To("a")},
			{From: "s", Output: "Nope", To: To("a")},
			{From: "s", Output: "Text", To: To("a")},
		},
	}

	modules := NewImporter(r).Import(doc)
	require.Len(t, modules, 2)
	assert.Equal(t, []edge{{"s", "Text", "a"}}, edgesOf(modules))
	a, ok := r.Module("a")
	require.True(t, ok)
	assert.False(t, a.IsMerged())
}

func TestImport_CatalogRestrictsKinds(t *testing.T) {
	r := newRegistry(t)
	doc := Document{Windows: []component.Record{
		{Module: "test.source", UUID: "s"},
		{Module: "test.sink", UUID: "a"},
	}}

	catalog := r.Discover("test.sink")
	modules := NewImporter(r, WithCatalog(catalog)).Import(doc)
	require.Len(t, modules, 1)
	assert.Equal(t, "a", modules[0].ID())
}

func TestImport_ClearsLiveModules(t *testing.T) {
	r := newRegistry(t)
	old := create(t, r, "test.source", "old")

	modules := NewImporter(r).Import(Document{Windows: []component.Record{{Module: "test.sink", UUID: "new"}}})
	require.Len(t, modules, 1)
	assert.Equal(t, 1, r.Len())
	_, ok := r.Module(old.ID())
	assert.False(t, ok)
	assert.True(t, old.(*node).IsClosed())
}

func TestExportFile_ImportFile(t *testing.T) {
	metrics := metric.NewMetricsRegistry()
	r := newRegistry(t)
	src := create(t, r, "test.source", "src")
	sink := create(t, r, "test.sink", "sink")
	require.True(t, src.Connect(sink, component.PortName("Text")))

	path := filepath.Join(t.TempDir(), "nested", "layout.json")
	require.NoError(t, ExportFile(r, path, metrics))

	fresh := newRegistry(t)
	modules, err := NewImporter(fresh, WithMetrics(metrics)).ImportFile(path)
	require.NoError(t, err)
	assert.Len(t, modules, 2)
	assert.True(t, slices.Equal(edgesOf(r.Modules()), edgesOf(modules)))

	_, err = NewImporter(fresh).ImportFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
