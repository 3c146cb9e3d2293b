package basicui

import (
	"encoding/json"
	"math/rand/v2"
	"reflect"
	"strconv"
	"sync/atomic"

	"github.com/c360/visionflow/component"
)

// FakeDataKind is the kind id of FakeData
const FakeDataKind = "basic_ui.fake_data"

const (
	defaultFakePoints = 100
	fakeDataMax       = 100
)

// FakeDataConfig is the persisted configuration of FakeData
type FakeDataConfig struct {
	Label  string `json:"label" schema:"type:string,description:Window label,category:basic"`
	Points int    `json:"points" schema:"type:int,description:Samples per series,min:1,max:10000,default:100"`
}

// FakeData emits a random series on each press. Samples are integers in
// [0, 100] and each series is named after the press count.
type FakeData struct {
	*component.Base
	points  int
	presses atomic.Int64
}

var fakeDataOutputs = component.Outputs{{Name: "Data", Type: component.DataList}}

// NewFakeData is the factory for FakeDataKind
func NewFakeData(raw json.RawMessage, deps component.Dependencies) (component.Module, error) {
	cfg := FakeDataConfig{Points: defaultFakePoints}
	if err := component.SafeUnmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Points <= 0 {
		cfg.Points = defaultFakePoints
	}

	f := &FakeData{points: cfg.Points}
	b, err := component.NewBase(component.BaseConfig{
		Kind:        FakeDataKind,
		DisplayName: "Fake Data",
		Label:       cfg.Label,
		Outputs:     fakeDataOutputs,
		Persist: func() map[string]any {
			return map[string]any{"points": f.points}
		},
	}, deps)
	if err != nil {
		return nil, err
	}
	if _, err := b.AddElement("button"); err != nil {
		_ = b.Close()
		return nil, err
	}
	f.Base = b
	return f, nil
}

// Press emits one random series
func (f *FakeData) Press() {
	n := f.presses.Add(1)
	series := component.DataListPayload{
		X:    make([]float64, f.points),
		Y:    make([]float64, f.points),
		Name: strconv.FormatInt(n, 10),
	}
	for i := range f.points {
		series.X[i] = float64(i)
		series.Y[i] = float64(rand.IntN(fakeDataMax + 1))
	}
	f.Emit("Data", series)
}

func registerFakeData(reg *component.Registry) error {
	return reg.RegisterWithConfig(component.RegistrationConfig{
		Kind:        FakeDataKind,
		DisplayName: "Fake Data",
		Description: "Generates a random series on each press",
		Version:     "1.0.0",
		Factory:     NewFakeData,
		Schema:      component.GenerateConfigSchema(reflect.TypeOf(FakeDataConfig{})),
		Outputs:     fakeDataOutputs,
	})
}
