package basicui

import (
	"encoding/json"
	"reflect"
	"sync/atomic"

	"github.com/c360/visionflow/component"
)

// ButtonKind is the kind id of Button
const ButtonKind = "basic_ui.simple_button"

// ButtonConfig is the persisted configuration of Button
type ButtonConfig struct {
	Label string `json:"label" schema:"type:string,description:Window label,category:basic"`
}

// Button emits a trigger when pressed. An incoming trigger is forwarded as a
// press.
type Button struct {
	*component.Base
	presses atomic.Int64
}

var buttonOutputs = component.Outputs{{Name: "Trigger", Type: component.Trigger}}

// NewButton is the factory for ButtonKind
func NewButton(raw json.RawMessage, deps component.Dependencies) (component.Module, error) {
	var cfg ButtonConfig
	if err := component.SafeUnmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	b, err := component.NewBase(component.BaseConfig{
		Kind:        ButtonKind,
		DisplayName: "Button",
		Label:       cfg.Label,
		Outputs:     buttonOutputs,
		Accepts:     []component.PortType{component.Trigger},
	}, deps)
	if err != nil {
		return nil, err
	}
	if _, err := b.AddElement("button"); err != nil {
		_ = b.Close()
		return nil, err
	}
	return &Button{Base: b}, nil
}

// Input forwards triggers
func (b *Button) Input(msg component.Message) bool {
	if _, ok := msg.Payload.(component.TriggerPayload); !ok {
		return b.Base.Input(msg)
	}
	b.Press()
	return true
}

// Press emits a trigger downstream
func (b *Button) Press() {
	b.presses.Add(1)
	b.Emit("Trigger", component.TriggerPayload{})
}

// Presses returns how many times the button fired
func (b *Button) Presses() int64 { return b.presses.Load() }

func registerButton(reg *component.Registry) error {
	return reg.RegisterWithConfig(component.RegistrationConfig{
		Kind:        ButtonKind,
		DisplayName: "Button",
		Description: "Emits a trigger when pressed",
		Version:     "1.0.0",
		Factory:     NewButton,
		Schema:      component.GenerateConfigSchema(reflect.TypeOf(ButtonConfig{})),
		Outputs:     buttonOutputs,
		Accepts:     []component.PortType{component.Trigger},
	})
}
