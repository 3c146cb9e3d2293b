package basicui

import (
	"encoding/json"
	"reflect"

	"github.com/c360/visionflow/component"
)

// HelloWorldKind is the kind id of HelloWorld
const HelloWorldKind = "basic_ui.hello_world"

// Greeting is the text HelloWorld emits
const Greeting = "Hello World"

// HelloWorldConfig is the persisted configuration of HelloWorld
type HelloWorldConfig struct {
	Label string `json:"label" schema:"type:string,description:Window label,category:basic"`
}

// HelloWorld emits a greeting on every trigger or press
type HelloWorld struct {
	*component.Base
}

// NewHelloWorld is the factory for HelloWorldKind
func NewHelloWorld(raw json.RawMessage, deps component.Dependencies) (component.Module, error) {
	var cfg HelloWorldConfig
	if err := component.SafeUnmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	b, err := component.NewBase(component.BaseConfig{
		Kind:        HelloWorldKind,
		DisplayName: "Hello world",
		Label:       cfg.Label,
		Outputs:     component.Outputs{{Name: "Text", Type: component.Text}},
		Accepts:     []component.PortType{component.Trigger},
	}, deps)
	if err != nil {
		return nil, err
	}
	if _, err := b.AddElement("button"); err != nil {
		_ = b.Close()
		return nil, err
	}
	return &HelloWorld{Base: b}, nil
}

// Input treats any trigger as a press
func (h *HelloWorld) Input(msg component.Message) bool {
	if _, ok := msg.Payload.(component.TriggerPayload); !ok {
		return h.Base.Input(msg)
	}
	h.Press()
	return true
}

// Press emits the greeting on every output
func (h *HelloWorld) Press() {
	for _, port := range h.OutputPorts() {
		h.Emit(port.Name, component.TextPayload{Text: Greeting})
	}
}

func registerHelloWorld(reg *component.Registry) error {
	return reg.RegisterWithConfig(component.RegistrationConfig{
		Kind:        HelloWorldKind,
		DisplayName: "Hello world",
		Description: "Emits a fixed greeting when pressed or triggered",
		Version:     "1.0.0",
		Factory:     NewHelloWorld,
		Schema:      component.GenerateConfigSchema(reflect.TypeOf(HelloWorldConfig{})),
		Outputs:     component.Outputs{{Name: "Text", Type: component.Text}},
		Accepts:     []component.PortType{component.Trigger},
	})
}
