package basicui

import (
	"encoding/json"
	"reflect"
	"sync"

	gojson "github.com/goccy/go-json"

	"github.com/c360/visionflow/component"
)

// TextViewerKind is the kind id of TextViewer
const TextViewerKind = "basic_ui.text_viewer"

const (
	defaultViewerContent = "(No content)"
	triggerContent       = "(trigger)"
)

// TextViewerConfig is the persisted configuration of TextViewer
type TextViewerConfig struct {
	Label   string `json:"label" schema:"type:string,description:Window label,category:basic"`
	Content string `json:"content" schema:"type:string,description:Text shown on open"`
}

// TextViewer shows the last text, command or trigger it received
type TextViewer struct {
	*component.Base

	mu      sync.RWMutex
	content string
}

var viewerAccepts = []component.PortType{component.Text, component.CmdDict, component.Trigger}

// NewTextViewer is the factory for TextViewerKind
func NewTextViewer(raw json.RawMessage, deps component.Dependencies) (component.Module, error) {
	var cfg TextViewerConfig
	if err := component.SafeUnmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Content == "" {
		cfg.Content = defaultViewerContent
	}

	v := &TextViewer{content: cfg.Content}
	b, err := component.NewBase(component.BaseConfig{
		Kind:        TextViewerKind,
		DisplayName: "Text viewer",
		Label:       cfg.Label,
		Outputs:     component.NoOutputs,
		Accepts:     viewerAccepts,
		Persist: func() map[string]any {
			return map[string]any{"content": v.Content()}
		},
	}, deps)
	if err != nil {
		return nil, err
	}
	if _, err := b.AddElement("text"); err != nil {
		_ = b.Close()
		return nil, err
	}
	v.Base = b
	return v, nil
}

// Input replaces the shown text
func (v *TextViewer) Input(msg component.Message) bool {
	var text string
	switch p := msg.Payload.(type) {
	case component.TextPayload:
		text = p.Text
	case component.CmdDictPayload:
		data, err := gojson.Marshal(p.Cmd)
		if err != nil {
			v.Logger().Warn("Command not printable", "error", err)
			return false
		}
		text = string(data)
	case component.TriggerPayload:
		text = triggerContent
	default:
		return v.Base.Input(msg)
	}

	v.mu.Lock()
	v.content = text
	v.mu.Unlock()
	return true
}

// Content returns the shown text
func (v *TextViewer) Content() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.content
}

func registerTextViewer(reg *component.Registry) error {
	return reg.RegisterWithConfig(component.RegistrationConfig{
		Kind:        TextViewerKind,
		DisplayName: "Text viewer",
		Description: "Shows the last text or command received",
		Version:     "1.0.0",
		Factory:     NewTextViewer,
		Schema:      component.GenerateConfigSchema(reflect.TypeOf(TextViewerConfig{})),
		Outputs:     component.NoOutputs,
		Accepts:     viewerAccepts,
	})
}
