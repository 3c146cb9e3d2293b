package basicui

import (
	"encoding/json"
	"maps"
	"reflect"
	"strings"
	"sync"

	gojson "github.com/goccy/go-json"

	"github.com/c360/visionflow/component"
)

// CmdSenderKind is the kind id of CmdSender
const CmdSenderKind = "basic_ui.cmd_sender"

// CmdSenderConfig is the persisted configuration of CmdSender
type CmdSenderConfig struct {
	Label  string            `json:"label" schema:"type:string,description:Window label,category:basic"`
	Status map[string]string `json:"status" schema:"type:object,description:Key/value rows sent as one command,category:basic"`
}

// CmdSender holds editable key/value rows and sends them as one command on
// each trigger: the map on Dict, its JSON text on TXT.
type CmdSender struct {
	*component.Base

	mu   sync.RWMutex
	rows map[string]string
}

var cmdSenderOutputs = component.Outputs{
	{Name: "Dict", Type: component.CmdDict},
	{Name: "TXT", Type: component.Text},
}

// NewCmdSender is the factory for CmdSenderKind
func NewCmdSender(raw json.RawMessage, deps component.Dependencies) (component.Module, error) {
	var cfg CmdSenderConfig
	if err := component.SafeUnmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	s := &CmdSender{rows: make(map[string]string, len(cfg.Status))}
	for k, v := range cfg.Status {
		s.SetRow(k, v)
	}
	b, err := component.NewBase(component.BaseConfig{
		Kind:        CmdSenderKind,
		DisplayName: "CMD Sender",
		Label:       cfg.Label,
		Outputs:     cmdSenderOutputs,
		Accepts:     []component.PortType{component.Trigger},
		Persist: func() map[string]any {
			return map[string]any{"status": s.Status()}
		},
	}, deps)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{"rows", "add", "send"} {
		if _, err := b.AddElement(name); err != nil {
			_ = b.Close()
			return nil, err
		}
	}
	s.Base = b
	return s, nil
}

// SetRow sets one row. Keys and values are trimmed and an empty key is ignored.
func (s *CmdSender) SetRow(key, value string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	s.mu.Lock()
	s.rows[key] = strings.TrimSpace(value)
	s.mu.Unlock()
}

// DeleteRow removes one row
func (s *CmdSender) DeleteRow(key string) {
	s.mu.Lock()
	delete(s.rows, strings.TrimSpace(key))
	s.mu.Unlock()
}

// Status returns a copy of the rows
func (s *CmdSender) Status() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.rows)
}

// Input sends the command on a trigger
func (s *CmdSender) Input(msg component.Message) bool {
	if _, ok := msg.Payload.(component.TriggerPayload); !ok {
		return s.Base.Input(msg)
	}
	s.Send()
	return true
}

// Send emits the current rows
func (s *CmdSender) Send() {
	status := s.Status()
	cmd := make(map[string]any, len(status))
	for k, v := range status {
		cmd[k] = v
	}

	text, err := gojson.Marshal(cmd)
	if err != nil {
		s.Logger().Warn("Command not printable", "error", err)
	}
	s.Logger().Debug("Sending command", "cmd", string(text))

	payloads := map[string]component.Payload{"Dict": component.CmdDictPayload{Cmd: cmd}}
	if text != nil {
		payloads["TXT"] = component.TextPayload{Text: string(text)}
	}
	s.EmitEach(payloads)
}

func registerCmdSender(reg *component.Registry) error {
	return reg.RegisterWithConfig(component.RegistrationConfig{
		Kind:        CmdSenderKind,
		DisplayName: "CMD Sender",
		Description: "Sends editable key/value rows as a command",
		Version:     "1.0.0",
		Factory:     NewCmdSender,
		Schema:      component.GenerateConfigSchema(reflect.TypeOf(CmdSenderConfig{})),
		Outputs:     cmdSenderOutputs,
		Accepts:     []component.PortType{component.Trigger},
	})
}
