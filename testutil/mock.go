package testutil

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/c360/visionflow/component"
)

// Recorder is a module that records every message it receives and can
// forward them on its first output.
type Recorder struct {
	*component.Base

	mu       sync.Mutex
	messages []component.Message
	forward  bool
	refuse   bool
}

// RecorderConfig is the persisted configuration of a Recorder
type RecorderConfig struct {
	Label   string `json:"label"`
	Forward bool   `json:"forward"` // re-emit inputs on the first output
	Refuse  bool   `json:"refuse"`  // record but report refusal
}

// Input records msg
func (r *Recorder) Input(msg component.Message) bool {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	forward, refuse := r.forward, r.refuse
	r.mu.Unlock()

	if forward {
		if ports := r.OutputPorts(); len(ports) > 0 {
			r.Emit(ports[0].Name, msg.Payload)
		}
	}
	return !refuse
}

// Messages returns a copy of the recorded messages
func (r *Recorder) Messages() []component.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]component.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Payloads returns the recorded payloads
func (r *Recorder) Payloads() []component.Payload {
	msgs := r.Messages()
	out := make([]component.Payload, len(msgs))
	for i, m := range msgs {
		out[i] = m.Payload
	}
	return out
}

// Reset forgets recorded messages
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.messages = nil
	r.mu.Unlock()
}

// WaitForMessages polls until r has at least n messages or timeout passes
func (r *Recorder) WaitForMessages(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		r.mu.Lock()
		got := len(r.messages)
		r.mu.Unlock()
		if got >= n {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

// RecorderFactory returns a factory for a Recorder kind. Each instance gets a
// "view" element so it can take part in merges.
func RecorderFactory(kind string, outputs component.Outputs, accepts ...component.PortType) component.Factory {
	return func(raw json.RawMessage, deps component.Dependencies) (component.Module, error) {
		var cfg RecorderConfig
		if err := component.SafeUnmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		r := &Recorder{forward: cfg.Forward, refuse: cfg.Refuse}
		b, err := component.NewBase(component.BaseConfig{
			Kind:    kind,
			Label:   cfg.Label,
			Outputs: outputs,
			Accepts: accepts,
			Persist: func() map[string]any {
				return map[string]any{"forward": r.forward, "refuse": r.refuse}
			},
		}, deps)
		if err != nil {
			return nil, err
		}
		if _, err := b.AddElement("view"); err != nil {
			return nil, err
		}
		r.Base = b
		return r, nil
	}
}

// RegisterRecorder registers a Recorder kind on reg
func RegisterRecorder(reg *component.Registry, kind string, outputs component.Outputs, accepts ...component.PortType) error {
	return reg.RegisterWithConfig(component.RegistrationConfig{
		Kind:        kind,
		DisplayName: "Recorder",
		Description: "Records every message it receives",
		Version:     "test",
		Factory:     RecorderFactory(kind, outputs, accepts...),
		Outputs:     outputs,
		Accepts:     accepts,
	})
}

// MockError is a generic error for testing error paths.
type MockError struct {
	Message string
	Code    string
}

func (e *MockError) Error() string {
	return e.Message
}

// NewMockError creates a new mock error.
func NewMockError(message, code string) error {
	return &MockError{
		Message: message,
		Code:    code,
	}
}

// Common test errors
var (
	ErrMockFailed  = errors.New("mock operation failed")
	ErrMockTimeout = errors.New("mock operation timed out")
)
