package component

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c360/visionflow/surface"
)

// fake is a minimal module kind that records what it receives
type fake struct {
	*Base
	mu    sync.Mutex
	got   []Message
	trace *[]string // shared delivery log, appended synchronously
}

func (p *fake) Input(msg Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, msg)
	if p.trace != nil {
		*p.trace = append(*p.trace, p.Label())
	}
	return true
}

func (p *fake) received() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.got...)
}

type fakeOptions struct {
	kind     string
	label    string
	outputs  Outputs
	accepts  []PortType
	elements []string
}

func newFake(t *testing.T, deps Dependencies, opts fakeOptions) *fake {
	t.Helper()
	p, err := buildFake(deps, opts)
	require.NoError(t, err)
	return p
}

func buildFake(deps Dependencies, opts fakeOptions) (*fake, error) {
	if opts.kind == "" {
		opts.kind = "test.fake"
	}
	if opts.outputs == nil {
		opts.outputs = Outputs{{Name: "Text", Type: Text}}
	}
	b, err := NewBase(BaseConfig{
		Kind:    opts.kind,
		Label:   opts.label,
		Outputs: opts.outputs,
		Accepts: opts.accepts,
	}, deps)
	if err != nil {
		return nil, err
	}
	for _, e := range opts.elements {
		if _, err := b.AddElement(e); err != nil {
			return nil, err
		}
	}
	return &fake{Base: b}, nil
}

func fakeFactory(opts fakeOptions) Factory {
	return func(_ json.RawMessage, deps Dependencies) (Module, error) {
		p, err := buildFake(deps, opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func memDeps(s *surface.Memory) Dependencies {
	return Dependencies{Surface: s}
}
