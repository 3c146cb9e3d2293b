package component

import (
	"fmt"
	"strconv"

	"github.com/c360/visionflow/errors"
)

// OutputPort is a named, typed output of a module
type OutputPort struct {
	Name string   `json:"name"`
	Type PortType `json:"type"`
}

// NoOutputs declares a module without output ports. A nil Outputs slice is a
// construction error.
var NoOutputs = []OutputPort{}

// OutputRef addresses an output port by name or by its index in declaration
// order.
type OutputRef struct {
	name    string
	index   int
	byIndex bool
}

// PortName refers to an output by name
func PortName(name string) OutputRef {
	return OutputRef{name: name}
}

// PortIndex refers to an output by declaration index
func PortIndex(i int) OutputRef {
	return OutputRef{index: i, byIndex: true}
}

// String renders the reference for logs
func (r OutputRef) String() string {
	if r.byIndex {
		return "#" + strconv.Itoa(r.index)
	}
	return r.name
}

// Outputs is an ordered output port declaration
type Outputs []OutputPort

// ByName returns the port with the given name
func (o Outputs) ByName(name string) (OutputPort, bool) {
	for _, p := range o {
		if p.Name == name {
			return p, true
		}
	}
	return OutputPort{}, false
}

// ByIndex returns the port at position i
func (o Outputs) ByIndex(i int) (OutputPort, bool) {
	if i < 0 || i >= len(o) {
		return OutputPort{}, false
	}
	return o[i], true
}

// Resolve maps a reference to a declared port
func (o Outputs) Resolve(ref OutputRef) (OutputPort, error) {
	var (
		p  OutputPort
		ok bool
	)
	if ref.byIndex {
		p, ok = o.ByIndex(ref.index)
	} else {
		p, ok = o.ByName(ref.name)
	}
	if !ok {
		return OutputPort{}, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrUnknownPort, ref), "Outputs", "Resolve", "port lookup")
	}
	return p, nil
}

func (o Outputs) validate() error {
	if o == nil {
		return errors.WrapFatal(errors.ErrMissingConfig, "Outputs", "validate", "output port declaration")
	}
	seen := make(map[string]bool, len(o))
	for _, p := range o {
		if p.Name == "" || seen[p.Name] {
			return errors.WrapFatal(fmt.Errorf("%w: port name %q empty or duplicated", errors.ErrInvalidConfig, p.Name),
				"Outputs", "validate", "port names")
		}
		if !p.Type.Valid() {
			return errors.WrapFatal(fmt.Errorf("%w: port %s has type %q", errors.ErrInvalidConfig, p.Name, p.Type),
				"Outputs", "validate", "port types")
		}
		seen[p.Name] = true
	}
	return nil
}
