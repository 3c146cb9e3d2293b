package basicui

import (
	"github.com/c360/visionflow/component"
	"github.com/c360/visionflow/errors"
)

// Register adds every basic interface kind to reg
func Register(reg *component.Registry) error {
	for _, register := range []func(*component.Registry) error{
		registerHelloWorld,
		registerButton,
		registerTextViewer,
		registerCmdSender,
		registerFakeData,
	} {
		if err := register(reg); err != nil {
			return errors.Wrap(err, "basicui", "Register", "kind registration")
		}
	}
	return nil
}
