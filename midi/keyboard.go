package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-keys/debug"
)

// KeyboardController forwards a MIDI keyboard's messages to a handler
type KeyboardController struct {
	id       string
	inPort   drivers.In
	stopFunc func()
}

// NewKeyboardController opens inPort and starts listening
func NewKeyboardController(id string, inPort drivers.In, handle Handler) (*KeyboardController, error) {
	kb := &KeyboardController{
		id:     id,
		inPort: inPort,
	}

	if inPort == nil {
		return nil, fmt.Errorf("keyboard %s: no input port", id)
	}

	if !inPort.IsOpen() {
		if err := inPort.Open(); err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
	}

	stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
		handle(msg.Bytes())
	}, gomidi.HandleError(func(err error) {
		debug.Logger().Warn("listener error", "device", id, "err", err)
	}))
	if err != nil {
		_ = inPort.Close()
		return nil, fmt.Errorf("listen %q: %w", id, err)
	}
	kb.stopFunc = stop

	return kb, nil
}

func (kb *KeyboardController) ID() string {
	return kb.id
}

func (kb *KeyboardController) Type() ControllerType {
	return ControllerKeyboard
}

func (kb *KeyboardController) Close() error {
	if kb.stopFunc != nil {
		kb.stopFunc()
		kb.stopFunc = nil
	}
	if kb.inPort != nil && kb.inPort.IsOpen() {
		return kb.inPort.Close()
	}
	return nil
}
