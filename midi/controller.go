package midi

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerLaunchpad
	ControllerKeyboard
	ControllerSerial
)

func (t ControllerType) String() string {
	switch t {
	case ControllerLaunchpad:
		return "launchpad"
	case ControllerKeyboard:
		return "keyboard"
	case ControllerSerial:
		return "serial"
	}
	return "unknown"
}

// Handler receives every raw message from an input, in arrival order.
// Handlers run on the driver's listener goroutine and must not block.
type Handler func(msg []byte)

// Controller is an attached MIDI input device
type Controller interface {
	ID() string
	Type() ControllerType

	// Lifecycle
	Close() error
}

// LEDUpdate is one pad colour change sent to a grid controller
type LEDUpdate struct {
	Row, Col int
	Color    [3]uint8 // RGB - controller maps to its palette
}

// LEDs are sent on the Launchpad's static-colour channel
const ledStatic uint8 = 0
