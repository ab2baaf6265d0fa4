package midi

import (
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// ErrAccessDenied means the host refused MIDI access. Input stays off for the
// rest of the run; it is not retried.
var ErrAccessDenied = errors.New("MIDI access denied")

// newDriver builds the host driver; replaced in tests
var newDriver = func() (drivers.Driver, error) {
	return rtmididrv.New()
}

// OpenDriver initialises the rtmidi driver
func OpenDriver() (drivers.Driver, error) {
	drv, err := newDriver()
	if err != nil {
		return nil, fmt.Errorf("%w: rtmidi: %v", ErrAccessDenied, err)
	}
	return drv, nil
}

// PortNames lists input and output port names on drv
func PortNames(drv drivers.Driver) (ins, outs []string, err error) {
	inPorts, err := drv.Ins()
	if err != nil {
		return nil, nil, fmt.Errorf("list inputs: %w", err)
	}
	outPorts, err := drv.Outs()
	if err != nil {
		return nil, nil, fmt.Errorf("list outputs: %w", err)
	}
	for _, p := range inPorts {
		ins = append(ins, p.String())
	}
	for _, p := range outPorts {
		outs = append(outs, p.String())
	}
	return ins, outs, nil
}
