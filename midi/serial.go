package midi

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"

	"go-keys/debug"
)

// DefaultBaud is the DIN MIDI line rate
const DefaultBaud = 31250

// SerialInput reads a raw MIDI byte stream from a serial port (DIN-to-USB
// bridges, microcontroller keyboards) and hands framed messages to a handler
type SerialInput struct {
	id     string
	port   io.ReadCloser
	handle Handler
	framer Framer
}

// OpenSerial opens the named serial device at the given baud rate
func OpenSerial(name string, baud int, handle Handler) (*SerialInput, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	debug.Logger().Info("serial port opened", "device", name, "baud", baud)
	return newSerialInput(name, p, handle), nil
}

func newSerialInput(id string, port io.ReadCloser, handle Handler) *SerialInput {
	return &SerialInput{id: id, port: port, handle: handle}
}

func (s *SerialInput) ID() string {
	return s.id
}

func (s *SerialInput) Type() ControllerType {
	return ControllerSerial
}

// Run reads until ctx is done, the port closes or a read fails
func (s *SerialInput) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			// unblocks the pending Read
			s.port.Close()
		case <-done:
		}
	}()

	buf := make([]byte, 64)
	for {
		n, err := s.port.Read(buf)
		for _, b := range buf[:n] {
			if msg := s.framer.Feed(b); msg != nil {
				s.handle(msg)
			}
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("serial %s: %w", s.id, err)
		}
	}
}

func (s *SerialInput) Close() error {
	return s.port.Close()
}

// Framer splits a MIDI byte stream into channel messages. It follows running
// status, drops realtime bytes and skips system exclusive and common data.
type Framer struct {
	running byte
	buf     []byte
	sysex   bool
}

// Feed adds one byte and returns a complete message, or nil
func (f *Framer) Feed(b byte) []byte {
	switch {
	case b >= 0xF8:
		// realtime may appear anywhere, even inside other messages
		return nil
	case b == 0xF0:
		f.sysex = true
		f.running = 0
		f.buf = f.buf[:0]
		return nil
	case b >= 0xF1:
		f.sysex = false
		f.running = 0
		f.buf = f.buf[:0]
		return nil
	case b&0x80 != 0:
		f.sysex = false
		f.running = b
		f.buf = append(f.buf[:0], b)
		return nil
	}

	if f.sysex || f.running == 0 {
		return nil
	}
	if len(f.buf) == 0 {
		f.buf = append(f.buf, f.running)
	}
	f.buf = append(f.buf, b)
	if len(f.buf) < 1+dataLen(f.running) {
		return nil
	}

	msg := make([]byte, len(f.buf))
	copy(msg, f.buf)
	f.buf = f.buf[:0]
	return msg
}

// dataLen is the number of data bytes a channel message carries
func dataLen(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 1
	}
	return 2
}
