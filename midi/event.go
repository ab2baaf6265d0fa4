package midi

import (
	"fmt"

	"go-keys/note"
)

// MIDI status bytes (channel 0)
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0
)

// DefaultVelocity is used when a note message carries no velocity byte
const DefaultVelocity uint8 = 100

// Omni accepts note messages on every channel
const Omni = -1

// Kind tags a decoded message
type Kind int

const (
	Ignored Kind = iota
	NoteStart
	NoteEnd
)

func (k Kind) String() string {
	switch k {
	case NoteStart:
		return "note-on"
	case NoteEnd:
		return "note-off"
	}
	return "ignored"
}

// Event is a decoded MIDI message. Note and Velocity are only meaningful for
// NoteStart and NoteEnd.
type Event struct {
	Kind     Kind
	Note     note.ID
	Channel  uint8
	Velocity uint8
}

func (e Event) String() string {
	if e.Kind == Ignored {
		return "ignored"
	}
	return fmt.Sprintf("%s %s vel=%d ch=%d", e.Kind, e.Note, e.Velocity, e.Channel)
}

// Decoder turns raw channel-voice messages into Events
type Decoder struct {
	// Channel selects which channel's notes are decoded, or Omni
	Channel int

	// VelocityZeroOff decodes a note-on with velocity 0 as a note-off
	VelocityZeroOff bool
}

// Decode decodes msg with the literal channel 0 rules: 144 is note-on, 128 is
// note-off, everything else is ignored
func Decode(msg []byte) (Event, error) {
	return Decoder{}.Decode(msg)
}

// Decode classifies msg. Unknown status bytes are Ignored without error; note
// messages with a bad key fail with note.ErrInvalidKey.
func (d Decoder) Decode(msg []byte) (Event, error) {
	if len(msg) == 0 {
		return Event{}, nil
	}

	status := msg[0]
	kind := Ignored
	switch status & 0xF0 {
	case NoteOn:
		kind = NoteStart
	case NoteOff:
		kind = NoteEnd
	}
	if kind == Ignored {
		return Event{}, nil
	}

	channel := status & 0x0F
	if d.Channel != Omni && int(channel) != d.Channel {
		return Event{}, nil
	}

	if len(msg) < 2 {
		return Event{}, fmt.Errorf("decode % X: missing key byte: %w", msg, note.ErrInvalidKey)
	}

	id, err := note.FromKey(int(msg[1]))
	if err != nil {
		return Event{}, fmt.Errorf("decode % X: %w", msg, err)
	}

	velocity := DefaultVelocity
	if len(msg) > 2 {
		velocity = msg[2]
	}
	if kind == NoteStart && velocity == 0 && d.VelocityZeroOff {
		kind = NoteEnd
	}

	return Event{Kind: kind, Note: id, Channel: channel, Velocity: velocity}, nil
}
