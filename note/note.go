package note

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned for a MIDI key outside 0-127 or above the
	// highest supported octave
	ErrInvalidKey = errors.New("invalid key")

	// ErrOutOfRange is returned for a frequency lookup the table does not cover
	ErrOutOfRange = errors.New("out of range")
)

// PitchClass is one of the 12 semitones within an octave (C=0 .. B=11)
type PitchClass int

const (
	C PitchClass = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

// NumPitchClasses is the number of semitones per octave
const NumPitchClasses = 12

// Octave bounds supported by the frequency table
const (
	MinOctave  = 0
	MaxOctave  = 8
	NumOctaves = MaxOctave - MinOctave + 1
)

var pitchNames = [NumPitchClasses]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func (p PitchClass) String() string {
	if !p.Valid() {
		return fmt.Sprintf("PitchClass(%d)", int(p))
	}
	return pitchNames[p]
}

// Valid reports whether p is one of the 12 pitch classes
func (p PitchClass) Valid() bool {
	return p >= C && p <= B
}

// Black reports whether the pitch class sits on a black piano key
func (p PitchClass) Black() bool {
	switch p {
	case CSharp, DSharp, FSharp, GSharp, ASharp:
		return true
	}
	return false
}

// ParsePitchClass accepts the symbolic names C, C#, ... B
func ParsePitchClass(s string) (PitchClass, error) {
	for i, name := range pitchNames {
		if name == s {
			return PitchClass(i), nil
		}
	}
	return 0, fmt.Errorf("unknown pitch class %q", s)
}

// ID identifies a musical key by pitch class and octave.
//
// Octaves follow key/12 with no offset, so MIDI key 60 is C5 and key 69 is A5.
type ID struct {
	Pitch  PitchClass
	Octave int
}

// FromKey maps a MIDI key number (0-127) to an ID
func FromKey(key int) (ID, error) {
	if key < 0 || key > 127 {
		return ID{}, fmt.Errorf("key %d: %w", key, ErrInvalidKey)
	}
	octave := key / NumPitchClasses
	if octave > MaxOctave {
		return ID{}, fmt.Errorf("key %d: octave %d above %d: %w", key, octave, MaxOctave, ErrInvalidKey)
	}
	return ID{Pitch: PitchClass(key % NumPitchClasses), Octave: octave}, nil
}

// MustFromKey is FromKey for keys known to be valid (tests, constants)
func MustFromKey(key int) ID {
	id, err := FromKey(key)
	if err != nil {
		panic(err)
	}
	return id
}

// Key returns the MIDI key number for the ID
func (id ID) Key() int {
	return id.Octave*NumPitchClasses + int(id.Pitch)
}

// Valid reports whether the ID is inside the supported pitch/octave space
func (id ID) Valid() bool {
	return id.Pitch.Valid() && id.Octave >= MinOctave && id.Octave <= MaxOctave
}

// String returns the symbolic name, e.g. "A5" or "C#3"
func (id ID) String() string {
	return fmt.Sprintf("%s%d", id.Pitch, id.Octave)
}
