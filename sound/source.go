package sound

import (
	"errors"
	"fmt"
	"strings"

	"go-keys/note"
)

// ErrUnknownVoice is returned when Stop gets a handle the source did not create
var ErrUnknownVoice = errors.New("unknown voice")

// Request asks a source to start sounding a note
type Request struct {
	Note     note.ID
	Velocity uint8
}

// Voice is an opaque handle to a sounding note, owned by the source that
// returned it
type Voice interface {
	Note() note.ID
}

// Source starts and stops voices. Implementations must be safe to call from
// the dispatcher while their audio is rendered on another goroutine.
type Source interface {
	Start(req Request) (Voice, error)
	Stop(v Voice) error
	Close() error
}

// Backend names a Source implementation
type Backend string

const (
	BackendOscillator Backend = "osc"
	BackendSynth      Backend = "synth"
	BackendNone       Backend = "none"
)

// ParseBackend accepts osc, synth or none
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendOscillator, BackendSynth, BackendNone:
		return b, nil
	}
	return "", fmt.Errorf("unknown sound backend %q (want osc, synth or none)", s)
}
