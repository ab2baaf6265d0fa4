package sound

import (
	"fmt"
	"sync/atomic"

	"go-keys/note"
)

type nullVoice struct {
	id  note.ID
	seq uint64
}

func (v *nullVoice) Note() note.ID {
	return v.id
}

// NullSound hands out handles without producing audio (display-only mode)
type NullSound struct {
	seq atomic.Uint64
}

// NewNullSound creates a silent source
func NewNullSound() *NullSound {
	return &NullSound{}
}

func (s *NullSound) Start(req Request) (Voice, error) {
	return &nullVoice{id: req.Note, seq: s.seq.Add(1)}, nil
}

func (s *NullSound) Stop(v Voice) error {
	if _, ok := v.(*nullVoice); !ok {
		return fmt.Errorf("null stop %v: %w", v, ErrUnknownVoice)
	}
	return nil
}

func (s *NullSound) Close() error {
	return nil
}
