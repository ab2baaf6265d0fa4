package sound

import (
	"fmt"
	"os"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"go-keys/note"
)

// synthEngine is the part of *meltysynth.Synthesizer the source drives
type synthEngine interface {
	NoteOn(channel int32, key int32, velocity int32)
	NoteOff(channel int32, key int32)
	NoteOffAll(immediate bool)
	Render(left []float32, right []float32)
}

// LoadSoundFont opens an SF2 file and builds a synthesizer at sampleRate
func LoadSoundFont(path string, sampleRate int) (*meltysynth.Synthesizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open soundfont: %w", err)
	}
	defer f.Close()

	sf, err := meltysynth.NewSoundFont(f)
	if err != nil {
		return nil, fmt.Errorf("parse soundfont %s: %w", path, err)
	}

	settings := meltysynth.NewSynthesizerSettings(int32(sampleRate))
	synth, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, fmt.Errorf("create synthesizer: %w", err)
	}
	return synth, nil
}

type synthVoice struct {
	id  note.ID
	key int32
}

func (v *synthVoice) Note() note.ID {
	return v.id
}

// ExternalSynth is a Source backed by a SoundFont synthesizer. The
// synthesizer keeps its own voices; handles only remember the key.
type ExternalSynth struct {
	mu      sync.Mutex
	engine  synthEngine
	channel int32
	live    map[*synthVoice]struct{}

	left, right []float32
}

// NewExternalSynth wraps engine and, when out is non-nil, streams its audio
// into out
func NewExternalSynth(engine synthEngine, out *Output, channel int) *ExternalSynth {
	s := &ExternalSynth{
		engine:  engine,
		channel: int32(channel),
		live:    make(map[*synthVoice]struct{}),
	}
	if out != nil {
		out.Play(s)
	}
	return s
}

// Start sends a note-on for the note's key number
func (s *ExternalSynth) Start(req Request) (Voice, error) {
	if !req.Note.Valid() {
		return nil, fmt.Errorf("synth start %s: %w", req.Note, note.ErrOutOfRange)
	}
	v := &synthVoice{id: req.Note, key: int32(req.Note.Key())}

	// velocity 0 is a note-off to the synthesizer
	vel := int32(req.Velocity)
	if vel < 1 {
		vel = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.NoteOn(s.channel, v.key, vel)
	s.live[v] = struct{}{}
	return v, nil
}

// Stop sends the matching note-off
func (s *ExternalSynth) Stop(v Voice) error {
	sv, ok := v.(*synthVoice)
	if !ok {
		return fmt.Errorf("synth stop %v: %w", v, ErrUnknownVoice)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, live := s.live[sv]; !live {
		return fmt.Errorf("synth stop %s: %w", sv.id, ErrUnknownVoice)
	}
	delete(s.live, sv)
	s.engine.NoteOff(s.channel, sv.key)
	return nil
}

// Close silences everything still sounding
func (s *ExternalSynth) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.NoteOffAll(false)
	s.live = make(map[*synthVoice]struct{})
	return nil
}

// Stream renders the synthesizer into beep's stereo frames
func (s *ExternalSynth) Stream(samples [][2]float64) (n int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cap(s.left) < len(samples) {
		s.left = make([]float32, len(samples))
		s.right = make([]float32, len(samples))
	}
	left := s.left[:len(samples)]
	right := s.right[:len(samples)]

	s.engine.Render(left, right)
	for i := range samples {
		samples[i][0] = float64(left[i])
		samples[i][1] = float64(right[i])
	}
	return len(samples), true
}

func (s *ExternalSynth) Err() error {
	return nil
}
