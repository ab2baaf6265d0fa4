package sound

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"

	"go-keys/note"
)

// Waveform selects the harmonic recipe of an oscillator voice
type Waveform string

const (
	// WaveSine is a pure sine at the note frequency
	WaveSine Waveform = "sine"

	// WaveOrgan is the periodic wave with only the 2nd and 4th harmonics
	WaveOrgan Waveform = "organ"
)

// ParseWaveform accepts sine or organ
func ParseWaveform(s string) (Waveform, error) {
	switch w := Waveform(s); w {
	case WaveSine, WaveOrgan:
		return w, nil
	}
	return "", fmt.Errorf("unknown waveform %q (want sine or organ)", s)
}

// harmonics returns normalized amplitudes, index 0 being the fundamental
func (w Waveform) harmonics() []float64 {
	switch w {
	case WaveOrgan:
		return []float64{0, 0.5, 0, 0.5}
	default:
		return []float64{1}
	}
}

// Envelope edges, long enough to avoid clicks
const (
	attackTime     = 5 * time.Millisecond
	DefaultRelease = 60 * time.Millisecond
)

// oscillator is a beep.Streamer that runs until released, then fades out
// over the release time and drains
type oscillator struct {
	freq      float64
	sr        float64
	gain      float64
	harmonics []float64

	pos     int
	attack  int
	release int

	releasing  atomic.Bool
	releasePos int
	done       bool
}

func newOscillator(sr beep.SampleRate, freq, gain float64, w Waveform, release time.Duration) *oscillator {
	r := sr.N(release)
	if r < 1 {
		r = 1
	}
	return &oscillator{
		freq:      freq,
		sr:        float64(sr),
		gain:      gain,
		harmonics: w.harmonics(),
		attack:    sr.N(attackTime),
		release:   r,
	}
}

func (o *oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	if o.done {
		return 0, false
	}
	for i := range samples {
		env := 1.0
		if o.pos < o.attack {
			env = float64(o.pos) / float64(o.attack)
		}
		if o.releasing.Load() {
			if o.releasePos >= o.release {
				o.done = true
				return i, i > 0
			}
			env *= 1 - float64(o.releasePos)/float64(o.release)
			o.releasePos++
		}

		t := float64(o.pos) / o.sr
		sample := 0.0
		for h, amp := range o.harmonics {
			if amp == 0 {
				continue
			}
			sample += amp * math.Sin(2*math.Pi*o.freq*float64(h+1)*t)
		}
		sample *= env * o.gain

		samples[i][0] = sample
		samples[i][1] = sample
		o.pos++
	}
	return len(samples), true
}

func (o *oscillator) Err() error {
	return nil
}

// Release starts the tail-off; the streamer drains once it completes
func (o *oscillator) Release() {
	o.releasing.Store(true)
}

type oscVoice struct {
	id  note.ID
	hz  float64
	osc *oscillator
}

func (v *oscVoice) Note() note.ID {
	return v.id
}

// Frequency returns the pitch the voice was started at
func (v *oscVoice) Frequency() float64 {
	return v.hz
}

// OscillatorBank is a Source that synthesizes each note with its own oscillator
type OscillatorBank struct {
	table    note.FrequencyTable
	out      *Output
	waveform Waveform
	gain     float64
	release  time.Duration

	mu     sync.Mutex
	voices map[*oscVoice]struct{}
}

// OscillatorOption configures an OscillatorBank
type OscillatorOption func(*OscillatorBank)

// WithWaveform sets the oscillator waveform
func WithWaveform(w Waveform) OscillatorOption {
	return func(b *OscillatorBank) { b.waveform = w }
}

// WithGain sets the per-voice gain (0-1)
func WithGain(g float64) OscillatorOption {
	return func(b *OscillatorBank) {
		if g >= 0 && g <= 1 {
			b.gain = g
		}
	}
}

// WithRelease sets the release tail length
func WithRelease(d time.Duration) OscillatorOption {
	return func(b *OscillatorBank) {
		if d >= 0 {
			b.release = d
		}
	}
}

// NewOscillatorBank creates an oscillator source playing into out
func NewOscillatorBank(table note.FrequencyTable, out *Output, opts ...OscillatorOption) *OscillatorBank {
	b := &OscillatorBank{
		table:    table,
		out:      out,
		waveform: WaveSine,
		gain:     0.2,
		release:  DefaultRelease,
		voices:   make(map[*oscVoice]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start looks up the note frequency and starts a new oscillator for it
func (b *OscillatorBank) Start(req Request) (Voice, error) {
	hz, err := b.table.Frequency(req.Note)
	if err != nil {
		return nil, err
	}

	osc := newOscillator(b.out.SampleRate(), hz, b.gain, b.waveform, b.release)
	v := &oscVoice{id: req.Note, hz: hz, osc: osc}

	b.mu.Lock()
	b.voices[v] = struct{}{}
	b.mu.Unlock()

	b.out.Play(osc)
	return v, nil
}

// Stop releases the voice's oscillator
func (b *OscillatorBank) Stop(v Voice) error {
	ov, ok := v.(*oscVoice)
	if !ok {
		return fmt.Errorf("oscillator stop %v: %w", v, ErrUnknownVoice)
	}

	b.mu.Lock()
	_, live := b.voices[ov]
	delete(b.voices, ov)
	b.mu.Unlock()

	if !live {
		return fmt.Errorf("oscillator stop %s: %w", ov.id, ErrUnknownVoice)
	}
	ov.osc.Release()
	return nil
}

// Live returns how many voices have been started and not stopped
func (b *OscillatorBank) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.voices)
}

// Close releases every live voice
func (b *OscillatorBank) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for v := range b.voices {
		v.osc.Release()
	}
	b.voices = make(map[*oscVoice]struct{})
	return nil
}
