package sound

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// DefaultSampleRate matches the rate most interfaces run at
const DefaultSampleRate = 48000

// Output owns the speaker and the mixer every source plays into.
//
// An Output that was never initialized (no audio device, tests) still
// accepts streamers; they just never reach a speaker.
type Output struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	sampleRate  beep.SampleRate
	initialized bool
}

// NewOutput creates an output at the given sample rate
func NewOutput(sampleRate int) *Output {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Output{
		mixer:      &beep.Mixer{},
		sampleRate: beep.SampleRate(sampleRate),
	}
}

// Initialize opens the speaker with the given buffer length and starts the mixer
func (o *Output) Initialize(buffer time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.initialized {
		return nil
	}

	if err := speaker.Init(o.sampleRate, o.sampleRate.N(buffer)); err != nil {
		return err
	}

	speaker.Play(o.mixer)
	o.initialized = true
	return nil
}

// SampleRate returns the output sample rate
func (o *Output) SampleRate() beep.SampleRate {
	return o.sampleRate
}

// Initialized reports whether the speaker is running
func (o *Output) Initialized() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.initialized
}

// Play adds s to the mixer
func (o *Output) Play(s beep.Streamer) {
	o.locked(func() {
		o.mixer.Add(s)
	})
}

// Voices returns how many streamers the mixer is currently holding
func (o *Output) Voices() int {
	n := 0
	o.locked(func() {
		n = o.mixer.Len()
	})
	return n
}

// Close clears the mixer and shuts the speaker down
func (o *Output) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.initialized {
		o.mixer.Clear()
		return
	}

	speaker.Lock()
	o.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	o.initialized = false
}

// locked runs fn while the speaker is not pulling samples
func (o *Output) locked(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.initialized {
		speaker.Lock()
		defer speaker.Unlock()
	}
	fn()
}

// stream pulls samples straight from the mixer (tests, offline rendering)
func (o *Output) stream(samples [][2]float64) (int, bool) {
	var (
		n  int
		ok bool
	)
	o.locked(func() {
		n, ok = o.mixer.Stream(samples)
	})
	return n, ok
}
