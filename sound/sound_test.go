package sound

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-keys/note"
)

const testRate = 8000

func drain(out *Output, blocks int) {
	buf := make([][2]float64, 256)
	for i := 0; i < blocks; i++ {
		out.stream(buf)
	}
}

func TestOscillatorRunsUntilReleased(t *testing.T) {
	osc := newOscillator(testRate, 440, 0.5, WaveSine, 10*time.Millisecond)

	buf := make([][2]float64, 512)
	for i := 0; i < 10; i++ {
		n, ok := osc.Stream(buf)
		require.True(t, ok)
		require.Equal(t, len(buf), n)
	}

	peak := 0.0
	for _, s := range buf {
		assert.Equal(t, s[0], s[1], "mono signal on both channels")
		if s[0] > peak {
			peak = s[0]
		}
	}
	assert.InDelta(t, 0.5, peak, 0.01)

	osc.Release()
	n, ok := osc.Stream(buf)
	assert.True(t, ok)
	assert.Equal(t, 80, n, "10ms release at 8kHz")

	n, ok = osc.Stream(buf)
	assert.False(t, ok)
	assert.Zero(t, n)
}

func TestOscillatorAttackStartsSilent(t *testing.T) {
	osc := newOscillator(testRate, 440, 1, WaveSine, DefaultRelease)
	buf := make([][2]float64, 4)
	osc.Stream(buf)
	assert.Zero(t, buf[0][0])
}

func TestOrganWaveHasNoFundamental(t *testing.T) {
	h := WaveOrgan.harmonics()
	assert.Zero(t, h[0])
	assert.InDelta(t, 1.0, h[1]+h[3], 1e-9)
}

func TestParseWaveform(t *testing.T) {
	w, err := ParseWaveform("organ")
	require.NoError(t, err)
	assert.Equal(t, WaveOrgan, w)

	_, err = ParseWaveform("saw")
	assert.Error(t, err)
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend(" OSC ")
	require.NoError(t, err)
	assert.Equal(t, BackendOscillator, b)

	_, err = ParseBackend("fluidsynth")
	assert.Error(t, err)
}

func TestOscillatorBankStartStop(t *testing.T) {
	out := NewOutput(testRate)
	bank := NewOscillatorBank(note.NewFrequencyTable(), out, WithRelease(5*time.Millisecond))

	v, err := bank.Start(Request{Note: note.MustFromKey(69), Velocity: 100})
	require.NoError(t, err)
	assert.Equal(t, note.MustFromKey(69), v.Note())
	assert.Equal(t, 880.0, v.(*oscVoice).Frequency())
	assert.Equal(t, 1, out.Voices())
	assert.Equal(t, 1, bank.Live())

	require.NoError(t, bank.Stop(v))
	assert.Equal(t, 0, bank.Live())

	drain(out, 4)
	assert.Equal(t, 0, out.Voices(), "released voice leaves the mixer")
}

func TestOscillatorBankOutOfRange(t *testing.T) {
	out := NewOutput(testRate)
	bank := NewOscillatorBank(note.NewFrequencyTable(), out)

	_, err := bank.Start(Request{Note: note.MustFromKey(0)})
	assert.ErrorIs(t, err, note.ErrOutOfRange)
	assert.Equal(t, 0, out.Voices())
}

func TestOscillatorBankStopUnknown(t *testing.T) {
	bank := NewOscillatorBank(note.NewFrequencyTable(), NewOutput(testRate))

	assert.ErrorIs(t, bank.Stop(&nullVoice{}), ErrUnknownVoice)

	v, err := bank.Start(Request{Note: note.MustFromKey(60)})
	require.NoError(t, err)
	require.NoError(t, bank.Stop(v))
	assert.ErrorIs(t, bank.Stop(v), ErrUnknownVoice, "double stop")
}

func TestOscillatorBankClose(t *testing.T) {
	out := NewOutput(testRate)
	bank := NewOscillatorBank(note.NewFrequencyTable(), out, WithRelease(time.Millisecond))

	for _, key := range []int{60, 64, 67} {
		_, err := bank.Start(Request{Note: note.MustFromKey(key)})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, out.Voices())

	require.NoError(t, bank.Close())
	assert.Equal(t, 0, bank.Live())
	drain(out, 2)
	assert.Equal(t, 0, out.Voices())
}

type fakeEngine struct {
	on      [][3]int32
	off     [][2]int32
	offAll  int
	renders int
}

func (f *fakeEngine) NoteOn(channel, key, velocity int32) {
	f.on = append(f.on, [3]int32{channel, key, velocity})
}

func (f *fakeEngine) NoteOff(channel, key int32) {
	f.off = append(f.off, [2]int32{channel, key})
}

func (f *fakeEngine) NoteOffAll(bool) {
	f.offAll++
}

func (f *fakeEngine) Render(left, right []float32) {
	f.renders++
	for i := range left {
		left[i] = 0.25
		right[i] = -0.25
	}
}

func TestExternalSynthTranslatesToKeys(t *testing.T) {
	engine := &fakeEngine{}
	synth := NewExternalSynth(engine, nil, 2)

	v, err := synth.Start(Request{Note: note.MustFromKey(61), Velocity: 77})
	require.NoError(t, err)
	require.NoError(t, synth.Stop(v))

	assert.Equal(t, [][3]int32{{2, 61, 77}}, engine.on)
	assert.Equal(t, [][2]int32{{2, 61}}, engine.off)
	assert.ErrorIs(t, synth.Stop(v), ErrUnknownVoice)
}

func TestExternalSynthZeroVelocityStillSounds(t *testing.T) {
	engine := &fakeEngine{}
	synth := NewExternalSynth(engine, nil, 0)

	_, err := synth.Start(Request{Note: note.MustFromKey(64), Velocity: 0})
	require.NoError(t, err)
	assert.Equal(t, [][3]int32{{0, 64, 1}}, engine.on)
}

func TestOutputStartsUninitialized(t *testing.T) {
	out := NewOutput(0)
	assert.False(t, out.Initialized())
	assert.Equal(t, DefaultSampleRate, int(out.SampleRate()))
	out.Close()
}

func TestExternalSynthStreamsIntoOutput(t *testing.T) {
	engine := &fakeEngine{}
	out := NewOutput(testRate)
	NewExternalSynth(engine, out, 0)
	assert.Equal(t, 1, out.Voices())

	buf := make([][2]float64, 16)
	n, ok := out.stream(buf)
	assert.True(t, ok)
	assert.Equal(t, 16, n)
	assert.Equal(t, 1, engine.renders)
	assert.InDelta(t, 0.25, buf[3][0], 1e-6)
	assert.InDelta(t, -0.25, buf[3][1], 1e-6)
}

func TestExternalSynthClose(t *testing.T) {
	engine := &fakeEngine{}
	synth := NewExternalSynth(engine, nil, 0)
	_, err := synth.Start(Request{Note: note.MustFromKey(60), Velocity: 1})
	require.NoError(t, err)

	require.NoError(t, synth.Close())
	assert.Equal(t, 1, engine.offAll)
}

func TestNullSound(t *testing.T) {
	s := NewNullSound()
	a, err := s.Start(Request{Note: note.MustFromKey(60)})
	require.NoError(t, err)
	b, err := s.Start(Request{Note: note.MustFromKey(60)})
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.NoError(t, s.Stop(a))
	assert.ErrorIs(t, s.Stop(&synthVoice{}), ErrUnknownVoice)
}
