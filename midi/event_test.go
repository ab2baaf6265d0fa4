package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-keys/note"
)

func TestDecodeNoteOn(t *testing.T) {
	ev, err := Decode([]byte{144, 69, 90})
	require.NoError(t, err)
	assert.Equal(t, NoteStart, ev.Kind)
	assert.Equal(t, note.ID{Pitch: note.A, Octave: 5}, ev.Note)
	assert.Equal(t, uint8(90), ev.Velocity)
}

func TestDecodeNoteOff(t *testing.T) {
	ev, err := Decode([]byte{128, 60, 0})
	require.NoError(t, err)
	assert.Equal(t, NoteEnd, ev.Kind)
	assert.Equal(t, note.ID{Pitch: note.C, Octave: 5}, ev.Note)
}

func TestDecodeTwoByteMessage(t *testing.T) {
	ev, err := Decode([]byte{144, 61})
	require.NoError(t, err)
	assert.Equal(t, NoteStart, ev.Kind)
	assert.Equal(t, DefaultVelocity, ev.Velocity)
}

func TestDecodeIgnoresOtherStatus(t *testing.T) {
	for _, msg := range [][]byte{
		{176, 64, 127}, // sustain pedal
		{0xF8},         // clock
		{0xE0, 0, 64},  // pitch bend
		{0xD0, 40},     // channel pressure
		{},
	} {
		ev, err := Decode(msg)
		require.NoError(t, err, "msg % X", msg)
		assert.Equal(t, Ignored, ev.Kind, "msg % X", msg)
	}
}

func TestDecodeOtherChannelsIgnoredByDefault(t *testing.T) {
	ev, err := Decode([]byte{0x91, 60, 100})
	require.NoError(t, err)
	assert.Equal(t, Ignored, ev.Kind)
}

func TestDecodeOmni(t *testing.T) {
	d := Decoder{Channel: Omni}
	ev, err := d.Decode([]byte{0x9A, 60, 100})
	require.NoError(t, err)
	assert.Equal(t, NoteStart, ev.Kind)
	assert.Equal(t, uint8(10), ev.Channel)
}

func TestDecodeSpecificChannel(t *testing.T) {
	d := Decoder{Channel: 3}
	ev, err := d.Decode([]byte{0x83, 60, 0})
	require.NoError(t, err)
	assert.Equal(t, NoteEnd, ev.Kind)

	ev, err = d.Decode([]byte{0x80, 60, 0})
	require.NoError(t, err)
	assert.Equal(t, Ignored, ev.Kind)
}

func TestDecodeVelocityZero(t *testing.T) {
	ev, err := Decode([]byte{144, 60, 0})
	require.NoError(t, err)
	assert.Equal(t, NoteStart, ev.Kind, "literal decoding keeps note-on")

	ev, err = Decoder{VelocityZeroOff: true}.Decode([]byte{144, 60, 0})
	require.NoError(t, err)
	assert.Equal(t, NoteEnd, ev.Kind)
}

func TestDecodeInvalidKey(t *testing.T) {
	for _, msg := range [][]byte{
		{144, 128, 100}, // key above 127
		{144, 200},
		{128, 108, 0}, // octave 9
		{144},         // no key byte
	} {
		_, err := Decode(msg)
		assert.ErrorIs(t, err, note.ErrInvalidKey, "msg % X", msg)
	}
}

func TestEventString(t *testing.T) {
	ev, err := Decode([]byte{144, 69, 90})
	require.NoError(t, err)
	assert.Equal(t, "note-on A5 vel=90 ch=0", ev.String())
	assert.Equal(t, "ignored", Event{}.String())
}
