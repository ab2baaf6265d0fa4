package midi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-keys/display"
	"go-keys/note"
)

func TestPadKeyMapping(t *testing.T) {
	key, ok := padToKey(DefaultGridBase, 0, 0)
	require.True(t, ok)
	assert.Equal(t, 36, key)

	key, ok = padToKey(DefaultGridBase, 7, 7)
	require.True(t, ok)
	assert.Equal(t, 99, key)

	_, ok = padToKey(DefaultGridBase, 3, 8) // scene button
	assert.False(t, ok)
	_, ok = padToKey(DefaultGridBase, 8, 0) // top row
	assert.False(t, ok)
	_, ok = padToKey(100, 7, 7)
	assert.False(t, ok, "beyond key 127")

	for k := DefaultGridBase; k < DefaultGridBase+GridKeys; k++ {
		row, col, ok := keyToPad(DefaultGridBase, k)
		require.True(t, ok)
		back, ok := padToKey(DefaultGridBase, row, col)
		require.True(t, ok)
		assert.Equal(t, k, back)
	}
	_, _, ok = keyToPad(DefaultGridBase, 35)
	assert.False(t, ok)
}

func TestLaunchpadTranslate(t *testing.T) {
	lp := &LaunchpadController{base: DefaultGridBase, channel: 0}

	// pad row 0 col 0 is Launchpad note 11
	assert.Equal(t, []byte{0x90, 36, 100}, lp.translate([]byte{0x90, 11, 100}))
	assert.Equal(t, []byte{0x80, 36, 0}, lp.translate([]byte{0x90, 11, 0}))
	assert.Equal(t, []byte{0x80, 45, 0}, lp.translate([]byte{0x80, 22, 0}))

	assert.Nil(t, lp.translate([]byte{0x90, 19, 100}), "scene button")
	assert.Nil(t, lp.translate([]byte{0xB0, 91, 127}), "top row CC")
	assert.Nil(t, lp.translate([]byte{0x90, 11}))

	lp.channel = 3
	assert.Equal(t, []byte{0x93, 36, 100}, lp.translate([]byte{0x90, 11, 100}))
}

func TestMapRGBToLaunchpad(t *testing.T) {
	assert.Equal(t, uint8(0), mapRGBToLaunchpad([3]uint8{0, 0, 0}))
	assert.Equal(t, uint8(5), mapRGBToLaunchpad([3]uint8{250, 5, 5}))
	assert.Equal(t, uint8(119), mapRGBToLaunchpad([3]uint8{255, 255, 255}))
}

type fakeSink struct {
	batches [][]LEDUpdate
}

func (f *fakeSink) SetLEDBatch(updates []LEDUpdate) error {
	f.batches = append(f.batches, updates)
	return nil
}

func TestLaunchpadDisplayDiffs(t *testing.T) {
	d := NewLaunchpadDisplay(DefaultGridBase, DefaultPadColors)
	sink := &fakeSink{}

	d.flush()
	assert.Empty(t, sink.batches, "no sink attached")

	d.SetSink(sink)
	d.flush()
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], GridKeys, "first flush paints the whole grid")

	d.flush()
	assert.Len(t, sink.batches, 1, "clean display sends nothing")

	require.NoError(t, d.SetKeyState(note.MustFromKey(60), true))
	d.flush()
	require.Len(t, sink.batches, 2)
	require.Len(t, sink.batches[1], 1)
	row, col, _ := keyToPad(DefaultGridBase, 60)
	assert.Equal(t, LEDUpdate{Row: row, Col: col, Color: DefaultPadColors.Pressed}, sink.batches[1][0])

	require.NoError(t, d.SetKeyState(note.MustFromKey(60), false))
	d.flush()
	require.Len(t, sink.batches, 3)
	assert.Equal(t, DefaultPadColors.White, sink.batches[2][0].Color, "C is a white key")
}

func TestLaunchpadDisplayBlackKeys(t *testing.T) {
	d := NewLaunchpadDisplay(DefaultGridBase, DefaultPadColors)
	d.mu.Lock()
	leds := d.render()
	d.mu.Unlock()

	// key 37 (C#) sits at row 0 col 1
	assert.Equal(t, DefaultPadColors.Black, leds[1].Color)
	assert.Equal(t, DefaultPadColors.White, leds[0].Color)
}

func TestLaunchpadDisplayOffGrid(t *testing.T) {
	d := NewLaunchpadDisplay(DefaultGridBase, DefaultPadColors)
	err := d.SetKeyState(note.MustFromKey(20), true)
	assert.ErrorIs(t, err, ErrNoPad)
	assert.ErrorIs(t, err, display.ErrNoKey)
}

func TestLaunchpadDisplayClear(t *testing.T) {
	d := NewLaunchpadDisplay(DefaultGridBase, DefaultPadColors)
	sink := &fakeSink{}
	d.SetSink(sink)
	require.NoError(t, d.SetKeyState(note.MustFromKey(40), true))
	d.flush()

	d.Clear()
	d.flush()
	require.Len(t, sink.batches, 2)
	assert.Len(t, sink.batches[1], 1)
}

func TestManagerPortFilter(t *testing.T) {
	dm := NewDeviceManager(nil, func([]byte) {}, ManagerOptions{})
	assert.True(t, dm.wanted("Keystation 49 MIDI 1"))
	assert.False(t, dm.wanted("Midi Through:Midi Through Port-0 14:0"))

	dm = NewDeviceManager(nil, func([]byte) {}, ManagerOptions{Only: []string{"keystation"}})
	assert.True(t, dm.wanted("Keystation 49 MIDI 1"))
	assert.False(t, dm.wanted("Launchpad X LPX MIDI"))
}

func TestPortNaming(t *testing.T) {
	assert.True(t, isLaunchpad("Launchpad X LPX MIDI In"))
	assert.False(t, isLaunchpad("Launchpad X LPX DAW"))
	assert.Equal(t, portBase("Launchpad X LPX MIDI In"), portBase("Launchpad X LPX MIDI Out"))
	assert.Equal(t, "launchpad x lpx midi", portBase("Launchpad X LPX MIDI"))
}

func TestFramerRunningStatus(t *testing.T) {
	var f Framer
	var got [][]byte
	for _, b := range []byte{0x90, 60, 100, 64, 100, 0xF8, 60, 0, 0x80, 64, 0} {
		if msg := f.Feed(b); msg != nil {
			got = append(got, msg)
		}
	}
	assert.Equal(t, [][]byte{
		{0x90, 60, 100},
		{0x90, 64, 100},
		{0x90, 60, 0},
		{0x80, 64, 0},
	}, got)
}

func TestFramerSkipsSysexAndStrayData(t *testing.T) {
	var f Framer
	var got [][]byte
	stream := []byte{
		// data before any status
		60, 100,
		// sysex, then a data byte with no running status
		0xF0, 0x7E, 0x00, 0x06, 0xF7,
		0x45,
		// program change carries one data byte
		0xC0, 5,
		0xB0, 64, 127,
	}
	for _, b := range stream {
		if msg := f.Feed(b); msg != nil {
			got = append(got, msg)
		}
	}
	assert.Equal(t, [][]byte{{0xC0, 5}, {0xB0, 64, 127}}, got)
}

func TestSerialInputRun(t *testing.T) {
	var got [][]byte
	in := newSerialInput("test", io.NopCloser(bytes.NewReader([]byte{0x90, 69, 90, 0x80, 69, 0})), func(msg []byte) {
		got = append(got, msg)
	})

	require.NoError(t, in.Run(context.Background()))
	assert.Equal(t, [][]byte{{0x90, 69, 90}, {0x80, 69, 0}}, got)
	assert.Equal(t, ControllerSerial, in.Type())
}

type brokenPort struct{}

func (brokenPort) Read([]byte) (int, error) { return 0, errors.New("unplugged") }
func (brokenPort) Close() error             { return nil }

func TestSerialInputReadError(t *testing.T) {
	in := newSerialInput("ttyUSB9", brokenPort{}, func([]byte) {})
	err := in.Run(context.Background())
	assert.ErrorContains(t, err, "unplugged")
}

func TestLaunchpadDisplayGrid(t *testing.T) {
	d := NewLaunchpadDisplay(DefaultGridBase, DefaultPadColors)
	assert.False(t, d.Attached())

	require.NoError(t, d.SetKeyState(note.MustFromKey(DefaultGridBase+9), true))
	grid := d.Grid()
	assert.Equal(t, DefaultPadColors.Pressed, grid[1][1])
	assert.Equal(t, DefaultPadColors.White, grid[0][0])

	d.SetSink(&fakeSink{})
	assert.True(t, d.Attached())
}
