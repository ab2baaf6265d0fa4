package midi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-keys/debug"
	"go-keys/display"
	"go-keys/note"
)

// ErrNoPad means the key falls outside the Launchpad grid
var ErrNoPad = fmt.Errorf("no launchpad pad: %w", display.ErrNoKey)

// LED refresh rate
const ledFPS = 30

// LEDSink receives batched pad colour changes
type LEDSink interface {
	SetLEDBatch(updates []LEDUpdate) error
}

// PadColors are the grid colours for idle and held keys
type PadColors struct {
	White   [3]uint8
	Black   [3]uint8
	Pressed [3]uint8
}

// DefaultPadColors lights the grid like a dim keyboard with held keys bright
var DefaultPadColors = PadColors{
	White:   [3]uint8{30, 30, 30},
	Black:   [3]uint8{0, 0, 0},
	Pressed: [3]uint8{255, 80, 180},
}

// LaunchpadDisplay mirrors held keys on a Launchpad grid. SetKeyState only
// marks state dirty; Run flushes changes at a fixed rate.
type LaunchpadDisplay struct {
	mu       sync.Mutex
	sink     LEDSink
	base     int
	colors   PadColors
	held     [GridKeys]bool
	dirty    bool
	prevLEDs map[[2]int]LEDUpdate
}

// NewLaunchpadDisplay creates a display for the grid starting at base
func NewLaunchpadDisplay(base int, colors PadColors) *LaunchpadDisplay {
	return &LaunchpadDisplay{
		base:     base,
		colors:   colors,
		prevLEDs: make(map[[2]int]LEDUpdate),
	}
}

// SetSink attaches (or with nil, detaches) the controller LEDs go to
func (d *LaunchpadDisplay) SetSink(s LEDSink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	debug.Log("ctrl", "SetSink called, resetting diff state")
	d.sink = s
	d.prevLEDs = make(map[[2]int]LEDUpdate) // reset state - diff will repaint everything
	d.dirty = s != nil
}

// SetKeyState marks the pad for id lit or unlit
func (d *LaunchpadDisplay) SetKeyState(id note.ID, pressed bool) error {
	row, col, ok := keyToPad(d.base, id.Key())
	if !ok {
		return fmt.Errorf("launchpad %s: %w", id, ErrNoPad)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	idx := row*GridCols + col
	if d.held[idx] != pressed {
		d.held[idx] = pressed
		d.dirty = true
	}
	return nil
}

// Run flushes LED changes until ctx is done
func (d *LaunchpadDisplay) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / ledFPS)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.flush()
		}
	}
}

// render returns the full grid for the current state. Caller holds mu.
func (d *LaunchpadDisplay) render() []LEDUpdate {
	leds := make([]LEDUpdate, 0, GridKeys)
	for row := 0; row < GridRows; row++ {
		for col := 0; col < GridCols; col++ {
			color := d.colors.White
			key, _ := padToKey(d.base, row, col)
			if note.PitchClass(key % note.NumPitchClasses).Black() {
				color = d.colors.Black
			}
			if d.held[row*GridCols+col] {
				color = d.colors.Pressed
			}
			leds = append(leds, LEDUpdate{Row: row, Col: col, Color: color})
		}
	}
	return leds
}

// flush sends only changed LEDs to the sink (diffing + batching)
func (d *LaunchpadDisplay) flush() {
	d.mu.Lock()
	if !d.dirty || d.sink == nil {
		d.mu.Unlock()
		return
	}
	d.dirty = false

	var updates []LEDUpdate
	for _, led := range d.render() {
		key := [2]int{led.Row, led.Col}
		// Only send if changed
		if prev, ok := d.prevLEDs[key]; !ok || prev != led {
			updates = append(updates, led)
		}
		d.prevLEDs[key] = led
	}
	sink := d.sink
	d.mu.Unlock()

	if len(updates) > 0 {
		debug.Log("led", "flush: batch=%d", len(updates))
		if err := sink.SetLEDBatch(updates); err != nil {
			debug.Logger().Warn("launchpad LED update failed", "err", err)
		}
	}
}

// Clear unlights every held pad
func (d *LaunchpadDisplay) Clear() {
	d.mu.Lock()
	d.held = [GridKeys]bool{}
	d.dirty = true
	d.mu.Unlock()
}

// Grid returns the current pad colours, row 0 at the bottom, for on-screen
// previews
func (d *LaunchpadDisplay) Grid() [GridRows][GridCols][3]uint8 {
	var grid [GridRows][GridCols][3]uint8
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, led := range d.render() {
		grid[led.Row][led.Col] = led.Color
	}
	return grid
}

// Attached reports whether a controller is receiving the grid
func (d *LaunchpadDisplay) Attached() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sink != nil
}
