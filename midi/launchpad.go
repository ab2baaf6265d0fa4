package midi

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go-keys/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var ledSendCount uint64

// Grid size of the playable pads
const (
	GridRows = 8
	GridCols = 8
	GridKeys = GridRows * GridCols

	// DefaultGridBase puts the grid's bottom-left pad on key 36
	DefaultGridBase = 36
)

// LaunchpadController handles a Novation Launchpad X: its 8x8 grid plays
// keys base..base+63 (bottom row lowest) and its LEDs mirror held keys
type LaunchpadController struct {
	id       string
	outPort  drivers.Out
	inPort   drivers.In
	send     func(msg gomidi.Message) error
	stopFunc func()

	base    int
	channel uint8
	handle  Handler

	mu sync.Mutex
}

// NewLaunchpadController creates and configures a Launchpad. channel is the
// MIDI channel its pads play on.
func NewLaunchpadController(id string, inPort drivers.In, outPort drivers.Out, base int, channel uint8, handle Handler) (*LaunchpadController, error) {
	lp := &LaunchpadController{
		id:      id,
		inPort:  inPort,
		outPort: outPort,
		base:    base,
		channel: channel & 0x0F,
		handle:  handle,
	}

	// Open output
	if outPort != nil {
		send, err := gomidi.SendTo(outPort)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
		lp.send = send

		// Send SysEx to switch to Programmer mode
		// F0 00 20 29 02 0C 00 7F F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F}))

		// Set brightness to maximum (0-127)
		// F0 00 20 29 02 0C 08 <brightness> F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x08, 0x7F}))

		// Enable external LED feedback
		// F0 00 20 29 02 0C 0A 01 01 F7
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x0A, 0x01, 0x01}))
	}

	// Open input
	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
			if out := lp.translate(msg.Bytes()); out != nil {
				lp.handle(out)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		lp.stopFunc = stop
	}

	return lp, nil
}

// translate turns a grid pad press or release into a note message on the
// controller's channel. Side buttons, the top row and anything else yield nil.
func (lp *LaunchpadController) translate(msg []byte) []byte {
	if len(msg) < 3 {
		return nil
	}
	status := msg[0] & 0xF0
	if status != NoteOn && status != NoteOff {
		return nil
	}
	row, col := noteToRowCol(msg[1])
	key, ok := padToKey(lp.base, row, col)
	if !ok {
		return nil
	}
	if status == NoteOn && msg[2] > 0 {
		return []byte{NoteOn | lp.channel, uint8(key), msg[2]}
	}
	return []byte{NoteOff | lp.channel, uint8(key), 0}
}

func (lp *LaunchpadController) ID() string {
	return lp.id
}

func (lp *LaunchpadController) Type() ControllerType {
	return ControllerLaunchpad
}

// SetLEDBatch sends multiple LED updates using individual NoteOn messages
// (SysEx batching had color issues - this is simpler and still benefits from
// the caller batching logic which reduces redundant updates)
func (lp *LaunchpadController) SetLEDBatch(updates []LEDUpdate) error {
	if lp.send == nil || len(updates) == 0 {
		return nil
	}

	lp.mu.Lock()
	var firstErr error
	for _, u := range updates {
		note := rowColToNote(u.Row, u.Col)
		color := mapRGBToLaunchpad(u.Color)
		if err := lp.send(gomidi.NoteOn(ledStatic, note, color)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	lp.mu.Unlock()

	atomic.AddUint64(&ledSendCount, uint64(len(updates)))

	count := atomic.LoadUint64(&ledSendCount)
	if count%100 < uint64(len(updates)) {
		debug.Log("lp-send", "batch count=%d (this batch=%d)", count, len(updates))
	}

	return firstErr
}

// mapRGBToLaunchpad finds the nearest Launchpad X palette color for an RGB value
func mapRGBToLaunchpad(rgb [3]uint8) uint8 {
	// Launchpad X palette - approximate RGB values for key colors
	// Format: {velocity, R, G, B}
	palette := [][4]uint8{
		{0, 0, 0, 0},         // off
		{1, 30, 30, 30},      // dark grey
		{2, 127, 127, 127},   // grey
		{5, 255, 0, 0},       // red
		{6, 255, 80, 80},     // bright red
		{7, 180, 60, 60},     // dim red
		{9, 255, 100, 0},     // orange
		{11, 180, 80, 40},    // dim orange
		{13, 255, 200, 0},    // yellow
		{17, 0, 180, 0},      // green
		{19, 0, 100, 0},      // dim green
		{21, 0, 255, 0},      // bright green
		{37, 0, 200, 200},    // cyan
		{43, 40, 60, 120},    // dim blue
		{45, 0, 100, 255},    // blue
		{47, 80, 150, 255},   // bright blue
		{49, 150, 0, 200},    // purple
		{53, 255, 80, 180},   // pink
		{78, 100, 100, 255},  // light blue
		{84, 255, 150, 50},   // bright orange
		{87, 150, 255, 100},  // lime
		{97, 180, 180, 60},   // dim yellow
		{119, 255, 255, 255}, // white
	}

	bestMatch := uint8(0)
	bestDist := 999999

	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])

	for _, p := range palette {
		pr, pg, pb := int(p[1]), int(p[2]), int(p[3])
		// Simple Euclidean distance
		dist := (r-pr)*(r-pr) + (g-pg)*(g-pg) + (b-pb)*(b-pb)
		if dist < bestDist {
			bestDist = dist
			bestMatch = p[0]
		}
	}

	return bestMatch
}

func (lp *LaunchpadController) Close() error {
	// Clear the grid on close
	if lp.send != nil {
		var updates []LEDUpdate
		for row := 0; row < GridRows; row++ {
			for col := 0; col < GridCols; col++ {
				updates = append(updates, LEDUpdate{Row: row, Col: col})
			}
		}
		lp.SetLEDBatch(updates)
	}
	if lp.stopFunc != nil {
		lp.stopFunc()
		lp.stopFunc = nil
	}
	return nil
}

// Launchpad X note mapping
// 8x8 Grid:  Row 0 (bottom) = notes 11-18, Row 7 = notes 81-88
// Side col:  Col 8 (right side scene buttons) = notes 19, 29, 39, 49, 59, 69, 79, 89
// Top row:   Row 8 (top control row) = CC 91-98

func rowColToNote(row, col int) uint8 {
	// Top row uses CC, but for LED control we use notes 91-98
	if row == 8 {
		return uint8(91 + col)
	}
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	// Top row notes (91-98)
	if note >= 91 && note <= 98 {
		return 8, int(note - 91)
	}
	row = int(note/10) - 1
	col = int(note%10) - 1
	// Accept 8x8 grid (rows 0-7, cols 0-7) plus side column (col 8)
	if row < 0 || row > 7 || col < 0 || col > 8 {
		return -1, -1
	}
	return row, col
}

// padToKey maps a playable grid pad to a key; side and top buttons don't play
func padToKey(base, row, col int) (int, bool) {
	if row < 0 || row >= GridRows || col < 0 || col >= GridCols {
		return 0, false
	}
	key := base + row*GridCols + col
	if key < 0 || key > 127 {
		return 0, false
	}
	return key, true
}

// keyToPad is the inverse of padToKey
func keyToPad(base, key int) (row, col int, ok bool) {
	off := key - base
	if off < 0 || off >= GridKeys {
		return -1, -1, false
	}
	return off / GridCols, off % GridCols, true
}
