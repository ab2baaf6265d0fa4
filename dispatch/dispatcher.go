package dispatch

import (
	"errors"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"go-keys/debug"
	"go-keys/display"
	"go-keys/midi"
	"go-keys/note"
	"go-keys/sound"
)

// Policy decides what a note-on does for a key that is already sounding
type Policy int

const (
	// IgnoreDuplicate keeps the sounding voice and drops the second press
	IgnoreDuplicate Policy = iota

	// Retrigger stops the sounding voice and starts a fresh one
	Retrigger
)

func (p Policy) String() string {
	if p == Retrigger {
		return "retrigger"
	}
	return "ignore"
}

// Stats counts what the dispatcher has done since it was created
type Stats struct {
	Handled int // messages seen
	Ignored int // non-note messages
	Dropped int // messages dropped on a decode or start error
	Started int // voices started
	Stopped int // voices stopped
}

// Dispatcher turns note messages into voice starts and stops and mirrors the
// held keys on a display.
//
// Input devices call Handle from their own listener goroutines; mu keeps a
// single writer on the registry.
type Dispatcher struct {
	mu      sync.Mutex
	source  sound.Source
	display display.KeyDisplay
	decoder midi.Decoder
	policy  Policy
	logger  *log.Logger

	active map[note.ID]sound.Voice
	stats  Stats
	last   midi.Event

	onChange func()
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithPolicy sets the duplicate note-on policy
func WithPolicy(p Policy) Option {
	return func(d *Dispatcher) { d.policy = p }
}

// WithDecoder replaces the literal channel 0 decoder
func WithDecoder(dec midi.Decoder) Option {
	return func(d *Dispatcher) { d.decoder = dec }
}

// WithLogger sets the logger for dropped messages
func WithLogger(l *log.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithOnChange registers a callback run after every transition (outside the lock)
func WithOnChange(fn func()) Option {
	return func(d *Dispatcher) { d.onChange = fn }
}

// New creates a dispatcher with every key silent. disp may be nil.
func New(src sound.Source, disp display.KeyDisplay, opts ...Option) *Dispatcher {
	if disp == nil {
		disp = display.Null{}
	}
	d := &Dispatcher{
		source:  src,
		display: disp,
		logger:  debug.Logger(),
		active:  make(map[note.ID]sound.Voice),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle decodes one raw message and applies it. Decode and start errors are
// logged and returned; the caller should drop the message and carry on.
func (d *Dispatcher) Handle(msg []byte) error {
	ev, err := d.decoder.Decode(msg)

	d.mu.Lock()
	d.stats.Handled++
	if err != nil {
		d.stats.Dropped++
		d.mu.Unlock()
		d.logger.Warn("dropped message", "msg", msg, "err", err)
		return err
	}
	d.mu.Unlock()

	return d.Apply(ev)
}

// Apply runs a decoded event through the state machine
func (d *Dispatcher) Apply(ev midi.Event) error {
	var err error
	changed := false

	d.mu.Lock()
	switch ev.Kind {
	case midi.NoteStart:
		changed, err = d.noteOn(ev.Note, ev.Velocity)
	case midi.NoteEnd:
		changed = d.noteOff(ev.Note)
	default:
		d.stats.Ignored++
	}
	if ev.Kind != midi.Ignored {
		d.last = ev
	}
	d.mu.Unlock()

	if changed && d.onChange != nil {
		d.onChange()
	}
	return err
}

// NoteOn presses id with the default velocity
func (d *Dispatcher) NoteOn(id note.ID) error {
	return d.Apply(midi.Event{Kind: midi.NoteStart, Note: id, Velocity: midi.DefaultVelocity})
}

// NoteOff releases id
func (d *Dispatcher) NoteOff(id note.ID) error {
	return d.Apply(midi.Event{Kind: midi.NoteEnd, Note: id})
}

// noteOn handles Silent -> Sounding. Caller holds mu.
func (d *Dispatcher) noteOn(id note.ID, velocity uint8) (bool, error) {
	old, retriggered := d.active[id]
	if retriggered {
		if d.policy == IgnoreDuplicate {
			debug.Log("dispatch", "duplicate note-on %s ignored", id)
			return false, nil
		}
		d.stopVoice(id, old)
	}

	v, err := d.source.Start(sound.Request{Note: id, Velocity: velocity})
	if err != nil {
		d.stats.Dropped++
		d.logger.Warn("voice not started", "note", id.String(), "err", err)
		if retriggered {
			// the old voice is gone, so the key is silent now
			d.show(id, false)
		}
		return retriggered, err
	}

	d.active[id] = v
	d.stats.Started++
	d.show(id, true)
	debug.Log("dispatch", "start %s", id)
	return true, nil
}

// noteOff handles Sounding -> Silent. Caller holds mu.
func (d *Dispatcher) noteOff(id note.ID) bool {
	v, sounding := d.active[id]
	if !sounding {
		return false
	}
	d.stopVoice(id, v)
	d.show(id, false)
	debug.Log("dispatch", "stop %s", id)
	return true
}

// stopVoice stops v and forgets it. Caller holds mu.
func (d *Dispatcher) stopVoice(id note.ID, v sound.Voice) {
	if err := d.source.Stop(v); err != nil {
		d.logger.Warn("voice stop failed", "note", id.String(), "err", err)
	}
	delete(d.active, id)
	d.stats.Stopped++
}

// show updates the display; failures never block the audio side
func (d *Dispatcher) show(id note.ID, pressed bool) {
	if err := d.display.SetKeyState(id, pressed); err != nil {
		if errors.Is(err, display.ErrNoKey) {
			debug.Log("dispatch", "display: %v", err)
			return
		}
		d.logger.Debug("display update failed", "note", id.String(), "err", err)
	}
}

// Panic stops every sounding voice and clears the display
func (d *Dispatcher) Panic() {
	d.mu.Lock()
	n := len(d.active)
	for id, v := range d.active {
		d.stopVoice(id, v)
		d.show(id, false)
	}
	d.mu.Unlock()

	if n > 0 {
		d.logger.Info("all notes off", "stopped", n)
		if d.onChange != nil {
			d.onChange()
		}
	}
}

// IsSounding reports whether id has a live voice
func (d *Dispatcher) IsSounding(id note.ID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.active[id]
	return ok
}

// Active returns the sounding notes, lowest first
func (d *Dispatcher) Active() []note.ID {
	d.mu.Lock()
	ids := make([]note.ID, 0, len(d.active))
	for id := range d.active {
		ids = append(ids, id)
	}
	d.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i].Key() < ids[j].Key() })
	return ids
}

// Stats returns a snapshot of the counters
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Last returns the most recent note event
func (d *Dispatcher) Last() midi.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Policy returns the duplicate note-on policy
func (d *Dispatcher) Policy() Policy {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.policy
}

// SetPolicy changes the duplicate note-on policy
func (d *Dispatcher) SetPolicy(p Policy) {
	d.mu.Lock()
	d.policy = p
	d.mu.Unlock()
}

// Close silences everything and closes the source
func (d *Dispatcher) Close() error {
	d.Panic()
	return d.source.Close()
}
