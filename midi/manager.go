package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2/drivers"

	"go-keys/debug"
)

// DeviceEvent is emitted when controllers connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// DefaultExcluded are virtual/system ports that are never attached
var DefaultExcluded = []string{"Midi Through", "Through Port", "Dummy"}

// ManagerOptions configures which ports a DeviceManager attaches
type ManagerOptions struct {
	Exclude  []string      // case-insensitive substrings never attached
	Only     []string      // when set, only ports matching one of these attach
	GridBase int           // first key on a Launchpad grid
	Channel  uint8         // channel Launchpad pads play on
	PollRate time.Duration // rescan interval
}

// DeviceManager handles hot-plug detection of MIDI inputs. Every attached
// input delivers its messages to the same handler.
type DeviceManager struct {
	drv         drivers.Driver
	handle      Handler
	opts        ManagerOptions
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
}

// NewDeviceManager creates a new device manager
func NewDeviceManager(drv drivers.Driver, handle Handler, opts ManagerOptions) *DeviceManager {
	if opts.PollRate <= 0 {
		opts.PollRate = time.Second
	}
	if opts.Exclude == nil {
		opts.Exclude = DefaultExcluded
	}
	return &DeviceManager{
		drv:         drv,
		handle:      handle,
		opts:        opts,
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
	}
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// GetLaunchpad returns the first connected Launchpad (or nil)
func (dm *DeviceManager) GetLaunchpad() *LaunchpadController {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	for _, c := range dm.controllers {
		if lp, ok := c.(*LaunchpadController); ok {
			return lp
		}
	}
	return nil
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.opts.PollRate)
	defer ticker.Stop()

	// Initial scan
	dm.scan()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

func (dm *DeviceManager) scan() {
	// Get current MIDI ports with timeout (CoreMIDI can hang)
	type portsResult struct {
		inPorts  []drivers.In
		outPorts []drivers.Out
		err      error
	}

	ch := make(chan portsResult, 1)
	go func() {
		inPorts, err := dm.drv.Ins()
		if err != nil {
			ch <- portsResult{err: err}
			return
		}
		outPorts, err := dm.drv.Outs()
		ch <- portsResult{inPorts: inPorts, outPorts: outPorts, err: err}
	}()

	// Wait for result or timeout
	var inPorts []drivers.In
	var outPorts []drivers.Out

	select {
	case result := <-ch:
		if result.err != nil {
			debug.LogEvery(10, "scan", "list ports: %v", result.err)
			return
		}
		inPorts = result.inPorts
		outPorts = result.outPorts
	case <-time.After(3 * time.Second):
		// CoreMIDI is hung - skip this scan
		// User needs to run: sudo killall coreaudiod midiserver
		debug.Log("scan", "port listing timed out")
		return
	}

	// Build map of what we see now
	seenIDs := make(map[string]bool)

	for _, inPort := range inPorts {
		id := inPort.String()
		if !dm.wanted(id) {
			continue
		}
		seenIDs[id] = true

		dm.mu.RLock()
		_, exists := dm.controllers[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		ctrl, err := dm.attach(id, inPort, outPorts)
		if err != nil {
			debug.Logger().Warn("attach failed", "device", id, "err", err)
			continue
		}

		dm.mu.Lock()
		dm.controllers[id] = ctrl
		dm.mu.Unlock()

		debug.Logger().Info("device connected", "device", id, "type", ctrl.Type().String())
		dm.emit(DeviceEvent{Type: DeviceConnected, Controller: ctrl, ID: id})
	}

	// Check for disconnects
	dm.mu.Lock()
	var toRemove []string
	for id := range dm.controllers {
		if !seenIDs[id] {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		c := dm.controllers[id]
		c.Close()
		delete(dm.controllers, id)
		debug.Logger().Info("device disconnected", "device", id)
		dm.emit(DeviceEvent{Type: DeviceDisconnected, ID: id})
	}
	dm.mu.Unlock()
}

// attach builds the controller for an input port
func (dm *DeviceManager) attach(id string, inPort drivers.In, outPorts []drivers.Out) (Controller, error) {
	if !isLaunchpad(id) {
		return NewKeyboardController(id, inPort, dm.handle)
	}

	// Find matching output port
	var outPort drivers.Out
	for _, op := range outPorts {
		if portBase(op.String()) == portBase(id) {
			outPort = op
			break
		}
	}
	return NewLaunchpadController(id, inPort, outPort, dm.opts.GridBase, dm.opts.Channel, dm.handle)
}

// emit never blocks the scan loop; a full queue drops the event
func (dm *DeviceManager) emit(ev DeviceEvent) {
	select {
	case dm.events <- ev:
	default:
		debug.Log("scan", "event queue full, dropped %v for %s", ev.Type, ev.ID)
	}
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

// wanted applies the exclude and only lists to a port name
func (dm *DeviceManager) wanted(name string) bool {
	for _, pat := range dm.opts.Exclude {
		if containsCI(name, pat) {
			return false
		}
	}
	if len(dm.opts.Only) == 0 {
		return true
	}
	for _, pat := range dm.opts.Only {
		if containsCI(name, pat) {
			return true
		}
	}
	return false
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}

// portBase strips the direction words so an input and its output compare equal
func portBase(name string) string {
	var kept []string
	for _, f := range strings.Fields(strings.ToLower(name)) {
		if f == "in" || f == "out" || f == "input" || f == "output" {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
