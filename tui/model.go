package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-keys/debug"
	"go-keys/dispatch"
	"go-keys/display"
	"go-keys/midi"
	"go-keys/theme"
	"go-keys/widgets"
)

// Options wires the model to the running program
type Options struct {
	Dispatcher *dispatch.Dispatcher
	Keyboard   *display.Keyboard
	Devices    *midi.DeviceManager    // nil when MIDI input is unavailable
	Pads       *midi.LaunchpadDisplay // nil disables the grid mirror
	Theme      *theme.Theme
	Backend    string // sound source name for the header
	Status     string // one-off notice, e.g. MIDI access denied

	// SavePolicy persists the policy after the user toggles it; may be nil
	SavePolicy func(dispatch.Policy) error
}

type Model struct {
	opts     Options
	devices  map[string]midi.ControllerType
	quitting bool
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

// devicesClosedMsg stops the device listener once the manager shuts down
type devicesClosedMsg struct{}

func NewModel(opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = theme.New(nil)
	}
	return Model{
		opts:    opts,
		devices: make(map[string]midi.ControllerType),
	}
}

func ListenForUpdates(kb *display.Keyboard) tea.Cmd {
	return func() tea.Msg {
		<-kb.Updates()
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return devicesClosedMsg{}
		}
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForUpdates(m.opts.Keyboard)}
	if m.opts.Devices != nil {
		cmds = append(cmds, ListenForDevices(m.opts.Devices))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "p":
			m.opts.Dispatcher.Panic()

		case "r":
			next := dispatch.Retrigger
			if m.opts.Dispatcher.Policy() == dispatch.Retrigger {
				next = dispatch.IgnoreDuplicate
			}
			m.opts.Dispatcher.SetPolicy(next)
			if m.opts.SavePolicy != nil {
				if err := m.opts.SavePolicy(next); err != nil {
					debug.Logger().Warn("policy not saved", "err", err)
				}
			}
		}

	case UpdateMsg:
		return m, ListenForUpdates(m.opts.Keyboard)

	case DeviceEventMsg:
		m.handleDevice(midi.DeviceEvent(msg))
		return m, ListenForDevices(m.opts.Devices)

	case devicesClosedMsg:
		return m, nil
	}

	return m, nil
}

func (m Model) handleDevice(event midi.DeviceEvent) {
	switch event.Type {
	case midi.DeviceConnected:
		m.devices[event.ID] = event.Controller.Type()
		if lp, ok := event.Controller.(*midi.LaunchpadController); ok && m.opts.Pads != nil {
			m.opts.Pads.SetSink(lp)
		}

	case midi.DeviceDisconnected:
		if m.devices[event.ID] == midi.ControllerLaunchpad && m.opts.Pads != nil {
			m.opts.Pads.SetSink(nil)
		}
		delete(m.devices, event.ID)
		// a vanished device can never send its note-offs
		m.opts.Dispatcher.Panic()
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	th := m.opts.Theme
	headerStyle := lipgloss.NewStyle().Foreground(th.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(th.Warning())

	d := m.opts.Dispatcher
	stats := d.Stats()
	header := headerStyle.Render(fmt.Sprintf("go-keys  %s  dup:%s  voices:%d", m.opts.Backend, d.Policy(), len(d.Active())))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n")
	out.WriteString(dimStyle.Render(m.deviceLine()))
	out.WriteString("\n")
	if m.opts.Status != "" {
		out.WriteString(warnStyle.Render(m.opts.Status))
		out.WriteString("\n")
	}
	out.WriteString("\n")

	white, black, pressed := th.KeyColors()
	low, high := m.opts.Keyboard.Range()
	out.WriteString(widgets.RenderPiano(low, high, m.opts.Keyboard.Pressed, widgets.PianoColors{
		White:   white,
		Black:   black,
		Pressed: pressed,
		Label:   th.Palette.Lookup(theme.RoleMuted),
	}))
	out.WriteString("\n\n")

	if m.opts.Pads != nil && m.opts.Pads.Attached() {
		out.WriteString(widgets.RenderPadGrid(m.opts.Pads.Grid()))
		out.WriteString("\n\n")
	}

	last := "-"
	if ev := d.Last(); ev.Kind != midi.Ignored {
		last = ev.String()
	}
	out.WriteString(fmt.Sprintf("last: %s\n", last))
	out.WriteString(dimStyle.Render(fmt.Sprintf("msgs:%d ignored:%d dropped:%d started:%d stopped:%d",
		stats.Handled, stats.Ignored, stats.Dropped, stats.Started, stats.Stopped)))
	out.WriteString("\n\n")

	out.WriteString(dimStyle.Render(widgets.RenderKeyHelp([]widgets.KeySection{{
		Keys: []widgets.KeyBinding{
			{Key: "p", Desc: "all notes off"},
			{Key: "r", Desc: "toggle retrigger"},
			{Key: "q", Desc: "quit"},
		},
	}})))

	return out.String()
}

func (m Model) deviceLine() string {
	sym := m.opts.Theme.Symbols
	if len(m.devices) == 0 {
		if m.opts.Devices == nil {
			return string(sym.Disconnected) + " MIDI input off"
		}
		return string(sym.Disconnected) + " waiting for MIDI devices"
	}
	ids := make([]string, 0, len(m.devices))
	for id := range m.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%c %s (%s)", sym.Connected, id, m.devices[id])
	}
	return strings.Join(parts, "  ")
}
