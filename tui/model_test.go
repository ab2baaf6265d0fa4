package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-keys/dispatch"
	"go-keys/display"
	"go-keys/midi"
	"go-keys/note"
	"go-keys/sound"
)

type fakeController struct {
	id  string
	typ midi.ControllerType
}

func (f fakeController) ID() string                { return f.id }
func (f fakeController) Type() midi.ControllerType { return f.typ }
func (f fakeController) Close() error              { return nil }

func newTestModel(t *testing.T, status string) (Model, *dispatch.Dispatcher, *display.Keyboard) {
	t.Helper()
	kb := display.NewKeyboard(display.DefaultLowKey, display.DefaultHighKey)
	d := dispatch.New(sound.NewNullSound(), kb)
	m := NewModel(Options{
		Dispatcher: d,
		Keyboard:   kb,
		Backend:    "none",
		Status:     status,
	})
	return m, d, kb
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestToggleRetrigger(t *testing.T) {
	m, d, _ := newTestModel(t, "")

	next, _ := m.Update(key("r"))
	assert.Equal(t, dispatch.Retrigger, d.Policy())

	next.Update(key("r"))
	assert.Equal(t, dispatch.IgnoreDuplicate, d.Policy())
}

func TestToggleRetriggerSaves(t *testing.T) {
	m, _, _ := newTestModel(t, "")
	var saved []dispatch.Policy
	m.opts.SavePolicy = func(p dispatch.Policy) error {
		saved = append(saved, p)
		return nil
	}

	next, _ := m.Update(key("r"))
	next.Update(key("r"))
	assert.Equal(t, []dispatch.Policy{dispatch.Retrigger, dispatch.IgnoreDuplicate}, saved)
}

func TestPanicKey(t *testing.T) {
	m, d, kb := newTestModel(t, "")
	require.NoError(t, d.NoteOn(note.MustFromKey(60)))
	require.True(t, kb.Pressed(60))

	m.Update(key("p"))
	assert.Empty(t, d.Active())
	assert.False(t, kb.Pressed(60))
}

func TestQuit(t *testing.T) {
	m, _, _ := newTestModel(t, "")
	next, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, "", next.View())
}

func TestDisconnectSilences(t *testing.T) {
	m, d, _ := newTestModel(t, "")
	ctrl := fakeController{id: "Keystation 49", typ: midi.ControllerKeyboard}

	m.Update(DeviceEventMsg{Type: midi.DeviceConnected, Controller: ctrl, ID: ctrl.id})
	assert.Contains(t, m.View(), "Keystation 49 (keyboard)")

	require.NoError(t, d.NoteOn(note.MustFromKey(64)))
	m.Update(DeviceEventMsg{Type: midi.DeviceDisconnected, ID: ctrl.id})
	assert.Empty(t, d.Active())
	assert.NotContains(t, m.View(), "Keystation 49")
}

func TestLaunchpadMirrorFollowsDevice(t *testing.T) {
	m, _, _ := newTestModel(t, "")
	pads := midi.NewLaunchpadDisplay(midi.DefaultGridBase, midi.DefaultPadColors)
	m.opts.Pads = pads

	m.Update(DeviceEventMsg{Type: midi.DeviceConnected, Controller: &midi.LaunchpadController{}, ID: "Launchpad X"})
	assert.True(t, pads.Attached())

	m.Update(DeviceEventMsg{Type: midi.DeviceDisconnected, ID: "Launchpad X"})
	assert.False(t, pads.Attached())
}

func TestViewShowsStatusAndLastEvent(t *testing.T) {
	m, d, _ := newTestModel(t, "MIDI access denied")
	m.opts.Devices = nil

	require.NoError(t, d.Handle([]byte{0x90, 69, 90}))
	view := m.View()
	assert.Equal(t, 1, strings.Count(view, "MIDI access denied"))
	assert.Contains(t, view, "MIDI input off")
	assert.Contains(t, view, "note-on A5")
	assert.Contains(t, view, "go-keys  none")
}
