package widgets

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestRenderPianoShape(t *testing.T) {
	out := RenderPiano(60, 71, nil, PianoColors{})
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 3)
	for _, l := range lines {
		assert.Equal(t, 12, lipgloss.Width(l))
	}
	// 7 white keys in an octave reach the bottom row
	assert.Equal(t, 7, strings.Count(lines[1], "█"))
	assert.Contains(t, lines[2], "C5")
}

func TestRenderPianoPressedColour(t *testing.T) {
	colors := PianoColors{
		White:   [3]uint8{255, 255, 255},
		Black:   [3]uint8{0, 0, 0},
		Pressed: [3]uint8{255, 0, 0},
	}
	idle := RenderPiano(60, 62, nil, colors)
	held := RenderPiano(60, 62, func(k int) bool { return k == 61 }, colors)
	assert.Equal(t, lipgloss.Width(idle), lipgloss.Width(held))
	assert.Equal(t, 5, strings.Count(held, "█"))
}

func TestRenderPianoEmpty(t *testing.T) {
	assert.Equal(t, "", RenderPiano(10, 5, nil, PianoColors{}))
}

func TestRenderPadGrid(t *testing.T) {
	var grid [8][8][3]uint8
	out := RenderPadGrid(grid)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 8)
	assert.Equal(t, 15, lipgloss.Width(lines[0]))
}

func TestRenderKeyHelp(t *testing.T) {
	out := RenderKeyHelp([]KeySection{{
		Title: "Keys",
		Keys:  []KeyBinding{{Key: "q", Desc: "quit"}, {Key: "p", Desc: "panic"}},
	}})
	assert.Equal(t, "Keys\n  q            quit\n  p            panic", out)
}
