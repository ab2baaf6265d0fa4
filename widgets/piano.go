package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PianoColors are the key colours for RenderPiano
type PianoColors struct {
	White   [3]uint8
	Black   [3]uint8
	Pressed [3]uint8
	Label   [3]uint8
}

// black key pitch classes (C=0)
var blackKeys = [12]bool{1: true, 3: true, 6: true, 8: true, 10: true}

// RenderPiano draws keys low..high one column per key. The top row shows
// every key, the bottom row only white keys so black keys read as shorter,
// and a label row marks each C with its octave (key/12).
func RenderPiano(low, high int, pressed func(key int) bool, colors PianoColors) string {
	if low > high {
		return ""
	}

	cell := func(c [3]uint8, r string) string {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(c))).Render(r)
	}

	var top, bottom strings.Builder
	labels := make([]byte, 0, high-low+1)
	for key := low; key <= high; key++ {
		black := blackKeys[key%12]
		down := pressed != nil && pressed(key)

		color := colors.White
		if black {
			color = colors.Black
		}
		if down {
			color = colors.Pressed
		}
		top.WriteString(cell(color, "█"))

		if black {
			bottom.WriteString(" ")
		} else {
			bottom.WriteString(cell(color, "█"))
		}

		labels = append(labels, ' ')
	}

	// "C4" style marks; skip one that would overrun the next
	for key := low; key <= high; key++ {
		if key%12 != 0 {
			continue
		}
		mark := fmt.Sprintf("C%d", key/12)
		at := key - low
		if at+len(mark) > len(labels) {
			continue
		}
		copy(labels[at:], mark)
	}

	label := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(colors.Label))).Render(string(labels))
	return top.String() + "\n" + bottom.String() + "\n" + label
}
