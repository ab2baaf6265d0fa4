package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Piano keys
	WhiteKey   rune // █ idle white key
	BlackKey   rune // ▀ idle black key
	PressedKey rune // █ held key, drawn in the pressed colour

	// Status
	Connected    rune // ● device attached
	Disconnected rune // ○ nothing attached
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = Default()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			WhiteKey:   '█',
			BlackKey:   '▀',
			PressedKey: '█',

			Connected:    '●',
			Disconnected: '○',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG       = 0.0 // deep purple
	RoleBlackKey = 0.05
	RoleSurface  = 0.1 // dark purple
	RoleMuted    = 0.2 // purple-magenta
	RoleFG       = 0.4 // pink-purple (readable)
	RoleAccent   = 0.5 // vivid magenta
	RolePressed  = 0.6 // rose pink
	RoleActive   = 0.7 // soft red
	RoleWarning  = 0.8 // orange
	RoleWhiteKey = 1.0 // bright yellow
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Active() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleActive))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

// KeyColors returns the idle white, idle black and held key colours
func (t *Theme) KeyColors() (white, black, pressed RGB) {
	return t.Palette.Lookup(RoleWhiteKey), t.Palette.Lookup(RoleBlackKey), t.Palette.Lookup(RolePressed)
}

// PadColors scales the key colours down for Launchpad LEDs, which are much
// brighter than a terminal; the held colour stays at full strength
func (t *Theme) PadColors() (white, black, pressed RGB) {
	white, black, pressed = t.KeyColors()
	return dim(white, 0.15), RGB{}, pressed
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

// Lip converts a raw colour for lipgloss styles
func Lip(c RGB) lipgloss.Color {
	return rgbToLipgloss(c)
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}

func dim(c RGB, f float64) RGB {
	return RGB{uint8(float64(c[0]) * f), uint8(float64(c[1]) * f), uint8(float64(c[2]) * f)}
}
