package display

import (
	"errors"

	"go-keys/note"
)

// ErrNoKey means the display has nothing to show for a key. It is not fatal.
var ErrNoKey = errors.New("no key on display")

// KeyDisplay shows which keys are held
type KeyDisplay interface {
	SetKeyState(id note.ID, pressed bool) error
}

// Null is a display that shows nothing
type Null struct{}

func (Null) SetKeyState(note.ID, bool) error { return nil }

// Multi fans key state out to several displays
type Multi []KeyDisplay

// SetKeyState updates every display, even after one fails, and joins the errors
func (m Multi) SetKeyState(id note.ID, pressed bool) error {
	var errs []error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.SetKeyState(id, pressed); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
