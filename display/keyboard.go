package display

import (
	"fmt"
	"sync"

	"go-keys/note"
)

// 88-key piano range (A0..C8 in conventional numbering)
const (
	DefaultLowKey  = 21
	DefaultHighKey = 108
)

// Keyboard holds pressed state for an on-screen piano. The TUI reads it in
// View and waits on Updates to redraw.
type Keyboard struct {
	mu      sync.RWMutex
	low     int
	high    int
	pressed [128]bool

	updates chan struct{}
}

// NewKeyboard creates a keyboard showing keys low..high inclusive
func NewKeyboard(low, high int) *Keyboard {
	if low < 0 || high > 127 || low > high {
		low, high = DefaultLowKey, DefaultHighKey
	}
	return &Keyboard{
		low:     low,
		high:    high,
		updates: make(chan struct{}, 1),
	}
}

// Range returns the lowest and highest key shown
func (k *Keyboard) Range() (low, high int) {
	return k.low, k.high
}

// SetKeyState marks a key pressed or released. Keys outside the visible
// range return ErrNoKey.
func (k *Keyboard) SetKeyState(id note.ID, pressed bool) error {
	key := id.Key()
	if key < k.low || key > k.high {
		return fmt.Errorf("keyboard %s (key %d): %w", id, key, ErrNoKey)
	}

	k.mu.Lock()
	changed := k.pressed[key] != pressed
	k.pressed[key] = pressed
	k.mu.Unlock()

	if changed {
		k.notify()
	}
	return nil
}

// Pressed reports whether key is held
func (k *Keyboard) Pressed(key int) bool {
	if key < 0 || key > 127 {
		return false
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.pressed[key]
}

// Held returns the held keys in ascending order
func (k *Keyboard) Held() []int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	var held []int
	for key := k.low; key <= k.high; key++ {
		if k.pressed[key] {
			held = append(held, key)
		}
	}
	return held
}

// Clear releases every key
func (k *Keyboard) Clear() {
	k.mu.Lock()
	k.pressed = [128]bool{}
	k.mu.Unlock()
	k.notify()
}

// Updates signals after every visible change. Coalesced: one pending signal
// at most.
func (k *Keyboard) Updates() <-chan struct{} {
	return k.updates
}

func (k *Keyboard) notify() {
	select {
	case k.updates <- struct{}{}:
	default:
	}
}
