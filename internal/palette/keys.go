package palette

import (
	"strings"
)

// Key is a palette action bound to one or more key names.
type Key int

const (
	KeyNone Key = iota
	KeyUp
	KeyDown
	KeyActivate
	KeyClose
)

// Keymap resolves key names such as "Down" or "Ctrl+N" to palette keys.
// Names are matched case-insensitively with modifiers in any order.
type Keymap struct {
	bindings map[string]Key
}

func NewKeymap(up, down, activate, closeKeys []string) Keymap {
	km := Keymap{bindings: make(map[string]Key)}
	km.bind(KeyUp, up)
	km.bind(KeyDown, down)
	km.bind(KeyActivate, activate)
	km.bind(KeyClose, closeKeys)
	return km
}

// DefaultKeymap binds the arrow keys plus readline style Ctrl aliases.
func DefaultKeymap() Keymap {
	return NewKeymap(
		[]string{"Up", "Ctrl+P", "Ctrl+K"},
		[]string{"Down", "Ctrl+N", "Ctrl+J"},
		[]string{"Return", "KP_Enter"},
		[]string{"Escape"},
	)
}

func (km Keymap) bind(key Key, names []string) {
	for _, name := range names {
		km.bindings[NormalizeKeyName(name)] = key
	}
}

func (km Keymap) Lookup(name string) Key {
	return km.bindings[NormalizeKeyName(name)]
}

var modifierOrder = []string{"ctrl", "alt", "shift", "super"}

// NormalizeKeyName lower-cases a "Mod+Mod+Key" name and sorts its modifiers.
func NormalizeKeyName(name string) string {
	parts := strings.Split(name, "+")
	key := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))

	present := make(map[string]bool)
	for _, p := range parts[:len(parts)-1] {
		m := strings.ToLower(strings.TrimSpace(p))
		switch m {
		case "control":
			m = "ctrl"
		case "mod1":
			m = "alt"
		case "mod4", "meta", "logo":
			m = "super"
		}
		present[m] = true
	}

	var b strings.Builder
	for _, m := range modifierOrder {
		if present[m] {
			b.WriteString(m)
			b.WriteByte('+')
		}
	}
	b.WriteString(key)
	return b.String()
}
