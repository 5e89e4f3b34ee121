// Package hotkey binds the global trigger that summons the palette.
package hotkey

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/chess10kp/liz/internal/bluebird"
)

const DefaultTrigger = "Ctrl+Alt+L"

var ErrInvalidBinding = errors.New("invalid hotkey binding")

// State is the key state delivered to a Handler.
type State int

const (
	Pressed State = iota
	Released
)

func (s State) String() string {
	if s == Released {
		return "released"
	}
	return "pressed"
}

type Handler func(State)

// Service registers a system-wide hotkey.
type Service interface {
	Register(ctx context.Context, binding string, handler Handler) error
}

// RegistrationError is a failed Register. It is never fatal.
type RegistrationError struct {
	Binding string
	Err     error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("failed to register trigger shortcut %q: %v", e.Binding, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// Binding is a parsed "Mod+Mod+Key" string.
type Binding struct {
	Modifiers []string
	Key       string
}

var modifierNames = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"mod1":    "alt",
	"option":  "alt",
	"shift":   "shift",
	"super":   "super",
	"mod4":    "super",
	"meta":    "super",
	"cmd":     "super",
	"win":     "super",
	"logo":    "super",
}

var modifierOrder = []string{"ctrl", "alt", "shift", "super"}

// ParseBinding parses strings like "Ctrl+Alt+L". At least one modifier is
// required, since a bare key cannot be bound globally without stealing it.
func ParseBinding(s string) (Binding, error) {
	parts := strings.Split(s, "+")
	if len(parts) < 2 {
		return Binding{}, fmt.Errorf("%w: %q (need modifier+key)", ErrInvalidBinding, s)
	}

	key := strings.TrimSpace(parts[len(parts)-1])
	if key == "" {
		return Binding{}, fmt.Errorf("%w: %q has no key", ErrInvalidBinding, s)
	}

	seen := make(map[string]bool)
	for _, p := range parts[:len(parts)-1] {
		m, ok := modifierNames[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return Binding{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidBinding, p, s)
		}
		seen[m] = true
	}

	b := Binding{Key: key}
	for _, m := range modifierOrder {
		if seen[m] {
			b.Modifiers = append(b.Modifiers, m)
		}
	}
	return b, nil
}

func (b Binding) String() string {
	parts := make([]string, 0, len(b.Modifiers)+1)
	for _, m := range b.Modifiers {
		parts = append(parts, strings.ToUpper(m[:1])+m[1:])
	}
	key := b.Key
	if len([]rune(key)) == 1 {
		key = strings.ToUpper(key)
	}
	return strings.Join(append(parts, key), "+")
}

var swayModifiers = map[string]string{
	"ctrl":  "Ctrl",
	"alt":   "Mod1",
	"shift": "Shift",
	"super": "Mod4",
}

var swayKeys = map[string]string{
	"space":  "space",
	"enter":  "Return",
	"return": "Return",
	"esc":    "Escape",
	"escape": "Escape",
	"tab":    "Tab",
}

// SwayCombo renders the binding as a sway bindsym key combo.
func (b Binding) SwayCombo() string {
	parts := make([]string, 0, len(b.Modifiers)+1)
	for _, m := range b.Modifiers {
		parts = append(parts, swayModifiers[m])
	}

	key := b.Key
	if alias, ok := swayKeys[strings.ToLower(key)]; ok {
		key = alias
	} else if len([]rune(key)) == 1 {
		key = strings.ToLower(key)
	}
	return strings.Join(append(parts, key), "+")
}

// ResolveTrigger asks the backend for the configured trigger. It returns
// fallback when the backend has none or cannot be reached.
func ResolveTrigger(ctx context.Context, inv bluebird.Invoker, fallback string) string {
	if fallback == "" {
		fallback = DefaultTrigger
	}

	results, err := bluebird.Call(ctx, inv, bluebird.ActionGetTriggerShortcut)
	if err != nil {
		log.Printf("[HOTKEY] Failed to get trigger shortcut, using %s: %v", fallback, err)
		return fallback
	}

	if len(results) == 0 || strings.TrimSpace(results[0]) == "" {
		return fallback
	}
	return strings.TrimSpace(results[0])
}
