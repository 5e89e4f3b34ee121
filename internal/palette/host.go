package palette

import (
	"errors"
	"fmt"
)

var ErrClosed = errors.New("palette window is closed")

// Window is the host window the palette lives in. Calls happen on the loop.
type Window interface {
	Show() error
	Hide() error
	Close() error
	SetFocus() error
	IsFocused() bool
	// OnFocusChanged delivers "now focused" notifications. The host may call
	// handler from any goroutine.
	OnFocusChanged(handler func(focused bool))
}

// Renderer draws the palette. Calls happen on the loop.
type Renderer interface {
	// Render shows state.Items with state.Selected highlighted and scrolled
	// into view, plus an "N / total" counter.
	Render(state ViewState, total int)
	ClearInput()
	FocusInput()
	ShowError(message string)
}

// NotFoundError is an activation whose id disappeared from the registry,
// typically because a refresh raced the click.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("shortcut %q is no longer in the registry", e.ID)
}

// DismissAction is what happens when the window loses focus with nothing
// pending.
type DismissAction string

const (
	DismissClose DismissAction = "close"
	DismissHide  DismissAction = "hide"
)
