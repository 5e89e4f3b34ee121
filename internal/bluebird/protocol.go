// Package bluebird speaks the backend command protocol: a generic call that
// takes an action name and string arguments and answers with a status code
// and a list of result strings.
package bluebird

import (
	"context"
	"fmt"
	"strings"
)

type StateCode string

const (
	StateOK   StateCode = "OK"
	StateFail StateCode = "FAIL"
	StateBug  StateCode = "BUG"
)

// Actions understood by the backend that the launcher relies on.
const (
	ActionGetShortcuts       = "get_shortcuts"
	ActionExecute            = "execute"
	ActionGetTriggerShortcut = "get_trigger_shortcut"
)

type Command struct {
	Action string   `json:"action"`
	Args   []string `json:"args"`
}

type Response struct {
	Code    StateCode `json:"code"`
	Results []string  `json:"results"`
}

// Invoker sends one command to the backend.
type Invoker interface {
	Invoke(ctx context.Context, cmd Command) (Response, error)
}

// InvokerFunc adapts a plain function to Invoker.
type InvokerFunc func(ctx context.Context, cmd Command) (Response, error)

func (f InvokerFunc) Invoke(ctx context.Context, cmd Command) (Response, error) {
	return f(ctx, cmd)
}

// BackendError is a non-OK answer from the backend.
type BackendError struct {
	Action  string
	Code    StateCode
	Results []string
}

func (e *BackendError) Error() string {
	if len(e.Results) == 0 {
		return fmt.Sprintf("%s returned %s", e.Action, e.Code)
	}
	return fmt.Sprintf("%s returned %s: %s", e.Action, e.Code, strings.Join(e.Results, "; "))
}

// Call invokes action and converts a non-OK status into a *BackendError.
func Call(ctx context.Context, inv Invoker, action string, args ...string) ([]string, error) {
	if args == nil {
		args = []string{}
	}

	resp, err := inv.Invoke(ctx, Command{Action: action, Args: args})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", action, err)
	}

	if resp.Code != StateOK {
		return nil, &BackendError{
			Action:  action,
			Code:    resp.Code,
			Results: resp.Results,
		}
	}

	return resp.Results, nil
}
