// Package notify posts desktop notifications over the session bus.
package notify

import (
	"fmt"
	"log"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	busName   = "org.freedesktop.Notifications"
	busPath   = "/org/freedesktop/Notifications"
	notifyFn  = busName + ".Notify"
	iconError = "dialog-error"
)

type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Notifier sends notifications as appName. Each message replaces the
// previous one so repeated failures do not stack up.
type Notifier struct {
	appName   string
	appID     string
	timeoutMs int32
	obj       caller

	mu     sync.Mutex
	lastID uint32
}

// New connects to the session bus. appID, when set, is sent as the
// desktop-entry hint so the server can match the notification to liz.
func New(appName, appID string, timeoutMs int32) (*Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return newNotifier(appName, appID, timeoutMs, conn.Object(busName, busPath)), nil
}

func newNotifier(appName, appID string, timeoutMs int32, obj caller) *Notifier {
	return &Notifier{appName: appName, appID: appID, timeoutMs: timeoutMs, obj: obj}
}

// Error posts a critical notification with summary and body.
func (n *Notifier) Error(summary, body string) error {
	return n.Notify(summary, body, UrgencyCritical)
}

func (n *Notifier) Notify(summary, body string, urgency Urgency) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(urgency)),
	}
	if n.appID != "" {
		hints["desktop-entry"] = dbus.MakeVariant(n.appID)
	}

	call := n.obj.Call(notifyFn, 0,
		n.appName, n.lastID, iconError, summary, body, []string{}, hints, n.timeoutMs)
	if call.Err != nil {
		return fmt.Errorf("notify failed: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("notify returned an unexpected reply: %w", err)
	}
	n.lastID = id

	log.Printf("[NOTIFY] Posted notification %d: %s", id, summary)
	return nil
}
