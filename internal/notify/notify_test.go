package notify

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	method string
	args   [][]interface{}
	nextID uint32
	err    error
}

func (f *fakeBus) Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	f.method = method
	f.args = append(f.args, args)
	if f.err != nil {
		return &dbus.Call{Err: f.err}
	}
	f.nextID++
	return &dbus.Call{Body: []interface{}{f.nextID}}
}

func TestNotifyReplacesPreviousNotification(t *testing.T) {
	bus := &fakeBus{nextID: 40}
	n := newNotifier("liz", "com.github.chess10kp.liz", 5000, bus)

	require.NoError(t, n.Error("Failed to execute shortcut", "keycode error"))
	require.NoError(t, n.Error("Failed to execute shortcut", "again"))

	assert.Equal(t, "org.freedesktop.Notifications.Notify", bus.method)
	require.Len(t, bus.args, 2)

	first := bus.args[0]
	assert.Equal(t, "liz", first[0])
	assert.Equal(t, uint32(0), first[1])
	assert.Equal(t, "Failed to execute shortcut", first[3])
	assert.Equal(t, "keycode error", first[4])
	assert.Equal(t, int32(5000), first[7])

	hints := first[6].(map[string]dbus.Variant)
	assert.Equal(t, byte(UrgencyCritical), hints["urgency"].Value())
	assert.Equal(t, "com.github.chess10kp.liz", hints["desktop-entry"].Value())

	// The second call replaces the id the first one got back.
	assert.Equal(t, uint32(41), bus.args[1][1])
}

func TestNotifyReportsBusErrors(t *testing.T) {
	n := newNotifier("liz", "", 5000, &fakeBus{err: errors.New("no notification daemon")})

	err := n.Notify("summary", "body", UrgencyNormal)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no notification daemon")
}

func TestNotifyWithoutAppIDOmitsDesktopEntry(t *testing.T) {
	bus := &fakeBus{}
	n := newNotifier("liz", "", 5000, bus)

	require.NoError(t, n.Notify("summary", "body", UrgencyLow))
	hints := bus.args[0][6].(map[string]dbus.Variant)
	_, ok := hints["desktop-entry"]
	assert.False(t, ok)
	assert.Equal(t, byte(UrgencyLow), hints["urgency"].Value())
}
