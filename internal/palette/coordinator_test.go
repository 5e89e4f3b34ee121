package palette

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chess10kp/liz/internal/bluebird"
	"github.com/chess10kp/liz/internal/hotkey"
	"github.com/chess10kp/liz/internal/shortcut"
)

// callLog records window and backend calls in the order they happen.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count(call string) int {
	n := 0
	for _, c := range l.snapshot() {
		if c == call {
			n++
		}
	}
	return n
}

type fakeWindow struct {
	log     *callLog
	focused bool
	handler func(bool)
}

func (w *fakeWindow) Show() error     { w.log.add("show"); return nil }
func (w *fakeWindow) Hide() error     { w.log.add("hide"); w.focused = false; return nil }
func (w *fakeWindow) Close() error    { w.log.add("close"); return nil }
func (w *fakeWindow) SetFocus() error { w.log.add("focus"); w.focused = true; return nil }
func (w *fakeWindow) IsFocused() bool { return w.focused }

func (w *fakeWindow) OnFocusChanged(handler func(bool)) {
	w.handler = handler
}

type fakeRenderer struct {
	state       ViewState
	total       int
	renders     int
	errors      []string
	focusInputs int
	clears      int
	// onError runs after ShowError, standing in for a host alert.
	onError func()
}

func (r *fakeRenderer) Render(state ViewState, total int) {
	r.state = state
	r.total = total
	r.renders++
}
func (r *fakeRenderer) ClearInput()              { r.clears++ }
func (r *fakeRenderer) FocusInput()              { r.focusInputs++ }
func (r *fakeRenderer) ShowError(message string) {
	r.errors = append(r.errors, message)
	if r.onError != nil {
		r.onError()
	}
}

type fakeBackend struct {
	mu         sync.Mutex
	log        *callLog
	records    []shortcut.Record
	fetchCode  bluebird.StateCode
	execCode   bluebird.StateCode
	execResult []string
}

func (b *fakeBackend) Invoke(ctx context.Context, cmd bluebird.Command) (bluebird.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch cmd.Action {
	case bluebird.ActionGetShortcuts:
		b.log.add("get_shortcuts")
		if b.fetchCode != bluebird.StateOK {
			return bluebird.Response{Code: b.fetchCode, Results: []string{"backend unavailable"}}, nil
		}
		results := make([]string, len(b.records))
		for i, r := range b.records {
			raw, _ := json.Marshal(r)
			results[i] = string(raw)
		}
		return bluebird.Response{Code: bluebird.StateOK, Results: results}, nil

	case bluebird.ActionExecute:
		b.log.add("execute:" + cmd.Args[0])
		return bluebird.Response{Code: b.execCode, Results: b.execResult}, nil
	}

	return bluebird.Response{Code: bluebird.StateFail, Results: []string{cmd.Action, "Invalid"}}, nil
}

func (b *fakeBackend) set(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

type harness struct {
	t       *testing.T
	loop    *EventLoop
	log     *callLog
	win     *fakeWindow
	view    *fakeRenderer
	backend *fakeBackend
	c       *Coordinator
}

func newHarness(t *testing.T, opts Options, recs ...shortcut.Record) *harness {
	t.Helper()

	log := &callLog{}
	h := &harness{
		t:    t,
		loop: NewEventLoop(),
		log:  log,
		win:  &fakeWindow{log: log, focused: true},
		view: &fakeRenderer{},
		backend: &fakeBackend{
			log:       log,
			records:   recs,
			fetchCode: bluebird.StateOK,
			execCode:  bluebird.StateOK,
		},
	}

	h.c = NewCoordinator(opts, h.loop, h.win, h.view, h.backend, DefaultKeymap())
	t.Cleanup(h.c.Stop)

	h.c.Start()
	h.settle(func() bool { return h.c.Registry().Len() == len(recs) && h.view.renders > 0 })
	return h
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.DebounceDelay = 5 * time.Millisecond
	return opts
}

// settle runs posted callbacks on the test goroutine until cond holds.
func (h *harness) settle(cond func() bool) {
	h.t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		h.loop.Drain()
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			h.t.Fatalf("condition not met; calls so far: %v", h.log.snapshot())
		}
		time.Sleep(time.Millisecond)
	}
}

// quiesce gives stray goroutines a chance to post and drains them.
func (h *harness) quiesce() {
	for i := 0; i < 20; i++ {
		time.Sleep(2 * time.Millisecond)
		h.loop.Drain()
	}
}

// focusLost simulates the host reporting that the window lost focus.
func (h *harness) focusLost() {
	h.win.handler(false)
}

func (h *harness) focusGained() {
	h.win.handler(true)
}

func twoShortcuts() []shortcut.Record {
	return []shortcut.Record{
		{ID: "1", Label: "Open Terminal"},
		{ID: "2", Label: "Open Browser"},
	}
}

func TestFetchSelectsFirstRow(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)

	assert.Equal(t, ViewFull, h.view.state.Active)
	assert.Equal(t, twoShortcuts(), h.view.state.Items)
	assert.Equal(t, 0, h.view.state.Selected)
	assert.Equal(t, 2, h.view.total)

	rec, ok := h.view.state.Current()
	require.True(t, ok)
	assert.Equal(t, "1", rec.ID)
}

func TestArrowDownThenEnterActivatesSecondItem(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)

	assert.True(t, h.c.KeyPressed("Down"))
	assert.True(t, h.c.KeyPressed("Return"))

	assert.Equal(t, "2", h.c.PendingTask())
	assert.Equal(t, 1, h.log.count("hide"))
	assert.Equal(t, 0, h.log.count("execute:2"), "dispatch waits for focus loss")
}

func TestActivationHidesBeforeDispatch(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)

	h.c.RowClicked(1)
	h.focusLost()
	h.settle(func() bool { return h.log.count("execute:2") == 1 })

	calls := h.log.snapshot()
	hideAt, execAt := -1, -1
	for i, c := range calls {
		if c == "hide" && hideAt < 0 {
			hideAt = i
		}
		if c == "execute:2" {
			execAt = i
		}
	}
	require.GreaterOrEqual(t, hideAt, 0)
	assert.Less(t, hideAt, execAt)
}

func TestRepeatedFocusLossDispatchesOnce(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)

	h.c.Activate("1")
	h.focusLost()
	h.focusLost()
	h.focusLost()
	h.settle(func() bool { return h.log.count("execute:1") >= 1 })
	h.quiesce()

	assert.Equal(t, 1, h.log.count("execute:1"))
	assert.Empty(t, h.c.PendingTask())
}

func TestFocusReturnWithoutLossDoesNotDispatch(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)

	h.c.Activate("2")
	h.c.HotkeyPressed(hotkey.Pressed)
	h.focusGained()
	h.quiesce()

	assert.Equal(t, 0, h.log.count("execute:2"))
	assert.Equal(t, "2", h.c.PendingTask(), "focus gain leaves the task alone")
	assert.Greater(t, h.view.focusInputs, 0)
}

func TestFailedDispatchClearsPendingAndSkipsRefresh(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)
	h.backend.set(func(b *fakeBackend) {
		b.execCode = bluebird.StateFail
		b.execResult = []string{"Failure:", "keycode error"}
	})
	fetchesBefore := h.log.count("get_shortcuts")

	h.c.Activate("2")
	h.focusLost()
	h.settle(func() bool { return len(h.view.errors) == 1 })
	h.quiesce()

	assert.Equal(t, "Failed to execute shortcut because Failure:; keycode error", h.view.errors[0])
	assert.Empty(t, h.c.PendingTask())
	assert.Equal(t, fetchesBefore, h.log.count("get_shortcuts"), "list is not refreshed")
	assert.False(t, h.c.Closed())
	assert.Equal(t, ViewFull, h.c.State().Active)

	// A later, unrelated focus loss must not fire the failed task again.
	h.focusLost()
	h.quiesce()
	assert.Equal(t, 1, h.log.count("execute:2"))
}

func TestSuccessfulDispatchRefreshesAndResets(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)

	h.c.InputChanged("browser")
	h.settle(func() bool { return h.c.State().Active == ViewFiltered })

	// Executing changes the backend's ranking.
	h.backend.set(func(b *fakeBackend) {
		b.records = []shortcut.Record{b.records[1], b.records[0]}
	})
	fetchesBefore := h.log.count("get_shortcuts")

	h.c.KeyPressed("Return")
	h.focusLost()
	h.settle(func() bool { return h.log.count("get_shortcuts") == fetchesBefore+1 })
	h.settle(func() bool {
		rec, ok := h.c.State().Current()
		return ok && rec.ID == "2"
	})

	state := h.c.State()
	assert.Equal(t, ViewFull, state.Active)
	assert.Equal(t, "", state.Query)
	assert.Equal(t, 0, state.Selected)
	assert.Equal(t, []string{"2", "1"}, []string{state.Items[0].ID, state.Items[1].ID})
	assert.Empty(t, h.view.errors)
	assert.Greater(t, h.view.clears, 0)
}

func TestSecondActivationOverwritesPending(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)

	h.c.Activate("1")
	h.c.Activate("2")
	assert.Equal(t, "2", h.c.PendingTask())

	h.focusLost()
	h.settle(func() bool { return h.log.count("execute:2") == 1 })
	h.quiesce()
	assert.Equal(t, 0, h.log.count("execute:1"))
}

func TestDismissWithoutTaskClosesWindow(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)

	h.focusLost()
	h.loop.Drain()

	assert.True(t, h.c.Closed())
	assert.Equal(t, 1, h.log.count("close"))
	assert.ErrorIs(t, h.c.Show(), ErrClosed)

	// Events after close are ignored.
	h.c.Activate("1")
	h.focusLost()
	h.quiesce()
	assert.Equal(t, 0, h.log.count("execute:1"))
}

func TestDismissWithoutTaskCanHide(t *testing.T) {
	opts := testOptions()
	opts.DismissAction = DismissHide
	h := newHarness(t, opts, twoShortcuts()...)

	h.c.KeyPressed("Down")
	h.focusLost()
	h.loop.Drain()

	assert.False(t, h.c.Closed())
	assert.Equal(t, 0, h.log.count("close"))
	assert.Equal(t, 1, h.log.count("hide"))
	assert.Equal(t, 0, h.c.State().Selected)
}

func TestSearchFiltersAndClears(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)

	h.c.InputChanged("t")
	h.c.InputChanged("te")
	h.c.InputChanged("term")
	h.settle(func() bool { return h.c.State().Query == "term" })

	state := h.c.State()
	assert.Equal(t, ViewFiltered, state.Active)
	require.Len(t, state.Items, 1)
	assert.Equal(t, "1", state.Items[0].ID)
	assert.Equal(t, 1, h.view.state.Counter())
	assert.Equal(t, 2, h.view.total)

	h.c.InputChanged("")
	h.settle(func() bool { return h.c.State().Active == ViewFull })
	assert.Equal(t, twoShortcuts(), h.c.State().Items)
}

func TestEscapeHidesAndResets(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)

	h.c.InputChanged("open")
	h.settle(func() bool { return h.c.State().Active == ViewFiltered })
	h.c.KeyPressed("Down")

	assert.True(t, h.c.KeyPressed("Escape"))
	state := h.c.State()
	assert.Equal(t, ViewFull, state.Active)
	assert.Equal(t, 0, state.Selected)
	assert.Equal(t, 1, h.log.count("hide"))
	assert.Empty(t, h.c.PendingTask())
	assert.Equal(t, 0, h.log.count("execute:1")+h.log.count("execute:2"))
}

func TestUnboundKeyIsNotConsumed(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)
	assert.False(t, h.c.KeyPressed("a"))
}

func TestDataChangedRefetchesAndKeepsFilter(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)

	h.c.InputChanged("open")
	h.settle(func() bool { return h.c.State().Active == ViewFiltered })

	h.backend.set(func(b *fakeBackend) {
		b.records = append(b.records, shortcut.Record{ID: "3", Label: "Open Settings"})
	})
	h.c.DataChanged()
	h.settle(func() bool { return h.c.Registry().Total() == 3 })

	state := h.c.State()
	assert.Equal(t, ViewFiltered, state.Active)
	assert.Len(t, state.Items, 3)
	assert.Equal(t, 0, state.Selected)
}

func TestFailedFetchKeepsPreviousList(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)
	h.backend.set(func(b *fakeBackend) { b.fetchCode = bluebird.StateBug })

	h.c.DataChanged()
	h.settle(func() bool { return len(h.view.errors) == 1 })

	assert.Equal(t, "Failed to retrieve shortcuts because backend unavailable", h.view.errors[0])
	assert.Equal(t, twoShortcuts(), h.c.State().Items)
	assert.Equal(t, 2, h.c.Registry().Total())
}

func TestActivationOfUnknownIDStillDispatches(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)

	h.c.Activate("99")
	h.focusLost()
	h.settle(func() bool { return h.log.count("execute:99") == 1 })
	assert.Empty(t, h.c.PendingTask())
}

func TestHotkeyShowsAndFocuses(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)

	h.c.HotkeyPressed(hotkey.Released)
	assert.Equal(t, 0, h.log.count("show"))

	h.c.HotkeyPressed(hotkey.Pressed)
	assert.Equal(t, 1, h.log.count("show"))
	assert.Equal(t, 1, h.log.count("focus"))
	assert.True(t, h.win.IsFocused())
}

func TestToggle(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)

	require.NoError(t, h.c.Toggle())
	assert.Equal(t, 1, h.log.count("hide"))

	require.NoError(t, h.c.Toggle())
	assert.Equal(t, 1, h.log.count("show"))
}

func TestErrorAlertTakingFocusKeepsWindow(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)
	// Like the GTK alert, reporting an error moves focus off the window.
	h.view.onError = func() {
		h.win.focused = false
		h.focusLost()
	}
	h.backend.set(func(b *fakeBackend) { b.fetchCode = bluebird.StateFail })

	h.c.DataChanged()
	h.settle(func() bool { return len(h.view.errors) == 1 })
	h.quiesce()

	assert.False(t, h.c.Closed())
	assert.Equal(t, 0, h.log.count("close"))
	assert.Equal(t, twoShortcuts(), h.c.State().Items)

	// Once the alert hands focus back, a blur dismisses as usual.
	h.focusGained()
	h.loop.Drain()
	h.focusLost()
	h.settle(func() bool { return h.c.Closed() })
	assert.Equal(t, 1, h.log.count("close"))
}

func TestErrorWhileHiddenDoesNotSuppressDismissal(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)
	require.NoError(t, h.c.Hide())

	h.c.ReportError("trigger unavailable")
	require.NoError(t, h.c.Show())
	h.focusLost()
	h.settle(func() bool { return h.c.Closed() })
}

func TestQueryQueuedBeforeEscapeIsDropped(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)

	h.c.InputChanged("browser")
	// Let the debounce fire and post the query without running it.
	time.Sleep(50 * time.Millisecond)

	assert.True(t, h.c.KeyPressed("Escape"))
	h.loop.Drain()

	state := h.c.State()
	assert.Equal(t, ViewFull, state.Active)
	assert.Empty(t, state.Query)
	assert.Equal(t, twoShortcuts(), state.Items)
}

func TestQueryQueuedBeforeActivationIsDropped(t *testing.T) {
	h := newHarness(t, testOptions(), twoShortcuts()...)

	h.c.InputChanged("browser")
	time.Sleep(50 * time.Millisecond)

	h.c.Activate("1")
	h.loop.Drain()
	assert.Equal(t, ViewFull, h.c.State().Active)
	assert.Equal(t, "1", h.c.PendingTask())

	// Later input is not affected by the dropped query.
	h.c.InputChanged("browser")
	h.settle(func() bool { return h.c.State().Active == ViewFiltered })
	assert.Equal(t, "2", h.c.State().Items[0].ID)
}
