// Package palette holds the launcher's interaction state: which list is
// shown, which row is selected, and the deferred execution protocol that
// hides the window before an action is dispatched.
package palette

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chess10kp/liz/internal/bluebird"
	"github.com/chess10kp/liz/internal/debounce"
	"github.com/chess10kp/liz/internal/hotkey"
	"github.com/chess10kp/liz/internal/search"
	"github.com/chess10kp/liz/internal/shortcut"
)

var debugLogger = log.New(log.Writer(), "[PALETTE-DEBUG] ", log.LstdFlags|log.Lmicroseconds)

type Options struct {
	DebounceDelay time.Duration
	VisibleRows   int
	DismissAction DismissAction
	CallTimeout   time.Duration
	Search        search.Options
}

func DefaultOptions() Options {
	return Options{
		DebounceDelay: 300 * time.Millisecond,
		VisibleRows:   10,
		DismissAction: DismissClose,
		CallTimeout:   5 * time.Second,
		Search:        search.DefaultOptions(),
	}
}

// Coordinator owns the registry, the fuzzy index, the view state and the
// pending task. Every method must run on the loop; callbacks from timers,
// backend calls and focus notifications are posted back to it.
type Coordinator struct {
	opts     Options
	loop     Loop
	window   Window
	view     Renderer
	backend  bluebird.Invoker
	keymap   Keymap
	registry *shortcut.Registry
	index    *search.Index
	state    ViewState
	search   *debounce.Debouncer[queryInput]

	// pending is the activated shortcut id waiting for focus loss.
	pending    string
	generation uint64
	// inputGen advances whenever typed input is discarded, so a query the
	// debouncer already posted is dropped when it runs.
	inputGen uint64
	// alerting is set while an error alert may hold focus, so the focus
	// loss it causes is not taken as a dismissal.
	alerting bool
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewCoordinator(opts Options, loop Loop, window Window, view Renderer, backend bluebird.Invoker, keymap Keymap) *Coordinator {
	if opts.DismissAction == "" {
		opts.DismissAction = DismissClose
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		opts:     opts,
		loop:     loop,
		window:   window,
		view:     view,
		backend:  backend,
		keymap:   keymap,
		registry: shortcut.NewRegistry(backend),
		index:    search.Build(nil, opts.Search),
		state:    InitialState(nil, opts.VisibleRows),
		ctx:      ctx,
		cancel:   cancel,
	}

	c.search = debounce.New(opts.DebounceDelay, func(q queryInput) {
		c.loop.Post(func() { c.applyQuery(q) })
	})

	return c
}

// Start subscribes to focus changes and loads the full catalog.
func (c *Coordinator) Start() {
	c.window.OnFocusChanged(func(focused bool) {
		c.loop.Post(func() { c.FocusChanged(focused) })
	})
	c.refresh()
}

// Stop cancels in-flight backend calls and pending timers.
func (c *Coordinator) Stop() {
	c.search.Cancel()
	c.cancel()
}

func (c *Coordinator) State() ViewState {
	return c.state
}

func (c *Coordinator) PendingTask() string {
	return c.pending
}

func (c *Coordinator) Registry() *shortcut.Registry {
	return c.registry
}

func (c *Coordinator) Closed() bool {
	return c.closed
}

// InputChanged feeds the search field text through the debouncer.
func (c *Coordinator) InputChanged(text string) {
	if c.closed {
		return
	}
	debugLogger.Printf("INPUT_CHANGED: text='%s'", text)
	c.search.Trigger(queryInput{text: text, gen: c.inputGen})
}

// queryInput is search text tagged with the input generation it was typed in.
type queryInput struct {
	text string
	gen  uint64
}

// cancelSearch stops the debouncer and invalidates a query it already posted.
func (c *Coordinator) cancelSearch() {
	c.search.Cancel()
	c.inputGen++
}

func (c *Coordinator) applyQuery(q queryInput) {
	if c.closed {
		return
	}
	if q.gen != c.inputGen {
		debugLogger.Printf("QUERY: dropping stale query='%s' gen=%d current=%d", q.text, q.gen, c.inputGen)
		return
	}
	text := q.text

	var items []shortcut.Record
	if text == "" {
		items = c.registry.Records()
	} else {
		items = c.index.Query(text)
	}

	c.apply(QueryApplied{Query: text, Items: items})
}

// KeyPressed handles a named key and reports whether it was consumed.
func (c *Coordinator) KeyPressed(name string) bool {
	if c.closed {
		return false
	}

	switch c.keymap.Lookup(name) {
	case KeyDown:
		return c.apply(Move{Delta: 1}).Consumed
	case KeyUp:
		return c.apply(Move{Delta: -1}).Consumed
	case KeyActivate:
		return c.apply(Enter{}).Consumed
	case KeyClose:
		return c.apply(Escape{Full: c.registry.Records()}).Consumed
	}
	return false
}

// RowClicked selects a row of the active view and activates it.
func (c *Coordinator) RowClicked(index int) {
	if c.closed {
		return
	}
	c.apply(Click{Index: index})
}

// apply runs one transition, renders it and carries out its effect.
func (c *Coordinator) apply(ev Event) Effect {
	next, effect := Reduce(c.state, ev)
	c.state = next
	c.render()

	switch effect.Kind {
	case EffectActivate:
		c.Activate(effect.ID)
	case EffectHide:
		c.cancelSearch()
		c.view.ClearInput()
		if err := c.window.Hide(); err != nil {
			log.Printf("[PALETTE] Failed to hide window: %v", err)
		}
	}
	return effect
}

// Activate records id as the pending task and hides the window. Dispatch
// waits for the focus-loss notification that the hide produces.
func (c *Coordinator) Activate(id string) {
	if c.closed {
		return
	}

	if c.pending != "" && c.pending != id {
		debugLogger.Printf("ACTIVATE: replacing pending task '%s' with '%s'", c.pending, id)
	}
	c.pending = id
	c.cancelSearch()

	debugLogger.Printf("ACTIVATE: id='%s', hiding window and waiting for focus loss", id)
	if err := c.window.Hide(); err != nil {
		log.Printf("[PALETTE] Failed to hide window: %v", err)
	}
}

// FocusChanged is the focus notification handler.
func (c *Coordinator) FocusChanged(focused bool) {
	if c.closed {
		return
	}

	debugLogger.Printf("FOCUS_CHANGED: focused=%v pending='%s'", focused, c.pending)

	if focused {
		c.alerting = false
		c.view.FocusInput()
		return
	}

	if c.pending == "" {
		if c.alerting {
			debugLogger.Printf("FOCUS_CHANGED: focus went to an error alert, keeping window")
			return
		}
		c.dismiss()
		return
	}

	id := c.pending
	c.pending = ""
	c.dispatch(id)
}

func (c *Coordinator) dismiss() {
	c.cancelSearch()

	if c.opts.DismissAction == DismissHide {
		c.resetView()
		if err := c.window.Hide(); err != nil {
			log.Printf("[PALETTE] Failed to hide window: %v", err)
		}
		return
	}

	log.Printf("[PALETTE] Focus lost with nothing pending, closing window")
	c.closed = true
	c.cancel()
	if err := c.window.Close(); err != nil {
		log.Printf("[PALETTE] Failed to close window: %v", err)
	}
}

// dispatch runs execute(id) off the loop. The pending task has already been
// taken, so a second focus-loss event cannot dispatch it again.
func (c *Coordinator) dispatch(id string) {
	if _, ok := c.registry.Lookup(id); !ok {
		log.Printf("[PALETTE] %v, dispatching anyway", &NotFoundError{ID: id})
	}

	log.Printf("[PALETTE] Dispatching shortcut '%s'", id)
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.CallTimeout)
	go func() {
		defer cancel()
		_, err := bluebird.Call(ctx, c.backend, bluebird.ActionExecute, id)
		c.loop.Post(func() { c.dispatchDone(id, err) })
	}()
}

func (c *Coordinator) dispatchDone(id string, err error) {
	if c.closed {
		return
	}

	if err != nil {
		log.Printf("[PALETTE] Execute '%s' failed: %v", id, err)
		c.reportError(fmt.Sprintf("Failed to execute shortcut because %s", describe(err)))
		c.resetView()
		return
	}

	log.Printf("[PALETTE] Execute '%s' done, refreshing ranking", id)
	c.resetView()
	c.refresh()
}

// resetView returns to the initial Full view with an empty search field.
func (c *Coordinator) resetView() {
	c.cancelSearch()
	c.view.ClearInput()
	c.state = InitialState(c.registry.Records(), c.opts.VisibleRows)
	c.render()
}

// ReportError shows message through the renderer. The host's alert may take
// focus from a focused window; until focus comes back that loss does not
// dismiss the palette.
func (c *Coordinator) ReportError(message string) {
	if c.closed {
		return
	}
	c.reportError(message)
}

func (c *Coordinator) reportError(message string) {
	if c.window.IsFocused() {
		c.alerting = true
	}
	c.view.ShowError(message)
}

// DataChanged handles the "fetch-again" notification.
func (c *Coordinator) DataChanged() {
	if c.closed {
		return
	}
	log.Printf("[PALETTE] Backend data changed, refetching catalog")
	c.refresh()
}

// refresh fetches the full catalog off the loop. Results from a refresh that
// has since been superseded are dropped.
func (c *Coordinator) refresh() {
	c.generation++
	gen := c.generation

	ctx, cancel := context.WithTimeout(c.ctx, c.opts.CallTimeout)
	go func() {
		defer cancel()
		records, err := c.registry.Fetch(ctx, "")
		c.loop.Post(func() { c.refreshDone(gen, records, err) })
	}()
}

func (c *Coordinator) refreshDone(gen uint64, records []shortcut.Record, err error) {
	if c.closed {
		return
	}
	if gen != c.generation {
		debugLogger.Printf("REFRESH: dropping stale result gen=%d current=%d", gen, c.generation)
		return
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("[PALETTE] Refresh failed: %v", err)
		c.reportError(fmt.Sprintf("Failed to retrieve shortcuts because %s", describe(err)))
		return
	}

	c.registry.Replace("", records)
	c.index = search.Build(c.registry.Records(), c.opts.Search)

	var filtered []shortcut.Record
	if c.state.Active == ViewFiltered {
		filtered = c.index.Query(c.state.Query)
	}
	c.apply(RegistryRefreshed{Full: c.registry.Records(), Filtered: filtered})
}

// Show brings the window up and focuses the search field.
func (c *Coordinator) Show() error {
	if c.closed {
		return ErrClosed
	}
	if err := c.window.Show(); err != nil {
		return fmt.Errorf("failed to show window: %w", err)
	}
	if err := c.window.SetFocus(); err != nil {
		return fmt.Errorf("failed to focus window: %w", err)
	}
	c.view.FocusInput()
	return nil
}

// Hide hides the window without touching the pending task.
func (c *Coordinator) Hide() error {
	if c.closed {
		return ErrClosed
	}
	return c.window.Hide()
}

func (c *Coordinator) Toggle() error {
	if c.closed {
		return ErrClosed
	}
	if c.window.IsFocused() {
		return c.Hide()
	}
	return c.Show()
}

// HotkeyPressed is the global trigger handler.
func (c *Coordinator) HotkeyPressed(state hotkey.State) {
	if state != hotkey.Pressed {
		return
	}
	if err := c.Show(); err != nil {
		log.Printf("[PALETTE] Trigger could not show window: %v", err)
	}
}

func (c *Coordinator) render() {
	c.view.Render(c.state, c.registry.Total())
}

// describe renders an error the way the alert shows it: backend results
// joined with "; ".
func describe(err error) string {
	var backendErr *bluebird.BackendError
	if errors.As(err, &backendErr) && len(backendErr.Results) > 0 {
		return strings.Join(backendErr.Results, "; ")
	}
	return err.Error()
}
