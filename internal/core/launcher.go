package core

import (
	"fmt"
	"log"
	"unsafe"

	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/gtk"

	"github.com/chess10kp/liz/internal/config"
	"github.com/chess10kp/liz/internal/layer"
	"github.com/chess10kp/liz/internal/palette"
	"github.com/chess10kp/liz/internal/shortcut"
)

var debugLogger = log.New(log.Writer(), "[LAUNCHER-DEBUG] ", log.LstdFlags|log.Lmicroseconds)

// rowHeight approximates one result row: margins, font and padding.
const rowHeight = 44

// Launcher is the GTK palette window. It implements palette.Window and
// palette.Renderer; every method runs on the GTK main loop.
type Launcher struct {
	config         *config.Config
	window         *gtk.Window
	searchEntry    *gtk.Entry
	counter        *gtk.Label
	resultList     *gtk.ListBox
	scrolledWindow *gtk.ScrolledWindow

	focusChange func(bool)
	notifier    errorNotifier

	// shown mirrors the ids currently in resultList, rows their widgets.
	shown []string
	rows  []*resultRow
	pool  *rowPool
	// settingText is set while the launcher edits the entry itself, so the
	// "changed" signal is not fed back as user input.
	settingText bool
	destroyed   bool
}

func NewLauncher(cfg *config.Config) (*Launcher, error) {
	window, err := gtk.WindowNew(gtk.WINDOW_TOPLEVEL)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	window.SetDecorated(false)
	window.SetSkipTaskbarHint(true)
	window.SetSkipPagerHint(true)
	window.SetName("launcher-window")
	window.SetDefaultSize(cfg.Launcher.Window.Width, cfg.Launcher.Window.Height)

	box, err := gtk.BoxNew(gtk.ORIENTATION_VERTICAL, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create box: %w", err)
	}
	window.Add(box)

	hbox, err := gtk.BoxNew(gtk.ORIENTATION_HORIZONTAL, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to create hbox: %w", err)
	}

	searchEntry, err := gtk.EntryNew()
	if err != nil {
		return nil, fmt.Errorf("failed to create search entry: %w", err)
	}
	searchEntry.SetPlaceholderText("Search shortcuts...")
	searchEntry.SetName("launcher-entry")
	hbox.PackStart(searchEntry, true, true, 0)

	counter, err := gtk.LabelNew("0 / 0")
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	counter.SetName("launcher-counter")
	hbox.PackStart(counter, false, false, 8)

	box.PackStart(hbox, false, false, 0)

	scrolledWindow, err := gtk.ScrolledWindowNew(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create scrolled window: %w", err)
	}
	scrolledWindow.SetPolicy(gtk.POLICY_NEVER, gtk.POLICY_AUTOMATIC)
	scrolledWindow.SetVExpand(true)
	scrolledWindow.SetMinContentHeight(cfg.Launcher.Window.VisibleRows * rowHeight)
	box.PackStart(scrolledWindow, true, true, 0)

	resultList, err := gtk.ListBoxNew()
	if err != nil {
		return nil, fmt.Errorf("failed to create result list: %w", err)
	}
	resultList.SetName("result-list")
	resultList.SetVExpand(true)
	resultList.SetSelectionMode(gtk.SELECTION_SINGLE)
	scrolledWindow.Add(resultList)

	if cfg.Launcher.Window.LayerShell {
		if layer.Supported() {
			layer.Apply(unsafe.Pointer(window.Native()), layer.Placement{
				Layer:    layer.LayerOverlay,
				Keyboard: layer.KeyboardModeOnDemand,
				Anchors:  []layer.Edge{layer.EdgeTop},
				Margins:  map[layer.Edge]int{layer.EdgeTop: cfg.Launcher.Window.TopMargin},
			})
		} else {
			log.Printf("[LAUNCHER] Layer shell not supported, using a regular toplevel")
		}
	}

	return &Launcher{
		config:         cfg,
		window:         window,
		searchEntry:    searchEntry,
		counter:        counter,
		resultList:     resultList,
		scrolledWindow: scrolledWindow,
		pool:           newRowPool(),
	}, nil
}

// Bind connects the GTK signals to p. onDestroy runs once the window is gone.
func (l *Launcher) Bind(p *palette.Coordinator, onDestroy func()) {
	l.searchEntry.Connect("changed", func() {
		if l.settingText {
			return
		}
		text, _ := l.searchEntry.GetText()
		p.InputChanged(text)
	})

	l.searchEntry.Connect("activate", func() {
		p.KeyPressed("Return")
	})

	l.searchEntry.Connect("key-press-event", func(entry *gtk.Entry, event *gdk.Event) bool {
		return p.KeyPressed(keyName(gdk.EventKeyNewFromEvent(event)))
	})

	l.resultList.Connect("row-activated", func(list *gtk.ListBox, row *gtk.ListBoxRow) {
		p.RowClicked(row.GetIndex())
	})

	l.window.Connect("focus-in-event", func(window *gtk.Window, event *gdk.Event) bool {
		l.notifyFocus(true)
		return false
	})

	l.window.Connect("focus-out-event", func(window *gtk.Window, event *gdk.Event) bool {
		l.notifyFocus(false)
		return false
	})

	l.window.Connect("destroy", func() {
		l.destroyed = true
		if onDestroy != nil {
			onDestroy()
		}
	})
}

func (l *Launcher) notifyFocus(focused bool) {
	debugLogger.Printf("FOCUS: focused=%v", focused)
	if l.focusChange != nil {
		l.focusChange(focused)
	}
}

// keyName renders a key event as "Ctrl+N" style text for the palette keymap.
func keyName(event *gdk.EventKey) string {
	name := gdk.KeyvalName(event.KeyVal())
	state := gdk.ModifierType(event.State())

	prefix := ""
	if state&gdk.CONTROL_MASK != 0 {
		prefix += "Ctrl+"
	}
	if state&gdk.MOD1_MASK != 0 {
		prefix += "Alt+"
	}
	if state&gdk.SUPER_MASK != 0 {
		prefix += "Super+"
	}
	return prefix + name
}

func (l *Launcher) Show() error {
	if l.destroyed {
		return palette.ErrClosed
	}
	l.window.ShowAll()
	l.window.Present()
	return nil
}

func (l *Launcher) Hide() error {
	if l.destroyed {
		return nil
	}
	l.window.Hide()
	return nil
}

func (l *Launcher) Close() error {
	if l.destroyed {
		return nil
	}
	l.window.Destroy()
	return nil
}

func (l *Launcher) SetFocus() error {
	if l.destroyed {
		return palette.ErrClosed
	}
	l.window.Present()
	return nil
}

func (l *Launcher) IsFocused() bool {
	return !l.destroyed && l.window.IsVisible() && l.window.IsActive()
}

func (l *Launcher) OnFocusChanged(handler func(focused bool)) {
	l.focusChange = handler
}

func (l *Launcher) Render(state palette.ViewState, total int) {
	if l.destroyed {
		return
	}

	if !sameIDs(l.shown, state.Items) {
		if err := l.rebuildRows(state.Items); err != nil {
			log.Printf("[LAUNCHER] Failed to render results: %v", err)
			l.counter.SetText(fmt.Sprintf("0 / %d", total))
			return
		}
	}

	l.counter.SetText(fmt.Sprintf("%d / %d", state.Counter(), total))

	if row := l.resultList.GetRowAtIndex(state.Selected); row != nil && len(state.Items) > 0 {
		l.resultList.SelectRow(row)
	} else {
		l.resultList.UnselectAll()
	}

	if adj := l.scrolledWindow.GetVAdjustment(); adj != nil {
		adj.SetValue(float64(state.Scroll * rowHeight))
	}
}

// rebuildRows replaces the list with one row per item. Row i always shows
// items[i]; if rows cannot be created the list is left empty.
func (l *Launcher) rebuildRows(items []shortcut.Record) error {
	for _, r := range l.rows {
		l.resultList.Remove(r.row)
		l.pool.put(r)
	}
	l.rows = l.rows[:0]
	l.shown = l.shown[:0]

	rows, err := takeRows(len(items), l.pool.get, l.pool.put)
	if err != nil {
		return err
	}

	for i, r := range rows {
		r.label.SetMarkup(items[i].Label)
		l.resultList.Add(r.row)
		l.rows = append(l.rows, r)
		l.shown = append(l.shown, items[i].ID)
	}
	l.resultList.ShowAll()
	debugLogger.Printf("RENDER: %d rows, %d pooled", len(l.rows), l.pool.size())
	return nil
}

func sameIDs(shown []string, items []shortcut.Record) bool {
	if len(shown) != len(items) {
		return false
	}
	for i := range items {
		if shown[i] != items[i].ID {
			return false
		}
	}
	return true
}

func (l *Launcher) ClearInput() {
	if l.destroyed {
		return
	}
	l.settingText = true
	l.searchEntry.SetText("")
	l.settingText = false
}

func (l *Launcher) FocusInput() {
	if l.destroyed {
		return
	}
	l.searchEntry.GrabFocus()
}

// errorNotifier posts an error as a desktop notification.
type errorNotifier interface {
	Error(summary, body string) error
}

// SetNotifier routes errors raised while the window is hidden to n.
func (l *Launcher) SetNotifier(n errorNotifier) {
	l.notifier = n
}

// ShowError reports message. While the window is hidden, for example after a
// failed dispatch, it goes to the notifier; otherwise, or if that fails, a
// modal alert opens over the window. The alert takes focus; the coordinator
// expects that when it reports an error.
func (l *Launcher) ShowError(message string) {
	log.Printf("[LAUNCHER] %s", message)

	if l.notifier != nil && (l.destroyed || !l.window.IsVisible()) {
		err := l.notifier.Error("liz", message)
		if err == nil {
			return
		}
		log.Printf("[LAUNCHER] Falling back to a dialog: %v", err)
	}
	if l.destroyed {
		return
	}

	dialog := gtk.MessageDialogNew(l.window, gtk.DIALOG_MODAL|gtk.DIALOG_DESTROY_WITH_PARENT,
		gtk.MESSAGE_ERROR, gtk.BUTTONS_OK, "%s", message)
	dialog.SetTitle("liz")
	dialog.Connect("response", func() {
		dialog.Destroy()
		// Hand focus back so the palette sees focus-in before any later blur.
		if !l.destroyed && l.window.IsVisible() {
			l.window.Present()
		}
	})
	dialog.Show()
}
