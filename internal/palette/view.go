package palette

import (
	"github.com/chess10kp/liz/internal/shortcut"
)

// ViewKind says which list is on screen.
type ViewKind int

const (
	ViewFull ViewKind = iota
	ViewFiltered
)

func (k ViewKind) String() string {
	switch k {
	case ViewFull:
		return "full"
	case ViewFiltered:
		return "filtered"
	default:
		return "unknown"
	}
}

// ViewState is the single source of truth for what is displayed and which
// row is selected. Items is a projection, not owned: it is either the
// registry or the last match result.
//
// Whenever Items is non-empty, 0 <= Selected < len(Items). Scroll is the
// first visible row when VisibleRows > 0.
type ViewState struct {
	Active      ViewKind
	Query       string
	Items       []shortcut.Record
	Selected    int
	Scroll      int
	VisibleRows int
}

// InitialState is the Full view over records with the first row selected.
func InitialState(records []shortcut.Record, visibleRows int) ViewState {
	return ViewState{
		Active:      ViewFull,
		Items:       records,
		VisibleRows: visibleRows,
	}
}

// Current returns the selected record, if any.
func (s ViewState) Current() (shortcut.Record, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Items) {
		return shortcut.Record{}, false
	}
	return s.Items[s.Selected], true
}

// Counter is the number of displayed rows, shown as "N / total".
func (s ViewState) Counter() int {
	return len(s.Items)
}

// Event is something that can change the view.
type Event interface {
	isEvent()
}

// QueryApplied carries the debounced search text and the rows it selects:
// the registry for blank text, the match result otherwise.
type QueryApplied struct {
	Query string
	Items []shortcut.Record
}

// RegistryRefreshed carries a new catalog and the current query re-run
// against it.
type RegistryRefreshed struct {
	Full     []shortcut.Record
	Filtered []shortcut.Record
}

// Move is ArrowDown (+1) or ArrowUp (-1).
type Move struct {
	Delta int
}

// Click is a pointer press on a row of the active view.
type Click struct {
	Index int
}

// Enter activates the selected row.
type Enter struct{}

// Escape drops the query and returns to the full list.
type Escape struct {
	Full []shortcut.Record
}

func (QueryApplied) isEvent()      {}
func (RegistryRefreshed) isEvent() {}
func (Move) isEvent()              {}
func (Click) isEvent()             {}
func (Enter) isEvent()             {}
func (Escape) isEvent()            {}

type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectActivate
	EffectHide
)

// Effect is what the caller must do after a transition. Consumed tells a
// key handler to stop default processing.
type Effect struct {
	Kind     EffectKind
	ID       string
	Consumed bool
}

// Reduce applies one event. It never touches the backend or the window.
func Reduce(s ViewState, ev Event) (ViewState, Effect) {
	switch ev := ev.(type) {
	case QueryApplied:
		if ev.Query == "" {
			return s.replace(ViewFull, "", ev.Items), Effect{}
		}
		return s.replace(ViewFiltered, ev.Query, ev.Items), Effect{}

	case RegistryRefreshed:
		if s.Active == ViewFiltered {
			return s.replace(ViewFiltered, s.Query, ev.Filtered), Effect{}
		}
		return s.replace(ViewFull, "", ev.Full), Effect{}

	case Move:
		next := s.Selected + ev.Delta
		if len(s.Items) == 0 || next < 0 || next >= len(s.Items) {
			return s, Effect{Consumed: true}
		}
		s.Selected = next
		s.scrollIntoView()
		return s, Effect{Consumed: true}

	case Click:
		if ev.Index < 0 || ev.Index >= len(s.Items) {
			return s, Effect{}
		}
		s.Selected = ev.Index
		s.scrollIntoView()
		return s, Effect{Kind: EffectActivate, ID: s.Items[ev.Index].ID, Consumed: true}

	case Enter:
		rec, ok := s.Current()
		if !ok {
			return s, Effect{Consumed: true}
		}
		return s, Effect{Kind: EffectActivate, ID: rec.ID, Consumed: true}

	case Escape:
		return s.replace(ViewFull, "", ev.Full), Effect{Kind: EffectHide, Consumed: true}
	}

	return s, Effect{}
}

// replace installs new items and resets selection and scroll.
func (s ViewState) replace(kind ViewKind, query string, items []shortcut.Record) ViewState {
	s.Active = kind
	s.Query = query
	s.Items = items
	s.Selected = 0
	s.Scroll = 0
	return s
}

func (s *ViewState) scrollIntoView() {
	if s.VisibleRows <= 0 {
		s.Scroll = 0
		return
	}
	if s.Selected < s.Scroll {
		s.Scroll = s.Selected
	} else if s.Selected >= s.Scroll+s.VisibleRows {
		s.Scroll = s.Selected - s.VisibleRows + 1
	}
}
