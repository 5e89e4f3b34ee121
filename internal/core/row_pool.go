package core

import (
	"fmt"

	"github.com/gotk3/gotk3/gtk"
)

// resultRow is one list row and the label showing its record.
type resultRow struct {
	row   *gtk.ListBoxRow
	label *gtk.Label
}

// rowPool recycles result rows between renders. It is only used from the
// GTK main loop.
type rowPool struct {
	free []*resultRow
}

func newRowPool() *rowPool {
	return &rowPool{free: make([]*resultRow, 0)}
}

// get returns a pooled row or creates a new one.
func (p *rowPool) get() (*resultRow, error) {
	if n := len(p.free); n > 0 {
		r := p.free[n-1]
		p.free = p.free[:n-1]
		return r, nil
	}

	row, err := gtk.ListBoxRowNew()
	if err != nil {
		return nil, err
	}
	row.SetName("list-row")

	label, err := gtk.LabelNew("")
	if err != nil {
		return nil, err
	}
	label.SetHAlign(gtk.ALIGN_START)
	label.SetMarginStart(8)
	label.SetMarginEnd(8)
	label.SetMarginTop(8)
	label.SetMarginBottom(8)
	row.Add(label)

	return &resultRow{row: row, label: label}, nil
}

// put hides r and keeps it for reuse. The caller has already removed it from
// its list.
func (p *rowPool) put(r *resultRow) {
	if r == nil {
		return
	}
	r.row.Hide()
	p.free = append(p.free, r)
}

func (p *rowPool) size() int {
	return len(p.free)
}

// takeRows gets n rows or none. On failure the rows already taken go back
// through put, so callers never show a partial list.
func takeRows[R any](n int, get func() (R, error), put func(R)) ([]R, error) {
	rows := make([]R, 0, n)
	for i := 0; i < n; i++ {
		r, err := get()
		if err != nil {
			for _, taken := range rows {
				put(taken)
			}
			return nil, fmt.Errorf("failed to create row %d: %w", i, err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}
