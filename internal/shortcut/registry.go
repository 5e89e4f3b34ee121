// Package shortcut mirrors the backend's shortcut catalog in memory.
package shortcut

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/chess10kp/liz/internal/bluebird"
)

var ErrMalformedRecord = errors.New("malformed shortcut record")

// Record is one backend-defined action. ID is opaque and stable; Label is
// display text and may carry Pango markup.
type Record struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// wireRecord accepts both the current "label" key and the older "sc" key,
// and ids encoded either as strings or as bare numbers.
type wireRecord struct {
	ID    json.RawMessage `json:"id"`
	Label *string         `json:"label"`
	SC    *string         `json:"sc"`
}

// DecodeRecord parses one get_shortcuts result string.
func DecodeRecord(raw string) (Record, error) {
	var w wireRecord
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	id, err := decodeID(w.ID)
	if err != nil {
		return Record{}, err
	}

	var label string
	switch {
	case w.Label != nil:
		label = *w.Label
	case w.SC != nil:
		label = *w.SC
	default:
		return Record{}, fmt.Errorf("%w: record %q has no label", ErrMalformedRecord, id)
	}

	return Record{ID: id, Label: label}, nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}

	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		if id == "" {
			return "", fmt.Errorf("%w: empty id", ErrMalformedRecord)
		}
		return id, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("%w: id is neither string nor number", ErrMalformedRecord)
	}
	return n.String(), nil
}

// Registry holds the last fetched records in backend order. The backend ranks
// the catalog, so the order is never changed here.
//
// Fetch is safe to call from any goroutine. Replace, Records, Total and
// Lookup belong to the event loop that owns the registry.
type Registry struct {
	invoker bluebird.Invoker
	records []Record
	index   map[string]int
	total   int
}

func NewRegistry(invoker bluebird.Invoker) *Registry {
	return &Registry{
		invoker: invoker,
		index:   make(map[string]int),
	}
}

// Fetch asks the backend for the records matching query without touching
// the registry. An empty query asks for the full catalog.
func (r *Registry) Fetch(ctx context.Context, query string) ([]Record, error) {
	start := time.Now()

	results, err := bluebird.Call(ctx, r.invoker, bluebird.ActionGetShortcuts, query)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(results))
	for i, raw := range results {
		rec, err := DecodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		records = append(records, rec)
	}

	log.Printf("[REGISTRY] Fetched %d shortcuts for query='%s' in %v", len(records), query, time.Since(start))
	return records, nil
}

// Replace swaps in a fetched result wholesale. Results for the empty query
// also set the catalog total.
func (r *Registry) Replace(query string, records []Record) {
	r.records = records
	r.index = make(map[string]int, len(records))
	for i, rec := range records {
		if _, dup := r.index[rec.ID]; dup {
			log.Printf("[REGISTRY] Duplicate shortcut id '%s' at position %d, keeping first", rec.ID, i)
			continue
		}
		r.index[rec.ID] = i
	}

	if query == "" {
		r.total = len(records)
	}
}

// Refresh fetches and replaces in one step. On error the previous records
// stay in place.
func (r *Registry) Refresh(ctx context.Context, query string) ([]Record, error) {
	records, err := r.Fetch(ctx, query)
	if err != nil {
		log.Printf("[REGISTRY] Refresh failed for query='%s': %v", query, err)
		return nil, err
	}

	r.Replace(query, records)
	return r.Records(), nil
}

// Records returns a copy of the current records.
func (r *Registry) Records() []Record {
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

func (r *Registry) Len() int {
	return len(r.records)
}

// Total is the size of the last full-catalog fetch.
func (r *Registry) Total() int {
	return r.total
}

func (r *Registry) Lookup(id string) (Record, bool) {
	i, ok := r.index[id]
	if !ok {
		return Record{}, false
	}
	return r.records[i], true
}
