// Package search ranks shortcut records against a typed query.
package search

import (
	"html"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/sahilm/fuzzy"

	"github.com/chess10kp/liz/internal/shortcut"
)

const DefaultMinMatchChars = 2

type Options struct {
	// MinMatchChars is the shortest query, and the shortest run of
	// consecutive matched characters, that counts as a match.
	MinMatchChars int
	// MaxResults caps a filtered result. Zero means no cap.
	MaxResults int
	// Typos enables the edit-distance token matcher.
	Typos     bool
	CacheSize int
}

func DefaultOptions() Options {
	return Options{
		MinMatchChars: DefaultMinMatchChars,
		Typos:         true,
		CacheSize:     defaultCacheSize,
	}
}

// Index is immutable once built. A registry refresh builds a new one.
type Index struct {
	records []shortcut.Record
	keys    []string
	tokens  [][]string
	opts    Options
	cache   *queryCache
}

// Build indexes records in registry order.
func Build(records []shortcut.Record, opts Options) *Index {
	if opts.MinMatchChars <= 0 {
		opts.MinMatchChars = DefaultMinMatchChars
	}

	idx := &Index{
		records: records,
		keys:    make([]string, len(records)),
		tokens:  make([][]string, len(records)),
		opts:    opts,
	}

	for i, rec := range records {
		key := strings.ToLower(PlainText(rec.Label))
		idx.keys[i] = key
		idx.tokens[i] = tokenize(key)
	}

	cache, err := newQueryCache(opts.CacheSize)
	if err != nil {
		log.Printf("[SEARCH] Failed to create query cache: %v", err)
	} else {
		idx.cache = cache
	}

	return idx
}

func (idx *Index) Len() int {
	return len(idx.records)
}

// Records returns the indexed records in registry order.
func (idx *Index) Records() []shortcut.Record {
	out := make([]shortcut.Record, len(idx.records))
	copy(out, idx.records)
	return out
}

// Query ranks the indexed records against text. Blank text returns every
// record in registry order. Equal scores keep registry order.
func (idx *Index) Query(text string) []shortcut.Record {
	query := strings.ToLower(strings.TrimSpace(text))
	if query == "" {
		return idx.Records()
	}

	if utf8.RuneCountInString(query) < idx.opts.MinMatchChars {
		return []shortcut.Record{}
	}

	if idx.cache != nil {
		if cached, found := idx.cache.get(query); found {
			return append([]shortcut.Record(nil), cached...)
		}
	}

	start := time.Now()
	results := idx.rank(query)
	log.Printf("[SEARCH] query='%s' matched %d of %d in %v", query, len(results), len(idx.records), time.Since(start))

	if idx.cache != nil {
		idx.cache.put(query, results)
	}
	return append([]shortcut.Record(nil), results...)
}

// CacheStats returns the query cache counters, or nil without a cache.
func (idx *Index) CacheStats() *CacheStats {
	if idx.cache == nil {
		return nil
	}
	stats := idx.cache.stats()
	return &stats
}

type ranked struct {
	index int
	tier  int
	score int
}

func (idx *Index) rank(query string) []shortcut.Record {
	matched := make(map[int]bool)
	hits := make([]ranked, 0)

	for _, m := range fuzzy.Find(query, idx.keys) {
		if !sharesRun(m.Str, query, idx.opts.MinMatchChars) {
			continue
		}
		matched[m.Index] = true
		hits = append(hits, ranked{index: m.Index, tier: 0, score: m.Score})
	}

	if idx.opts.Typos {
		queryTokens := tokenize(query)
		for i, tokens := range idx.tokens {
			if matched[i] {
				continue
			}
			if distance, ok := tokenDistance(queryTokens, tokens, idx.opts.MinMatchChars); ok {
				// Lower distance must rank higher, so store it negated.
				hits = append(hits, ranked{index: i, tier: 1, score: -distance})
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.score != b.score {
			return a.score > b.score
		}
		return a.index < b.index
	})

	if limit := idx.opts.MaxResults; limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]shortcut.Record, len(hits))
	for i, h := range hits {
		results[i] = idx.records[h.index]
	}
	return results
}

// sharesRun reports whether key contains some minRun consecutive characters
// of query. It filters out matches made only of scattered single characters.
func sharesRun(key, query string, minRun int) bool {
	q := []rune(query)
	if minRun <= 1 || len(q) < minRun {
		return true
	}

	for i := 0; i+minRun <= len(q); i++ {
		if strings.Contains(key, string(q[i:i+minRun])) {
			return true
		}
	}
	return false
}

// tokenDistance matches every query token against the closest prefix of some
// label token and returns the summed edit distance.
func tokenDistance(queryTokens, labelTokens []string, minChars int) (int, bool) {
	if len(queryTokens) == 0 || len(labelTokens) == 0 {
		return 0, false
	}

	total := 0
	for _, qt := range queryTokens {
		qr := []rune(qt)
		if len(qr) < minChars {
			// Too short to judge closeness; demand an exact prefix.
			if !anyPrefix(labelTokens, qt) {
				return 0, false
			}
			continue
		}

		allowed := allowedTypos(len(qr))
		best := -1
		for _, lt := range labelTokens {
			lr := []rune(lt)
			for n := len(qr) - 1; n <= len(qr)+1; n++ {
				if n < 1 || n > len(lr) {
					continue
				}
				d := levenshtein.ComputeDistance(qt, string(lr[:n]))
				if best < 0 || d < best {
					best = d
				}
			}
		}

		if best < 0 || best > allowed {
			return 0, false
		}
		total += best
	}
	return total, true
}

func allowedTypos(runes int) int {
	switch {
	case runes < 4:
		return 0
	case runes < 8:
		return 1
	default:
		return 2
	}
}

func anyPrefix(tokens []string, prefix string) bool {
	for _, t := range tokens {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var markupTag = regexp.MustCompile(`<[^>]*>`)

// PlainText strips Pango markup tags and entities from a label.
func PlainText(label string) string {
	if !strings.ContainsAny(label, "<&") {
		return label
	}
	return html.UnescapeString(markupTag.ReplaceAllString(label, ""))
}
