// Package interval provides an ordered map from closed key ranges to values.
//
// A Map is written once (Insert) and then queried many times (Query, First).
// Insert must not run concurrently with queries; once building is finished
// the map may be shared freely between goroutines.
package interval

import (
	"cmp"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
)

// ErrInvalidRange is returned by Insert when start > end.
var ErrInvalidRange = errors.New("interval: start is after end")

type entry[K cmp.Ordered, V any] struct {
	start K
	end   K
	value V
	seq   int
}

// Map stores closed intervals [start, end] with an attached value. Point
// queries report every interval containing the point in insertion order, so
// the first result is always the earliest inserted covering interval.
//
// The zero value is an empty map ready for use.
type Map[K cmp.Ordered, V any] struct {
	mu      sync.Mutex
	dirty   atomic.Bool
	entries []entry[K, V]

	// byStart is entries sorted by (start, seq); maxEnd[mid] holds the largest
	// end in the implicit subtree whose root is mid.
	byStart []entry[K, V]
	maxEnd  []K
}

// New returns an empty map.
func New[K cmp.Ordered, V any]() *Map[K, V] {
	return &Map[K, V]{}
}

// Insert adds the closed interval [start, end] carrying value.
func (m *Map[K, V]) Insert(start, end K, value V) error {
	if start > end {
		return ErrInvalidRange
	}
	m.mu.Lock()
	m.entries = append(m.entries, entry[K, V]{start: start, end: end, value: value, seq: len(m.entries)})
	m.dirty.Store(true)
	m.mu.Unlock()
	return nil
}

// Len reports the number of inserted intervals.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Query returns the values of all intervals containing point, in insertion
// order. It returns nil when nothing covers point.
func (m *Map[K, V]) Query(point K) []V {
	m.index()
	var hits []entry[K, V]
	m.visit(point, 0, len(m.byStart), func(e *entry[K, V]) {
		hits = append(hits, *e)
	})
	if len(hits) == 0 {
		return nil
	}
	slices.SortFunc(hits, func(a, b entry[K, V]) int { return cmp.Compare(a.seq, b.seq) })
	out := make([]V, len(hits))
	for i := range hits {
		out[i] = hits[i].value
	}
	return out
}

// First returns the value of the earliest inserted interval containing point.
func (m *Map[K, V]) First(point K) (V, bool) {
	m.index()
	var (
		best  *entry[K, V]
		found bool
	)
	m.visit(point, 0, len(m.byStart), func(e *entry[K, V]) {
		if !found || e.seq < best.seq {
			best = e
			found = true
		}
	})
	if !found {
		var zero V
		return zero, false
	}
	return best.value, true
}

func (m *Map[K, V]) visit(point K, lo, hi int, fn func(*entry[K, V])) {
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if m.maxEnd[mid] < point {
			return
		}
		m.visit(point, lo, mid, fn)
		e := &m.byStart[mid]
		if e.start > point {
			return
		}
		if e.end >= point {
			fn(e)
		}
		lo = mid + 1
	}
}

func (m *Map[K, V]) index() {
	if !m.dirty.Load() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirty.Load() {
		return
	}
	sorted := slices.Clone(m.entries)
	slices.SortFunc(sorted, func(a, b entry[K, V]) int {
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	maxEnd := make([]K, len(sorted))
	buildMaxEnd(sorted, maxEnd, 0, len(sorted))
	m.byStart = sorted
	m.maxEnd = maxEnd
	m.dirty.Store(false)
}

func buildMaxEnd[K cmp.Ordered, V any](sorted []entry[K, V], maxEnd []K, lo, hi int) (K, bool) {
	if lo >= hi {
		var zero K
		return zero, false
	}
	mid := int(uint(lo+hi) >> 1)
	best := sorted[mid].end
	if l, ok := buildMaxEnd(sorted, maxEnd, lo, mid); ok && l > best {
		best = l
	}
	if r, ok := buildMaxEnd(sorted, maxEnd, mid+1, hi); ok && r > best {
		best = r
	}
	maxEnd[mid] = best
	return best, true
}
