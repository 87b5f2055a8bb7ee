// Package cache memoises derived tables for the lifetime of one dataset
// version. Entries are populated on first use and cleared on reload.
package cache

import (
	"container/list"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Memo is a size-bounded LRU of computed values. When full, the least
// recently used entry is evicted.
type Memo struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*list.Element
	lru        *list.List
	generation uint64
	group      singleflight.Group
	hits       atomic.Int64
	misses     atomic.Int64
}

type memoEntry struct {
	key   string
	value any
}

// NewMemo returns a memo holding at most maxEntries values. A non-positive
// maxEntries means no bound.
func NewMemo(maxEntries int) *Memo {
	return &Memo{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
	}
}

// Key builds a memo key from the dataset version, the operation name and its
// arguments. Arguments are formatted with %v.
func Key(version, op string, args ...any) string {
	var b strings.Builder
	b.WriteString(version)
	b.WriteByte('|')
	b.WriteString(op)
	for _, arg := range args {
		b.WriteByte('|')
		fmt.Fprint(&b, arg)
	}
	return b.String()
}

// Do returns the value stored under key, calling fn to compute it on a miss.
// Concurrent misses for the same key share one call of fn. Errors are not
// cached, and neither is a value whose computation overlapped a Reset. Stored
// values must be treated as read-only by callers.
func Do[T any](m *Memo, key string, fn func() (T, error)) (T, error) {
	if v, ok := m.get(key); ok {
		m.hits.Add(1)
		return v.(T), nil
	}

	res, err, _ := m.group.Do(key, func() (any, error) {
		if v, ok := m.get(key); ok {
			return v, nil
		}

		m.mu.Lock()
		gen := m.generation
		m.mu.Unlock()

		m.misses.Add(1)
		computed, err := fn()
		if err != nil {
			return nil, err
		}

		m.set(key, computed, gen)
		return computed, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

func (m *Memo) get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	m.lru.MoveToFront(elem)
	return elem.Value.(*memoEntry).value, true
}

func (m *Memo) set(key string, value any, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return
	}
	if elem, ok := m.entries[key]; ok {
		elem.Value.(*memoEntry).value = value
		m.lru.MoveToFront(elem)
		return
	}

	m.entries[key] = m.lru.PushFront(&memoEntry{key: key, value: value})
	if m.maxEntries > 0 && m.lru.Len() > m.maxEntries {
		oldest := m.lru.Back()
		delete(m.entries, oldest.Value.(*memoEntry).key)
		m.lru.Remove(oldest)
	}
}

// Reset drops every entry. Computations already running when Reset is
// called do not store their results. Counters are kept.
func (m *Memo) Reset() {
	m.mu.Lock()
	m.generation++
	m.entries = make(map[string]*list.Element)
	m.lru.Init()
	m.mu.Unlock()
}

func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memo) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}
