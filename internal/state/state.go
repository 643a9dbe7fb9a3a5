// Package state keeps the captured snapshots of every watched object.
package state

import (
	"sort"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/sokinpui/kubectl-watch.go/internal/normalize"
)

// DefaultLimit caps the snapshots kept per object.
const DefaultLimit = 32

// Entry is one captured snapshot.
type Entry struct {
	Timestamp int64
	Object    *unstructured.Unstructured
}

// History is the snapshot log of one object. CurrentIndex points at the
// snapshot being viewed; it follows new snapshots unless moved back.
type History struct {
	Entries      []Entry
	CurrentIndex int
	Deleted      bool
}

// Manager holds the histories of all watched objects.
type Manager struct {
	mu        sync.Mutex
	limit     int
	histories map[string]*History
	now       func() time.Time
}

// New creates a manager keeping at most limit snapshots per object.
func New(limit int) *Manager {
	if limit < 2 {
		limit = DefaultLimit
	}
	return &Manager{
		limit:     limit,
		histories: make(map[string]*History),
		now:       time.Now,
	}
}

// Write records a snapshot and returns its object key. A snapshot carrying
// the same resourceVersion as the latest one is a replay and is dropped.
func (m *Manager) Write(obj *unstructured.Unstructured) (string, bool) {
	key := normalize.Key(obj)

	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.histories[key]
	if !ok {
		h = &History{CurrentIndex: -1}
		m.histories[key] = h
	}
	if n := len(h.Entries); n > 0 {
		last := h.Entries[n-1].Object
		if rv := obj.GetResourceVersion(); rv != "" && rv == last.GetResourceVersion() {
			return key, false
		}
	}

	following := h.CurrentIndex == len(h.Entries)-1
	h.Entries = append(h.Entries, Entry{Timestamp: m.now().UTC().Unix(), Object: obj})
	if over := len(h.Entries) - m.limit; over > 0 {
		h.Entries = h.Entries[over:]
		h.CurrentIndex -= over
		if h.CurrentIndex < 0 {
			h.CurrentIndex = 0
		}
	}
	if following {
		h.CurrentIndex = len(h.Entries) - 1
	}
	h.Deleted = false
	return key, true
}

// MarkDeleted flags the object as gone. Its history stays viewable.
func (m *Manager) MarkDeleted(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.histories[key]; ok {
		h.Deleted = true
	}
}

// Deleted reports whether the object was deleted.
func (m *Manager) Deleted(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.histories[key]
	return ok && h.Deleted
}

// Last returns up to n of the newest snapshots, oldest first.
func (m *Manager) Last(key string, n int) []*unstructured.Unstructured {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.histories[key]
	if !ok || n <= 0 {
		return nil
	}
	entries := h.Entries
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	out := make([]*unstructured.Unstructured, len(entries))
	for i, e := range entries {
		out[i] = e.Object
	}
	return out
}

// Pair returns the snapshot at the cursor and the one before it. pre is nil
// at the start of the history.
func (m *Manager) Pair(key string) (pre, cur *unstructured.Unstructured) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.histories[key]
	if !ok || h.CurrentIndex < 0 {
		return nil, nil
	}
	cur = h.Entries[h.CurrentIndex].Object
	if h.CurrentIndex > 0 {
		pre = h.Entries[h.CurrentIndex-1].Object
	}
	return pre, cur
}

// Position returns the cursor as a 1-based index and the history length.
func (m *Manager) Position(key string) (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.histories[key]
	if !ok {
		return 0, 0
	}
	return h.CurrentIndex + 1, len(h.Entries)
}

// Previous moves the cursor one snapshot back.
func (m *Manager) Previous(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.histories[key]
	if !ok || h.CurrentIndex <= 0 {
		return false
	}
	h.CurrentIndex--
	return true
}

// Next moves the cursor one snapshot forward.
func (m *Manager) Next(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.histories[key]
	if !ok || h.CurrentIndex >= len(h.Entries)-1 {
		return false
	}
	h.CurrentIndex++
	return true
}

// Keys lists the known objects in sorted order.
func (m *Manager) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.histories))
	for k := range m.histories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
