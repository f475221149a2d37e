// Package composition holds the element→amount mapping edited on the
// generation screen.
package composition

import (
	"math"
	"strings"
	"sync"
)

// Entry is one element of a composition.
type Entry struct {
	Element string  `toml:"element" json:"element"`
	Amount  float64 `toml:"amount" json:"amount"`
}

// Model is an ordered composition with unique element symbols.
// The zero value is not usable; call New.
type Model struct {
	mu      sync.RWMutex
	entries []Entry
	known   map[string]struct{}
}

// New returns a model that accepts the given element symbols.
func New(known []string, initial ...Entry) *Model {
	m := &Model{}
	m.SetKnown(known)
	m.ApplyPreset(initial)
	return m
}

// SetKnown replaces the set of accepted element symbols. Existing entries are kept.
func (m *Model) SetKnown(symbols []string) {
	known := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if s = strings.TrimSpace(s); s != "" {
			known[s] = struct{}{}
		}
	}
	m.mu.Lock()
	m.known = known
	m.mu.Unlock()
}

// Known reports whether symbol is an accepted element.
func (m *Model) Known(symbol string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.known[symbol]
	return ok
}

// Add inserts element with amount, or replaces the amount when the element is
// already present. Empty or unknown symbols and non-positive amounts are ignored.
func (m *Model) Add(element string, amount float64) bool {
	element = strings.TrimSpace(element)
	if element == "" || !ValidAmount(amount) {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.known[element]; !ok {
		return false
	}
	for i := range m.entries {
		if m.entries[i].Element == element {
			m.entries[i].Amount = amount
			return true
		}
	}
	m.entries = append(m.entries, Entry{Element: element, Amount: amount})
	return true
}

// Remove deletes the entry at index. Out-of-range indexes are ignored.
func (m *Model) Remove(index int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.entries) {
		return false
	}
	m.entries = append(m.entries[:index:index], m.entries[index+1:]...)
	return true
}

// ApplyPreset overwrites the whole composition. Unsaved edits are discarded.
// A symbol repeated in entries keeps its first position and its last amount.
// Entries with an unknown symbol are left out and returned as skipped; entries
// with an empty symbol or an invalid amount are dropped silently.
func (m *Model) ApplyPreset(entries []Entry) (skipped []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0, len(entries))
	pos := make(map[string]int, len(entries))
	for _, e := range entries {
		sym := strings.TrimSpace(e.Element)
		if sym == "" || !ValidAmount(e.Amount) {
			continue
		}
		if _, ok := m.known[sym]; !ok {
			skipped = append(skipped, sym)
			continue
		}
		if i, ok := pos[sym]; ok {
			out[i].Amount = e.Amount
			continue
		}
		pos[sym] = len(out)
		out = append(out, Entry{Element: sym, Amount: e.Amount})
	}
	m.entries = out
	return skipped
}

// ValidAmount reports whether a is a finite positive number.
func ValidAmount(a float64) bool {
	return a > 0 && !math.IsInf(a, 0)
}

// Entries returns a copy of the entries in display order.
func (m *Model) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Map returns the composition as an element→amount mapping.
func (m *Model) Map() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.entries))
	for _, e := range m.entries {
		out[e.Element] = e.Amount
	}
	return out
}

// Len returns the number of entries.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
