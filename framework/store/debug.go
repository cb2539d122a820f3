package store

import (
	"maps"
	"slices"
)

// DebugInfo is a point-in-time summary of the store, served by the inspector.
type DebugInfo struct {
	State        State          `json:"state"`
	HistorySize  int            `json:"history_size"`
	HistoryLimit int            `json:"history_limit"`
	Listeners    int            `json:"listeners"`
	KeyListeners map[string]int `json:"key_listeners"`
	Selectors    int            `json:"selectors"`
	Computed     []string       `json:"computed"`
	Reducers     []string       `json:"reducers"`
	Middleware   int            `json:"middleware"`
	Batching     bool           `json:"batching"`
	Destroyed    bool           `json:"destroyed"`
}

// DebugInfo returns the current summary.
func (s *Store) DebugInfo() DebugInfo {
	s.mu.Lock()
	info := DebugInfo{
		State:        s.state.Clone(),
		HistorySize:  s.history.len(),
		HistoryLimit: s.history.cap(),
		Batching:     s.batchDepth > 0,
		Destroyed:    s.destroyed,
	}
	s.mu.Unlock()

	s.subMu.RLock()
	defer s.subMu.RUnlock()
	info.Listeners = len(s.listeners)
	info.KeyListeners = make(map[string]int, len(s.keyListeners))
	for key, subs := range s.keyListeners {
		info.KeyListeners[key] = len(subs)
	}
	info.Selectors = len(s.selectors)
	info.Computed = slices.Clone(s.computedSeq)
	info.Reducers = slices.Sorted(maps.Keys(s.reducers))
	info.Middleware = len(s.middleware)
	return info
}

// ListenerCount is the number of global, field, selector and computed
// listeners currently registered.
func (s *Store) ListenerCount() int {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	n := len(s.listeners) + len(s.selectors)
	for _, subs := range s.keyListeners {
		n += len(subs)
	}
	for _, cp := range s.computed {
		n += len(cp.listeners)
	}
	return n
}
