package store

import "time"

// ── History ───────────────────────────────────────────────────────────────────

// HistoryEntry is one snapshot. Action is nil for direct writes.
type HistoryEntry struct {
	State     State     `json:"state"`
	Action    *Action   `json:"action,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ring is a fixed-capacity buffer of snapshots, oldest first.
type ring struct {
	buf   []HistoryEntry
	start int
	n     int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]HistoryEntry, capacity)}
}

// push appends e, evicting the oldest entry when full.
func (r *ring) push(e HistoryEntry) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = e
		r.n++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

// pop drops the newest entry.
func (r *ring) pop() {
	if r.n == 0 {
		return
	}
	r.buf[(r.start+r.n-1)%len(r.buf)] = HistoryEntry{}
	r.n--
}

func (r *ring) last() HistoryEntry {
	return r.buf[(r.start+r.n-1)%len(r.buf)]
}

func (r *ring) len() int { return r.n }
func (r *ring) cap() int { return len(r.buf) }

func (r *ring) clear() {
	clear(r.buf)
	r.start, r.n = 0, 0
}

func (r *ring) entries() []HistoryEntry {
	out := make([]HistoryEntry, r.n)
	for i := range r.n {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// record appends a snapshot (must hold mu). The snapshot shares next, which
// the store never mutates.
func (s *Store) record(next State, action *Action) {
	entry := HistoryEntry{State: next, Timestamp: s.now()}
	if action != nil {
		a := *action
		entry.Action = &a
	}
	s.history.push(entry)
}

// Undo restores the state recorded before the latest change and notifies
// with the pre-undo state as prev. It returns false when there is nothing to
// undo. Undo itself is not recorded.
func (s *Store) Undo() bool {
	s.mu.Lock()
	if s.destroyed || s.history.len() < 2 {
		s.mu.Unlock()
		return false
	}
	s.history.pop()
	prev := s.state
	next := s.history.last().State
	s.state = next
	s.seq++
	seq := s.seq
	notify := s.holdLocked(prev)
	s.mu.Unlock()

	if notify {
		s.notify(prev, next, seq)
	}
	return true
}

// ClearHistory drops every snapshot except the current state.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.history.clear()
	s.history.push(HistoryEntry{State: s.state, Timestamp: s.now()})
}

// HistorySize is the number of snapshots currently held.
func (s *Store) HistorySize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.len()
}

// History returns the snapshots, oldest first. States are copies.
func (s *Store) History() []HistoryEntry {
	s.mu.Lock()
	entries := s.history.entries()
	s.mu.Unlock()

	for i := range entries {
		entries[i].State = entries[i].State.Clone()
		if entries[i].Action != nil {
			a := *entries[i].Action
			entries[i].Action = &a
		}
	}
	return entries
}
