package store

import "slices"

// ── Computed properties ───────────────────────────────────────────────────────

// computedProperty is a named derived value. It is recomputed only when one
// of its dependency fields changes, and its listeners fire only when the
// recomputed value differs from the stored one.
type computedProperty struct {
	name   string
	deps   []string
	derive func(State) any

	value     any
	seq       uint64 // state sequence value was derived from
	listeners []computedListener
}

type computedListener struct {
	id uint64
	fn func(value any)
}

// CreateComputed defines a computed property from dependency fields. The
// value is computed at creation; listener, when given, receives it
// immediately. Redefining a name replaces the earlier definition and its
// listeners.
//
//	st.CreateComputed("isDark", func(s store.State) any {
//	    return s["theme"] == "dark"
//	}, []string{"theme"}, nil)
func (s *Store) CreateComputed(name string, derive func(State) any, deps []string, listener func(any)) Unsubscribe {
	if derive == nil || s.isDestroyed() {
		return func() {}
	}
	cur, seq := s.snapshot()
	initial := derive(cur.Clone())
	cp := &computedProperty{
		name:   name,
		deps:   slices.Clone(deps),
		derive: derive,
		value:  initial,
		seq:    seq,
	}

	s.subMu.Lock()
	if _, exists := s.computed[name]; !exists {
		s.computedSeq = append(s.computedSeq, name)
	}
	s.computed[name] = cp
	s.subMu.Unlock()

	if listener == nil {
		return func() {}
	}
	unsub := s.WatchComputed(name, listener)
	listener(initial)
	return unsub
}

// Computed returns the cached value of a computed property.
func (s *Store) Computed(name string) (any, bool) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	cp, ok := s.computed[name]
	if !ok {
		return nil, false
	}
	return cp.value, true
}

// WatchComputed registers a listener for a computed property. Unlike
// CreateComputed it does not deliver the current value.
func (s *Store) WatchComputed(name string, fn func(value any)) Unsubscribe {
	if fn == nil {
		return func() {}
	}
	s.subMu.Lock()
	cp, ok := s.computed[name]
	if !ok {
		s.subMu.Unlock()
		return func() {}
	}
	s.nextID++
	id := s.nextID
	cp.listeners = append(cp.listeners, computedListener{id: id, fn: fn})
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, l := range cp.listeners {
			if l.id == id {
				cp.listeners = append(cp.listeners[:i:i], cp.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notifyComputed(state, prev State, seq uint64) {
	s.subMu.RLock()
	props := make([]*computedProperty, 0, len(s.computedSeq))
	for _, name := range s.computedSeq {
		props = append(props, s.computed[name])
	}
	s.subMu.RUnlock()

	for _, cp := range props {
		if !s.depsChanged(cp.deps, state, prev) {
			continue
		}
		value := cp.derive(state.Clone())

		s.subMu.Lock()
		if seq < cp.seq {
			s.subMu.Unlock()
			continue
		}
		cp.seq = seq
		if s.equal(value, cp.value) {
			s.subMu.Unlock()
			continue
		}
		cp.value = value
		listeners := append([]computedListener(nil), cp.listeners...)
		s.subMu.Unlock()

		for _, l := range listeners {
			l.fn(value)
		}
	}
}

func (s *Store) depsChanged(deps []string, state, prev State) bool {
	for _, key := range deps {
		if !s.equal(state[key], prev[key]) {
			return true
		}
	}
	return false
}
