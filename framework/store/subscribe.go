package store

import (
	"maps"
	"slices"
)

// ── Subscriptions ─────────────────────────────────────────────────────────────

// Listener is notified with the new and previous state after every change.
type Listener func(state, prev State)

// KeyListener is notified when one field changes.
type KeyListener func(value, old any, key string)

// Unsubscribe removes a listener. Calling it more than once is harmless.
type Unsubscribe func()

type subscription struct {
	id uint64
	fn Listener
}

type keySubscription struct {
	id uint64
	fn KeyListener
}

type selector struct {
	id       uint64
	pick     func(State) any
	listener func(any)

	last any
	seq  uint64 // state sequence last derived from
}

// Subscribe registers a global listener.
//
//	unsub := st.Subscribe(func(state, prev store.State) { render(state) })
//	defer unsub()
func (s *Store) Subscribe(fn Listener) Unsubscribe {
	if fn == nil || s.isDestroyed() {
		return func() {}
	}
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// SubscribeKey registers a listener for one field. It fires only when the
// field's value is not equal to its previous value.
func (s *Store) SubscribeKey(key string, fn KeyListener) Unsubscribe {
	if fn == nil || s.isDestroyed() {
		return func() {}
	}
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.keyListeners[key] = append(s.keyListeners[key], keySubscription{id: id, fn: fn})
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		subs := s.keyListeners[key]
		for i, sub := range subs {
			if sub.id == id {
				subs = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(subs) == 0 {
			delete(s.keyListeners, key)
			return
		}
		s.keyListeners[key] = subs
	}
}

// SubscribeToProperty is SubscribeKey with a value-only callback.
func (s *Store) SubscribeToProperty(key string, fn func(value any)) Unsubscribe {
	if fn == nil {
		return func() {}
	}
	return s.SubscribeKey(key, func(value, _ any, _ string) { fn(value) })
}

// CreateSelector derives a value from the state. listener is called once
// immediately with the current value, then after any change that makes the
// derived value differ from the last one delivered.
func (s *Store) CreateSelector(pick func(State) any, listener func(any)) Unsubscribe {
	if pick == nil || listener == nil || s.isDestroyed() {
		return func() {}
	}
	cur, seq := s.snapshot()
	initial := pick(cur.Clone())
	sel := &selector{pick: pick, listener: listener, last: initial, seq: seq}

	s.subMu.Lock()
	s.nextID++
	sel.id = s.nextID
	s.selectors = append(s.selectors, sel)
	s.subMu.Unlock()

	listener(initial)

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, other := range s.selectors {
			if other.id == sel.id {
				s.selectors = append(s.selectors[:i:i], s.selectors[i+1:]...)
				return
			}
		}
	}
}

// ── Notification passes ───────────────────────────────────────────────────────

// notifyListeners calls the global listeners, then the field listeners in
// key order. state and prev are never handed out directly.
func (s *Store) notifyListeners(state, prev State) {
	s.subMu.RLock()
	global := append([]subscription(nil), s.listeners...)
	keyed := make(map[string][]keySubscription, len(s.keyListeners))
	for key, subs := range s.keyListeners {
		keyed[key] = append([]keySubscription(nil), subs...)
	}
	s.subMu.RUnlock()

	for _, sub := range global {
		sub.fn(state.Clone(), prev.Clone())
	}
	for _, key := range slices.Sorted(maps.Keys(keyed)) {
		value, old := state[key], prev[key]
		if s.equal(value, old) {
			continue
		}
		for _, sub := range keyed[key] {
			sub.fn(value, old, key)
		}
	}
}

func (s *Store) notifySelectors(state State, seq uint64) {
	s.subMu.RLock()
	selectors := append([]*selector(nil), s.selectors...)
	s.subMu.RUnlock()

	for _, sel := range selectors {
		value := sel.pick(state.Clone())

		s.subMu.Lock()
		if seq < sel.seq {
			s.subMu.Unlock()
			continue
		}
		sel.seq = seq
		changed := !s.equal(value, sel.last)
		if changed {
			sel.last = value
		}
		s.subMu.Unlock()

		if changed {
			sel.listener(value)
		}
	}
}
