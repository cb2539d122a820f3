package store

import (
	"errors"
	"io"
	"maps"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultHistoryLimit is the number of snapshots kept for Undo.
const DefaultHistoryLimit = 50

// ErrDestroyed is returned by Dispatch once Destroy has been called.
var ErrDestroyed = errors.New("store: destroyed")

// ── State ─────────────────────────────────────────────────────────────────────

// State is a flat record of named fields. A State held by the store is never
// mutated in place: every write produces a new map, which is what makes
// change detection between a previous and a next State valid.
type State map[string]any

// Clone returns a shallow copy.
func (s State) Clone() State {
	out := make(State, len(s))
	maps.Copy(out, s)
	return out
}

// Merge returns a shallow copy of s with patch applied on top.
func (s State) Merge(patch State) State {
	out := make(State, len(s)+len(patch))
	maps.Copy(out, s)
	maps.Copy(out, patch)
	return out
}

// ── Store ─────────────────────────────────────────────────────────────────────

// Store holds a single state object and notifies subscribers of changes.
//
// It supports:
//   - GetState / SetState / RemoveState / Reset
//   - Dispatch through middleware to one reducer per action type
//   - Subscribe (global and per field), selectors and computed properties
//   - Batch (one notification cycle for many writes)
//   - Undo over a bounded history
//
// Every method is synchronous. Notification callbacks run on the writer's
// goroutine after the store lock is released, so they may write to the store
// themselves. A panicking callback propagates out of SetState or Dispatch.
//
// Writes from several goroutines are safe, but their notifications are not
// ordered: a listener may see an older change after a newer one. Selectors
// and computed properties never move back to a value derived from an older
// state than the one they already hold. Callbacks that need a total order
// should write from a single goroutine.
type Store struct {
	mu      sync.Mutex
	state   State
	seq     uint64 // bumped on every change of state
	initial State
	history *ring

	// batch suppression
	batchDepth   int
	batchPending bool
	batchPrev    State

	destroyed bool

	subMu        sync.RWMutex
	nextID       uint64
	listeners    []subscription
	keyListeners map[string][]keySubscription
	selectors    []*selector
	computed     map[string]*computedProperty
	computedSeq  []string
	reducers     map[string]Reducer
	middleware   []Middleware
	pipeline     Handler

	equal  func(a, b any) bool
	now    func() time.Time
	source string
	log    logrus.FieldLogger
}

// Option configures a Store.
type Option func(*Store)

// WithInitialState sets the state the store starts from and Reset returns to.
func WithInitialState(initial State) Option {
	return func(s *Store) { s.initial = initial.Clone() }
}

// WithHistoryLimit caps the undo history. Values below 2 fall back to the default.
func WithHistoryLimit(limit int) Option {
	return func(s *Store) {
		if limit >= 2 {
			s.history = newRing(limit)
		}
	}
}

// WithEqual replaces the change-detection comparison.
func WithEqual(equal func(a, b any) bool) Option {
	return func(s *Store) { s.equal = equal }
}

// WithClock replaces time.Now for action and history timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithActionSource sets the Meta.Source stamped on actions dispatched without one.
func WithActionSource(source string) Option {
	return func(s *Store) { s.source = source }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) { s.log = log }
}

// New creates a store. The initial state is the first history entry.
//
//	st := store.New(store.WithInitialState(store.State{"theme": "light", "online": true}))
func New(opts ...Option) *Store {
	s := &Store{
		initial:      State{},
		keyListeners: make(map[string][]keySubscription),
		computed:     make(map[string]*computedProperty),
		reducers:     make(map[string]Reducer),
		equal:        defaultEqual,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.history == nil {
		s.history = newRing(DefaultHistoryLimit)
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}
	s.state = s.initial.Clone()
	s.history.push(HistoryEntry{State: s.state, Timestamp: s.now()})
	s.pipeline = s.compose()
	return s
}

// ── Reads ─────────────────────────────────────────────────────────────────────

// GetState returns a shallow copy of the whole state.
func (s *Store) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Get returns one field, nil when absent.
func (s *Store) Get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[key]
}

// GetOr returns one field, or def when the field is absent.
func (s *Store) GetOr(key string, def any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.state[key]; ok {
		return v
	}
	return def
}

// ── Writes ────────────────────────────────────────────────────────────────────

// SetState shallow-merges patch into the state, records a history entry and
// runs the notification passes: listeners, selectors, computed properties.
//
//	st.SetState(store.State{"theme": "dark"})
func (s *Store) SetState(patch State) {
	s.apply(func(cur State) State { return cur.Merge(patch) }, nil)
}

// Set writes a single field.
func (s *Store) Set(key string, value any) {
	s.SetState(State{key: value})
}

// RemoveState deletes a field. Field listeners see (nil, old).
func (s *Store) RemoveState(key string) {
	s.apply(func(cur State) State {
		next := cur.Clone()
		delete(next, key)
		return next
	}, nil)
}

// Reset merges the initial state, then patch, over the current state. It
// does not replace the state wholesale: fields unknown to the initial state
// and absent from patch keep their current values.
func (s *Store) Reset(patch State) {
	s.apply(func(cur State) State { return cur.Merge(s.initial).Merge(patch) }, nil)
}

// apply runs mutate under the lock, records history and notifies.
// mutate must return a new map and must not call back into the store.
func (s *Store) apply(mutate func(cur State) State, action *Action) {
	prev, next, seq, notify := s.commit(mutate, action)
	if notify {
		s.notify(prev, next, seq)
	}
}

// commit swaps in the state built by mutate. A panic in mutate leaves the
// state untouched and releases the lock on the way out.
func (s *Store) commit(mutate func(cur State) State, action *Action) (prev, next State, seq uint64, notify bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil, nil, 0, false
	}
	prev = s.state
	next = mutate(prev)
	s.state = next
	s.seq++
	s.record(next, action)
	return prev, next, s.seq, s.holdLocked(prev)
}

// snapshot returns the current state and its sequence number. The map is
// shared: callers must not mutate it.
func (s *Store) snapshot() (State, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.seq
}

// holdLocked reports whether a change from prev should be notified now.
// Inside a batch it captures the first prev instead (must hold mu).
func (s *Store) holdLocked(prev State) bool {
	if s.batchDepth == 0 {
		return true
	}
	if !s.batchPending {
		s.batchPending = true
		s.batchPrev = prev
	}
	return false
}

// notify runs the three passes in order. seq identifies next; passes for a
// state older than the one a selector or computed property already holds
// leave it alone. Every callback gets its own copy of the state.
func (s *Store) notify(prev, next State, seq uint64) {
	s.notifyListeners(next, prev)
	s.notifySelectors(next, seq)
	s.notifyComputed(next, prev, seq)
}

// ── Teardown ──────────────────────────────────────────────────────────────────

// Destroy clears listeners, selectors, computed properties, reducers,
// middleware and history. The store is not reusable afterwards: writes are
// ignored and Dispatch returns ErrDestroyed.
func (s *Store) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.history.clear()
	s.batchPending, s.batchPrev = false, nil
	s.mu.Unlock()

	s.subMu.Lock()
	s.listeners = nil
	s.keyListeners = make(map[string][]keySubscription)
	s.selectors = nil
	s.computed = make(map[string]*computedProperty)
	s.computedSeq = nil
	s.reducers = make(map[string]Reducer)
	s.middleware = nil
	s.pipeline = func(Action) error { return ErrDestroyed }
	s.subMu.Unlock()

	s.log.Debug("store: destroyed")
}

func (s *Store) isDestroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}
