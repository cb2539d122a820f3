package store

import (
	"time"

	"github.com/google/uuid"
)

// ── Actions ───────────────────────────────────────────────────────────────────

// Action is a typed event processed by Dispatch.
type Action struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	Meta    Meta   `json:"meta"`
}

// Meta is stamped onto every dispatched action that does not carry its own.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
	ID        string    `json:"id"`
}

// Reducer returns a partial state for an action. It receives a copy of the
// current state and runs under the store lock, so it must not call the store.
type Reducer func(state State, action Action) State

// Handler processes an action. The innermost handler runs the reducer.
type Handler func(action Action) error

// API is the view of the store given to middleware.
type API interface {
	GetState() State
	SetState(patch State)
	Dispatch(action Action) error
}

// Middleware wraps the dispatch pipeline. Middleware registered first is
// outermost: it sees every action before the middleware registered after it.
//
//	func Audit(api store.API) func(next store.Handler) store.Handler {
//	    return func(next store.Handler) store.Handler {
//	        return func(a store.Action) error {
//	            log.Println("before", a.Type)
//	            return next(a)
//	        }
//	    }
//	}
type Middleware func(api API) func(next Handler) Handler

// ── Registration ──────────────────────────────────────────────────────────────

// AddReducer binds reducer to an action type, replacing any earlier reducer
// for the same type.
func (s *Store) AddReducer(actionType string, reducer Reducer) {
	if s.isDestroyed() {
		return
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.reducers[actionType] = reducer
}

// AddMiddleware appends mw to the pipeline. The pipeline is composed here
// rather than on every Dispatch.
func (s *Store) AddMiddleware(mw Middleware) {
	if s.isDestroyed() {
		return
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.middleware = append(s.middleware, mw)
	s.pipeline = s.compose()
}

// compose builds the pipeline, innermost last (must hold subMu).
func (s *Store) compose() Handler {
	h := Handler(s.reduce)
	for i := len(s.middleware) - 1; i >= 0; i-- {
		h = s.middleware[i](s)(h)
	}
	return h
}

// ── Dispatch ──────────────────────────────────────────────────────────────────

// Dispatch stamps action with Meta and passes it through the middleware
// pipeline to the reducer registered for its type. An action without a
// reducer is a no-op. Errors raised by middleware are returned as is.
//
//	err := st.Dispatch(store.Action{Type: "SET_THEME", Payload: "dark"})
func (s *Store) Dispatch(action Action) error {
	if s.isDestroyed() {
		return ErrDestroyed
	}
	if action.Meta.Timestamp.IsZero() {
		action.Meta.Timestamp = s.now()
	}
	if action.Meta.Source == "" {
		action.Meta.Source = s.source
	}
	if action.Meta.ID == "" {
		action.Meta.ID = uuid.NewString()
	}

	s.subMu.RLock()
	pipeline := s.pipeline
	s.subMu.RUnlock()

	return pipeline(action)
}

// reduce is the innermost handler.
func (s *Store) reduce(action Action) error {
	s.subMu.RLock()
	reducer, ok := s.reducers[action.Type]
	s.subMu.RUnlock()

	if !ok {
		s.log.WithField("action", action.Type).Debug("store: no reducer")
		return nil
	}

	s.apply(func(cur State) State {
		return cur.Merge(reducer(cur.Clone(), action))
	}, &action)
	return nil
}
