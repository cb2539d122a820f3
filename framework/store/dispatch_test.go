package store_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/portal-runtime/framework/store"
)

func increment(s store.State, a store.Action) store.State {
	by, ok := a.Payload.(int)
	if !ok {
		by = 1
	}
	return store.State{"count": s["count"].(int) + by}
}

func TestDispatch_RunsReducer(t *testing.T) {
	st := newCounter(t)
	st.AddReducer("INC", increment)

	require.NoError(t, st.Dispatch(store.Action{Type: "INC", Payload: 2}))

	assert.Equal(t, 2, st.Get("count"))
}

func TestDispatch_UnknownTypeIsNoop(t *testing.T) {
	st := newCounter(t)
	calls := 0
	st.Subscribe(func(store.State, store.State) { calls++ })

	require.NoError(t, st.Dispatch(store.Action{Type: "NOPE"}))

	assert.Zero(t, calls)
	assert.Len(t, st.History(), 1)
}

func TestDispatch_LastReducerWins(t *testing.T) {
	st := newCounter(t)
	st.AddReducer("SET", func(store.State, store.Action) store.State { return store.State{"count": 1} })
	st.AddReducer("SET", func(store.State, store.Action) store.State { return store.State{"count": 2} })

	require.NoError(t, st.Dispatch(store.Action{Type: "SET"}))

	assert.Equal(t, 2, st.Get("count"))
}

func TestDispatch_StampsMeta(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := newCounter(t, store.WithClock(func() time.Time { return at }), store.WithActionSource("portal"))
	st.AddReducer("INC", increment)

	require.NoError(t, st.Dispatch(store.Action{Type: "INC"}))
	require.NoError(t, st.Dispatch(store.Action{Type: "INC", Meta: store.Meta{Source: "admin", ID: "fixed"}}))

	h := st.History()
	require.Len(t, h, 3)

	first := h[1].Action
	require.NotNil(t, first)
	assert.Equal(t, "INC", first.Type)
	assert.Equal(t, at, first.Meta.Timestamp)
	assert.Equal(t, "portal", first.Meta.Source)
	assert.Len(t, first.Meta.ID, 36)

	second := h[2].Action
	assert.Equal(t, "admin", second.Meta.Source)
	assert.Equal(t, "fixed", second.Meta.ID)
	assert.NotEqual(t, first.Meta.ID, second.Meta.ID)
}

func TestDispatch_MiddlewareOrder(t *testing.T) {
	st := newCounter(t)
	st.AddReducer("INC", increment)

	var trace []string
	tag := func(name string) store.Middleware {
		return func(store.API) func(store.Handler) store.Handler {
			return func(next store.Handler) store.Handler {
				return func(a store.Action) error {
					trace = append(trace, name+">")
					err := next(a)
					trace = append(trace, "<"+name)
					return err
				}
			}
		}
	}
	st.AddMiddleware(tag("first"))
	st.AddMiddleware(tag("second"))
	st.Subscribe(func(store.State, store.State) { trace = append(trace, "reduce") })

	require.NoError(t, st.Dispatch(store.Action{Type: "INC"}))

	assert.Equal(t, []string{"first>", "second>", "reduce", "<second", "<first"}, trace)
}

func TestDispatch_MiddlewareErrorReturned(t *testing.T) {
	st := newCounter(t)
	st.AddReducer("INC", increment)
	errBlocked := errors.New("blocked")
	st.AddMiddleware(func(store.API) func(store.Handler) store.Handler {
		return func(store.Handler) store.Handler {
			return func(store.Action) error { return errBlocked }
		}
	})

	assert.ErrorIs(t, st.Dispatch(store.Action{Type: "INC"}), errBlocked)
	assert.Equal(t, 0, st.Get("count"))
}

func TestDispatch_MiddlewareCanRedispatch(t *testing.T) {
	st := newCounter(t)
	st.AddReducer("INC", increment)
	st.AddReducer("DOUBLE_INC", func(s store.State, _ store.Action) store.State { return nil })
	st.AddMiddleware(func(api store.API) func(store.Handler) store.Handler {
		return func(next store.Handler) store.Handler {
			return func(a store.Action) error {
				if a.Type == "DOUBLE_INC" {
					if err := api.Dispatch(store.Action{Type: "INC"}); err != nil {
						return err
					}
					return api.Dispatch(store.Action{Type: "INC"})
				}
				return next(a)
			}
		}
	})

	require.NoError(t, st.Dispatch(store.Action{Type: "DOUBLE_INC"}))

	assert.Equal(t, 2, st.Get("count"))
}

func TestDispatch_ConcurrentReducersDoNotLoseUpdates(t *testing.T) {
	st := newCounter(t)
	st.AddReducer("INC", increment)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, st.Dispatch(store.Action{Type: "INC"}))
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, st.Get("count"))
}

func TestDispatch_ConcurrentWritersLeaveDerivedValuesCurrent(t *testing.T) {
	st := newCounter(t)
	st.AddReducer("INC", increment)
	st.CreateComputed("double", func(s store.State) any {
		return s["count"].(int) * 2
	}, []string{"count"}, nil)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, st.Dispatch(store.Action{Type: "INC"}))
		}()
	}
	wg.Wait()

	v, ok := st.Computed("double")
	require.True(t, ok)
	assert.Equal(t, 200, v)
}

func TestDispatch_ReducerPanicLeavesStoreUsable(t *testing.T) {
	st := newCounter(t)
	st.AddReducer("BAD", func(store.State, store.Action) store.State { panic("bad payload") })

	assert.PanicsWithValue(t, "bad payload", func() {
		_ = st.Dispatch(store.Action{Type: "BAD"})
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		st.Set("count", 1)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("store still locked after reducer panic")
	}

	assert.Equal(t, 1, st.Get("count"))
	assert.Equal(t, 2, st.HistorySize(), "the failed action left no history entry")
}
