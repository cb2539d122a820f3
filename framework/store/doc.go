// Package store is the reactive state store: one flat state record, a
// dispatch pipeline (middleware, then one reducer per action type),
// field-scoped subscriptions, memoized selectors, dependency-gated computed
// properties, batching and a bounded undo history.
//
// The store knows nothing about the meaning of its fields or action types.
// Callers register reducers such as SET_THEME and subscribe to fields such
// as "online".
//
//	st := store.New(store.WithInitialState(store.State{"theme": "light"}))
//	st.AddMiddleware(store.ErrorRecorder())
//	st.AddReducer("SET_THEME", func(_ store.State, a store.Action) store.State {
//	    return store.State{"theme": a.Payload}
//	})
//	st.SubscribeKey("theme", func(v, old any, _ string) { log.Println(old, "->", v) })
//	_ = st.Dispatch(store.Action{Type: "SET_THEME", Payload: "dark"})
//
// A change is detected with == for comparable values, so two pointers to
// equal structs differ, and with reflect.DeepEqual for maps and slices.
// Replace it with WithEqual.
package store
