package store

// Batch runs fn with notifications suppressed. Every write inside fn is
// applied and recorded in history as usual, but listeners, selectors and
// computed properties are notified once when the outermost Batch returns,
// with the state from before the first write as prev. Nothing is notified
// if fn made no change. The flush still happens when fn panics.
//
// Suppression covers the whole store, not just the calling goroutine.
//
//	st.Batch(func() {
//	    st.Set("count", 1)
//	    st.Set("count", 2)
//	}) // listeners see one change: 0 -> 2
func (s *Store) Batch(fn func()) {
	s.mu.Lock()
	s.batchDepth++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.batchDepth--
		var (
			flush      bool
			prev, next State
			seq        uint64
		)
		if s.batchDepth == 0 && s.batchPending {
			flush = !s.destroyed
			prev, next, seq = s.batchPrev, s.state, s.seq
			s.batchPending, s.batchPrev = false, nil
		}
		s.mu.Unlock()

		if flush {
			s.notify(prev, next, seq)
		}
	}()

	fn()
}
