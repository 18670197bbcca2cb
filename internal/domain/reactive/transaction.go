package reactive

// Transaction runs fn with the scheduler suppressed: writes inside fn
// accumulate in the pending set as usual but no tick fires. When fn
// returns, one immediate flush covers everything accumulated, bypassing the
// timer delay.
//
// The flush happens even when fn returns an error or panics; writes made
// before the failure are delivered, not rolled back. The guarantee is
// single-notification batching, not atomicity. Nested transactions flush
// once, at the outermost close.
func (s *Store) Transaction(fn func() error) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	s.txnDepth++
	s.stopTimerLocked()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.txnDepth--
		if s.txnDepth == 0 && !s.disposed {
			s.flushLocked()
		}
		s.mu.Unlock()
	}()

	return fn()
}
