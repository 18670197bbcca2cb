package reactive

import (
	"time"
)

// maxFlushRounds bounds cascades caused by watchers that keep writing new
// values during delivery. Computed chains settle in a handful of rounds;
// anything hitting the cap is rescheduled onto the next tick.
const maxFlushRounds = 64

// scheduleLocked arms the tick timer if nothing else will flush the pending
// set: no timer outstanding, no open transaction, no drain in progress.
func (s *Store) scheduleLocked() {
	if s.disposed || s.txnDepth > 0 || s.flushDepth > 0 || s.timer != nil {
		return
	}
	s.timer = time.AfterFunc(s.tickInterval, s.tick)
}

// tick is the timer callback: one scheduler tick.
func (s *Store) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timer = nil
	if s.disposed || s.txnDepth > 0 {
		return
	}
	s.flushLocked()
}

// Flush forces an immediate drain of the pending set, bypassing the timer
// delay. Embedders driving their own frame loop call this instead of
// waiting for the tick.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed || s.txnDepth > 0 {
		return
	}
	s.stopTimerLocked()
	s.flushLocked()
}

// flushLocked drains the pending set and delivers notifications. Called
// with s.mu held; the lock is dropped around every callback so watchers can
// call back into the store.
//
// Keys marked pending by a callback (computed re-evaluation in particular)
// are drained in a follow-up round of the same flush, so a computed chain
// of depth N settles in one tick rather than N.
func (s *Store) flushLocked() {
	s.flushDepth++
	defer func() { s.flushDepth-- }()

	start := time.Now()
	notified := 0

	for round := 0; len(s.pending) > 0 && round < maxFlushRounds; round++ {
		batch := s.pending
		s.pending = make(map[string]struct{})

		delivered := make(map[string]any, len(batch))
		for key := range batch {
			if s.disposed {
				return
			}
			// Snapshot the subscriber list; watchers added during this
			// delivery only see future batches.
			subs := append([]*subscription(nil), s.watchers[key]...)
			delivered[key] = s.values[key].Data

			for _, sub := range subs {
				if sub.removed {
					continue
				}
				// Current value, not the value at write time.
				value := s.values[key].Data
				s.mu.Unlock()
				s.invoke(sub, key, value)
				s.mu.Lock()
				notified++
				if s.disposed {
					return
				}
			}
		}

		if len(delivered) > 0 && len(s.observers) > 0 {
			obs := append([]*flushObserver(nil), s.observers...)
			s.mu.Unlock()
			for _, o := range obs {
				if !o.removed {
					s.invokeObserver(o, delivered)
				}
			}
			s.mu.Lock()
			if s.disposed {
				return
			}
		}
	}

	// Anything still pending hit the round cap; pick it up next tick.
	// Armed directly: scheduleLocked declines while a drain is running.
	if len(s.pending) > 0 && s.timer == nil {
		s.timer = time.AfterFunc(s.tickInterval, s.tick)
	}

	s.metrics.RecordFlush(time.Since(start), notified)
	s.metrics.SetGauges(len(s.values), len(s.pending))
}
