package reactive

import (
	"go.uber.org/zap"
)

// WatchFunc receives the key and its post-batch value when a flush delivers
// a change. Callbacks may call back into the store, including Set.
type WatchFunc func(key string, value any)

// FlushFunc receives every key flushed in one scheduler round, with its
// post-batch value. Used by the view layer to re-render once per batch.
type FlushFunc func(batch map[string]any)

type subscription struct {
	key     string
	fn      WatchFunc
	removed bool
}

type flushObserver struct {
	fn      FlushFunc
	removed bool
}

// Watch registers fn for changes of key and returns an idempotent
// unsubscribe. Callbacks for one key fire in registration order; order
// across keys is unspecified.
func (s *Store) Watch(key string, fn WatchFunc) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return func() {}
	}

	sub := &subscription{key: key, fn: fn}
	s.watchers[key] = append(s.watchers[key], sub)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.removeLocked(sub)
	}
}

func (s *Store) removeLocked(sub *subscription) {
	if sub.removed {
		return
	}
	sub.removed = true
	subs := s.watchers[sub.key]
	for i, cur := range subs {
		if cur == sub {
			s.watchers[sub.key] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(s.watchers[sub.key]) == 0 {
		delete(s.watchers, sub.key)
	}
}

// OnFlush registers a batch observer and returns an idempotent unsubscribe.
func (s *Store) OnFlush(fn FlushFunc) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return func() {}
	}

	obs := &flushObserver{fn: fn}
	s.observers = append(s.observers, obs)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if obs.removed {
			return
		}
		obs.removed = true
		for i, cur := range s.observers {
			if cur == obs {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				break
			}
		}
	}
}

// invoke runs one watcher callback with panic isolation. A panicking
// watcher is logged and counted; delivery to the rest of the batch
// continues.
func (s *Store) invoke(sub *subscription, key string, value any) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("watcher panicked",
				zap.String("key", key),
				zap.Any("panic", r),
			)
			s.metrics.RecordWatcherError()
			s.events.record(EventError, key, "watcher panicked")
		}
	}()
	sub.fn(key, value)
}

func (s *Store) invokeObserver(obs *flushObserver, batch map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("flush observer panicked", zap.Any("panic", r))
			s.metrics.RecordWatcherError()
		}
	}()
	obs.fn(batch)
}
