package reactive

import (
	"reflect"
	"sync"
	"time"

	"github.com/sproutlabs/sprout/runtime/internal/infrastructure/logging"
	"github.com/sproutlabs/sprout/runtime/internal/infrastructure/monitoring"
)

// DefaultTickInterval is the batch scheduler delay: one frame at 60Hz.
const DefaultTickInterval = 16 * time.Millisecond

// Options configures a Store. Zero values fall back to defaults.
type Options struct {
	TickInterval time.Duration
	Logger       *logging.Logger
	Metrics      *monitoring.Metrics
}

// Store is a keyed reactive value store with batched change notification.
// Created once per runtime instance; safe for use from multiple goroutines.
type Store struct {
	mu           sync.Mutex
	values       map[string]Value
	types        map[string]reflect.Type
	watchers     map[string][]*subscription
	observers    []*flushObserver
	computedDeps map[string][]string
	pending      map[string]struct{}

	timer        *time.Timer
	tickInterval time.Duration
	flushDepth   int
	txnDepth     int
	disposed     bool

	logger  *logging.Logger
	metrics *monitoring.Metrics
	events  eventLog
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Store{
		values:       make(map[string]Value),
		types:        make(map[string]reflect.Type),
		watchers:     make(map[string][]*subscription),
		computedDeps: make(map[string][]string),
		pending:      make(map[string]struct{}),
		tickInterval: opts.TickInterval,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
	}
}

// Get returns the value for key, creating it with def on first access.
// Creation through Get never notifies watchers. After Dispose, Get returns
// def without creating anything.
func (s *Store) Get(key string, def any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.values[key]; ok {
		return v.Data
	}
	if s.disposed {
		return def
	}

	s.values[key] = Value{Data: def, LastUpdated: time.Now()}
	if def != nil {
		s.types[key] = reflect.TypeOf(def)
	}
	return def
}

// Lookup returns the full value snapshot for key, if present.
func (s *Store) Lookup(key string) (Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	return v, ok
}

// Set writes value under key. Writes equal to the current value are
// discarded without waking the scheduler. An effective write replaces the
// snapshot, marks the key pending and arms the next tick.
//
// A key's dynamic type is fixed by its first write; a later write of a
// different type fails with ErrTypeMismatch. Reads immediately after Set
// observe the new value, before any flush.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(key, value)
}

func (s *Store) setLocked(key string, value any) error {
	if s.disposed {
		return ErrDisposed
	}
	if err := s.checkTypeLocked(key, value); err != nil {
		return err
	}

	if cur, ok := s.values[key]; ok && equalValues(cur.Data, value) {
		s.metrics.RecordNoopWrite()
		return nil
	}

	s.values[key] = Value{Data: value, LastUpdated: time.Now()}
	if _, fixed := s.types[key]; !fixed && value != nil {
		s.types[key] = reflect.TypeOf(value)
	}
	s.pending[key] = struct{}{}

	s.metrics.RecordWrite()
	s.metrics.SetGauges(len(s.values), len(s.pending))
	s.events.record(EventStateUpdated, key, "")

	s.scheduleLocked()
	return nil
}

// checkTypeLocked enforces the fixed-type policy. Untyped nil writes are
// exempt: they carry no dynamic type to compare.
func (s *Store) checkTypeLocked(key string, value any) error {
	if value == nil {
		return nil
	}
	want, ok := s.types[key]
	if !ok {
		return nil
	}
	got := reflect.TypeOf(value)
	if want != got {
		return &TypeError{Key: key, Want: want, Got: got}
	}
	return nil
}

// Snapshot returns a copy of the current key/value mapping. The persistence
// collaborator treats this as an opaque blob.
func (s *Store) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v.Data
	}
	return out
}

// Stats reports store occupancy.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	watchers := 0
	for _, subs := range s.watchers {
		watchers += len(subs)
	}
	return Stats{
		ValueCount:     len(s.values),
		WatcherCount:   watchers,
		ComputedCount:  len(s.computedDeps),
		PendingUpdates: len(s.pending),
		Disposed:       s.disposed,
	}
}

// Stats describes the observable state of a store.
type Stats struct {
	ValueCount     int  `json:"value_count"`
	WatcherCount   int  `json:"watcher_count"`
	ComputedCount  int  `json:"computed_count"`
	PendingUpdates int  `json:"pending_updates"`
	Disposed       bool `json:"disposed"`
}

// Clear cancels any scheduled tick and drops all values and pending
// notifications. Watcher and computed registrations survive; keys are
// recreated and types re-fixed by the next write.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return
	}
	s.stopTimerLocked()
	s.values = make(map[string]Value)
	s.types = make(map[string]reflect.Type)
	s.pending = make(map[string]struct{})
	s.metrics.SetGauges(0, 0)
}

// Dispose tears the store down: the pending tick is cancelled, pending
// notifications are dropped, and all watcher and computed registrations are
// cleared. Every later mutation is a no-op. Safe to call more than once.
func (s *Store) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return
	}
	s.disposed = true
	s.stopTimerLocked()
	s.pending = make(map[string]struct{})
	s.watchers = make(map[string][]*subscription)
	s.observers = nil
	s.computedDeps = make(map[string][]string)
	s.metrics.SetGauges(0, 0)
}

// Disposed reports whether Dispose has been called.
func (s *Store) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Events returns the bounded execution event log, oldest first.
func (s *Store) Events() []Event {
	return s.events.snapshot()
}

// RecordEvent appends an event to the execution log. Used by the bridge and
// the instance facade for module and call lifecycle events.
func (s *Store) RecordEvent(kind EventKind, key, detail string) {
	s.events.record(kind, key, detail)
}

func (s *Store) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
