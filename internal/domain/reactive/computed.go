package reactive

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ComputeFunc derives a value from other store keys. It is evaluated once
// at registration and again whenever a dependency's batch fires.
type ComputeFunc func() (any, error)

// Computed registers key as a derived value: fn is evaluated immediately
// and its result written through the normal Set path, then every dependency
// gets an internal watcher that re-evaluates fn and re-sets key.
//
// Re-evaluation happens inside the tick that delivers the dependency
// change, so a chain of computed values settles within one flush.
//
// Structural errors are synchronous: a self-dependency or a cycle through
// other computed values fails registration with ErrDependencyCycle, and a
// failing initial evaluation aborts registration. Later evaluation failures
// are isolated: key keeps its last good value and the error is reported.
func (s *Store) Computed(key string, fn ComputeFunc, deps []string) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if _, exists := s.computedDeps[key]; exists {
		s.mu.Unlock()
		return fmt.Errorf("computed %q already registered", key)
	}
	for _, dep := range deps {
		if dep == key {
			s.mu.Unlock()
			return fmt.Errorf("computed %q depends on itself: %w", key, ErrDependencyCycle)
		}
	}
	if path := s.findCycleLocked(key, deps); path != nil {
		s.mu.Unlock()
		return fmt.Errorf("computed %q: %s: %w", key, strings.Join(path, " -> "), ErrDependencyCycle)
	}
	s.computedDeps[key] = append([]string(nil), deps...)
	s.mu.Unlock()

	value, err := safeCompute(fn)
	if err == nil {
		err = s.Set(key, value)
	}
	if err != nil {
		s.mu.Lock()
		delete(s.computedDeps, key)
		s.mu.Unlock()
		return fmt.Errorf("computed %q: %w", key, err)
	}

	recompute := func(string, any) {
		s.metrics.RecordComputedEval()
		next, cerr := safeCompute(fn)
		if cerr != nil {
			// Keep the last good value.
			s.logger.Error("computed evaluation failed",
				zap.String("key", key),
				zap.Error(cerr),
			)
			s.metrics.RecordComputeError()
			s.events.record(EventError, key, cerr.Error())
			return
		}
		if serr := s.Set(key, next); serr != nil && !errors.Is(serr, ErrDisposed) {
			s.logger.Error("computed write rejected",
				zap.String("key", key),
				zap.Error(serr),
			)
			s.metrics.RecordComputeError()
		}
	}
	for _, dep := range deps {
		s.Watch(dep, recompute)
	}
	return nil
}

// findCycleLocked walks the computed dependency graph, treating key->deps
// as a candidate edge set, and returns a path back to key if one exists.
func (s *Store) findCycleLocked(key string, deps []string) []string {
	seen := make(map[string]bool)
	var visit func(node string, trail []string) []string
	visit = func(node string, trail []string) []string {
		if node == key {
			return append(trail, node)
		}
		if seen[node] {
			return nil
		}
		seen[node] = true
		for _, next := range s.computedDeps[node] {
			if path := visit(next, append(trail, node)); path != nil {
				return path
			}
		}
		return nil
	}
	for _, dep := range deps {
		if path := visit(dep, []string{key}); path != nil {
			return path
		}
	}
	return nil
}

// safeCompute evaluates fn with panic isolation.
func safeCompute(fn ComputeFunc) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compute panicked: %v", r)
		}
	}()
	return fn()
}
