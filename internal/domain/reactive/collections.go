package reactive

import (
	"fmt"
)

// List is a reactive wrapper over a single store key holding a slice.
// Every mutation replaces the whole collection through Set (copy-on-write),
// so one notification per mutation reaches watchers of the key, and
// readers only ever see copies.
type List[T any] struct {
	store *Store
	key   string
}

// NewList binds a list adapter to key, creating the key with an empty
// slice on first use. The key's type is fixed to []T.
func NewList[T any](s *Store, key string) *List[T] {
	s.Get(key, []T{})
	return &List[T]{store: s, key: key}
}

// Key returns the underlying store key.
func (l *List[T]) Key() string { return l.key }

func (l *List[T]) current() []T {
	v, ok := l.store.Lookup(l.key)
	if !ok {
		return nil
	}
	items, _ := v.Data.([]T)
	return items
}

// Items returns a copy of the collection.
func (l *List[T]) Items() []T {
	return append([]T(nil), l.current()...)
}

// Len returns the number of elements.
func (l *List[T]) Len() int { return len(l.current()) }

// At returns the element at index i.
func (l *List[T]) At(i int) (T, bool) {
	items := l.current()
	if i < 0 || i >= len(items) {
		var zero T
		return zero, false
	}
	return items[i], true
}

// Add appends v to the collection.
func (l *List[T]) Add(v T) error {
	next := append(l.Items(), v)
	return l.store.Set(l.key, next)
}

// SetAt replaces the element at index i.
func (l *List[T]) SetAt(i int, v T) error {
	next := l.Items()
	if i < 0 || i >= len(next) {
		return fmt.Errorf("list %q: index %d out of range", l.key, i)
	}
	next[i] = v
	return l.store.Set(l.key, next)
}

// Remove deletes the element at index i.
func (l *List[T]) Remove(i int) error {
	next := l.Items()
	if i < 0 || i >= len(next) {
		return fmt.Errorf("list %q: index %d out of range", l.key, i)
	}
	next = append(next[:i], next[i+1:]...)
	return l.store.Set(l.key, next)
}

// Clear replaces the collection with an empty one.
func (l *List[T]) Clear() error {
	return l.store.Set(l.key, []T{})
}

// Map is a reactive wrapper over a single store key holding a map.
// Mutations are copy-on-write full-collection writes, like List.
type Map[K comparable, V any] struct {
	store *Store
	key   string
}

// NewMap binds a map adapter to key, creating the key with an empty map on
// first use. The key's type is fixed to map[K]V.
func NewMap[K comparable, V any](s *Store, key string) *Map[K, V] {
	s.Get(key, map[K]V{})
	return &Map[K, V]{store: s, key: key}
}

// Key returns the underlying store key.
func (m *Map[K, V]) Key() string { return m.key }

func (m *Map[K, V]) current() map[K]V {
	v, ok := m.store.Lookup(m.key)
	if !ok {
		return nil
	}
	items, _ := v.Data.(map[K]V)
	return items
}

// Items returns a copy of the collection.
func (m *Map[K, V]) Items() map[K]V {
	cur := m.current()
	out := make(map[K]V, len(cur))
	for k, v := range cur {
		out[k] = v
	}
	return out
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return len(m.current()) }

// Get returns the value stored under k.
func (m *Map[K, V]) Get(k K) (V, bool) {
	v, ok := m.current()[k]
	return v, ok
}

// Set assigns v to k.
func (m *Map[K, V]) Set(k K, v V) error {
	next := m.Items()
	next[k] = v
	return m.store.Set(m.key, next)
}

// Delete removes k. Deleting an absent key is a no-op write and produces
// no notification.
func (m *Map[K, V]) Delete(k K) error {
	next := m.Items()
	delete(next, k)
	return m.store.Set(m.key, next)
}

// Clear replaces the collection with an empty one.
func (m *Map[K, V]) Clear() error {
	return m.store.Set(m.key, map[K]V{})
}
