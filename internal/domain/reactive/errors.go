package reactive

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrDisposed is returned by mutating operations after Dispose.
	ErrDisposed = errors.New("store disposed")

	// ErrTypeMismatch is returned when a write would change a key's type.
	// A key's dynamic type is fixed by its first write; there is no coercion.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDependencyCycle is returned when registering a computed value whose
	// dependency graph, directly or through other computed values, reaches
	// back to itself.
	ErrDependencyCycle = errors.New("dependency cycle")
)

// TypeError describes a rejected write against a key's fixed type.
type TypeError struct {
	Key  string
	Want reflect.Type
	Got  reflect.Type
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("key %q holds %s, rejecting write of %s", e.Key, e.Want, e.Got)
}

func (e *TypeError) Unwrap() error {
	return ErrTypeMismatch
}
