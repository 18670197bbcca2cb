package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by operations that need a loaded module.
	ErrNotReady = errors.New("bridge not ready")

	// ErrAlreadyLoaded is returned by Load when a module is active.
	ErrAlreadyLoaded = errors.New("module already loaded")

	// ErrFailed is returned once a load has failed; the state is terminal
	// and a fresh instance is needed to retry.
	ErrFailed = errors.New("bridge in failed state")

	// ErrDisposed is returned after Dispose.
	ErrDisposed = errors.New("bridge disposed")
)

// LoadError wraps a module instantiation failure.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("module load failed: %v", e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// BindingError describes a layout misconfiguration: a width outside
// {1,2,4,8}, a region beyond the exported memory, or two bindings
// overlapping in the address space.
type BindingError struct {
	Key    string
	Reason string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("binding %q: %s", e.Key, e.Reason)
}
