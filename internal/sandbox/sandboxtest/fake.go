// Package sandboxtest provides in-memory sandbox fakes for bridge and
// server tests, replacing the wasmer engine.
package sandboxtest

import (
	"fmt"
	"sync"

	"github.com/sproutlabs/sprout/runtime/internal/sandbox"
)

// FakeMemory is a plain byte buffer implementing sandbox.Memory.
type FakeMemory struct {
	Buf []byte
}

func (m *FakeMemory) Bytes() []byte { return m.Buf }
func (m *FakeMemory) Size() uint32  { return uint32(len(m.Buf)) }

// FakeInstance implements sandbox.Instance over a FakeMemory and a map of
// callable functions.
type FakeInstance struct {
	mu     sync.Mutex
	Mem    *FakeMemory
	MemErr error
	Funcs  map[string]func(args ...any) (any, error)
	Closed int
}

// NewFakeInstance creates an instance with size bytes of zeroed memory.
func NewFakeInstance(size int) *FakeInstance {
	return &FakeInstance{
		Mem:   &FakeMemory{Buf: make([]byte, size)},
		Funcs: map[string]func(args ...any) (any, error){},
	}
}

func (f *FakeInstance) Memory() (sandbox.Memory, error) {
	if f.MemErr != nil {
		return nil, f.MemErr
	}
	return f.Mem, nil
}

func (f *FakeInstance) Call(name string, args ...any) (any, error) {
	f.mu.Lock()
	fn, ok := f.Funcs[name]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("function %q not exported", name)
	}
	return fn(args...)
}

func (f *FakeInstance) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed++
}

// Loader returns a sandbox.Loader that always yields f, ignoring bytecode.
func (f *FakeInstance) Loader() sandbox.Loader {
	return func([]byte) (sandbox.Instance, error) {
		return f, nil
	}
}

// FailingLoader returns a sandbox.Loader that always fails with err.
func FailingLoader(err error) sandbox.Loader {
	return func([]byte) (sandbox.Instance, error) {
		return nil, err
	}
}
