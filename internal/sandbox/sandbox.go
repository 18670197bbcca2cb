package sandbox

import (
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
)

// Memory is a view over an instance's exported linear memory. Bytes
// returns the live buffer backing the sandbox's address space; readers
// must treat offsets beyond Size as out of range.
type Memory interface {
	Bytes() []byte
	Size() uint32
}

// Instance is a loaded module inside the sandbox.
type Instance interface {
	// Memory returns the module's exported linear memory.
	Memory() (Memory, error)
	// Call invokes an exported function by name.
	Call(name string, args ...any) (any, error)
	// Close releases the instance. Safe to call more than once.
	Close()
}

// Loader instantiates a compiled module. The bridge takes a Loader so
// tests can substitute fakes for the wasmer engine.
type Loader func(bytecode []byte) (Instance, error)

// Load instantiates bytecode in a fresh wasmer engine and store.
func Load(bytecode []byte) (Instance, error) {
	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)

	module, err := wasmer.NewModule(store, bytecode)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("compiling module: %w", err)
	}

	instance, err := wasmer.NewInstance(module, wasmer.NewImportObject())
	if err != nil {
		module.Close()
		store.Close()
		return nil, fmt.Errorf("instantiating module: %w", err)
	}

	return &wasmInstance{
		store:    store,
		module:   module,
		instance: instance,
	}, nil
}

type wasmInstance struct {
	store    *wasmer.Store
	module   *wasmer.Module
	instance *wasmer.Instance
	closed   bool
}

func (w *wasmInstance) Memory() (Memory, error) {
	mem, err := w.instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, fmt.Errorf("module exports no memory: %w", err)
	}
	return &wasmMemory{mem: mem}, nil
}

func (w *wasmInstance) Call(name string, args ...any) (any, error) {
	fn, err := w.instance.Exports.GetFunction(name)
	if err != nil {
		return nil, fmt.Errorf("function %q not exported: %w", name, err)
	}
	result, err := fn(args...)
	if err != nil {
		return nil, fmt.Errorf("calling %q: %w", name, err)
	}
	return result, nil
}

func (w *wasmInstance) Close() {
	if w.closed {
		return
	}
	w.closed = true
	w.instance.Close()
	w.module.Close()
	w.store.Close()
}

type wasmMemory struct {
	mem *wasmer.Memory
}

func (m *wasmMemory) Bytes() []byte {
	return m.mem.Data()
}

func (m *wasmMemory) Size() uint32 {
	return uint32(m.mem.DataSize())
}
