package expr

import (
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// DefaultTimeout bounds one expression evaluation.
const DefaultTimeout = 100 * time.Millisecond

// Evaluator runs expressions in a sandboxed goja VM. One evaluator is
// shared per runtime instance; evaluations are serialized.
type Evaluator struct {
	mu      sync.Mutex
	vm      *goja.Runtime
	timeout time.Duration
}

// New creates a sandboxed evaluator. A timeout of zero means DefaultTimeout.
func New(timeout time.Duration) *Evaluator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	e := &Evaluator{
		vm:      goja.New(),
		timeout: timeout,
	}
	e.hardenVM()
	return e
}

// hardenVM strips globals an expression has no business touching.
func (e *Evaluator) hardenVM() {
	e.vm.Set("require", goja.Undefined())
	e.vm.Set("process", goja.Undefined())
	e.vm.Set("module", goja.Undefined())
	e.vm.Set("exports", goja.Undefined())
	e.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	e.vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	e.vm.SetMaxCallStackSize(1024)
}

// Eval evaluates src with scope entries bound as globals and returns the
// exported result. Scope globals are cleared again before returning so one
// evaluation cannot leak values into the next.
func (e *Evaluator) Eval(src string, scope map[string]any) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for name, value := range scope {
		if err := e.vm.Set(name, value); err != nil {
			return nil, fmt.Errorf("binding %q: %w", name, err)
		}
	}
	defer func() {
		for name := range scope {
			e.vm.Set(name, goja.Undefined())
		}
	}()

	timer := time.AfterFunc(e.timeout, func() {
		e.vm.Interrupt("expression timeout exceeded")
	})
	defer timer.Stop()
	defer e.vm.ClearInterrupt()

	val, err := e.vm.RunString(src)
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", src, err)
	}
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, nil
	}
	return val.Export(), nil
}
