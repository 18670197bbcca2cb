package bridge

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sproutlabs/sprout/runtime/internal/domain/reactive"
	"github.com/sproutlabs/sprout/runtime/internal/infrastructure/logging"
	"github.com/sproutlabs/sprout/runtime/internal/infrastructure/monitoring"
	"github.com/sproutlabs/sprout/runtime/internal/infrastructure/resilience"
	"github.com/sproutlabs/sprout/runtime/internal/sandbox"
)

// DefaultPollInterval is the fallback memory sampling interval.
const DefaultPollInterval = 32 * time.Millisecond

// State is the bridge lifecycle state.
type State int32

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options configures a Bridge. Zero values fall back to defaults; a nil
// Loader means the wasmer engine.
type Options struct {
	PollInterval time.Duration
	CallTimeout  time.Duration
	// MaxMemory rejects modules whose exported memory exceeds this many
	// bytes. Zero means unlimited.
	MaxMemory uint32
	Loader    sandbox.Loader
	Logger    *logging.Logger
	Metrics   *monitoring.Metrics
}

// Bridge binds store keys to byte ranges of a sandboxed module's memory.
type Bridge struct {
	mu    sync.Mutex
	state State

	store  *reactive.Store
	loader sandbox.Loader
	inst   sandbox.Instance
	mem    sandbox.Memory

	layout []Binding
	// shadow holds the last value synced in either direction per key,
	// breaking the pull->notify->push->pull echo loop.
	shadow map[string]any

	pollInterval time.Duration
	callTimeout  time.Duration
	maxMemory    uint32
	breaker      *resilience.Breaker
	done         chan struct{}
	unsubs       []func()

	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// New creates a bridge over store. The bridge starts Unloaded.
func New(store *reactive.Store, opts Options) *Bridge {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Loader == nil {
		opts.Loader = sandbox.Load
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	b := &Bridge{
		state:        StateUnloaded,
		store:        store,
		loader:       opts.Loader,
		shadow:       make(map[string]any),
		pollInterval: opts.PollInterval,
		callTimeout:  opts.CallTimeout,
		maxMemory:    opts.MaxMemory,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
	}
	b.breaker = resilience.New("sandbox", resilience.Settings{
		OnStateChange: func(name string, from, to resilience.State) {
			b.logger.Warn("circuit state changed",
				zap.String("circuit", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return b
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Load instantiates bytecode in the sandbox, validates layout against the
// exported memory, seeds the store from initial, pushes seeded values into
// their bound regions and starts the poll loop.
//
// A failed load leaves no partial bindings active: the state moves to
// Failed (terminal) and the instance, if created, is released.
func (b *Bridge) Load(bytecode []byte, layout []Binding, initial map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateUnloaded:
	case StateReady, StateLoading:
		return ErrAlreadyLoaded
	case StateFailed:
		return ErrFailed
	case StateDisposed:
		return ErrDisposed
	}
	b.state = StateLoading

	inst, err := b.loader(bytecode)
	if err != nil {
		b.state = StateFailed
		return &LoadError{Err: err}
	}

	mem, err := inst.Memory()
	if err != nil {
		inst.Close()
		b.state = StateFailed
		return &LoadError{Err: err}
	}

	if b.maxMemory > 0 && mem.Size() > b.maxMemory {
		inst.Close()
		b.state = StateFailed
		return &LoadError{Err: fmt.Errorf("module memory %d bytes exceeds limit %d", mem.Size(), b.maxMemory)}
	}

	if err := validateLayout(layout, mem.Size()); err != nil {
		inst.Close()
		b.state = StateFailed
		return err
	}

	if err := b.seed(layout, initial); err != nil {
		inst.Close()
		b.state = StateFailed
		return &LoadError{Err: err}
	}

	b.inst = inst
	b.mem = mem
	b.layout = append([]Binding(nil), layout...)

	if err := b.primeBindings(); err != nil {
		b.inst = nil
		b.mem = nil
		b.layout = nil
		inst.Close()
		b.state = StateFailed
		return err
	}

	for i := range b.layout {
		binding := b.layout[i]
		unsub := b.store.Watch(binding.Key, func(_ string, value any) {
			b.push(binding, value)
		})
		b.unsubs = append(b.unsubs, unsub)
	}

	b.done = make(chan struct{})
	go b.pollLoop(b.done)

	b.state = StateReady
	b.metrics.RecordModuleLoaded()
	b.store.RecordEvent(reactive.EventModuleLoaded, "", fmt.Sprintf("%d bindings", len(layout)))
	b.logger.Info("module loaded",
		zap.Int("bindings", len(layout)),
		zap.Uint32("memory_bytes", mem.Size()),
	)
	return nil
}

// seed writes the compiler's initial state in one transaction, so watchers
// registered before Load see a single batch. Values destined for a bound
// key are canonicalized through the binding's codec first; otherwise the
// seeded type (int, float64 from JSON) would conflict with what the first
// pull cycle writes.
func (b *Bridge) seed(layout []Binding, initial map[string]any) error {
	if len(initial) == 0 {
		return nil
	}
	bound := make(map[string]Binding, len(layout))
	for i := range layout {
		bound[layout[i].Key] = layout[i]
	}
	return b.store.Transaction(func() error {
		for key, value := range initial {
			if binding, ok := bound[key]; ok {
				if canon, ok := binding.codec().(Canonicalizer); ok {
					v, err := canon.Canonicalize(value, binding.Width)
					if err != nil {
						return fmt.Errorf("seeding %q: %w", key, err)
					}
					value = v
				}
			}
			if err := b.store.Set(key, value); err != nil {
				return fmt.Errorf("seeding %q: %w", key, err)
			}
		}
		return nil
	})
}

// CanonicalValue maps value to the canonical type of key's binding. The
// second return is false when key is unbound or its codec has no canonical
// form; callers then use the value as given.
func (b *Bridge) CanonicalValue(key string, value any) (any, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.layout {
		if b.layout[i].Key != key {
			continue
		}
		canon, ok := b.layout[i].codec().(Canonicalizer)
		if !ok {
			return nil, false, nil
		}
		v, err := canon.Canonicalize(value, b.layout[i].Width)
		if err != nil {
			return nil, false, &BindingError{Key: key, Reason: err.Error()}
		}
		return v, true, nil
	}
	return nil, false, nil
}

// primeBindings reconciles each binding once at load time: keys the store
// already holds are pushed into memory; everything else is pulled out of
// the module's data segment into the store.
func (b *Bridge) primeBindings() error {
	for i := range b.layout {
		binding := &b.layout[i]
		region := b.region(binding)

		if v, ok := b.store.Lookup(binding.Key); ok {
			if err := binding.codec().Encode(v.Data, region); err != nil {
				return &BindingError{Key: binding.Key, Reason: fmt.Sprintf("initial value not encodable: %v", err)}
			}
			b.shadow[binding.Key] = v.Data
			continue
		}

		value, err := binding.codec().Decode(region)
		if err != nil {
			return &BindingError{Key: binding.Key, Reason: fmt.Sprintf("initial region not decodable: %v", err)}
		}
		b.shadow[binding.Key] = value
		if err := b.store.Set(binding.Key, value); err != nil {
			return &BindingError{Key: binding.Key, Reason: fmt.Sprintf("initial value rejected: %v", err)}
		}
	}
	return nil
}

func (b *Bridge) region(binding *Binding) []byte {
	buf := b.mem.Bytes()
	return buf[binding.Offset : binding.Offset+binding.Width]
}

// pollLoop samples bound memory until the bridge is disposed.
func (b *Bridge) pollLoop(done chan struct{}) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			b.Sync()
		}
	}
}

// Sync runs one pull cycle: every bound region is decoded and, where the
// decoded value differs from the last synced one, written into the store.
// Exposed so hosts with a real change-notification hook can sync on demand
// instead of waiting for the next poll.
func (b *Bridge) Sync() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateReady {
		return
	}

	pulled := 0
	for i := range b.layout {
		binding := &b.layout[i]
		value, err := binding.codec().Decode(b.region(binding))
		if err != nil {
			b.logger.Error("binding decode failed",
				zap.String("key", binding.Key),
				zap.Error(err),
			)
			b.metrics.RecordBridgeError()
			continue
		}
		if reflect.DeepEqual(b.shadow[binding.Key], value) {
			continue
		}
		b.shadow[binding.Key] = value
		if err := b.store.Set(binding.Key, value); err != nil {
			b.logger.Error("pulled value rejected by store",
				zap.String("key", binding.Key),
				zap.Error(err),
			)
			b.metrics.RecordBridgeError()
			continue
		}
		pulled++
	}
	b.metrics.RecordPoll(pulled)
}

// push writes a flushed store value into its bound region.
func (b *Bridge) push(binding Binding, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateReady {
		return
	}
	if reflect.DeepEqual(b.shadow[binding.Key], value) {
		return
	}
	if err := binding.codec().Encode(value, b.region(&binding)); err != nil {
		b.logger.Error("binding encode failed",
			zap.String("key", binding.Key),
			zap.Error(err),
		)
		b.metrics.RecordBridgeError()
		return
	}
	b.shadow[binding.Key] = value
	b.metrics.RecordPush()
}

// CallFunction invokes an exported function in the sandbox. Failures are
// reported to the caller and the diagnostics sink; they never tear the
// bridge down. Repeated consecutive failures trip a circuit breaker that
// fails subsequent calls fast until the sandbox proves healthy again.
func (b *Bridge) CallFunction(name string, args ...any) (any, error) {
	b.mu.Lock()
	if b.state != StateReady {
		state := b.state
		b.mu.Unlock()
		switch state {
		case StateDisposed:
			return nil, ErrDisposed
		case StateFailed:
			return nil, ErrFailed
		default:
			return nil, ErrNotReady
		}
	}
	inst := b.inst
	timeout := b.callTimeout
	b.mu.Unlock()

	result, err := b.breaker.Execute(func() (any, error) {
		return callWithTimeout(inst, name, args, timeout)
	})
	b.metrics.RecordFunctionCall(name, err)
	if err != nil {
		b.logger.Error("sandbox call failed",
			zap.String("function", name),
			zap.Error(err),
		)
		b.metrics.RecordBridgeError()
		b.store.RecordEvent(reactive.EventError, "", fmt.Sprintf("call %s: %v", name, err))
		return nil, err
	}
	b.store.RecordEvent(reactive.EventFunctionCalled, "", name)
	return result, nil
}

// callWithTimeout bounds a sandbox call. The sandbox has no interrupt
// primitive, so a timed-out call keeps running on its goroutine until it
// returns on its own; the caller just stops waiting.
func callWithTimeout(inst sandbox.Instance, name string, args []any, timeout time.Duration) (any, error) {
	if timeout <= 0 {
		return inst.Call(name, args...)
	}

	type outcome struct {
		value any
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		value, err := inst.Call(name, args...)
		ch <- outcome{value: value, err: err}
	}()

	select {
	case out := <-ch:
		return out.value, out.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("call %q timed out after %s", name, timeout)
	}
}

// Dispose stops the poll loop, removes the push watchers and releases the
// sandbox instance. Safe to call multiple times.
func (b *Bridge) Dispose() {
	b.mu.Lock()
	if b.state == StateDisposed {
		b.mu.Unlock()
		return
	}
	b.state = StateDisposed
	done := b.done
	b.done = nil
	inst := b.inst
	b.inst = nil
	b.mem = nil
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()

	if done != nil {
		close(done)
	}
	for _, unsub := range unsubs {
		unsub()
	}
	if inst != nil {
		inst.Close()
	}
}
