package runtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sproutlabs/sprout/runtime/internal/bridge"
	"github.com/sproutlabs/sprout/runtime/internal/domain/reactive"
	"github.com/sproutlabs/sprout/runtime/internal/expr"
	"github.com/sproutlabs/sprout/runtime/internal/infrastructure/logging"
	"github.com/sproutlabs/sprout/runtime/internal/infrastructure/monitoring"
	"github.com/sproutlabs/sprout/runtime/internal/sandbox"
)

// Options configures an Instance. Zero values fall back to defaults.
type Options struct {
	TickInterval time.Duration
	PollInterval time.Duration
	CallTimeout  time.Duration
	ExprTimeout  time.Duration
	MaxMemory    uint32
	Loader       sandbox.Loader
	Logger       *logging.Logger
	Metrics      *monitoring.Metrics
}

// Instance is one reactive runtime bound to at most one loaded module.
type Instance struct {
	id      string
	store   *reactive.Store
	bridge  *bridge.Bridge
	eval    *expr.Evaluator
	logger  *logging.Logger
	metrics *monitoring.Metrics
	created time.Time

	disposeOnce sync.Once
}

// Stats extends the store's counters with instance identity and bridge
// lifecycle state.
type Stats struct {
	reactive.Stats
	InstanceID  string        `json:"instance_id"`
	BridgeState string        `json:"bridge_state"`
	Uptime      time.Duration `json:"uptime"`
}

// New creates a fresh instance with its own store, bridge and evaluator.
func New(opts Options) *Instance {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	store := reactive.NewStore(reactive.Options{
		TickInterval: opts.TickInterval,
		Logger:       opts.Logger,
		Metrics:      opts.Metrics,
	})
	br := bridge.New(store, bridge.Options{
		PollInterval: opts.PollInterval,
		CallTimeout:  opts.CallTimeout,
		MaxMemory:    opts.MaxMemory,
		Loader:       opts.Loader,
		Logger:       opts.Logger,
		Metrics:      opts.Metrics,
	})

	inst := &Instance{
		id:      uuid.New().String(),
		store:   store,
		bridge:  br,
		eval:    expr.New(opts.ExprTimeout),
		logger:  opts.Logger,
		metrics: opts.Metrics,
		created: time.Now(),
	}
	if opts.Metrics != nil {
		opts.Metrics.InstancesActive.Inc()
	}
	inst.logger.Info("runtime instance created", zap.String("instance", inst.id))
	return inst
}

// ID returns the instance identifier.
func (i *Instance) ID() string { return i.id }

// Load hands a compiled module, its layout table and the initial state to
// the bridge.
func (i *Instance) Load(bytecode []byte, layout []bridge.Binding, initial map[string]any) error {
	return i.bridge.Load(bytecode, layout, initial)
}

// GetValue returns the value for key, creating it with def on first access.
func (i *Instance) GetValue(key string, def any) any {
	return i.store.Get(key, def)
}

// Lookup returns the full snapshot for key without creating it.
func (i *Instance) Lookup(key string) (reactive.Value, bool) {
	return i.store.Lookup(key)
}

// SetValue writes value under key through the batched notification path.
// Writes to a bound key are canonicalized through the binding's codec, so
// a JSON float64 lands as the same type a memory pull would produce.
func (i *Instance) SetValue(key string, value any) error {
	if canon, ok, err := i.bridge.CanonicalValue(key, value); err != nil {
		return err
	} else if ok {
		value = canon
	}
	return i.store.Set(key, value)
}

// Watch subscribes to changes of key and returns an unsubscribe.
func (i *Instance) Watch(key string, fn reactive.WatchFunc) func() {
	return i.store.Watch(key, fn)
}

// OnFlush subscribes to whole flushed batches.
func (i *Instance) OnFlush(fn reactive.FlushFunc) func() {
	return i.store.OnFlush(fn)
}

// Transaction groups writes into a single notification round.
func (i *Instance) Transaction(fn func() error) error {
	return i.store.Transaction(fn)
}

// Computed registers a derived key.
func (i *Instance) Computed(key string, fn reactive.ComputeFunc, deps []string) error {
	return i.store.Computed(key, fn, deps)
}

// ComputedExpr registers a derived key whose derivation is a source
// expression over the dependency keys, evaluated in the sandboxed
// expression VM.
func (i *Instance) ComputedExpr(key, src string, deps []string) error {
	fn := func() (any, error) {
		scope := make(map[string]any, len(deps))
		for _, dep := range deps {
			scope[dep] = i.store.Get(dep, nil)
		}
		value, err := i.eval.Eval(src, scope)
		if err != nil {
			return nil, fmt.Errorf("expression for %q: %w", key, err)
		}
		return value, nil
	}
	return i.store.Computed(key, fn, deps)
}

// CallFunction invokes an exported function of the loaded module.
func (i *Instance) CallFunction(name string, args ...any) (any, error) {
	return i.bridge.CallFunction(name, args...)
}

// Sync runs one bridge pull cycle on demand.
func (i *Instance) Sync() {
	i.bridge.Sync()
}

// Flush forces an immediate drain of pending notifications.
func (i *Instance) Flush() {
	i.store.Flush()
}

// Snapshot returns the current state as an opaque key/value mapping.
func (i *Instance) Snapshot() map[string]any {
	return i.store.Snapshot()
}

// Events returns the bounded execution event log.
func (i *Instance) Events() []reactive.Event {
	return i.store.Events()
}

// Stats reports the instance's observable state.
func (i *Instance) Stats() Stats {
	return Stats{
		Stats:       i.store.Stats(),
		InstanceID:  i.id,
		BridgeState: i.bridge.State().String(),
		Uptime:      time.Since(i.created),
	}
}

// Dispose tears down the bridge, then the store. Idempotent; after the
// first call every operation on the instance is a no-op.
func (i *Instance) Dispose() {
	i.disposeOnce.Do(func() {
		i.bridge.Dispose()
		i.store.Dispose()
		if i.metrics != nil {
			i.metrics.InstancesActive.Dec()
		}
		i.logger.Info("runtime instance disposed", zap.String("instance", i.id))
	})
}
