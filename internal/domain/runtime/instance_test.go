package runtime

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutlabs/sprout/runtime/internal/bridge"
	"github.com/sproutlabs/sprout/runtime/internal/domain/reactive"
	"github.com/sproutlabs/sprout/runtime/internal/sandbox/sandboxtest"
)

func newTestInstance(t *testing.T, fake *sandboxtest.FakeInstance) *Instance {
	t.Helper()
	inst := New(Options{
		TickInterval: 5 * time.Millisecond,
		PollInterval: time.Hour, // tests drive Sync explicitly
		Loader:       fake.Loader(),
	})
	t.Cleanup(inst.Dispose)
	return inst
}

func TestInstanceIdentity(t *testing.T) {
	a := newTestInstance(t, sandboxtest.NewFakeInstance(64))
	b := newTestInstance(t, sandboxtest.NewFakeInstance(64))

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestInstanceValueRoundTrip(t *testing.T) {
	inst := newTestInstance(t, sandboxtest.NewFakeInstance(64))

	require.NoError(t, inst.SetValue("name", "sprout"))
	assert.Equal(t, "sprout", inst.GetValue("name", ""))

	v, ok := inst.Lookup("name")
	require.True(t, ok)
	assert.Equal(t, "sprout", v.Data)
	assert.False(t, v.LastUpdated.IsZero())

	_, ok = inst.Lookup("missing")
	assert.False(t, ok)
}

func TestInstanceWatchAndTransaction(t *testing.T) {
	inst := newTestInstance(t, sandboxtest.NewFakeInstance(64))

	got := make(chan any, 1)
	inst.Watch("counter", func(_ string, v any) {
		got <- v
	})

	require.NoError(t, inst.Transaction(func() error {
		return inst.SetValue("counter", 1)
	}))

	select {
	case v := <-got:
		assert.Equal(t, 1, v)
	default:
		t.Fatal("transaction close should have flushed the watcher")
	}
}

func TestComputedExpr(t *testing.T) {
	inst := newTestInstance(t, sandboxtest.NewFakeInstance(64))

	require.NoError(t, inst.SetValue("x", int64(5)))
	require.NoError(t, inst.SetValue("y", int64(3)))
	require.NoError(t, inst.ComputedExpr("sum", "x + y", []string{"x", "y"}))

	assert.Equal(t, int64(8), inst.GetValue("sum", nil))

	require.NoError(t, inst.SetValue("x", int64(10)))
	inst.Flush()
	assert.Equal(t, int64(13), inst.GetValue("sum", nil))
}

func TestComputedExprRejectsCycle(t *testing.T) {
	inst := newTestInstance(t, sandboxtest.NewFakeInstance(64))

	require.NoError(t, inst.ComputedExpr("a", "b", []string{"b"}))
	err := inst.ComputedExpr("b", "a", []string{"a"})
	assert.ErrorIs(t, err, reactive.ErrDependencyCycle)
}

func TestComputedExprBadExpressionAbortsRegistration(t *testing.T) {
	inst := newTestInstance(t, sandboxtest.NewFakeInstance(64))

	err := inst.ComputedExpr("broken", "x +", []string{"x"})
	require.Error(t, err)
	_, ok := inst.Lookup("broken")
	assert.False(t, ok)
}

func TestInstanceBridgeFlow(t *testing.T) {
	fake := sandboxtest.NewFakeInstance(64)
	fake.Funcs["increment"] = func(...any) (any, error) {
		n := binary.LittleEndian.Uint32(fake.Mem.Buf[0:4])
		binary.LittleEndian.PutUint32(fake.Mem.Buf[0:4], n+1)
		return nil, nil
	}
	inst := newTestInstance(t, fake)

	layout := []bridge.Binding{{Key: "counter", Offset: 0, Width: 4}}
	require.NoError(t, inst.Load(nil, layout, map[string]any{"counter": float64(41)}))

	_, err := inst.CallFunction("increment")
	require.NoError(t, err)
	inst.Sync()

	assert.Equal(t, int64(42), inst.GetValue("counter", nil))
}

func TestSetValueCanonicalizesBoundKey(t *testing.T) {
	fake := sandboxtest.NewFakeInstance(64)
	inst := newTestInstance(t, fake)

	layout := []bridge.Binding{{Key: "counter", Offset: 0, Width: 4}}
	require.NoError(t, inst.Load(nil, layout, nil))

	// A JSON body delivers numbers as float64; the bound key still holds
	// the canonical integer type.
	require.NoError(t, inst.SetValue("counter", float64(7)))
	assert.Equal(t, int64(7), inst.GetValue("counter", nil))

	inst.Flush()
	assert.Equal(t, []byte{7, 0, 0, 0}, fake.Mem.Buf[0:4])
}

func TestInstanceStats(t *testing.T) {
	fake := sandboxtest.NewFakeInstance(64)
	inst := newTestInstance(t, fake)

	require.NoError(t, inst.SetValue("a", 1))
	inst.Flush()

	stats := inst.Stats()
	assert.Equal(t, inst.ID(), stats.InstanceID)
	assert.Equal(t, "unloaded", stats.BridgeState)
	assert.Equal(t, 1, stats.ValueCount)

	require.NoError(t, inst.Load(nil, nil, nil))
	assert.Equal(t, "ready", inst.Stats().BridgeState)
}

func TestInstanceEvents(t *testing.T) {
	fake := sandboxtest.NewFakeInstance(64)
	fake.Funcs["noop"] = func(...any) (any, error) { return nil, nil }
	inst := newTestInstance(t, fake)

	require.NoError(t, inst.Load(nil, nil, nil))
	_, err := inst.CallFunction("noop")
	require.NoError(t, err)

	events := inst.Events()
	require.NotEmpty(t, events)
	kinds := make([]reactive.EventKind, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Contains(t, kinds, reactive.EventModuleLoaded)
	assert.Contains(t, kinds, reactive.EventFunctionCalled)
}

func TestInstanceDisposeFinality(t *testing.T) {
	fake := sandboxtest.NewFakeInstance(64)
	inst := newTestInstance(t, fake)
	require.NoError(t, inst.Load(nil, nil, nil))

	inst.Dispose()
	inst.Dispose()

	assert.Equal(t, 1, fake.Closed)
	assert.True(t, inst.Stats().Disposed)
	assert.Equal(t, "disposed", inst.Stats().BridgeState)
	assert.ErrorIs(t, inst.SetValue("k", 1), reactive.ErrDisposed)

	_, err := inst.CallFunction("anything")
	assert.Error(t, err)
}
