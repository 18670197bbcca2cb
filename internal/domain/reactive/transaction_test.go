package reactive

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flushCounter counts scheduler flush rounds that delivered anything.
type flushCounter struct {
	mu      sync.Mutex
	flushes int
	keys    int
}

func (f *flushCounter) observe(batch map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	f.keys += len(batch)
}

func TestTransactionBatchesDistinctKeys(t *testing.T) {
	s := newTestStore(t)

	fc := &flushCounter{}
	s.OnFlush(fc.observe)

	const n = 25
	require.NoError(t, s.Transaction(func() error {
		for i := 0; i < n; i++ {
			if err := s.Set(fmt.Sprintf("key-%d", i), i); err != nil {
				return err
			}
		}
		return nil
	}))

	assert.Equal(t, 1, fc.flushes, "one transaction, one flush")
	assert.Equal(t, n, fc.keys, "flush covers every written key")
}

func TestTransactionFlushesImmediately(t *testing.T) {
	s := newTestStore(t)

	rec := &recorder{}
	s.Watch("k", rec.watch)

	require.NoError(t, s.Transaction(func() error {
		return s.Set("k", 1)
	}))

	// No waiting on the tick timer.
	assert.Equal(t, 1, rec.count())
}

func TestTransactionErrorStillFlushes(t *testing.T) {
	s := newTestStore(t)

	rec := &recorder{}
	s.Watch("written", rec.watch)

	wantErr := errors.New("body failed")
	err := s.Transaction(func() error {
		require.NoError(t, s.Set("written", 1))
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	// Writes before the failure are delivered, not rolled back.
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 1, s.Get("written", 0))
}

func TestTransactionPanicStillFlushes(t *testing.T) {
	s := newTestStore(t)

	rec := &recorder{}
	s.Watch("written", rec.watch)

	require.Panics(t, func() {
		_ = s.Transaction(func() error {
			_ = s.Set("written", 1)
			panic("body panicked")
		})
	})

	assert.Equal(t, 1, rec.count())
}

func TestNestedTransactionsFlushOnce(t *testing.T) {
	s := newTestStore(t)

	fc := &flushCounter{}
	s.OnFlush(fc.observe)

	require.NoError(t, s.Transaction(func() error {
		require.NoError(t, s.Set("outer", 1))
		return s.Transaction(func() error {
			return s.Set("inner", 2)
		})
	}))

	assert.Equal(t, 1, fc.flushes, "nested transactions flush at the outermost close")
	assert.Equal(t, 2, fc.keys)
}

func TestTransactionSuppressesPendingTick(t *testing.T) {
	s := newTestStore(t)

	rec := &recorder{}
	s.Watch("early", rec.watch)

	// Written outside the transaction; its timer gets absorbed.
	require.NoError(t, s.Set("early", 1))

	require.NoError(t, s.Transaction(func() error {
		return s.Set("late", 2)
	}))

	assert.Equal(t, 1, rec.count(), "pre-transaction write rides the forced flush")
}
