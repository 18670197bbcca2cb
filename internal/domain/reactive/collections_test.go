package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMutationsNotifyOnce(t *testing.T) {
	s := newTestStore(t)

	list := NewList[string](s, "todos")
	rec := &recorder{}
	s.Watch("todos", rec.watch)

	require.NoError(t, s.Transaction(func() error {
		return list.Add("write tests")
	}))

	assert.Equal(t, 1, rec.count(), "one mutation, one notification")
	assert.Equal(t, []string{"write tests"}, rec.last())
}

func TestListAccessors(t *testing.T) {
	s := newTestStore(t)

	list := NewList[int](s, "nums")
	assert.Zero(t, list.Len())

	require.NoError(t, list.Add(10))
	require.NoError(t, list.Add(20))
	require.NoError(t, list.Add(30))
	assert.Equal(t, 3, list.Len())

	v, ok := list.At(1)
	require.True(t, ok)
	assert.Equal(t, 20, v)

	_, ok = list.At(3)
	assert.False(t, ok)
	_, ok = list.At(-1)
	assert.False(t, ok)

	require.NoError(t, list.SetAt(0, 11))
	require.NoError(t, list.Remove(2))
	assert.Equal(t, []int{11, 20}, list.Items())

	assert.Error(t, list.SetAt(5, 0))
	assert.Error(t, list.Remove(5))

	require.NoError(t, list.Clear())
	assert.Zero(t, list.Len())
}

func TestListItemsIsACopy(t *testing.T) {
	s := newTestStore(t)

	list := NewList[int](s, "nums")
	require.NoError(t, list.Add(1))

	items := list.Items()
	items[0] = 99

	v, _ := list.At(0)
	assert.Equal(t, 1, v)
}

func TestListFixesKeyType(t *testing.T) {
	s := newTestStore(t)

	NewList[int](s, "nums")
	assert.ErrorIs(t, s.Set("nums", "not a slice"), ErrTypeMismatch)
}

func TestMapMutationsNotifyOnce(t *testing.T) {
	s := newTestStore(t)

	m := NewMap[string, int](s, "scores")
	rec := &recorder{}
	s.Watch("scores", rec.watch)

	require.NoError(t, s.Transaction(func() error {
		return m.Set("alice", 3)
	}))

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, map[string]int{"alice": 3}, rec.last())
}

func TestMapAccessors(t *testing.T) {
	s := newTestStore(t)

	m := NewMap[string, int](s, "scores")
	require.NoError(t, m.Set("alice", 3))
	require.NoError(t, m.Set("bob", 5))
	assert.Equal(t, 2, m.Len())

	v, ok := m.Get("bob")
	require.True(t, ok)
	assert.Equal(t, 5, v)

	_, ok = m.Get("carol")
	assert.False(t, ok)

	require.NoError(t, m.Delete("alice"))
	assert.Equal(t, map[string]int{"bob": 5}, m.Items())

	require.NoError(t, m.Clear())
	assert.Zero(t, m.Len())
}

func TestMapDeleteAbsentIsNoop(t *testing.T) {
	s := newTestStore(t)

	m := NewMap[string, int](s, "scores")
	require.NoError(t, m.Set("alice", 3))
	s.Flush()

	rec := &recorder{}
	s.Watch("scores", rec.watch)

	require.NoError(t, m.Delete("nobody"))
	s.Flush()

	assert.Zero(t, rec.count(), "deleting an absent key writes an equal map")
}

func TestMapItemsIsACopy(t *testing.T) {
	s := newTestStore(t)

	m := NewMap[string, int](s, "scores")
	require.NoError(t, m.Set("alice", 3))

	items := m.Items()
	items["alice"] = 99

	v, _ := m.Get("alice")
	assert.Equal(t, 3, v)
}

func TestAdaptersShareOneKey(t *testing.T) {
	s := newTestStore(t)

	a := NewList[int](s, "shared")
	b := NewList[int](s, "shared")

	require.NoError(t, a.Add(1))
	assert.Equal(t, 1, b.Len(), "adapters over the same key observe each other")
}
