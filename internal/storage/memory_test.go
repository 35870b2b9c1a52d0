package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetMissingKey(t *testing.T) {
	m := NewMemory()
	v, err := m.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	v, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, m.Delete(ctx, "a"))
	v, err = m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, v)

	// Deleting an absent key is a no-op.
	require.NoError(t, m.Delete(ctx, "a"))
}

func TestMemory_ListByPrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "checkpoint:a", []byte("1")))
	require.NoError(t, m.Set(ctx, "checkpoint:b", []byte("2")))
	require.NoError(t, m.Set(ctx, "engine:status", []byte("3")))

	out, err := m.List(ctx, "checkpoint:")
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, []byte("1"), out["checkpoint:a"])
	assert.Equal(t, []byte("2"), out["checkpoint:b"])
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buf := []byte("original")
	require.NoError(t, m.Set(ctx, "k", buf))
	buf[0] = 'X'

	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), v)
}
