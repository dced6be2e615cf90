// Package storagetest checks storage.Store implementations against the
// behavior callers rely on.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/docstamp/storage"
)

// Run exercises a store created fresh for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("SaveLoad", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		id, err := s.Save(ctx, []byte("document one"))
		require.NoError(t, err)
		require.NoError(t, storage.CheckID(id))

		data, err := s.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "document one", string(data))
	})

	t.Run("DistinctIDs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, err := s.Save(ctx, []byte("a"))
		require.NoError(t, err)
		b, err := s.Save(ctx, []byte("a"))
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("LoadMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(context.Background(), storage.NewID())
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		entries, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)

		id, err := s.Save(ctx, []byte("12345"))
		require.NoError(t, err)

		entries, err = s.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, id, entries[0].ID)
		assert.Equal(t, int64(5), entries[0].Size)
		assert.False(t, entries[0].Created.IsZero())
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		id, err := s.Save(ctx, []byte("x"))
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, id))

		_, err = s.Load(ctx, id)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, id), storage.ErrNotFound)
	})
}
