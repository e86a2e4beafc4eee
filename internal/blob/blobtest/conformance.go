// Package blobtest is a shared contract suite for blob.Store backends.
// Each backend calls RunConformanceTests from its own _test.go file.
package blobtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/clinical-notes/internal/blob"
)

// RunConformanceTests runs every sub-test against a fresh store from newStore.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) blob.Store) {
	t.Helper()

	open := func(t *testing.T) (blob.Store, context.Context) {
		store := newStore(t)
		t.Cleanup(func() { _ = store.Close(context.Background()) })
		return store, context.Background()
	}

	t.Run("PutAndStat", func(t *testing.T) {
		store, ctx := open(t)
		b := blob.New("informe.pdf", "application/pdf", []byte("%PDF-1.4"))
		require.NoError(t, store.Put(ctx, b))

		got, err := store.Stat(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.Ref, got.Ref)
		assert.Equal(t, b.Size, got.Size)
		assert.WithinDuration(t, b.CreatedAt, got.CreatedAt, time.Second)
		assert.Nil(t, got.Content)
	})

	t.Run("GetContent", func(t *testing.T) {
		store, ctx := open(t)
		content := []byte("Paciente con fiebre de 39°C")
		b := blob.New("nota.txt", "text/plain; charset=utf-8", content)
		require.NoError(t, store.Put(ctx, b))

		got, err := store.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, content, got.Content)
		assert.Equal(t, "nota.txt", got.Filename)
		assert.Equal(t, "text/plain; charset=utf-8", got.ContentType)
	})

	t.Run("EmptyContent", func(t *testing.T) {
		store, ctx := open(t)
		b := blob.New("vacio.txt", "text/plain", []byte{})
		require.NoError(t, store.Put(ctx, b))

		got, err := store.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Content)
		assert.EqualValues(t, 0, got.Size)
	})

	t.Run("NotFound", func(t *testing.T) {
		store, ctx := open(t)
		id := blob.NewID()

		_, err := store.Get(ctx, id)
		assert.ErrorIs(t, err, blob.ErrNotFound)
		_, err = store.Stat(ctx, id)
		assert.ErrorIs(t, err, blob.ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, id), blob.ErrNotFound)
	})

	t.Run("DuplicateID", func(t *testing.T) {
		store, ctx := open(t)
		b := blob.New("a.txt", "text/plain", []byte("a"))
		require.NoError(t, store.Put(ctx, b))

		dup := *b
		dup.Content = []byte("b")
		assert.ErrorIs(t, store.Put(ctx, &dup), blob.ErrExists)

		got, err := store.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), got.Content)
	})

	t.Run("Delete", func(t *testing.T) {
		store, ctx := open(t)
		b := blob.New("a.mp3", "audio/mpeg", []byte("ID3"))
		require.NoError(t, store.Put(ctx, b))
		require.NoError(t, store.Delete(ctx, b.ID))

		_, err := store.Get(ctx, b.ID)
		assert.ErrorIs(t, err, blob.ErrNotFound)
	})

	t.Run("Isolation", func(t *testing.T) {
		store, ctx := open(t)
		a := blob.New("a.txt", "text/plain", []byte("A"))
		b := blob.New("b.txt", "text/plain", []byte("B"))
		require.NoError(t, store.Put(ctx, a))
		require.NoError(t, store.Put(ctx, b))

		got, err := store.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("B"), got.Content)
	})
}
