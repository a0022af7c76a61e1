package badger

import (
	"context"
	"testing"

	"github.com/marmos91/glyphcache/pkg/document"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := document.Document{
		ID:         7,
		OwnerID:    42,
		Type:       document.TypeVector,
		Alt:        "🔥",
		Width:      512,
		Height:     512,
		ContentKey: "documents/7",
		BaseCacheKey: document.CacheKey{
			High: 0xDEAD,
			Low:  0xBEEF,
		},
	}
	require.NoError(t, s.Put(ctx, doc))

	got, err := s.Get(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, doc, got)
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), 999)
	require.ErrorIs(t, err, document.ErrNotFound)
}

func TestGetBatchSkipsMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []uint64{1, 2, 3} {
		require.NoError(t, s.Put(ctx, document.Document{ID: id, OwnerID: 1}))
	}

	docs, err := s.GetBatch(ctx, []uint64{3, 99, 1})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, uint64(3), docs[0].ID)
	require.Equal(t, uint64(1), docs[1].ID)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, document.Document{ID: 5}))
	require.NoError(t, s.Delete(ctx, 5))
	_, err := s.Get(ctx, 5)
	require.ErrorIs(t, err, document.ErrNotFound)

	// Deleting a missing id is not an error.
	require.NoError(t, s.Delete(ctx, 5))
}
