package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/glyphcache/pkg/payload"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{BasePath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	data := []byte("lottie json bytes")
	require.NoError(t, s.WriteContent(ctx, "documents/42", data))

	got, err := s.ReadContent(ctx, "documents/42")
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestReadMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReadContent(context.Background(), "documents/404")
	require.ErrorIs(t, err, payload.ErrNotFound)
}

func TestDeleteIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteContent(ctx, "a/b", []byte("x")))
	require.NoError(t, s.DeleteContent(ctx, "a/b"))
	require.NoError(t, s.DeleteContent(ctx, "a/b"))

	_, err := s.ReadContent(ctx, "a/b")
	require.ErrorIs(t, err, payload.ErrNotFound)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Config{BasePath: dir})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.WriteContent(ctx, "documents/1", []byte("x")))

	entries, err := os.ReadDir(filepath.Join(dir, "documents"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "1", entries[0].Name())
}

func TestClosedStore(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	ctx := context.Background()
	_, err := s.ReadContent(ctx, "k")
	require.ErrorIs(t, err, payload.ErrStoreClosed)
	require.ErrorIs(t, s.WriteContent(ctx, "k", nil), payload.ErrStoreClosed)
}
