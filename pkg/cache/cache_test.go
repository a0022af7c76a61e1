package cache

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/glyphcache/pkg/document"
	"github.com/stretchr/testify/require"
)

func TestKeyForSkipsZeroBase(t *testing.T) {
	_, ok := KeyFor(document.CacheKey{}, 0)
	require.False(t, ok)
}

func TestKeyForShiftDistinguishesSizes(t *testing.T) {
	base := document.CacheKey{High: 1, Low: 100}

	normal, ok := KeyFor(base, 0)
	require.True(t, ok)
	large, ok := KeyFor(base, 1)
	require.True(t, ok)

	require.Equal(t, base.High, normal.High)
	require.NotEqual(t, normal, large)
	require.Equal(t, normal.Low+1, large.Low)
	require.Equal(t, base.Low+Shift(0), normal.Low)
}

func TestBadgerCacheRoundTrip(t *testing.T) {
	c, err := NewBadgerCache(BadgerConfig{InMemory: true}, nil)
	require.NoError(t, err)
	defer c.Close()

	key := Key{High: 1, Low: 2}
	value := []byte("frame data")

	c.Put(key, value)

	// Put is asynchronous; poll through Get until the write lands.
	var got []byte
	require.Eventually(t, func() bool {
		var wg sync.WaitGroup
		wg.Add(1)
		c.Get(key, func(v []byte) {
			got = v
			wg.Done()
		})
		wg.Wait()
		return got != nil
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, value, got)
}

func badgerGet(c *BadgerCache, key Key) []byte {
	var wg sync.WaitGroup
	wg.Add(1)
	var got []byte
	c.Get(key, func(v []byte) {
		got = v
		wg.Done()
	})
	wg.Wait()
	return got
}

func putAndWait(t *testing.T, c *BadgerCache, key Key, value []byte) {
	t.Helper()
	c.Put(key, value)
	require.Eventually(t, func() bool {
		return badgerGet(c, key) != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBadgerCacheEvictsOldestAtCap(t *testing.T) {
	c, err := NewBadgerCache(BadgerConfig{InMemory: true, MaxSize: 1000}, nil)
	require.NoError(t, err)
	defer c.Close()

	blob := func(b byte) []byte { return bytes.Repeat([]byte{b}, 400) }
	first := Key{High: 1, Low: 1}
	second := Key{High: 1, Low: 2}
	third := Key{High: 1, Low: 3}

	putAndWait(t, c, first, blob('a'))
	putAndWait(t, c, second, blob('b'))

	// The third write pushes past the cap, so the oldest entry goes and
	// the cache keeps accepting new entries.
	putAndWait(t, c, third, blob('c'))

	require.Eventually(t, func() bool {
		return badgerGet(c, first) == nil
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, blob('b'), badgerGet(c, second))
	require.Equal(t, blob('c'), badgerGet(c, third))
}

func TestBadgerCacheMiss(t *testing.T) {
	c, err := NewBadgerCache(BadgerConfig{InMemory: true}, nil)
	require.NoError(t, err)
	defer c.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	var got []byte = []byte("sentinel")
	c.Get(Key{High: 9, Low: 9}, func(v []byte) {
		got = v
		wg.Done()
	})
	wg.Wait()
	require.Nil(t, got)
}

func TestBadgerCacheClosedGet(t *testing.T) {
	c, err := NewBadgerCache(BadgerConfig{InMemory: true}, nil)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	var wg sync.WaitGroup
	wg.Add(1)
	c.Get(Key{High: 1, Low: 1}, func(v []byte) {
		require.Nil(t, v)
		wg.Done()
	})
	wg.Wait()

	// Put after close must not panic.
	c.Put(Key{High: 1, Low: 1}, []byte("late"))
}

func TestMemoryCacheCounts(t *testing.T) {
	c := NewMemoryCache()

	c.Get(Key{High: 1, Low: 1}, func(v []byte) {
		require.Nil(t, v)
	})
	c.Put(Key{High: 1, Low: 1}, []byte("x"))
	c.Get(Key{High: 1, Low: 1}, func(v []byte) {
		require.Equal(t, []byte("x"), v)
	})

	require.Equal(t, 1, c.Hits)
	require.Equal(t, 1, c.Misses)
	require.Equal(t, 1, c.Puts)
	require.Equal(t, 1, c.Len())
}
