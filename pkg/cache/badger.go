package cache

import (
	"fmt"
	"sort"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/glyphcache/internal/bytesize"
	"github.com/marmos91/glyphcache/internal/logger"
)

// BadgerConfig holds configuration for the BadgerDB-backed cache.
type BadgerConfig struct {
	// Path is the directory holding the cache database.
	Path string `mapstructure:"path"`

	// MaxSize caps the approximate total value size. When a write would
	// push the cache past the cap, the oldest entries are evicted to make
	// room. Zero means unlimited.
	MaxSize bytesize.ByteSize `mapstructure:"max_size"`

	// InMemory runs the database without disk persistence. Used in tests.
	InMemory bool `mapstructure:"in_memory"`
}

// BadgerCache is a BadgerDB-backed Cache implementation.
//
// Gets and puts run on their own goroutines so callers never block on disk;
// Close waits for outstanding operations to drain.
type BadgerCache struct {
	db      *badger.DB
	metrics Metrics
	maxSize int64

	mu     sync.Mutex
	size   int64
	closed bool
	wg     sync.WaitGroup
}

// NewBadgerCache opens (or creates) a cache database at cfg.Path.
func NewBadgerCache(cfg BadgerConfig, metrics Metrics) (*BadgerCache, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger cache: path is required")
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache: %w", err)
	}

	c := &BadgerCache{
		db:      db,
		metrics: metrics,
		maxSize: cfg.MaxSize.Int64(),
	}

	lsm, vlog := db.Size()
	c.size = lsm + vlog

	logger.Info("Opened emoji frame cache",
		"path", cfg.Path,
		"maxSize", cfg.MaxSize.String(),
		"currentSize", c.size)

	return c, nil
}

// Get reads the entry for key and invokes done with its bytes, or with nil
// on a miss or read failure. done is called exactly once, on a separate
// goroutine. After Close, done is invoked with nil.
func (c *BadgerCache) Get(key Key, done func(value []byte)) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		go done(nil)
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()

		var value []byte
		err := c.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get(key.Encode())
			if err != nil {
				return err
			}
			value, err = item.ValueCopy(nil)
			return err
		})
		if err != nil && err != badger.ErrKeyNotFound {
			logger.Warn("Cache read failed", "error", err)
		}

		if c.metrics != nil {
			if value != nil {
				c.metrics.ObserveHit(len(value))
			} else {
				c.metrics.ObserveMiss()
			}
		}
		done(value)
	}()
}

// Put writes an entry, fire-and-forget. When the write would push the
// cache past its size cap, the oldest entries are evicted first.
func (c *BadgerCache) Put(key Key, value []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()

		if c.maxSize > 0 {
			c.evictFor(int64(len(value)))
		}

		err := c.db.Update(func(txn *badger.Txn) error {
			return txn.Set(key.Encode(), value)
		})
		if err != nil {
			logger.Warn("Cache write failed", "error", err)
			return
		}

		c.mu.Lock()
		c.size += int64(len(value))
		c.mu.Unlock()

		if c.metrics != nil {
			c.metrics.ObservePut(len(value))
		}
	}()
}

// evictFor deletes oldest entries until incoming bytes fit under the size
// cap. Age is approximated by badger's commit version, which grows
// monotonically with writes.
func (c *BadgerCache) evictFor(incoming int64) {
	c.mu.Lock()
	need := c.size + incoming - c.maxSize
	c.mu.Unlock()
	if need <= 0 {
		return
	}

	type entry struct {
		key     []byte
		version uint64
		size    int64
	}
	var entries []entry
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			entries = append(entries, entry{
				key:     item.KeyCopy(nil),
				version: item.Version(),
				size:    item.ValueSize(),
			})
		}
		return nil
	})
	if err != nil {
		logger.Warn("Cache eviction scan failed", "error", err)
		return
	}

	sort.Slice(entries, func(a, b int) bool {
		return entries[a].version < entries[b].version
	})

	var freed int64
	for _, e := range entries {
		if freed >= need {
			break
		}
		err := c.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(e.key)
		})
		if err != nil {
			logger.Warn("Cache eviction failed", "error", err)
			continue
		}
		freed += e.size
	}

	if freed > 0 {
		c.mu.Lock()
		c.size -= freed
		if c.size < 0 {
			c.size = 0
		}
		c.mu.Unlock()
		logger.Debug("Evicted cache entries", "freedBytes", freed)
	}
}

// Close drains in-flight operations and closes the database.
func (c *BadgerCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()
	return c.db.Close()
}
