package store

import (
	"database/sql"
	"sync"
)

// Resolver maps a logical database name to the on-disk file backing
// it. Implemented by the metadata registry.
type Resolver interface {
	Path(name string) (string, error)
}

// Cache holds one read-only immutable connection per database name for
// the lifetime of the process. Handles are opened lazily on first
// access and never evicted: a canonical (name, hash) address stays
// valid until restart, so there is nothing to invalidate.
//
// A per-name sync.Once serializes check-then-open-then-insert, so
// concurrent first requests for the same name open exactly one
// connection. Duplicate opens would be harmless for immutable
// read-only files, but bounding descriptors to one per database is
// free here.
type Cache struct {
	resolver Resolver

	opens sync.Map // name → *sync.Once
	conns sync.Map // name → *sql.DB
}

// NewCache returns an empty connection cache backed by resolver.
func NewCache(resolver Resolver) *Cache {
	return &Cache{resolver: resolver}
}

// Get returns the cached connection for name, opening it on first
// access. Repeated calls return the same handle. A failed open is not
// sticky: the next caller retries.
func (c *Cache) Get(name string) (*sql.DB, error) {
	if db, ok := c.conns.Load(name); ok {
		return db.(*sql.DB), nil
	}

	onceVal, _ := c.opens.LoadOrStore(name, &sync.Once{})
	var openErr error
	onceVal.(*sync.Once).Do(func() {
		path, err := c.resolver.Path(name)
		if err != nil {
			c.opens.Delete(name)
			openErr = err
			return
		}
		db, err := OpenImmutable(path)
		if err != nil {
			c.opens.Delete(name)
			openErr = err
			return
		}
		c.conns.Store(name, db)
	})
	if openErr != nil {
		return nil, openErr
	}
	if db, ok := c.conns.Load(name); ok {
		return db.(*sql.DB), nil
	}
	// Raced with another caller whose open failed and reset the once;
	// run our own attempt.
	return c.Get(name)
}

// Close closes every cached connection. Only used by tests and
// shutdown paths; handles are otherwise process-lifetime.
func (c *Cache) Close() {
	c.conns.Range(func(key, value any) bool {
		_ = value.(*sql.DB).Close()
		c.conns.Delete(key)
		c.opens.Delete(key)
		return true
	})
}
