package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrSuperseded is returned to a query that was cancelled by a newer
// request for the same key. Its result is never cached.
var ErrSuperseded = errors.New("query superseded by a newer request")

// Key identifies a cached query, e.g. {"events", "detail", "42"}.
type Key []string

func (k Key) String() string { return strings.Join(k, "\x00") }

// HasPrefix reports whether p is a leading part of k.
func (k Key) HasPrefix(p Key) bool {
	if len(p) > len(k) {
		return false
	}
	for i := range p {
		if k[i] != p[i] {
			return false
		}
	}
	return true
}

type entry struct {
	key       Key
	value     any
	has       bool
	updatedAt time.Time
	stale     bool

	// gen is bumped by every fetch start and Cancel; a fetch may only
	// write back while gen still matches its own.
	gen    uint64
	cancel context.CancelFunc

	// invalidations counts Invalidate calls; a fetch that overlapped one
	// stores its result already stale.
	invalidations uint64
}

// QueryCache keeps the last successful result per query key.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func NewQueryCache() *QueryCache {
	return &QueryCache{entries: make(map[string]*entry), now: time.Now}
}

func (c *QueryCache) entry(key Key) *entry {
	e, ok := c.entries[key.String()]
	if !ok {
		e = &entry{key: append(Key(nil), key...)}
		c.entries[key.String()] = e
	}
	return e
}

// Get returns the cached value for key, fresh or not.
func (c *QueryCache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || !e.has {
		return nil, false
	}
	return e.value, true
}

// Set writes v as the current value of key.
func (c *QueryCache) Set(key Key, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(key)
	e.value, e.has, e.stale = v, true, false
	e.updatedAt = c.now()
}

// Remove drops the value for key.
func (c *QueryCache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key.String()]; ok {
		e.value, e.has = nil, false
	}
}

// Invalidate marks every entry under prefix stale. Nothing is refetched
// until the next read.
func (c *QueryCache) Invalidate(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.stale = true
			e.invalidations++
		}
	}
}

// Cancel aborts the in-flight fetch for key, if any.
func (c *QueryCache) Cancel(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key.String()]; ok {
		e.gen++
		if e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
	}
}

// Fetch returns the cached value for key if it was stored less than
// staleTime ago and has not been invalidated. Otherwise it cancels any
// in-flight fetch for key, calls fn and caches a successful result.
func Fetch[T any](ctx context.Context, c *QueryCache, key Key, staleTime time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	c.mu.Lock()
	e := c.entry(key)
	if e.has && !e.stale && c.now().Sub(e.updatedAt) < staleTime {
		v, ok := e.value.(T)
		if ok {
			c.mu.Unlock()
			return v, nil
		}
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	gen, inv := e.gen, e.invalidations
	fctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	c.mu.Unlock()

	v, err := fn(fctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if e.gen != gen {
		cancel()
		return zero, ErrSuperseded
	}
	e.cancel = nil
	cancel()
	if err != nil {
		return zero, err
	}
	e.value, e.has = v, true
	e.stale = e.invalidations != inv
	e.updatedAt = c.now()
	return v, nil
}
