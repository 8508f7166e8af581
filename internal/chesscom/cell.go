package chesscom

import (
	"context"
	"sync"
	"time"
)

type freshness interface {
	fresh() bool
}

type refresher interface {
	refresh(ctx context.Context, g Group, target freshness) error
	describe() string
}

// Cell is a lazily fetched value that expires ttl after it was received.
// Expiry is only checked on read.
type Cell[T any] struct {
	mu        sync.RWMutex
	data      T
	fetchedAt time.Time
	received  bool

	ttl   time.Duration
	field string
	group Group
	owner refresher
	cache *Cache
}

func newCell[T any, E any](l *loader[E], g Group, field string) *Cell[T] {
	return &Cell[T]{
		ttl:   l.cache.ttlFor(g),
		field: field,
		group: g,
		owner: l,
		cache: l.cache,
	}
}

// Get returns the cached value, refreshing the cell's group first when the
// value is missing or expired.
func (c *Cell[T]) Get(ctx context.Context) (T, error) {
	if v, ok := c.value(); ok {
		c.cache.metrics.CellHit(c.group.String())
		return v, nil
	}
	c.cache.metrics.CellMiss(c.group.String())

	var zero T
	if err := c.owner.refresh(ctx, c.group, c); err != nil {
		return zero, err
	}
	if v, ok := c.value(); ok {
		return v, nil
	}
	return zero, &DataUnavailableError{Entity: c.owner.describe(), Field: c.field}
}

// FetchedAt reports when the current value was received.
func (c *Cell[T]) FetchedAt() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt, c.received
}

func (c *Cell[T]) value() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.received || c.cache.now().Sub(c.fetchedAt) >= c.ttl {
		var zero T
		return zero, false
	}
	return c.data, true
}

func (c *Cell[T]) fresh() bool {
	_, ok := c.value()
	return ok
}

func (c *Cell[T]) receive(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = v
	c.fetchedAt = c.cache.now()
	c.received = true
}
