// Package cache provides a small read-through LRU used to memoize decoded
// objects. Resolution is deterministic, so concurrent fills for the same key
// are allowed to race; the losers just recompute the same value.
package cache

import (
	lru "github.com/hnlq715/golang-lru"
)

// SetFn produces the value for a key on a cache miss.
type SetFn func() (interface{}, error)

type Cache struct {
	lru *lru.Cache
}

func New(size int) (*Cache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// GetOrSet returns the cached value for k, calling setFn to fill the entry
// on a miss. Errors from setFn are returned without caching anything.
func (c *Cache) GetOrSet(k interface{}, setFn SetFn) (interface{}, error) {
	if v, ok := c.lru.Get(k); ok {
		return v, nil
	}
	v, err := setFn()
	if err != nil {
		return nil, err
	}
	c.lru.Add(k, v)
	return v, nil
}

func (c *Cache) Len() int { return c.lru.Len() }
