package pulse

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache holds device objects that are expensive to create, like pipelines
// and samplers. Evicted values are passed to the release function.
type Cache[K comparable, V any] struct {
	name  string
	cache *lru.Cache[K, V]
}

func NewCache[K comparable, V any](name string, size int, release func(V)) *Cache[K, V] {
	onEvict := func(key K, value V) {
		Logger().Debug("Evict cached object",
			"cache", name,
			"key", fmt.Sprint(key))

		if release != nil {
			release(value)
		}
	}

	cache, err := lru.NewWithEvict[K, V](size, onEvict)
	if err != nil {
		panic(fmt.Sprintf("create cache %q: %s", name, err))
	}

	return &Cache[K, V]{name: name, cache: cache}
}

// Get returns the cached value for key, building and caching it using create
// if it is not yet known. Values returned by Get are owned by the cache,
// do not release them.
func (c *Cache[K, V]) Get(key K, create func(key K) (V, error)) (V, error) {
	cached, ok := c.cache.Get(key)
	if ok {
		return cached, nil
	}

	value, err := create(key)
	if err != nil {
		var zeroV V
		return zeroV, fmt.Errorf("build %s: %w", c.name, err)
	}

	c.cache.Add(key, value)

	return value, nil
}

func (c *Cache[K, V]) Len() int {
	return c.cache.Len()
}

// Purge releases all cached values.
func (c *Cache[K, V]) Purge() {
	c.cache.Purge()
}
