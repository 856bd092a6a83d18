package cache

import (
	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/Code-Hex/go-generics-cache/policy/lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheMetrics = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "safegift_cache_lookups_total",
		Help: "Cache lookups by cache name and result",
	},
	[]string{
		"name",
		"result",
	},
)

// Cache is a size-bounded LRU that reports hits and misses under metricName.
type Cache[K comparable, V any] struct {
	cache      *cache.Cache[K, V]
	metricName string
	size       int
}

func NewLRUCache[K comparable, V any](size int, metricName string) Cache[K, V] {
	return Cache[K, V]{
		cache:      cache.New(cache.AsLRU[K, V](lru.WithCapacity(size))),
		metricName: metricName,
		size:       size,
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	val, ok := c.cache.Get(key)
	if ok {
		cacheMetrics.WithLabelValues(c.metricName, "hit").Inc()
		return val, ok
	}
	cacheMetrics.WithLabelValues(c.metricName, "miss").Inc()
	return val, ok
}

func (c *Cache[K, V]) Set(key K, val V, opts ...cache.ItemOption) {
	c.cache.Set(key, val, opts...)
}

// GetOrLoad returns the cached value or calls load and caches its result on success.
func (c *Cache[K, V]) GetOrLoad(key K, load func(K) (V, error)) (V, error) {
	if val, ok := c.Get(key); ok {
		return val, nil
	}
	val, err := load(key)
	if err != nil {
		return val, err
	}
	c.Set(key, val)
	return val, nil
}

func (c *Cache[K, V]) Delete(key K) {
	c.cache.Delete(key)
}

// Keys returns the keys of the cache. the order is relied on algorithms.
func (c *Cache[K, V]) Keys() []K {
	return c.cache.Keys()
}

func (c *Cache[K, V]) Len() int {
	return c.cache.Len()
}
