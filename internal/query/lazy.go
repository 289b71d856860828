package query

import (
	"iter"
	"log/slog"
	"time"

	"github.com/nate-maxwell/templar/internal/binding"
	"github.com/nate-maxwell/templar/internal/clock"
)

type lazyEntry[T any] struct {
	items []result[T]
	stamp stamp
}

// LazyCache scans only for filter combinations that are actually queried
// and caches each one separately, keyed by the canonical filter. Empty
// results are cached like any other. A scan the caller abandons midway is
// not cached.
type LazyCache[T any] struct {
	engine  *Engine[T]
	ttl     time.Duration
	clock   clock.Clock
	logger  *slog.Logger
	entries map[string]*lazyEntry[T]
	stats   Stats
}

// NewLazyCache wraps engine. A zero TTL never expires.
func NewLazyCache[T any](engine *Engine[T], ttl time.Duration, opts ...CacheOption) *LazyCache[T] {
	cfg := newCacheConfig(opts)
	return &LazyCache[T]{
		engine:  engine,
		ttl:     ttl,
		clock:   cfg.clock,
		logger:  cfg.logger,
		entries: make(map[string]*lazyEntry[T]),
	}
}

func (c *LazyCache[T]) Query(filters binding.Filter) iter.Seq2[T, error] {
	filters = filters.Clone()
	key := filters.Key()
	binder := c.engine.Resolver().Binder()
	return func(yield func(T, error) bool) {
		if e, ok := c.entries[key]; ok {
			if e.stamp.valid(c.clock.Now()) {
				c.stats.Hits++
				replay(e.items, binder.Clone, yield)
				return
			}
			delete(c.entries, key)
		}
		c.stats.Misses++
		c.logger.Debug("lazy cache scan", "filter", key)

		var items []result[T]
		for m, err := range c.engine.scan(filters, &c.stats) {
			items = append(items, result[T]{rec: binder.Clone(m.Record), err: err})
			if !yield(m.Record, err) {
				return
			}
		}
		c.entries[key] = &lazyEntry[T]{
			items: items,
			stamp: stamp{created: c.clock.Now(), ttl: c.ttl},
		}
	}
}

// Cached reports whether a valid entry exists for filters.
func (c *LazyCache[T]) Cached(filters binding.Filter) bool {
	e, ok := c.entries[filters.Key()]
	return ok && e.stamp.valid(c.clock.Now())
}

// InvalidateFilter drops the entry for exactly this combination.
func (c *LazyCache[T]) InvalidateFilter(filters binding.Filter) {
	delete(c.entries, filters.Key())
}

// Invalidate drops one combination for ForFilter scopes and everything
// otherwise.
func (c *LazyCache[T]) Invalidate(scope Scope) {
	if scope.kind == scopeFilter {
		c.InvalidateFilter(scope.filter)
		return
	}
	clear(c.entries)
}

// Len reports how many filter combinations are cached.
func (c *LazyCache[T]) Len() int {
	return len(c.entries)
}

func (c *LazyCache[T]) Stats() Stats { return c.stats }
