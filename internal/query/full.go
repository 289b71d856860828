package query

import (
	"iter"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring"

	"github.com/nate-maxwell/templar/internal/binding"
	"github.com/nate-maxwell/templar/internal/clock"
)

// FullCache scans the whole tree once per TTL and answers every filter from
// an inverted index of field=value to record positions.
type FullCache[T any] struct {
	engine *Engine[T]
	ttl    time.Duration
	clock  clock.Clock
	logger *slog.Logger

	loaded   bool
	stamp    stamp
	items    []result[T]
	records  *roaring.Bitmap // positions holding records
	failures *roaring.Bitmap // positions holding walk errors
	index    map[string]map[string]*roaring.Bitmap
	stats    Stats
}

// NewFullCache wraps engine. A ttl of zero never expires.
func NewFullCache[T any](engine *Engine[T], ttl time.Duration, opts ...CacheOption) *FullCache[T] {
	cfg := newCacheConfig(opts)
	return &FullCache[T]{
		engine: engine,
		ttl:    ttl,
		clock:  cfg.clock,
		logger: cfg.logger,
	}
}

// Query answers filters from the index, rescanning first if the snapshot is
// missing or expired. Records come back in scan order.
func (c *FullCache[T]) Query(filters binding.Filter) iter.Seq2[T, error] {
	filters = filters.Clone()
	binder := c.engine.Resolver().Binder()
	return func(yield func(T, error) bool) {
		c.ensure()
		items, hits := c.items, c.lookup(filters)
		it := hits.Iterator()
		for it.HasNext() {
			item := items[it.Next()]
			if item.err != nil {
				if !yield(item.rec, item.err) {
					return
				}
				continue
			}
			if !yield(binder.Clone(item.rec), nil) {
				return
			}
		}
	}
}

func (c *FullCache[T]) ensure() {
	if c.loaded && c.stamp.valid(c.clock.Now()) {
		c.stats.Hits++
		return
	}
	c.stats.Misses++
	c.load()
}

func (c *FullCache[T]) load() {
	c.logger.Debug("full cache rescan", "root", c.engine.Root())
	c.items = nil
	c.records = roaring.New()
	c.failures = roaring.New()
	c.index = make(map[string]map[string]*roaring.Bitmap)
	binder := c.engine.Resolver().Binder()

	for m, err := range c.engine.scan(nil, &c.stats) {
		pos := uint32(len(c.items))
		if err != nil {
			c.items = append(c.items, result[T]{err: err})
			c.failures.Add(pos)
			continue
		}
		c.items = append(c.items, result[T]{rec: m.Record})
		c.records.Add(pos)
		for field, value := range binder.Values(&m.Record) {
			byValue, ok := c.index[field]
			if !ok {
				byValue = make(map[string]*roaring.Bitmap)
				c.index[field] = byValue
			}
			bm, ok := byValue[value]
			if !ok {
				bm = roaring.New()
				byValue[value] = bm
			}
			bm.Add(pos)
		}
	}
	c.loaded = true
	c.stamp = stamp{created: c.clock.Now(), ttl: c.ttl}
}

// lookup intersects the posting lists of every constraint and folds the
// walk errors back in so they replay at their original positions.
func (c *FullCache[T]) lookup(filters binding.Filter) *roaring.Bitmap {
	hits := c.records.Clone()
	for field, value := range filters {
		bm, ok := c.index[field][value]
		if !ok {
			hits = roaring.New()
			break
		}
		hits.And(bm)
	}
	hits.Or(c.failures)
	return hits
}

// Invalidate drops the snapshot. Every scope is treated as All.
func (c *FullCache[T]) Invalidate(Scope) {
	c.loaded = false
	c.items = nil
	c.index = nil
}

// Len reports the number of cached records.
func (c *FullCache[T]) Len() int {
	if !c.loaded {
		return 0
	}
	return int(c.records.GetCardinality())
}

func (c *FullCache[T]) Stats() Stats { return c.stats }
