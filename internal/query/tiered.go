package query

import (
	"iter"
	"log/slog"
	"time"

	"github.com/nate-maxwell/templar/internal/binding"
	"github.com/nate-maxwell/templar/internal/clock"
)

type pathEntry struct {
	path string
	err  error
}

type parsed[T any] struct {
	rec T
	ok  bool
}

// TieredCache keeps the raw directory listing and per-path parse results
// separately, each with its own TTL. Parse results include non-matches, so
// a path that fits no template is not parsed again until the parse tier
// expires.
type TieredCache[T any] struct {
	engine   *Engine[T]
	pathTTL  time.Duration
	parseTTL time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	paths       []pathEntry
	pathsLoaded bool
	pathStamp   stamp

	parses      map[string]parsed[T]
	parseStamp  stamp
	parsesFresh bool

	stats Stats
}

// NewTieredCache wraps engine. A zero TTL never expires.
func NewTieredCache[T any](engine *Engine[T], pathTTL, parseTTL time.Duration, opts ...CacheOption) *TieredCache[T] {
	cfg := newCacheConfig(opts)
	return &TieredCache[T]{
		engine:   engine,
		pathTTL:  pathTTL,
		parseTTL: parseTTL,
		clock:    cfg.clock,
		logger:   cfg.logger,
		parses:   make(map[string]parsed[T]),
	}
}

func (c *TieredCache[T]) Query(filters binding.Filter) iter.Seq2[T, error] {
	filters = filters.Clone()
	binder := c.engine.Resolver().Binder()
	return func(yield func(T, error) bool) {
		var zero T
		for _, p := range c.listing() {
			if p.err != nil {
				if !yield(zero, p.err) {
					return
				}
				continue
			}
			entry := c.parse(p.path)
			if !entry.ok || !binding.Matches(binder, &entry.rec, filters) {
				continue
			}
			if !yield(binder.Clone(entry.rec), nil) {
				return
			}
		}
	}
}

func (c *TieredCache[T]) listing() []pathEntry {
	if c.pathsLoaded && c.pathStamp.valid(c.clock.Now()) {
		c.stats.Hits++
		return c.paths
	}
	c.stats.Misses++
	c.stats.Scans++
	c.logger.Debug("path tier rescan", "root", c.engine.Root())

	var paths []pathEntry
	for p, err := range c.engine.Paths() {
		paths = append(paths, pathEntry{path: p, err: err})
	}
	c.paths = paths
	c.pathsLoaded = true
	c.pathStamp = stamp{created: c.clock.Now(), ttl: c.pathTTL}
	return paths
}

func (c *TieredCache[T]) parse(p string) parsed[T] {
	if !c.parsesFresh || !c.parseStamp.valid(c.clock.Now()) {
		clear(c.parses)
		c.parsesFresh = true
		c.parseStamp = stamp{created: c.clock.Now(), ttl: c.parseTTL}
	}
	if entry, ok := c.parses[p]; ok {
		return entry
	}
	rec, _, ok := c.engine.ParsePath(p)
	c.stats.Parses++
	entry := parsed[T]{rec: rec, ok: ok}
	c.parses[p] = entry
	return entry
}

// InvalidatePaths forces a fresh scan on the next query. Parse results are
// dropped with the listing, so nothing from before the invalidation is
// reused. Expiry of the path TTL alone leaves the parse tier untouched.
func (c *TieredCache[T]) InvalidatePaths() {
	c.paths = nil
	c.pathsLoaded = false
	c.InvalidateParses()
}

// InvalidateParses drops parse results; the listing survives and is not
// rescanned.
func (c *TieredCache[T]) InvalidateParses() {
	clear(c.parses)
	c.parsesFresh = false
}

func (c *TieredCache[T]) Invalidate(scope Scope) {
	switch scope.kind {
	case scopePaths:
		c.InvalidatePaths()
	case scopeParses:
		c.InvalidateParses()
	default:
		c.InvalidatePaths()
	}
}

func (c *TieredCache[T]) Stats() Stats { return c.stats }
