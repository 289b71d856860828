package query

import (
	"iter"
	"log/slog"
	"time"

	"github.com/nate-maxwell/templar/internal/binding"
	"github.com/nate-maxwell/templar/internal/clock"
)

// Cache is a query front-end that remembers scan results. Implementations
// hold plain state without locking; use one instance per goroutine.
type Cache[T any] interface {
	Query(filters binding.Filter) iter.Seq2[T, error]
	Invalidate(scope Scope)
	Stats() Stats
}

var (
	_ Cache[binding.Fields] = (*FullCache[binding.Fields])(nil)
	_ Cache[binding.Fields] = (*TieredCache[binding.Fields])(nil)
	_ Cache[binding.Fields] = (*LazyCache[binding.Fields])(nil)
)

type scopeKind int

const (
	scopeAll scopeKind = iota
	scopePaths
	scopeParses
	scopeFilter
)

// Scope names what Invalidate should drop. A cache that does not
// distinguish a scope drops everything.
type Scope struct {
	kind   scopeKind
	filter binding.Filter
}

// All drops everything.
func All() Scope { return Scope{kind: scopeAll} }

// PathTier drops the cached directory listing and, for TieredCache, the
// parse results derived from it.
func PathTier() Scope { return Scope{kind: scopePaths} }

// ParseTier drops cached parse results only.
func ParseTier() Scope { return Scope{kind: scopeParses} }

// ForFilter drops the entry for exactly this filter combination.
func ForFilter(f binding.Filter) Scope { return Scope{kind: scopeFilter, filter: f.Clone()} }

// Stats counts cache activity since construction.
type Stats struct {
	Scans  int // directory walks started
	Parses int // paths reverse-parsed
	Hits   int // queries answered from a valid entry
	Misses int // queries that had to (re)build an entry
}

// CacheOption configures any of the cache strategies.
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	clock  clock.Clock
	logger *slog.Logger
}

// WithClock sets the time source used for expiry.
func WithClock(c clock.Clock) CacheOption {
	return func(cfg *cacheConfig) { cfg.clock = c }
}

func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(cfg *cacheConfig) { cfg.logger = l }
}

func newCacheConfig(opts []CacheOption) cacheConfig {
	cfg := cacheConfig{clock: clock.Real()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return cfg
}

// stamp is a creation time with a time-to-live. A zero TTL never expires.
type stamp struct {
	created time.Time
	ttl     time.Duration
}

func (s stamp) valid(now time.Time) bool {
	return s.ttl <= 0 || now.Sub(s.created) < s.ttl
}

// result is one replayable element of a scan: a record or a walk error.
type result[T any] struct {
	rec T
	err error
}

// replay yields stored results, cloning each record so callers cannot
// modify what the cache holds.
func replay[T any](items []result[T], clone func(T) T, yield func(T, error) bool) {
	for _, it := range items {
		rec := it.rec
		if it.err == nil {
			rec = clone(rec)
		}
		if !yield(rec, it.err) {
			return
		}
	}
}
