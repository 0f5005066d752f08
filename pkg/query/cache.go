// Package query is the in-process query cache shared by the explorer's
// loaders. Entries are keyed by string, served while younger than a
// staleness window, fetched at most once concurrently per key, retried on
// failure and evicted by a sweep once nobody observes them.
package query

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultStaleTime is how long a fetched entry is served without refetch.
	DefaultStaleTime = 24 * time.Hour

	// DefaultGCTime is how long an unobserved entry survives after its last read.
	DefaultGCTime = 5 * time.Minute

	// StaleNever marks entries that never go stale.
	StaleNever = time.Duration(math.MaxInt64)
)

// Prometheus metrics for the query cache.
var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "query_cache_hits_total",
		Help: "Query cache hits by resource",
	}, []string{"resource"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "query_cache_misses_total",
		Help: "Query cache misses (fetches started or joined) by resource",
	}, []string{"resource"})

	cacheShared = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "query_cache_shared_fetches_total",
		Help: "Callers served by a fetch already in flight, by resource",
	}, []string{"resource"})

	cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "query_cache_entries",
		Help: "Current number of query cache entries",
	})

	cacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "query_cache_evictions_total",
		Help: "Entries removed by the eviction sweep",
	})
)

// Options configures a Cache.
type Options struct {
	// StaleTime is the default staleness window.
	StaleTime time.Duration

	// GCTime is the idle time after which unobserved entries are swept.
	GCTime time.Duration

	// Retry governs failed fetches.
	Retry RetryConfig
}

// DefaultOptions returns 24h staleness, 5m GC and two retries.
func DefaultOptions() Options {
	return Options{
		StaleTime: DefaultStaleTime,
		GCTime:    DefaultGCTime,
		Retry:     DefaultRetryConfig(),
	}
}

type entry struct {
	value      any
	fetchedAt  time.Time
	lastAccess time.Time
	staleTime  time.Duration
}

func (e *entry) fresh(now time.Time) bool {
	if e.staleTime == StaleNever {
		return true
	}
	return now.Sub(e.fetchedAt) < e.staleTime
}

// Cache is the keyed query cache. The zero value is not usable; use New.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	observers map[string]int
	group     singleflight.Group
	opts      Options
	now       func() time.Time
	logger    zerolog.Logger
}

// New creates a query cache.
func New(opts Options) *Cache {
	if opts.StaleTime <= 0 {
		opts.StaleTime = DefaultStaleTime
	}
	if opts.GCTime <= 0 {
		opts.GCTime = DefaultGCTime
	}
	return &Cache{
		entries:   make(map[string]*entry),
		observers: make(map[string]int),
		opts:      opts,
		now:       time.Now,
		logger:    log.With().Str("component", "query-cache").Logger(),
	}
}

// FetchOption adjusts a single fetch.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	staleTime time.Duration
	retry     *RetryConfig
}

// WithStaleTime overrides the staleness window for the fetched entry.
func WithStaleTime(d time.Duration) FetchOption {
	return func(o *fetchOptions) { o.staleTime = d }
}

// Fetch returns the value cached under key, calling fn when the key is
// missing or stale. Concurrent callers for the same key share one call to fn.
// The shared call is detached from ctx; ctx only bounds how long this caller
// waits.
func Fetch[T any](ctx context.Context, c *Cache, key string, fn func(context.Context) (T, error), opts ...FetchOption) (T, error) {
	var zero T

	v, err := c.fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	}, opts...)
	if err != nil {
		return zero, err
	}

	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query %s: cached value has type %T", key, v)
	}
	return t, nil
}

func (c *Cache) fetch(ctx context.Context, key string, fn func(context.Context) (any, error), opts ...FetchOption) (any, error) {
	fo := fetchOptions{staleTime: c.opts.StaleTime}
	for _, opt := range opts {
		opt(&fo)
	}
	retry := c.opts.Retry
	if fo.retry != nil {
		retry = *fo.retry
	}

	resource := Resource(key)

	if v, ok := c.lookup(key); ok {
		cacheHits.WithLabelValues(resource).Inc()
		c.logger.Debug().Str("key", key).Msg("Query cache hit")
		return v, nil
	}
	cacheMisses.WithLabelValues(resource).Inc()

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// A flight that finished between lookup and DoChan already stored it.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		var value any
		err := Retry(detached, retry, resource, c.logger, func(ctx context.Context) error {
			v, err := fn(ctx)
			if err != nil {
				return err
			}
			value = v
			return nil
		})
		if err != nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("Query fetch failed")
			return nil, err
		}
		return c.store(key, value, fo.staleTime), nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			cacheShared.WithLabelValues(resource).Inc()
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) lookup(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	now := c.now()
	if !e.fresh(now) {
		return nil, false
	}
	e.lastAccess = now
	return e.value, true
}

// store keeps the first value written within the staleness window and
// returns the value that ends up cached.
func (c *Cache) store(key string, value any, staleTime time.Duration) any {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok && e.fresh(now) {
		e.lastAccess = now
		return e.value
	}

	c.entries[key] = &entry{
		value:      value,
		fetchedAt:  now,
		lastAccess: now,
		staleTime:  staleTime,
	}
	cacheEntries.Set(float64(len(c.entries)))
	return value
}

// Observe registers an active reader of key. The entry is not swept while
// observed. release is idempotent.
func (c *Cache) Observe(key string) (release func()) {
	c.mu.Lock()
	c.observers[key]++
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()

			c.observers[key]--
			if c.observers[key] <= 0 {
				delete(c.observers, key)
				if e, ok := c.entries[key]; ok {
					e.lastAccess = c.now()
				}
			}
		})
	}
}

// Observers returns the number of active observers of key.
func (c *Cache) Observers(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.observers[key]
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes entries that have no observers and were last read at least
// GCTime before now. It returns the number of evicted entries.
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, e := range c.entries {
		if c.observers[key] > 0 {
			continue
		}
		if now.Sub(e.lastAccess) >= c.opts.GCTime {
			delete(c.entries, key)
			evicted++
		}
	}

	if evicted > 0 {
		cacheEvictions.Add(float64(evicted))
		cacheEntries.Set(float64(len(c.entries)))
		c.logger.Debug().
			Int("evicted", evicted).
			Int("remaining", len(c.entries)).
			Msg("Query cache sweep")
	}
	return evicted
}

// Run sweeps the cache every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.opts.GCTime
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info().Dur("interval", interval).Msg("Query cache janitor started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Query cache janitor stopped")
			return
		case t := <-ticker.C:
			c.Sweep(t)
		}
	}
}

// Key joins parts with ":" into a cache key, e.g. Key("pokemon", 25) is
// "pokemon:25".
func Key(parts ...any) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, ":")
}

// Resource returns the leading segment of a key, used as metrics label.
func Resource(key string) string {
	resource, _, _ := strings.Cut(key, ":")
	return resource
}
