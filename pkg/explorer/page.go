package explorer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sternrassler/pokeapi-explorer/pkg/pagination"
	"github.com/Sternrassler/pokeapi-explorer/pkg/pokeapi"
	"github.com/Sternrassler/pokeapi-explorer/pkg/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrMissingID is recorded for list items whose URL carries no id.
var ErrMissingID = errors.New("list item has no id")

var loadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "explorer_load_duration_seconds",
	Help:    "Time until a page or detail load settles",
	Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
}, []string{"kind", "outcome"})

// PageSnapshot is the state of a page load at one instant.
type PageSnapshot struct {
	Page     int
	PageSize int
	Offset   int

	// Count is the collection size reported by the list, 0 until known
	Count int

	// Pokemon holds the resolved details in list order; pending and failed
	// items are omitted
	Pokemon []*pokeapi.Pokemon

	IsLoading bool
	IsError   bool
	Err       error
}

// TotalPages returns the number of table pages in the collection.
func (s PageSnapshot) TotalPages() int {
	return pagination.TotalPages(s.Count, s.PageSize)
}

// PageLoad is one in-progress or finished list page load.
type PageLoad struct {
	key    string
	page   int
	size   int
	offset int

	mu       sync.RWMutex
	listDone bool
	list     *pokeapi.ListPage
	listErr  error
	batch    *pagination.Batch[*pokeapi.Pokemon]

	obs  observers
	done chan struct{}
}

// LoadPage starts loading a table page: the list first, then one detail
// fetch per listed item. page values below 1 are treated as 1.
func (e *Explorer) LoadPage(ctx context.Context, page, pageSize int) *PageLoad {
	page = pagination.ClampPage(page)
	offset := pagination.Offset(page, pageSize)

	l := &PageLoad{
		key:    query.Key("page", pageSize, offset),
		page:   page,
		size:   pageSize,
		offset: offset,
		obs:    observers{cache: e.cache},
		done:   make(chan struct{}),
	}

	go e.runPage(ctx, l)
	return l
}

func (e *Explorer) runPage(ctx context.Context, l *PageLoad) {
	defer close(l.done)
	start := time.Now()

	key := listKey(l.size, l.offset)
	l.obs.observe(key)

	list, err := query.Fetch(ctx, e.cache, key, func(ctx context.Context) (*pokeapi.ListPage, error) {
		return e.src.ListPokemon(ctx, l.size, l.offset)
	})
	if abandoned(ctx, err) {
		e.logger.Debug().Str("key", l.key).Msg("Page load abandoned by caller")
		return
	}

	l.mu.Lock()
	l.listDone = true
	l.list = list
	l.listErr = err
	l.mu.Unlock()

	if err != nil {
		e.logger.Warn().Err(err).Str("key", l.key).Msg("List fetch failed")
		loadDuration.WithLabelValues("page", "error").Observe(time.Since(start).Seconds())
		return
	}

	ids := make([]string, 0, len(list.Results))
	if l.size > 0 {
		for _, r := range list.Results {
			ids = append(ids, r.ID())
		}
	}
	for _, id := range ids {
		if id != "" {
			l.obs.observe(pokemonKey(id))
		}
	}

	batch := pagination.Gather(ctx, e.config.Gather, len(ids), func(ctx context.Context, i int) (*pokeapi.Pokemon, error) {
		if ids[i] == "" {
			return nil, ErrMissingID
		}
		return e.fetchPokemon(ctx, ids[i])
	})

	l.mu.Lock()
	l.batch = batch
	l.mu.Unlock()

	<-batch.Done()

	outcome := "ok"
	if pagination.Reduce(batch.Snapshot()).Err != nil {
		outcome = "error"
	}
	loadDuration.WithLabelValues("page", outcome).Observe(time.Since(start).Seconds())

	e.logger.Debug().
		Str("key", l.key).
		Int("items", len(ids)).
		Dur("duration", time.Since(start)).
		Msg("Page load settled")
}

// Key identifies the load by page size and offset.
func (l *PageLoad) Key() string {
	return l.key
}

// Snapshot returns the current state of the load.
func (l *PageLoad) Snapshot() PageSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := PageSnapshot{
		Page:     l.page,
		PageSize: l.size,
		Offset:   l.offset,
		Pokemon:  []*pokeapi.Pokemon{},
	}

	if !l.listDone {
		s.IsLoading = true
		return s
	}
	if l.listErr != nil {
		s.IsError = true
		s.Err = l.listErr
		return s
	}

	s.Count = l.list.Count
	if l.batch == nil {
		// List resolved, fan-out not started yet
		s.IsLoading = len(l.list.Results) > 0 && l.size > 0
		return s
	}

	sum := pagination.Reduce(l.batch.Snapshot())
	s.Pokemon = sum.Values
	s.IsLoading = sum.Loading()
	s.IsError = sum.Err != nil
	s.Err = sum.Err
	return s
}

// Done is closed once the list and every detail fetch have settled.
func (l *PageLoad) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the load settles or ctx ends and returns the snapshot
// at that point.
func (l *PageLoad) Wait(ctx context.Context) (PageSnapshot, error) {
	select {
	case <-l.done:
		return l.Snapshot(), nil
	case <-ctx.Done():
		return l.Snapshot(), ctx.Err()
	}
}

// Release drops the load's hold on its cache entries so the sweep may evict
// them. Safe to call more than once.
func (l *PageLoad) Release() {
	l.obs.releaseAll()
}

// observers tracks the cache keys a load holds.
type observers struct {
	mu       sync.Mutex
	cache    *query.Cache
	releases []func()
	closed   bool
}

func (o *observers) observe(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.releases = append(o.releases, o.cache.Observe(key))
}

func (o *observers) releaseAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, release := range o.releases {
		release()
	}
	o.releases = nil
	o.closed = true
}
