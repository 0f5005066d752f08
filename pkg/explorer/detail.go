package explorer

import (
	"context"
	"sync"
	"time"

	"github.com/Sternrassler/pokeapi-explorer/pkg/pokeapi"
	"github.com/Sternrassler/pokeapi-explorer/pkg/query"
)

// DetailSnapshot is the state of a detail load at one instant.
// IsLoading, IsError and Err describe the pokemon fetch only; species and
// chain failures are reported separately and never fail the page.
type DetailSnapshot struct {
	ID string

	Pokemon *pokeapi.Pokemon
	Species *pokeapi.Species
	Chain   *pokeapi.EvolutionChain

	IsLoading bool
	IsError   bool
	Err       error

	SpeciesErr error
	ChainErr   error
}

// Evolution returns the flattened first-branch chain, or nil while the chain
// is unknown.
func (s DetailSnapshot) Evolution() []Stage {
	if s.Chain == nil {
		return nil
	}
	return FlattenChain(s.Chain.Chain)
}

// DetailLoad is one in-progress or finished detail load.
type DetailLoad struct {
	key string
	id  string

	mu       sync.RWMutex
	snapshot DetailSnapshot

	obs  observers
	done chan struct{}
}

// LoadDetail starts the staged detail pipeline for id: pokemon, then its
// species, then the species' evolution chain. Each stage runs only after the
// previous one produced what it needs. An empty id loads nothing.
func (e *Explorer) LoadDetail(ctx context.Context, id string) *DetailLoad {
	d := &DetailLoad{
		key:  pokemonKey(id),
		id:   id,
		obs:  observers{cache: e.cache},
		done: make(chan struct{}),
	}
	d.snapshot.ID = id

	if id == "" {
		close(d.done)
		return d
	}

	d.snapshot.IsLoading = true
	go e.runDetail(ctx, d)
	return d
}

func (e *Explorer) runDetail(ctx context.Context, d *DetailLoad) {
	defer close(d.done)
	start := time.Now()

	// Stage A
	d.obs.observe(pokemonKey(d.id))
	p, err := e.fetchPokemon(ctx, d.id)
	if abandoned(ctx, err) {
		e.logger.Debug().Str("id", d.id).Msg("Detail load abandoned by caller")
		return
	}

	d.mu.Lock()
	d.snapshot.IsLoading = false
	d.snapshot.Pokemon = p
	d.snapshot.Err = err
	d.snapshot.IsError = err != nil
	d.mu.Unlock()

	if err != nil {
		e.logger.Warn().Err(err).Str("id", d.id).Msg("Pokemon fetch failed")
		loadDuration.WithLabelValues("detail", "error").Observe(time.Since(start).Seconds())
		return
	}
	loadDuration.WithLabelValues("detail", "ok").Observe(time.Since(start).Seconds())

	// Stage B
	sKey := speciesKey(d.id)
	d.obs.observe(sKey)
	species, err := query.Fetch(ctx, e.cache, sKey, func(ctx context.Context) (*pokeapi.Species, error) {
		return e.src.Species(ctx, d.id)
	})
	if abandoned(ctx, err) {
		return
	}

	d.mu.Lock()
	d.snapshot.Species = species
	d.snapshot.SpeciesErr = err
	d.mu.Unlock()

	if err != nil {
		e.logger.Debug().Err(err).Str("id", d.id).Msg("Species fetch failed")
		return
	}

	chainURL := species.ChainURL()
	if chainURL == "" {
		return
	}

	// Stage C
	cKey := chainKey(chainURL)
	d.obs.observe(cKey)
	chain, err := query.Fetch(ctx, e.cache, cKey, func(ctx context.Context) (*pokeapi.EvolutionChain, error) {
		return e.src.EvolutionChain(ctx, chainURL)
	})
	if abandoned(ctx, err) {
		return
	}

	d.mu.Lock()
	d.snapshot.Chain = chain
	d.snapshot.ChainErr = err
	d.mu.Unlock()

	if err != nil {
		e.logger.Debug().Err(err).Str("url", chainURL).Msg("Evolution chain fetch failed")
	}
}

// Key identifies the load by pokemon id.
func (d *DetailLoad) Key() string {
	return d.key
}

// Snapshot returns the current state of the load.
func (d *DetailLoad) Snapshot() DetailSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshot
}

// Done is closed once every stage that could run has settled.
func (d *DetailLoad) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until the load settles or ctx ends and returns the snapshot
// at that point.
func (d *DetailLoad) Wait(ctx context.Context) (DetailSnapshot, error) {
	select {
	case <-d.done:
		return d.Snapshot(), nil
	case <-ctx.Done():
		return d.Snapshot(), ctx.Err()
	}
}

// Release drops the load's hold on its cache entries. Safe to call more than
// once.
func (d *DetailLoad) Release() {
	d.obs.releaseAll()
}
