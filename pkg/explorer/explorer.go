// Package explorer orchestrates PokeAPI reads for the table and detail
// pages: list page fan-out, the staged detail pipeline, move type
// enrichment, and the aggregates and sorting the pages display.
package explorer

import (
	"context"
	"errors"

	"github.com/Sternrassler/pokeapi-explorer/pkg/client"
	"github.com/Sternrassler/pokeapi-explorer/pkg/pagination"
	"github.com/Sternrassler/pokeapi-explorer/pkg/pokeapi"
	"github.com/Sternrassler/pokeapi-explorer/pkg/query"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPageSize is the number of pokemon per table page.
const DefaultPageSize = 10

// Source is the upstream the explorer reads from. *client.Client implements it.
type Source interface {
	ListPokemon(ctx context.Context, limit, offset int) (*pokeapi.ListPage, error)
	Pokemon(ctx context.Context, idOrName string) (*pokeapi.Pokemon, error)
	Species(ctx context.Context, id string) (*pokeapi.Species, error)
	EvolutionChain(ctx context.Context, chainURL string) (*pokeapi.EvolutionChain, error)
	Move(ctx context.Context, idOrName string) (*pokeapi.Move, error)
}

var _ Source = (*client.Client)(nil)

// Config holds explorer configuration.
type Config struct {
	// PageSize is used when a caller passes no page size
	PageSize int

	// Gather bounds the per-page detail fan-out
	Gather pagination.Config
}

// DefaultConfig returns the default explorer configuration.
func DefaultConfig() Config {
	return Config{
		PageSize: DefaultPageSize,
		Gather:   pagination.DefaultConfig(),
	}
}

// DefaultQueryOptions returns query cache options that retry only errors the
// client marks retryable.
func DefaultQueryOptions() query.Options {
	opts := query.DefaultOptions()
	opts.Retry.ShouldRetry = client.IsRetryable
	return opts
}

// Explorer runs loads against a Source through a shared query cache.
type Explorer struct {
	src    Source
	cache  *query.Cache
	config Config
	logger zerolog.Logger
}

// New creates an explorer. A nil cache gets a private one with
// DefaultQueryOptions.
func New(src Source, cache *query.Cache, cfg Config) *Explorer {
	if cache == nil {
		cache = query.New(DefaultQueryOptions())
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Explorer{
		src:    src,
		cache:  cache,
		config: cfg,
		logger: log.With().Str("component", "explorer").Logger(),
	}
}

// Cache returns the query cache used by the explorer.
func (e *Explorer) Cache() *query.Cache {
	return e.cache
}

// PageSize returns the configured default page size.
func (e *Explorer) PageSize() int {
	return e.config.PageSize
}

// Query keys.

func listKey(size, offset int) string { return query.Key("pokemon-list", size, offset) }
func pokemonKey(id string) string     { return query.Key("pokemon", id) }
func speciesKey(id string) string     { return query.Key("pokemon-species", id) }
func chainKey(url string) string      { return query.Key("evolution-chain", url) }
func moveKey(id string) string        { return query.Key("move", id) }

// abandoned reports whether err only says that the caller's ctx ended. Such
// a stage is left loading; the shared fetch keeps running and is cached.
func abandoned(ctx context.Context, err error) bool {
	cerr := ctx.Err()
	return err != nil && cerr != nil && errors.Is(err, cerr)
}

// Pokemon returns one pokemon through the query cache.
func (e *Explorer) Pokemon(ctx context.Context, id string) (*pokeapi.Pokemon, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	return e.fetchPokemon(ctx, id)
}

func (e *Explorer) fetchPokemon(ctx context.Context, id string) (*pokeapi.Pokemon, error) {
	return query.Fetch(ctx, e.cache, pokemonKey(id), func(ctx context.Context) (*pokeapi.Pokemon, error) {
		return e.src.Pokemon(ctx, id)
	})
}
