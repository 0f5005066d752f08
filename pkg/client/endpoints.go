package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Sternrassler/pokeapi-explorer/pkg/pokeapi"
)

// Endpoint templates relative to the base URL.

// ListPath is the paged pokemon index.
func ListPath(limit, offset int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return "pokemon?" + q.Encode()
}

// PokemonPath is a single pokemon by id or name.
func PokemonPath(idOrName string) string {
	return "pokemon/" + url.PathEscape(idOrName)
}

// SpeciesPath is a pokemon species by id.
func SpeciesPath(id string) string {
	return "pokemon-species/" + url.PathEscape(id)
}

// MovePath is a move by id or name.
func MovePath(idOrName string) string {
	return "move/" + url.PathEscape(idOrName)
}

// ListPokemon fetches one page of the pokemon index.
func (c *Client) ListPokemon(ctx context.Context, limit, offset int) (*pokeapi.ListPage, error) {
	var page pokeapi.ListPage
	if err := c.GetJSON(ctx, ListPath(limit, offset), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Pokemon fetches a pokemon by id or name.
func (c *Client) Pokemon(ctx context.Context, idOrName string) (*pokeapi.Pokemon, error) {
	var p pokeapi.Pokemon
	if err := c.GetJSON(ctx, PokemonPath(idOrName), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Species fetches the species record of a pokemon.
func (c *Client) Species(ctx context.Context, id string) (*pokeapi.Species, error) {
	var s pokeapi.Species
	if err := c.GetJSON(ctx, SpeciesPath(id), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// EvolutionChain fetches a chain graph by the absolute URL found in a species
// record.
func (c *Client) EvolutionChain(ctx context.Context, chainURL string) (*pokeapi.EvolutionChain, error) {
	u, err := url.Parse(chainURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("evolution chain url must be absolute (got %q)", chainURL)
	}
	var chain pokeapi.EvolutionChain
	if err := c.GetJSON(ctx, chainURL, &chain); err != nil {
		return nil, err
	}
	return &chain, nil
}

// Move fetches a move by id or name.
func (c *Client) Move(ctx context.Context, idOrName string) (*pokeapi.Move, error) {
	var m pokeapi.Move
	if err := c.GetJSON(ctx, MovePath(idOrName), &m); err != nil {
		return nil, err
	}
	return &m, nil
}
