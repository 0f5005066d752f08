// Package pokeapi defines the PokeAPI v2 resources consumed by the explorer.
// Only the fields the explorer reads are modelled; unknown fields are ignored
// by the JSON decoder.
package pokeapi

import (
	"strings"
)

// NamedResource is a lightweight reference to another resource (name + URL).
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ID returns the identifier encoded in the resource URL.
func (r NamedResource) ID() string {
	return IDFromURL(r.URL)
}

// ListPage is one page of the paged pokemon index.
type ListPage struct {
	Count    int             `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  []NamedResource `json:"results"`
}

// Pokemon is the full detail record for one pokemon.
type Pokemon struct {
	ID             int           `json:"id"`
	Name           string        `json:"name"`
	BaseExperience *int          `json:"base_experience"`
	Height         int           `json:"height"`
	Weight         int           `json:"weight"`
	Types          []TypeSlot    `json:"types"`
	Abilities      []AbilitySlot `json:"abilities"`
	Stats          []StatValue   `json:"stats"`
	Sprites        Sprites       `json:"sprites"`
	Moves          []MoveSlot    `json:"moves"`
}

// TypeSlot is one entry of Pokemon.Types.
type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

// AbilitySlot is one entry of Pokemon.Abilities.
type AbilitySlot struct {
	Ability  NamedResource `json:"ability"`
	IsHidden bool          `json:"is_hidden"`
	Slot     int           `json:"slot"`
}

// StatValue is one base stat of a pokemon.
type StatValue struct {
	BaseStat int           `json:"base_stat"`
	Effort   int           `json:"effort"`
	Stat     NamedResource `json:"stat"`
}

// MoveSlot is one learnable move of a pokemon.
type MoveSlot struct {
	Move NamedResource `json:"move"`
}

// Sprites holds the image URLs of a pokemon.
type Sprites struct {
	FrontDefault *string      `json:"front_default"`
	Other        OtherSprites `json:"other"`
}

// OtherSprites holds alternative artwork sets.
type OtherSprites struct {
	OfficialArtwork Artwork `json:"official-artwork"`
}

// Artwork is a single artwork set.
type Artwork struct {
	FrontDefault *string `json:"front_default"`
}

// Species is the per-pokemon species record. The explorer only needs the
// evolution chain reference.
type Species struct {
	ID             int          `json:"id"`
	Name           string       `json:"name"`
	EvolutionChain *ResourceURL `json:"evolution_chain"`
}

// ChainURL returns the evolution chain URL, or "" when the species has none.
func (s *Species) ChainURL() string {
	if s == nil || s.EvolutionChain == nil {
		return ""
	}
	return s.EvolutionChain.URL
}

// ResourceURL is an unnamed resource reference.
type ResourceURL struct {
	URL string `json:"url"`
}

// EvolutionChain is the chain graph resource.
type EvolutionChain struct {
	ID    int       `json:"id"`
	Chain ChainLink `json:"chain"`
}

// ChainLink is one node of an evolution chain tree.
type ChainLink struct {
	Species   NamedResource `json:"species"`
	EvolvesTo []ChainLink   `json:"evolves_to"`
}

// Move is a move resource.
type Move struct {
	ID   int           `json:"id"`
	Name string        `json:"name"`
	Type NamedResource `json:"type"`
}

// IDFromURL returns the trailing non-empty path segment of a resource URL,
// e.g. "https://pokeapi.co/api/v2/pokemon/4/" -> "4".
func IDFromURL(url string) string {
	segments := strings.Split(url, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}

// Stat returns the base value of the named stat, or 0 when absent.
func (p *Pokemon) Stat(name string) int {
	if p == nil {
		return 0
	}
	for _, s := range p.Stats {
		if s.Stat.Name == name {
			return s.BaseStat
		}
	}
	return 0
}

// HasStat reports whether the named stat is present.
func (p *Pokemon) HasStat(name string) bool {
	if p == nil {
		return false
	}
	for _, s := range p.Stats {
		if s.Stat.Name == name {
			return true
		}
	}
	return false
}

// BaseXP returns BaseExperience, treating a missing value as 0.
func (p *Pokemon) BaseXP() int {
	if p == nil || p.BaseExperience == nil {
		return 0
	}
	return *p.BaseExperience
}

// PrimaryAbility returns the first non-hidden ability name, or "".
func (p *Pokemon) PrimaryAbility() string {
	if p == nil {
		return ""
	}
	for _, a := range p.Abilities {
		if !a.IsHidden {
			return a.Ability.Name
		}
	}
	return ""
}

// TypeNames returns the type names in slot order.
func (p *Pokemon) TypeNames() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.Types))
	for _, t := range p.Types {
		names = append(names, t.Type.Name)
	}
	return names
}
