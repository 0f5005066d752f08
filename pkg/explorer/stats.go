package explorer

import (
	"math"
	"sort"

	"github.com/Sternrassler/pokeapi-explorer/pkg/pokeapi"
	"github.com/Sternrassler/pokeapi-explorer/pkg/view"
)

// PowerScore is hp + speed + base experience (missing counts as 0).
func PowerScore(p *pokeapi.Pokemon) int {
	return p.Stat("hp") + p.Stat("speed") + p.BaseXP()
}

// Strongest returns the pokemon with the highest PowerScore; ties keep the
// earliest. It returns nil for an empty list.
func Strongest(list []*pokeapi.Pokemon) *pokeapi.Pokemon {
	if len(list) == 0 {
		return nil
	}
	best := list[0]
	for _, p := range list[1:] {
		if PowerScore(p) > PowerScore(best) {
			best = p
		}
	}
	return best
}

// AverageHP returns the mean hp of list, 0 when empty.
func AverageHP(list []*pokeapi.Pokemon) float64 {
	if len(list) == 0 {
		return 0
	}
	sum := 0
	for _, p := range list {
		sum += p.Stat("hp")
	}
	return float64(sum) / float64(len(list))
}

// TypeShare is the share of pokemon having a type.
type TypeShare struct {
	Type    string
	Count   int
	Percent int
}

// TopTypes is the number of types reported by TypeDistribution.
const TopTypes = 3

// TypeDistribution counts, per type, the pokemon having it (each pokemon at
// most once per type) and returns the TopTypes most common types in
// descending count order. Ties keep first-seen order.
func TypeDistribution(list []*pokeapi.Pokemon) []TypeShare {
	if len(list) == 0 {
		return nil
	}

	var shares []TypeShare
	index := make(map[string]int)
	for _, p := range list {
		seen := make(map[string]bool)
		for _, name := range p.TypeNames() {
			if seen[name] {
				continue
			}
			seen[name] = true
			if i, ok := index[name]; ok {
				shares[i].Count++
				continue
			}
			index[name] = len(shares)
			shares = append(shares, TypeShare{Type: name, Count: 1})
		}
	}

	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Count > shares[j].Count
	})
	if len(shares) > TopTypes {
		shares = shares[:TopTypes]
	}
	for i := range shares {
		shares[i].Percent = int(math.Round(float64(shares[i].Count) / float64(len(list)) * 100))
	}
	return shares
}

// StatTotal sums the six base stats.
func StatTotal(p *pokeapi.Pokemon) int {
	total := 0
	for _, name := range view.StatOrder {
		total += p.Stat(name)
	}
	return total
}

// PageStats is the aggregate header of a table page.
type PageStats struct {
	TotalCount     int
	AverageHP      float64
	Types          []TypeShare
	Strongest      *pokeapi.Pokemon
	StrongestScore int
}

// Aggregate computes the table header over the resolved pokemon of a page.
// It returns false for an empty list.
func Aggregate(list []*pokeapi.Pokemon, totalCount int) (PageStats, bool) {
	if len(list) == 0 {
		return PageStats{}, false
	}
	strongest := Strongest(list)
	return PageStats{
		TotalCount:     totalCount,
		AverageHP:      AverageHP(list),
		Types:          TypeDistribution(list),
		Strongest:      strongest,
		StrongestScore: PowerScore(strongest),
	}, true
}
