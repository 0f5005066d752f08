package explorer

import "github.com/Sternrassler/pokeapi-explorer/pkg/pokeapi"

// Stage is one step of a flattened evolution chain.
type Stage struct {
	Name string
	ID   string
}

// FlattenChain walks the chain from its root following only the first
// branch at each level. The result always holds at least the root.
func FlattenChain(root pokeapi.ChainLink) []Stage {
	var stages []Stage
	node := &root
	for node != nil {
		stages = append(stages, Stage{
			Name: node.Species.Name,
			ID:   node.Species.ID(),
		})
		if len(node.EvolvesTo) == 0 {
			break
		}
		node = &node.EvolvesTo[0]
	}
	return stages
}

// HasEvolutions reports whether a flattened chain has more than one stage.
func HasEvolutions(stages []Stage) bool {
	return len(stages) > 1
}
