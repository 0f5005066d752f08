package explorer

import (
	"sort"
	"strings"

	"github.com/Sternrassler/pokeapi-explorer/pkg/pokeapi"
)

// Column is a sortable table column.
type Column string

const (
	ColumnNone   Column = ""
	ColumnName   Column = "name"
	ColumnHP     Column = "hp"
	ColumnSpeed  Column = "speed"
	ColumnBaseXP Column = "baseXP"
)

// ParseColumn returns the column for s, ColumnNone when unknown.
func ParseColumn(s string) Column {
	switch Column(s) {
	case ColumnName, ColumnHP, ColumnSpeed, ColumnBaseXP:
		return Column(s)
	}
	return ColumnNone
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection returns Desc for "desc" and Asc otherwise.
func ParseDirection(s string) Direction {
	if Direction(s) == Desc {
		return Desc
	}
	return Asc
}

// Sort is the table sort state.
type Sort struct {
	Column    Column
	Direction Direction
}

// Toggle returns the state after clicking column: the same column flips
// direction, a new column starts ascending.
func (s Sort) Toggle(column Column) Sort {
	if s.Column == column {
		if s.Direction == Asc {
			return Sort{Column: column, Direction: Desc}
		}
		return Sort{Column: column, Direction: Asc}
	}
	return Sort{Column: column, Direction: Asc}
}

// Indicator returns the header arrow for column under s.
func (s Sort) Indicator(column Column) string {
	if s.Column != column {
		return "↕"
	}
	if s.Direction == Desc {
		return "↓"
	}
	return "↑"
}

// SortPokemon returns a sorted copy of list. ColumnNone keeps the original
// order. The sort is stable.
func SortPokemon(list []*pokeapi.Pokemon, s Sort) []*pokeapi.Pokemon {
	out := make([]*pokeapi.Pokemon, len(list))
	copy(out, list)
	if s.Column == ColumnNone {
		return out
	}

	dir := 1
	if s.Direction == Desc {
		dir = -1
	}

	sort.SliceStable(out, func(i, j int) bool {
		return dir*compare(out[i], out[j], s.Column) < 0
	})
	return out
}

func compare(a, b *pokeapi.Pokemon, column Column) int {
	switch column {
	case ColumnName:
		return strings.Compare(a.Name, b.Name)
	case ColumnHP:
		return a.Stat("hp") - b.Stat("hp")
	case ColumnSpeed:
		return a.Stat("speed") - b.Stat("speed")
	case ColumnBaseXP:
		return a.BaseXP() - b.BaseXP()
	}
	return 0
}
