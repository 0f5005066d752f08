package explorer

import (
	"context"
	"strings"

	"github.com/Sternrassler/pokeapi-explorer/pkg/pagination"
	"github.com/Sternrassler/pokeapi-explorer/pkg/pokeapi"
	"github.com/Sternrassler/pokeapi-explorer/pkg/query"
	"github.com/Sternrassler/pokeapi-explorer/pkg/view"
)

// MovesPerPage is the page size of the moves section.
const MovesPerPage = 20

// MoveEntry is one learnable move as displayed.
type MoveEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Display is the formatted name the filter matches against
	Display string `json:"display"`
	// Type is filled by MoveTypes; empty when unknown
	Type string `json:"type,omitempty"`
}

// MoveEntries lists the moves of p in API order.
func MoveEntries(p *pokeapi.Pokemon) []MoveEntry {
	if p == nil {
		return nil
	}
	out := make([]MoveEntry, 0, len(p.Moves))
	for _, m := range p.Moves {
		out = append(out, MoveEntry{
			ID:      m.Move.ID(),
			Name:    m.Move.Name,
			Display: view.FormatName(m.Move.Name),
		})
	}
	return out
}

// FilterMoves keeps moves whose formatted name contains q, ignoring case.
// An empty q keeps everything.
func FilterMoves(moves []MoveEntry, q string) []MoveEntry {
	if q == "" {
		return moves
	}
	needle := strings.ToLower(q)
	out := make([]MoveEntry, 0, len(moves))
	for _, m := range moves {
		if strings.Contains(strings.ToLower(m.Display), needle) {
			out = append(out, m)
		}
	}
	return out
}

// MovePage is one page of the (filtered) moves list.
type MovePage struct {
	Moves      []MoveEntry `json:"moves"`
	Page       int         `json:"page"`
	TotalPages int         `json:"totalPages"`
	Total      int         `json:"total"`
}

// ShowPagination reports whether the list spans more than one page.
func (p MovePage) ShowPagination() bool {
	return p.Total > MovesPerPage
}

// PaginateMoves returns page of moves, MovesPerPage per page.
func PaginateMoves(moves []MoveEntry, page int) MovePage {
	page = pagination.ClampPage(page)
	return MovePage{
		Moves:      pagination.Slice(moves, page, MovesPerPage),
		Page:       page,
		TotalPages: pagination.TotalPages(len(moves), MovesPerPage),
		Total:      len(moves),
	}
}

// MoveTypes fetches the type of every move in parallel and returns a copy of
// moves with Type filled. Move records never go stale. A failed fetch leaves
// its Type empty.
func (e *Explorer) MoveTypes(ctx context.Context, moves []MoveEntry) []MoveEntry {
	out := make([]MoveEntry, len(moves))
	copy(out, moves)

	batch := pagination.Gather(ctx, e.config.Gather, len(moves), func(ctx context.Context, i int) (*pokeapi.Move, error) {
		id := moves[i].ID
		if id == "" {
			return nil, ErrMissingID
		}
		return query.Fetch(ctx, e.cache, moveKey(id), func(ctx context.Context) (*pokeapi.Move, error) {
			return e.src.Move(ctx, id)
		}, query.WithStaleTime(query.StaleNever))
	})

	slots, err := batch.Wait(ctx)
	if err != nil {
		e.logger.Debug().Err(err).Msg("Move type lookup interrupted")
	}
	for i, slot := range slots {
		if slot.Status == pagination.Succeeded && slot.Value != nil {
			out[i].Type = slot.Value.Type.Name
		}
	}
	return out
}

// MovesView filters, paginates and type-enriches the moves of p.
func (e *Explorer) MovesView(ctx context.Context, p *pokeapi.Pokemon, q string, page int) MovePage {
	mp := PaginateMoves(FilterMoves(MoveEntries(p), q), page)
	mp.Moves = e.MoveTypes(ctx, mp.Moves)
	return mp
}
