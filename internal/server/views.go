package server

import (
	"fmt"
	"html/template"
	"net/url"
	"strconv"

	"github.com/Sternrassler/pokeapi-explorer/pkg/explorer"
	"github.com/Sternrassler/pokeapi-explorer/pkg/pokeapi"
	"github.com/Sternrassler/pokeapi-explorer/pkg/view"
)

type badgeView struct {
	Label    string
	Icon     string
	Style    template.CSS
	IconOnly bool
}

func typeBadge(typeName string, iconOnly bool) badgeView {
	st := view.StyleFor(typeName)
	return badgeView{
		Label:    view.Capitalize(typeName),
		Icon:     st.Icon,
		Style:    template.CSS(fmt.Sprintf("background:%s;color:%s", st.Background, st.Text)),
		IconOnly: iconOnly,
	}
}

func typeBadges(p *pokeapi.Pokemon) []badgeView {
	names := p.TypeNames()
	out := make([]badgeView, 0, len(names))
	for _, n := range names {
		out = append(out, typeBadge(n, false))
	}
	return out
}

type errorView struct {
	Message  string
	RetryURL string
}

// Table page.

type tablePage struct {
	Title      string
	Refresh    bool
	Loading    bool
	Error      *errorView
	Stats      *statsView
	Columns    []columnView
	Rows       []rowView
	Pagination *paginationView
}

type statsView struct {
	TotalCount     string
	AverageHP      string
	Types          []typeShareView
	Strongest      string
	StrongestScore int
}

type typeShareView struct {
	Badge   badgeView
	Percent int
}

type columnView struct {
	Label     string
	URL       string
	Indicator string
	AriaSort  string
}

type rowView struct {
	URL     string
	Name    string
	Sprite  string
	BaseXP  string
	Types   []badgeView
	HP      string
	Speed   string
	Ability string
}

type paginationView struct {
	Page       int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	PrevURL    string
	NextURL    string
}

// tableURL builds a table link keeping the sort state.
func tableURL(page int, s explorer.Sort) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if s.Column != explorer.ColumnNone {
		q.Set("sort", string(s.Column))
		q.Set("dir", string(s.Direction))
	}
	return "/?" + q.Encode()
}

var tableColumns = []struct {
	label  string
	column explorer.Column
}{
	{"Pokémon", explorer.ColumnName},
	{"Type", explorer.ColumnNone},
	{"HP", explorer.ColumnHP},
	{"Speed", explorer.ColumnSpeed},
	// The ability column orders by base experience.
	{"Primary Ability", explorer.ColumnBaseXP},
}

func buildColumns(page int, s explorer.Sort) []columnView {
	out := make([]columnView, 0, len(tableColumns))
	for _, c := range tableColumns {
		col := columnView{Label: c.label}
		if c.column != explorer.ColumnNone {
			col.URL = tableURL(page, s.Toggle(c.column))
			col.Indicator = s.Indicator(c.column)
			col.AriaSort = "none"
			if s.Column == c.column {
				col.AriaSort = string(s.Direction) + "ending"
			}
		}
		out = append(out, col)
	}
	return out
}

func statValue(p *pokeapi.Pokemon, name string) string {
	if !p.HasStat(name) {
		return view.Placeholder
	}
	return strconv.Itoa(p.Stat(name))
}

func buildRow(p *pokeapi.Pokemon) rowView {
	r := rowView{
		URL:     "/pokemon/" + strconv.Itoa(p.ID),
		Name:    view.FormatName(p.Name),
		BaseXP:  view.OptionalInt(p.BaseExperience),
		Types:   typeBadges(p),
		HP:      statValue(p, "hp"),
		Speed:   statValue(p, "speed"),
		Ability: view.Placeholder,
	}
	if p.Sprites.FrontDefault != nil {
		r.Sprite = *p.Sprites.FrontDefault
	}
	if a := p.PrimaryAbility(); a != "" {
		r.Ability = view.FormatName(a)
	}
	return r
}

func buildStats(ps explorer.PageStats) *statsView {
	sv := &statsView{
		TotalCount:     view.Thousands(ps.TotalCount),
		AverageHP:      view.OneDecimal(ps.AverageHP),
		Strongest:      view.FormatName(ps.Strongest.Name),
		StrongestScore: ps.StrongestScore,
	}
	for _, t := range ps.Types {
		sv.Types = append(sv.Types, typeShareView{Badge: typeBadge(t.Type, true), Percent: t.Percent})
	}
	return sv
}

// buildTablePage maps a settled or timed-out page snapshot onto the table
// template. Stats and rows only show once the page loaded without error.
func buildTablePage(snap explorer.PageSnapshot, s explorer.Sort, retryURL string) tablePage {
	tp := tablePage{
		Title:   "Pokémon Collection",
		Loading: snap.IsLoading,
		Refresh: snap.IsLoading,
	}
	if snap.IsError {
		tp.Error = &errorView{Message: errorMessage(snap.Err), RetryURL: retryURL}
		return tp
	}
	if snap.IsLoading || len(snap.Pokemon) == 0 {
		return tp
	}

	if ps, ok := explorer.Aggregate(snap.Pokemon, snap.Count); ok {
		tp.Stats = buildStats(ps)
	}

	tp.Columns = buildColumns(snap.Page, s)
	for _, p := range explorer.SortPokemon(snap.Pokemon, s) {
		tp.Rows = append(tp.Rows, buildRow(p))
	}

	if total := snap.TotalPages(); total > 1 {
		tp.Pagination = &paginationView{
			Page:       snap.Page,
			TotalPages: total,
			HasPrev:    snap.Page > 1,
			HasNext:    snap.Page < total,
			PrevURL:    tableURL(snap.Page-1, s),
			NextURL:    tableURL(snap.Page+1, s),
		}
	}
	return tp
}

// Detail page.

type detailPage struct {
	Title          string
	Refresh        bool
	Loading        bool
	LoadingMessage string
	Error          *errorView
	Pokemon        *pokemonView
}

type pokemonView struct {
	Name      string
	Number    string
	HeroStyle template.CSS
	Artwork   string
	Types     []badgeView
	Abilities []abilityView
	Height    string
	Weight    string
	BaseXP    string
	Stats     []statView
	StatTotal int
	Evolution *evolutionView
	Moves     *movesView
}

type abilityView struct {
	Name   string
	Hidden bool
}

type statView struct {
	Label string
	Value int
	Style template.CSS
}

type evolutionView struct {
	// Stages is empty when the chain has a single stage
	Stages []stageView
}

type stageView struct {
	Name    string
	URL     string
	Sprite  string
	Current bool
}

type movesView struct {
	Query          string
	Entries        []moveView
	Page           int
	TotalPages     int
	Total          int
	ShowPagination bool
	HasPrev        bool
	HasNext        bool
	PrevURL        string
	NextURL        string
}

type moveView struct {
	Name  string
	Badge *badgeView
}

func buildEvolution(stages []explorer.Stage, currentID string) *evolutionView {
	ev := &evolutionView{}
	if !explorer.HasEvolutions(stages) {
		return ev
	}
	for _, st := range stages {
		ev.Stages = append(ev.Stages, stageView{
			Name:    view.FormatName(st.Name),
			URL:     "/pokemon/" + st.ID,
			Sprite:  view.SpriteURL(st.ID),
			Current: st.ID == currentID,
		})
	}
	return ev
}

// movesURL links a moves page of the detail page at path.
func movesURL(path, q string, page int) string {
	v := url.Values{}
	if q != "" {
		v.Set("q", q)
	}
	v.Set("mpage", strconv.Itoa(page))
	return path + "?" + v.Encode()
}

func buildMoves(mp explorer.MovePage, q, path string) *movesView {
	mv := &movesView{
		Query:          q,
		Page:           mp.Page,
		TotalPages:     mp.TotalPages,
		Total:          mp.Total,
		ShowPagination: mp.ShowPagination(),
		HasPrev:        mp.Page > 1,
		HasNext:        mp.Page < mp.TotalPages,
		PrevURL:        movesURL(path, q, mp.Page-1),
		NextURL:        movesURL(path, q, mp.Page+1),
	}
	for _, m := range mp.Moves {
		entry := moveView{Name: m.Display}
		if m.Type != "" {
			b := typeBadge(m.Type, false)
			entry.Badge = &b
		}
		mv.Entries = append(mv.Entries, entry)
	}
	return mv
}

func buildPokemon(snap explorer.DetailSnapshot) *pokemonView {
	p := snap.Pokemon
	primary := "normal"
	if names := p.TypeNames(); len(names) > 0 {
		primary = names[0]
	}

	pv := &pokemonView{
		Name:      view.FormatName(p.Name),
		Number:    view.PaddedID(p.ID),
		HeroStyle: template.CSS("background:" + view.GradientFor(primary)),
		Types:     typeBadges(p),
		Height:    view.Decimetres(p.Height),
		Weight:    view.Hectograms(p.Weight),
		BaseXP:    view.OptionalInt(p.BaseExperience),
		StatTotal: explorer.StatTotal(p),
	}
	if art := p.Sprites.Other.OfficialArtwork.FrontDefault; art != nil {
		pv.Artwork = *art
	}
	for _, a := range p.Abilities {
		pv.Abilities = append(pv.Abilities, abilityView{Name: view.FormatName(a.Ability.Name), Hidden: a.IsHidden})
	}
	for _, name := range view.StatOrder {
		st := view.StatStyleFor(name)
		v := p.Stat(name)
		pv.Stats = append(pv.Stats, statView{
			Label: st.Label,
			Value: v,
			Style: template.CSS(fmt.Sprintf("width:%s%%;background:%s", view.StatPercent(v), st.Color)),
		})
	}
	if snap.Chain != nil {
		pv.Evolution = buildEvolution(snap.Evolution(), snap.ID)
	}
	return pv
}
