package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Sternrassler/pokeapi-explorer/pkg/explorer"
	"github.com/Sternrassler/pokeapi-explorer/pkg/pokeapi"
)

type pokemonSummary struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	Types          []string `json:"types"`
	HP             int      `json:"hp"`
	Speed          int      `json:"speed"`
	BaseExperience *int     `json:"base_experience"`
	PrimaryAbility string   `json:"primary_ability,omitempty"`
	Sprite         *string  `json:"sprite"`
	PowerScore     int      `json:"power_score"`
}

type typeShareJSON struct {
	Type    string `json:"type"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

type statsJSON struct {
	TotalCount     int             `json:"total_count"`
	AverageHP      float64         `json:"average_hp"`
	Types          []typeShareJSON `json:"types"`
	Strongest      string          `json:"strongest"`
	StrongestScore int             `json:"strongest_score"`
}

type pageJSON struct {
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	Count      int              `json:"count"`
	TotalPages int              `json:"total_pages"`
	IsLoading  bool             `json:"is_loading"`
	Pokemon    []pokemonSummary `json:"pokemon"`
	Stats      *statsJSON       `json:"stats,omitempty"`
}

type stageJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type detailJSON struct {
	Pokemon      *pokeapi.Pokemon `json:"pokemon"`
	StatTotal    int              `json:"stat_total"`
	Evolution    []stageJSON      `json:"evolution,omitempty"`
	SpeciesError string           `json:"species_error,omitempty"`
	ChainError   string           `json:"chain_error,omitempty"`
}

func summarize(p *pokeapi.Pokemon) pokemonSummary {
	return pokemonSummary{
		ID:             p.ID,
		Name:           p.Name,
		Types:          p.TypeNames(),
		HP:             p.Stat("hp"),
		Speed:          p.Stat("speed"),
		BaseExperience: p.BaseExperience,
		PrimaryAbility: p.PrimaryAbility(),
		Sprite:         p.Sprites.FrontDefault,
		PowerScore:     explorer.PowerScore(p),
	}
}

func errorJSON(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": errorMessage(err)})
}

// listJSON serves GET /api/pokemon?page=N&size=S&sort=&dir=.
func (s *Server) listJSON(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	size := s.explorer.PageSize()
	if v, err := strconv.Atoi(c.Query("size")); err == nil && v > 0 {
		size = min(v, s.config.MaxPageSize)
	}

	load := s.explorer.LoadPage(ctx, parsePage(c.Query("page")), size)
	defer load.Release()

	snap, _ := load.Wait(ctx)
	if snap.IsError {
		errorJSON(c, http.StatusBadGateway, snap.Err)
		return
	}

	resp := pageJSON{
		Page:       snap.Page,
		PageSize:   snap.PageSize,
		Count:      snap.Count,
		TotalPages: snap.TotalPages(),
		IsLoading:  snap.IsLoading,
		Pokemon:    []pokemonSummary{},
	}
	for _, p := range explorer.SortPokemon(snap.Pokemon, sortFromQuery(c)) {
		resp.Pokemon = append(resp.Pokemon, summarize(p))
	}
	if !snap.IsLoading {
		if ps, ok := explorer.Aggregate(snap.Pokemon, snap.Count); ok {
			st := &statsJSON{
				TotalCount:     ps.TotalCount,
				AverageHP:      ps.AverageHP,
				Types:          []typeShareJSON{},
				Strongest:      ps.Strongest.Name,
				StrongestScore: ps.StrongestScore,
			}
			for _, t := range ps.Types {
				st.Types = append(st.Types, typeShareJSON{Type: t.Type, Count: t.Count, Percent: t.Percent})
			}
			resp.Stats = st
		}
	}

	c.JSON(http.StatusOK, resp)
}

// detailJSON serves GET /api/pokemon/:id.
func (s *Server) detailJSON(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	load := s.explorer.LoadDetail(ctx, c.Param("id"))
	defer load.Release()

	snap, err := load.Wait(ctx)
	if snap.IsError {
		errorJSON(c, errorStatus(snap.Err), snap.Err)
		return
	}
	if snap.Pokemon == nil {
		errorJSON(c, http.StatusGatewayTimeout, err)
		return
	}

	resp := detailJSON{
		Pokemon:   snap.Pokemon,
		StatTotal: explorer.StatTotal(snap.Pokemon),
	}
	for _, st := range snap.Evolution() {
		resp.Evolution = append(resp.Evolution, stageJSON{ID: st.ID, Name: st.Name})
	}
	if snap.SpeciesErr != nil {
		resp.SpeciesError = snap.SpeciesErr.Error()
	}
	if snap.ChainErr != nil {
		resp.ChainError = snap.ChainErr.Error()
	}

	c.JSON(http.StatusOK, resp)
}

// movesJSON serves GET /api/pokemon/:id/moves?q=&page=.
func (s *Server) movesJSON(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	p, err := s.explorer.Pokemon(ctx, c.Param("id"))
	if err != nil {
		errorJSON(c, errorStatus(err), err)
		return
	}

	mp := s.explorer.MovesView(ctx, p, c.Query("q"), parsePage(c.Query("page")))
	if mp.Moves == nil {
		mp.Moves = []explorer.MoveEntry{}
	}
	c.JSON(http.StatusOK, mp)
}
