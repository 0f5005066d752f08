package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sternrassler/pokeapi-explorer/pkg/explorer"
	"github.com/Sternrassler/pokeapi-explorer/pkg/logging"
)

func sortFromQuery(c *gin.Context) explorer.Sort {
	return explorer.Sort{
		Column:    explorer.ParseColumn(c.Query("sort")),
		Direction: explorer.ParseDirection(c.Query("dir")),
	}
}

// tablePage renders GET /?page=N.
func (s *Server) tablePage(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	load := s.explorer.LoadPage(ctx, parsePage(c.Query("page")), s.explorer.PageSize())
	defer load.Release()

	snap, err := load.Wait(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logging.FromContext(c.Request.Context()).Debug().Err(err).Msg("Page load abandoned")
	}

	tp := buildTablePage(snap, sortFromQuery(c), c.Request.URL.RequestURI())
	status := http.StatusOK
	if tp.Error != nil {
		status = http.StatusBadGateway
	}
	c.HTML(status, "table.html", tp)
}

// detailPage renders GET /pokemon/:id.
func (s *Server) detailPage(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	id := c.Param("id")
	load := s.explorer.LoadDetail(ctx, id)
	defer load.Release()

	snap, _ := load.Wait(ctx)

	dp := detailPage{
		Title:          "Pokémon #" + id,
		LoadingMessage: "Loading Pokémon #" + id + "…",
	}

	switch {
	case snap.IsError:
		dp.Error = &errorView{Message: errorMessage(snap.Err), RetryURL: c.Request.URL.RequestURI()}
		c.HTML(http.StatusBadGateway, "detail.html", dp)
		return
	case snap.IsLoading || snap.Pokemon == nil:
		dp.Loading = true
		dp.Refresh = true
		c.HTML(http.StatusOK, "detail.html", dp)
		return
	}

	pv := buildPokemon(snap)
	dp.Title = pv.Name
	if len(snap.Pokemon.Moves) > 0 {
		q := c.Query("q")
		mp := s.explorer.MovesView(ctx, snap.Pokemon, q, parsePage(c.Query("mpage")))
		pv.Moves = buildMoves(mp, q, c.Request.URL.Path)
	}
	dp.Pokemon = pv

	c.HTML(http.StatusOK, "detail.html", dp)
}
