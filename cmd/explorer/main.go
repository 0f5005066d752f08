package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/pokeapi-explorer/internal/config"
	"github.com/Sternrassler/pokeapi-explorer/internal/server"
	"github.com/Sternrassler/pokeapi-explorer/pkg/client"
	"github.com/Sternrassler/pokeapi-explorer/pkg/explorer"
	"github.com/Sternrassler/pokeapi-explorer/pkg/logging"
	"github.com/Sternrassler/pokeapi-explorer/pkg/pagination"
	"github.com/Sternrassler/pokeapi-explorer/pkg/pokeapi"
	"github.com/Sternrassler/pokeapi-explorer/pkg/query"
	"github.com/Sternrassler/pokeapi-explorer/pkg/view"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config   string `help:"Path to the YAML config file." default:"explorer.yaml" type:"path"`
	EnvFile  string `help:"Path to a .env file." default:".env" name:"env-file" type:"path"`
	BaseURL  string `help:"PokeAPI base URL (overrides config)." name:"base-url"`
	LogLevel string `help:"Log level (overrides config)." name:"log-level" enum:",debug,info,warn,error" default:""`

	out io.Writer `kong:"-"`
}

// CLI is the top-level command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version." short:"V"`
	Serve   ServeCmd         `cmd:"" help:"Serve the explorer over HTTP."`
	Page    PageCmd          `cmd:"" help:"Print one table page."`
	Show    ShowCmd          `cmd:"" help:"Print one pokemon."`
}

// ServeCmd runs the HTTP server.
type ServeCmd struct {
	Port  string `help:"Listen port (overrides config)."`
	Redis string `help:"Redis URL for the response cache (overrides config)."`
}

// PageCmd prints a table page.
type PageCmd struct {
	Number int    `arg:"" optional:"" help:"Page number." default:"1"`
	Size   int    `help:"Page size (overrides config)."`
	Sort   string `help:"Sort column." enum:",name,hp,speed,baseXP" default:""`
	Dir    string `help:"Sort direction." enum:"asc,desc" default:"asc"`
	JSON   bool   `help:"Print JSON instead of a table." name:"json"`
}

// ShowCmd prints a pokemon's detail.
type ShowCmd struct {
	ID        string `arg:"" help:"Pokemon id or name."`
	Moves     string `help:"Filter moves by name."`
	MovesPage int    `help:"Moves page." name:"moves-page" default:"1"`
	JSON      bool   `help:"Print JSON instead of text." name:"json"`
}

// app holds the wired dependencies of a command.
type app struct {
	cfg      *config.Config
	client   *client.Client
	redis    *redis.Client
	explorer *explorer.Explorer
	logger   zerolog.Logger
}

func (a *app) Close() {
	a.client.Close()
	if a.redis != nil {
		a.redis.Close()
	}
}

// setup loads the configuration, applies overrides and wires the explorer.
func (g *Globals) setup(ctx context.Context, override func(*config.Config)) (*app, error) {
	cfg, err := config.Load(g.Config, g.EnvFile)
	if err != nil {
		return nil, err
	}
	if g.BaseURL != "" {
		cfg.API.BaseURL = g.BaseURL
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.Setup(cfg.Logging())
	logger := logging.NewLogger("cli")

	cc := cfg.Client()
	var rdb *redis.Client
	opts, err := cfg.RedisOptions()
	if err != nil {
		return nil, err
	}
	if opts != nil {
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}
		logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
		cc.Redis = rdb
	}

	c, err := client.New(cc)
	if err != nil {
		if rdb != nil {
			rdb.Close()
		}
		return nil, fmt.Errorf("create client: %w", err)
	}

	ex := explorer.New(c, query.New(cfg.QueryOptions()), cfg.ExplorerConfig())

	return &app{cfg: cfg, client: c, redis: rdb, explorer: ex, logger: logger}, nil
}

func (g *Globals) writer() io.Writer {
	if g.out == nil {
		return os.Stdout
	}
	return g.out
}

// Run executes the serve command.
func (s *ServeCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := g.setup(ctx, func(cfg *config.Config) {
		if s.Port != "" {
			cfg.Server.Port = s.Port
		}
		if s.Redis != "" {
			cfg.Redis.URL = s.Redis
		}
	})
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer a.Close()

	go a.explorer.Cache().Run(ctx, a.cfg.Explorer.GCInterval)

	srv, err := server.New(a.explorer, readyCheck(a.client), a.cfg.ServerConfig())
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	a.logger.Info().
		Str("base_url", a.cfg.API.BaseURL).
		Str("user_agent", a.cfg.API.UserAgent).
		Bool("response_cache", a.redis != nil).
		Msg("Starting explorer")

	if err := srv.ListenAndServe(ctx, a.cfg.Addr(), a.cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	a.logger.Info().Msg("Explorer stopped")
	return nil
}

// readyCheck fails while the response cache is unreachable or the upstream
// asked us to back off.
func readyCheck(c *client.Client) server.ReadyCheck {
	return func(ctx context.Context) error {
		if err := c.Ping(ctx); err != nil {
			return fmt.Errorf("response cache: %w", err)
		}
		if st := c.RateLimitState(); st.IsBlocked() {
			return fmt.Errorf("upstream back-pressure for %s", st.TimeUntilReset().Round(time.Second))
		}
		return nil
	}
}

// Run executes the page command.
func (p *PageCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := g.setup(ctx, nil)
	if err != nil {
		return fmt.Errorf("page: %w", err)
	}
	defer a.Close()

	size := a.explorer.PageSize()
	if p.Size > 0 {
		size = p.Size
	}

	load := a.explorer.LoadPage(ctx, p.Number, size)
	defer load.Release()

	snap, err := load.Wait(ctx)
	if err != nil {
		return fmt.Errorf("page: %w", err)
	}
	if snap.IsError {
		return fmt.Errorf("page: %w", snap.Err)
	}

	sorted := explorer.SortPokemon(snap.Pokemon, explorer.Sort{
		Column:    explorer.ParseColumn(p.Sort),
		Direction: explorer.ParseDirection(p.Dir),
	})

	w := g.writer()
	if p.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sorted)
	}
	return printPage(w, snap, sorted)
}

func printPage(w io.Writer, snap explorer.PageSnapshot, list []*pokeapi.Pokemon) error {
	if ps, ok := explorer.Aggregate(snap.Pokemon, snap.Count); ok {
		types := make([]string, 0, len(ps.Types))
		for _, t := range ps.Types {
			types = append(types, fmt.Sprintf("%s %d%%", t.Type, t.Percent))
		}
		fmt.Fprintf(w, "Total: %s  Average HP: %s  Types: %s  Most powerful: %s (Score: %d)\n\n",
			view.Thousands(ps.TotalCount),
			view.OneDecimal(ps.AverageHP),
			strings.Join(types, ", "),
			view.FormatName(ps.Strongest.Name),
			ps.StrongestScore)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tTYPES\tHP\tSPEED\tBASE XP\tABILITY")
	for _, pk := range list {
		ability := view.Placeholder
		if a := pk.PrimaryAbility(); a != "" {
			ability = view.FormatName(a)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			view.PaddedID(pk.ID),
			view.FormatName(pk.Name),
			strings.Join(pk.TypeNames(), "/"),
			pk.Stat("hp"),
			pk.Stat("speed"),
			view.OptionalInt(pk.BaseExperience),
			ability)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nPage %d of %d\n", snap.Page, pagination.TotalPages(snap.Count, snap.PageSize))
	return nil
}

// Run executes the show command.
func (s *ShowCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := g.setup(ctx, nil)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	defer a.Close()

	load := a.explorer.LoadDetail(ctx, s.ID)
	defer load.Release()

	snap, err := load.Wait(ctx)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	if snap.IsError {
		return fmt.Errorf("show: %w", snap.Err)
	}
	if snap.Pokemon == nil {
		return fmt.Errorf("show: %w", explorer.ErrMissingID)
	}

	moves := a.explorer.MovesView(ctx, snap.Pokemon, s.Moves, s.MovesPage)

	w := g.writer()
	if s.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Pokemon   *pokeapi.Pokemon  `json:"pokemon"`
			Evolution []explorer.Stage  `json:"evolution,omitempty"`
			Moves     explorer.MovePage `json:"moves"`
		}{snap.Pokemon, snap.Evolution(), moves})
	}
	return printDetail(w, snap, moves)
}

func printDetail(w io.Writer, snap explorer.DetailSnapshot, moves explorer.MovePage) error {
	p := snap.Pokemon

	fmt.Fprintf(w, "%s %s\n", view.FormatName(p.Name), view.PaddedID(p.ID))

	types := make([]string, 0, len(p.Types))
	for _, t := range p.TypeNames() {
		types = append(types, view.StyleFor(t).Icon+" "+view.Capitalize(t))
	}
	fmt.Fprintf(w, "Type: %s\n", strings.Join(types, ", "))

	abilities := make([]string, 0, len(p.Abilities))
	for _, ab := range p.Abilities {
		name := view.FormatName(ab.Ability.Name)
		if ab.IsHidden {
			name += " (Hidden)"
		}
		abilities = append(abilities, name)
	}
	fmt.Fprintf(w, "Abilities: %s\n", strings.Join(abilities, ", "))
	fmt.Fprintf(w, "Height: %s  Weight: %s  Base Exp: %s\n\n",
		view.Decimetres(p.Height), view.Hectograms(p.Weight), view.OptionalInt(p.BaseExperience))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range view.StatOrder {
		v := p.Stat(name)
		fmt.Fprintf(tw, "%s\t%d\t%s%%\n", view.StatStyleFor(name).Label, v, view.StatPercent(v))
	}
	fmt.Fprintf(tw, "Total\t%d\t\n", explorer.StatTotal(p))
	if err := tw.Flush(); err != nil {
		return err
	}

	if snap.Chain != nil {
		stages := snap.Evolution()
		if explorer.HasEvolutions(stages) {
			names := make([]string, 0, len(stages))
			for _, st := range stages {
				names = append(names, view.FormatName(st.Name))
			}
			fmt.Fprintf(w, "\nEvolution: %s\n", strings.Join(names, " → "))
		} else {
			fmt.Fprintln(w, "\nEvolution: No evolutions")
		}
	}

	if len(p.Moves) > 0 {
		fmt.Fprintln(w, "\nMoves:")
		if len(moves.Moves) == 0 {
			fmt.Fprintln(w, "  (no matching moves)")
		}
		for _, m := range moves.Moves {
			if m.Type != "" {
				fmt.Fprintf(w, "  %s [%s]\n", m.Display, m.Type)
			} else {
				fmt.Fprintf(w, "  %s\n", m.Display)
			}
		}
		if moves.ShowPagination() {
			fmt.Fprintf(w, "  %d / %d (%d total)\n", moves.Page, moves.TotalPages, moves.Total)
		}
	}
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("pokeapi-explorer"),
		kong.Description("Browse the PokeAPI catalogue."),
		kong.Vars{"version": version + " " + commit},
	)
	if err := ctx.Run(&cli.Globals); err != nil {
		log.Error().Err(err).Msg("Command failed")
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
