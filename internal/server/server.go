// Package server exposes the explorer over HTTP: the table and detail HTML
// pages, their JSON equivalents, and the health, readiness and metrics
// endpoints.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/pokeapi-explorer/pkg/client"
	"github.com/Sternrassler/pokeapi-explorer/pkg/explorer"
	"github.com/Sternrassler/pokeapi-explorer/pkg/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

// ReadyCheck reports whether upstream dependencies are usable.
type ReadyCheck func(ctx context.Context) error

// Config holds server configuration.
type Config struct {
	// RequestTimeout bounds how long a page waits for its loads
	RequestTimeout time.Duration

	// MaxPageSize caps ?size on the JSON list
	MaxPageSize int
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 20 * time.Second,
		MaxPageSize:    100,
	}
}

// Server serves the explorer over HTTP.
type Server struct {
	explorer *explorer.Explorer
	ready    ReadyCheck
	config   Config
	engine   *gin.Engine
	logger   zerolog.Logger
}

// New creates a server. A nil ready check always reports ready.
func New(ex *explorer.Explorer, ready ReadyCheck, cfg Config) (*Server, error) {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = DefaultConfig().MaxPageSize
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		explorer: ex,
		ready:    ready,
		config:   cfg,
		engine:   gin.New(),
		logger:   log.With().Str("component", "server").Logger(),
	}

	s.engine.SetHTMLTemplate(tmpl)
	s.engine.Use(gin.Recovery(), s.requestID(), s.observe())
	s.routes()

	return s, nil
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/", s.tablePage)
	r.GET("/pokemon/:id", s.detailPage)

	api := r.Group("/api/pokemon")
	api.GET("", s.listJSON)
	api.GET("/:id", s.detailJSON)
	api.GET("/:id/moves", s.movesJSON)

	r.GET("/health", s.health)
	r.GET("/ready", s.readiness)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully
// within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) readiness(c *gin.Context) {
	if s.ready == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.ready(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// requestContext bounds a handler's loads by the request timeout.
func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
}

// parsePage reads a 1-based page number; missing or malformed values give 1.
func parsePage(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func errorMessage(err error) string {
	if err == nil {
		return "Something went wrong"
	}
	return err.Error()
}

// errorStatus maps a load error onto the JSON response status.
func errorStatus(err error) int {
	if client.IsNotFound(err) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
