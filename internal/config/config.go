// Package config handles the explorer configuration: defaults, an optional
// YAML file, an optional .env file and environment overrides, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/pokeapi-explorer/internal/server"
	"github.com/Sternrassler/pokeapi-explorer/pkg/client"
	"github.com/Sternrassler/pokeapi-explorer/pkg/explorer"
	"github.com/Sternrassler/pokeapi-explorer/pkg/logging"
	"github.com/Sternrassler/pokeapi-explorer/pkg/pagination"
	"github.com/Sternrassler/pokeapi-explorer/pkg/query"
)

// Config holds all explorer configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	API      API      `yaml:"api"`
	Redis    Redis    `yaml:"redis"`
	Explorer Explorer `yaml:"explorer"`
	Log      Log      `yaml:"log"`
}

// Server holds the inbound HTTP settings.
type Server struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"` // how long a page waits for its load
}

// API holds the upstream PokeAPI settings.
type API struct {
	BaseURL        string        `yaml:"base_url"`
	UserAgent      string        `yaml:"user_agent"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxConcurrency int           `yaml:"max_concurrency"`
}

// Redis holds the response cache settings. An empty URL disables the cache.
type Redis struct {
	URL       string        `yaml:"url"`
	Retention time.Duration `yaml:"retention"`
}

// Explorer holds the orchestration settings.
type Explorer struct {
	PageSize       int           `yaml:"page_size"`
	MaxConcurrency int           `yaml:"max_concurrency"` // parallel detail fetches per page
	StaleTime      time.Duration `yaml:"stale_time"`
	GCTime         time.Duration `yaml:"gc_time"`     // idle time before an unobserved entry is swept
	GCInterval     time.Duration `yaml:"gc_interval"` // query cache janitor period
	Retries        int           `yaml:"retries"`
}

// Log holds logger settings.
type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server: Server{
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  server.DefaultConfig().RequestTimeout,
		},
		API: API{
			BaseURL:        client.DefaultBaseURL,
			UserAgent:      "pokeapi-explorer/0.1.0",
			Timeout:        30 * time.Second,
			MaxConcurrency: 10,
		},
		Redis: Redis{
			Retention: 24 * time.Hour,
		},
		Explorer: Explorer{
			PageSize:       10,
			MaxConcurrency: 10,
			StaleTime:      query.DefaultStaleTime,
			GCTime:         query.DefaultGCTime,
			GCInterval:     time.Minute,
			Retries:        query.DefaultRetryConfig().Retries,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when empty or missing), the given .env files (missing ones are skipped) and
// the process environment. Process variables win over .env entries.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	dotenv, err := readEnvFiles(envFiles...)
	if err != nil {
		return nil, err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		// Comment-only files decode to EOF.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func readEnvFiles(files ...string) (map[string]string, error) {
	out := map[string]string{}
	for _, f := range files {
		vals, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("config: reading %s: %w", f, err)
		}
		for k, v := range vals {
			if _, seen := out[k]; !seen {
				out[k] = v
			}
		}
	}
	return out, nil
}

// ApplyEnv applies process environment overrides.
// Supported variables: POKEAPI_BASE_URL, PORT, REDIS_URL, LOG_LEVEL,
// LOG_PRETTY, PAGE_SIZE, MAX_CONCURRENCY, USER_AGENT.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	if v, ok := get("POKEAPI_BASE_URL"); ok {
		c.API.BaseURL = v
	}
	if v, ok := get("USER_AGENT"); ok {
		c.API.UserAgent = v
	}
	if v, ok := get("PORT"); ok {
		c.Server.Port = v
	}
	if v, ok := get("REDIS_URL"); ok {
		c.Redis.URL = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := get("LOG_PRETTY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid LOG_PRETTY %q: %w", v, err)
		}
		c.Log.Pretty = b
	}
	if v, ok := get("PAGE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PAGE_SIZE %q: %w", v, err)
		}
		c.Explorer.PageSize = n
	}
	if v, ok := get("MAX_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid MAX_CONCURRENCY %q: %w", v, err)
		}
		c.API.MaxConcurrency = n
		c.Explorer.MaxConcurrency = n
	}
	return nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.UserAgent == "" {
		return errors.New("config: api.user_agent cannot be empty")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: api.timeout must be positive, got %v", c.API.Timeout)
	}
	if c.API.MaxConcurrency <= 0 {
		return fmt.Errorf("config: api.max_concurrency must be positive, got %d", c.API.MaxConcurrency)
	}
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("config: server.port must be between 1 and 65535, got %q", c.Server.Port)
	}
	if c.Explorer.PageSize <= 0 {
		return fmt.Errorf("config: explorer.page_size must be positive, got %d", c.Explorer.PageSize)
	}
	if c.Explorer.MaxConcurrency <= 0 {
		return fmt.Errorf("config: explorer.max_concurrency must be positive, got %d", c.Explorer.MaxConcurrency)
	}
	if c.Explorer.GCInterval <= 0 {
		return fmt.Errorf("config: explorer.gc_interval must be positive, got %v", c.Explorer.GCInterval)
	}
	if c.Explorer.StaleTime <= 0 {
		return fmt.Errorf("config: explorer.stale_time must be positive, got %v", c.Explorer.StaleTime)
	}
	if c.Explorer.GCTime <= 0 {
		return fmt.Errorf("config: explorer.gc_time must be positive, got %v", c.Explorer.GCTime)
	}
	if c.Explorer.Retries < 0 {
		return fmt.Errorf("config: explorer.retries cannot be negative, got %d", c.Explorer.Retries)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("config: server.request_timeout must be positive, got %v", c.Server.RequestTimeout)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

// Logging converts the log settings for logging.Setup.
func (c *Config) Logging() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(c.Log.Level)
	lc.Pretty = c.Log.Pretty
	return lc
}

// RedisOptions parses the Redis URL. Both "redis://host:port/db" and a bare
// "host:port" are accepted. It returns nil when Redis is disabled.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if c.Redis.URL == "" {
		return nil, nil
	}
	if !strings.Contains(c.Redis.URL, "://") {
		return &redis.Options{Addr: c.Redis.URL}, nil
	}
	opts, err := redis.ParseURL(c.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("config: invalid REDIS_URL: %w", err)
	}
	return opts, nil
}

// Client converts the upstream settings. The Redis client is attached by the caller.
func (c *Config) Client() client.Config {
	cc := client.DefaultConfig(c.API.UserAgent)
	cc.BaseURL = c.API.BaseURL
	cc.Timeout = c.API.Timeout
	cc.MaxConcurrency = c.API.MaxConcurrency
	if c.Redis.Retention > 0 {
		cc.CacheRetention = c.Redis.Retention
	}
	return cc
}

// ExplorerConfig converts the orchestration settings.
func (c *Config) ExplorerConfig() explorer.Config {
	return explorer.Config{
		PageSize: c.Explorer.PageSize,
		Gather: pagination.Config{
			MaxConcurrency: c.Explorer.MaxConcurrency,
		},
	}
}

// QueryOptions converts the query cache settings.
func (c *Config) QueryOptions() query.Options {
	opts := explorer.DefaultQueryOptions()
	opts.StaleTime = c.Explorer.StaleTime
	opts.GCTime = c.Explorer.GCTime
	opts.Retry.Retries = c.Explorer.Retries
	return opts
}

// ServerConfig converts the inbound HTTP settings.
func (c *Config) ServerConfig() server.Config {
	sc := server.DefaultConfig()
	sc.RequestTimeout = c.Server.RequestTimeout
	return sc
}
