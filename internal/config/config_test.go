package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/pokeapi-explorer/pkg/logging"
)

var envKeys = []string{
	"POKEAPI_BASE_URL", "PORT", "REDIS_URL", "LOG_LEVEL",
	"LOG_PRETTY", "PAGE_SIZE", "MAX_CONCURRENCY", "USER_AGENT",
}

// clearEnv unsets every supported variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != "8080" {
		t.Errorf("default port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.API.BaseURL != "https://pokeapi.co/api/v2" {
		t.Errorf("default base url = %q", cfg.API.BaseURL)
	}
	if cfg.Explorer.PageSize != 10 {
		t.Errorf("default page size = %d, want 10", cfg.Explorer.PageSize)
	}
	if cfg.Redis.URL != "" {
		t.Errorf("redis should be disabled by default, got %q", cfg.Redis.URL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "explorer.yaml", `
server:
  port: "9090"
  request_timeout: 3s
api:
  base_url: http://localhost:8000/api/v2
  timeout: 5s
explorer:
  page_size: 25
  gc_interval: 30s
  stale_time: 1h
  gc_time: 2m
  retries: 0
log:
  level: debug
  pretty: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want %q", cfg.Server.Port, "9090")
	}
	if cfg.API.BaseURL != "http://localhost:8000/api/v2" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", cfg.API.Timeout)
	}
	if cfg.Explorer.PageSize != 25 {
		t.Errorf("page size = %d, want 25", cfg.Explorer.PageSize)
	}
	if cfg.Explorer.GCInterval != 30*time.Second {
		t.Errorf("gc interval = %v, want 30s", cfg.Explorer.GCInterval)
	}
	if cfg.Explorer.StaleTime != time.Hour || cfg.Explorer.GCTime != 2*time.Minute || cfg.Explorer.Retries != 0 {
		t.Errorf("query settings = %v/%v/%d, want 1h/2m/0", cfg.Explorer.StaleTime, cfg.Explorer.GCTime, cfg.Explorer.Retries)
	}
	if cfg.Server.RequestTimeout != 3*time.Second {
		t.Errorf("request timeout = %v, want 3s", cfg.Server.RequestTimeout)
	}
	// Unset fields keep their defaults.
	if cfg.API.UserAgent != "pokeapi-explorer/0.1.0" {
		t.Errorf("user agent = %q, want default", cfg.API.UserAgent)
	}
	if !cfg.Log.Pretty || cfg.Log.Level != "debug" {
		t.Errorf("log = %+v, want debug/pretty", cfg.Log)
	}
}

func TestLoad_MissingAndEmptyFiles(t *testing.T) {
	clearEnv(t)
	want := DefaultConfig()

	for _, path := range []string{
		"",
		"/nonexistent/explorer.yaml",
		writeFile(t, "empty.yaml", ""),
		writeFile(t, "comments.yaml", "# nothing here\n"),
	} {
		cfg, err := Load(path, "/nonexistent/.env")
		if err != nil {
			t.Fatalf("Load(%q) error = %v", path, err)
		}
		if *cfg != want {
			t.Errorf("Load(%q) = %+v, want defaults", path, *cfg)
		}
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	if _, err := Load(writeFile(t, "bad.yaml", "{{invalid yaml")); err == nil {
		t.Error("Load(invalid YAML) should return error")
	}
	if _, err := Load(writeFile(t, "unknown.yaml", "server:\n  hostname: x\n")); err == nil {
		t.Error("Load(unknown field) should return error")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	env := writeFile(t, ".env", "PAGE_SIZE=20\nREDIS_URL=localhost:6379\nLOG_PRETTY=true\n")

	cfg, err := Load("", env)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Explorer.PageSize != 20 {
		t.Errorf("page size = %d, want 20", cfg.Explorer.PageSize)
	}
	if cfg.Redis.URL != "localhost:6379" {
		t.Errorf("redis url = %q", cfg.Redis.URL)
	}
	if !cfg.Log.Pretty {
		t.Error("pretty should be enabled from .env")
	}
	if _, set := os.LookupEnv("PAGE_SIZE"); set {
		t.Error("Load should not modify the process environment")
	}
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "explorer.yaml", "explorer:\n  page_size: 25\nserver:\n  port: \"9000\"\n")
	env := writeFile(t, ".env", "PAGE_SIZE=20\nPORT=9001\n")
	t.Setenv("PAGE_SIZE", "15")

	cfg, err := Load(path, env)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Explorer.PageSize != 15 {
		t.Errorf("page size = %d, want 15 (process env wins)", cfg.Explorer.PageSize)
	}
	if cfg.Server.Port != "9001" {
		t.Errorf("port = %q, want 9001 (.env beats file)", cfg.Server.Port)
	}
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("POKEAPI_BASE_URL", "http://mirror.local/api/v2")
	t.Setenv("USER_AGENT", "tests/1.0")
	t.Setenv("MAX_CONCURRENCY", "4")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.API.BaseURL != "http://mirror.local/api/v2" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.UserAgent != "tests/1.0" {
		t.Errorf("user agent = %q", cfg.API.UserAgent)
	}
	if cfg.API.MaxConcurrency != 4 || cfg.Explorer.MaxConcurrency != 4 {
		t.Errorf("max concurrency = %d/%d, want 4/4", cfg.API.MaxConcurrency, cfg.Explorer.MaxConcurrency)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PAGE_SIZE", "ten"},
		{"MAX_CONCURRENCY", "many"},
		{"LOG_PRETTY", "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg := DefaultConfig()
			err := cfg.ApplyEnv()
			if err == nil {
				t.Fatalf("ApplyEnv() with %s=%q should fail", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q should name %s", err, tt.key)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api/v2" }, "api.base_url"},
		{"empty user agent", func(c *Config) { c.API.UserAgent = "" }, "api.user_agent"},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, "api.timeout"},
		{"zero api concurrency", func(c *Config) { c.API.MaxConcurrency = 0 }, "api.max_concurrency"},
		{"bad port", func(c *Config) { c.Server.Port = "http" }, "server.port"},
		{"port out of range", func(c *Config) { c.Server.Port = "70000" }, "server.port"},
		{"zero page size", func(c *Config) { c.Explorer.PageSize = 0 }, "explorer.page_size"},
		{"negative fan-out", func(c *Config) { c.Explorer.MaxConcurrency = -1 }, "explorer.max_concurrency"},
		{"zero gc interval", func(c *Config) { c.Explorer.GCInterval = 0 }, "explorer.gc_interval"},
		{"zero stale time", func(c *Config) { c.Explorer.StaleTime = 0 }, "explorer.stale_time"},
		{"zero gc time", func(c *Config) { c.Explorer.GCTime = 0 }, "explorer.gc_time"},
		{"negative retries", func(c *Config) { c.Explorer.Retries = -1 }, "explorer.retries"},
		{"zero request timeout", func(c *Config) { c.Server.RequestTimeout = 0 }, "server.request_timeout"},
		{"unknown level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestRedisOptions(t *testing.T) {
	cfg := DefaultConfig()

	opts, err := cfg.RedisOptions()
	if err != nil || opts != nil {
		t.Errorf("RedisOptions() with no URL = %v, %v; want nil, nil", opts, err)
	}

	cfg.Redis.URL = "localhost:6379"
	opts, err = cfg.RedisOptions()
	if err != nil {
		t.Fatalf("RedisOptions() error = %v", err)
	}
	if opts.Addr != "localhost:6379" {
		t.Errorf("addr = %q", opts.Addr)
	}

	cfg.Redis.URL = "redis://cache:6380/3"
	opts, err = cfg.RedisOptions()
	if err != nil {
		t.Fatalf("RedisOptions() error = %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 3 {
		t.Errorf("opts = %s db %d, want cache:6380 db 3", opts.Addr, opts.DB)
	}

	cfg.Redis.URL = "http://cache:6380"
	if _, err := cfg.RedisOptions(); err == nil {
		t.Error("RedisOptions() should reject non-redis schemes")
	}
}

func TestConversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = "9000"
	cfg.Log.Level = "DEBUG"
	cfg.API.MaxConcurrency = 3
	cfg.Explorer.MaxConcurrency = 5

	if got := cfg.Addr(); got != ":9000" {
		t.Errorf("Addr() = %q, want :9000", got)
	}
	if got := cfg.Logging().Level; got != logging.LevelDebug {
		t.Errorf("Logging().Level = %q, want debug", got)
	}

	cc := cfg.Client()
	if cc.UserAgent != cfg.API.UserAgent || cc.MaxConcurrency != 3 || cc.CacheRetention != 24*time.Hour {
		t.Errorf("Client() = %+v", cc)
	}

	ec := cfg.ExplorerConfig()
	if ec.PageSize != 10 || ec.Gather.MaxConcurrency != 5 {
		t.Errorf("ExplorerConfig() = %+v", ec)
	}

	qo := cfg.QueryOptions()
	if qo.StaleTime != 24*time.Hour || qo.GCTime != 5*time.Minute || qo.Retry.Retries != 2 {
		t.Errorf("QueryOptions() defaults = %v/%v/%d, want 24h/5m/2", qo.StaleTime, qo.GCTime, qo.Retry.Retries)
	}
	if qo.Retry.ShouldRetry == nil {
		t.Error("QueryOptions() should keep the retryable-error filter")
	}

	cfg.Explorer.StaleTime = time.Hour
	cfg.Explorer.Retries = 0
	qo = cfg.QueryOptions()
	if qo.StaleTime != time.Hour || qo.Retry.Retries != 0 {
		t.Errorf("QueryOptions() = %v/%d, want 1h/0", qo.StaleTime, qo.Retry.Retries)
	}

	cfg.Server.RequestTimeout = 7 * time.Second
	sc := cfg.ServerConfig()
	if sc.RequestTimeout != 7*time.Second || sc.MaxPageSize != 100 {
		t.Errorf("ServerConfig() = %+v", sc)
	}
}
