// Package testutil provides testing utilities for the PokeAPI explorer.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// APIPrefix is the path prefix served by the mock, matching the real API.
const APIPrefix = "/api/v2"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockPokeAPI is a configurable mock PokeAPI server for testing.
type MockPokeAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	counts   map[string]int
	queries  []string

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
}

// NewMockPokeAPI creates a new mock server. No endpoints are configured;
// unknown paths answer 404 like the real API.
func NewMockPokeAPI() *MockPokeAPI {
	mock := &MockPokeAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		counts:   make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := normalize(r.URL.Path)

		mock.mu.Lock()
		mock.RequestCount++
		mock.counts[path]++
		mock.LastRequestHeader = r.Header.Clone()
		if r.URL.RawQuery != "" {
			mock.queries = append(mock.queries, path+"?"+r.URL.RawQuery)
		}
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Not Found"))
	}))

	return mock
}

// NewFixtureAPI returns a mock preloaded with the bulbasaur/charmander
// fixtures: the index page, both pokemon, bulbasaur's species and chain, and
// three moves.
func NewFixtureAPI() *MockPokeAPI {
	m := NewMockPokeAPI()
	m.SetJSON("/pokemon", ListJSON)
	m.SetJSON("/pokemon/1", BulbasaurJSON)
	m.SetJSON("/pokemon/4", CharmanderJSON)
	m.SetJSON("/pokemon-species/1", SpeciesJSON(m.URL()))
	m.SetJSON("/evolution-chain/1", BulbasaurChainJSON)
	m.SetJSON("/move/13", MoveJSON(13, "razor-wind", "normal"))
	m.SetJSON("/move/14", MoveJSON(14, "swords-dance", "normal"))
	m.SetJSON("/move/10", MoveJSON(10, "scratch", "normal"))
	return m
}

// URL returns the API base URL (server URL + /api/v2).
func (m *MockPokeAPI) URL() string {
	return m.server.URL + APIPrefix
}

// Close shuts down the mock server.
func (m *MockPokeAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockPokeAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.counts = make(map[string]int)
	m.queries = nil
}

// SetHandler sets a custom handler for a path relative to the API base,
// e.g. "/pokemon/1".
func (m *MockPokeAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[normalize(APIPrefix+path)] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockPokeAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetJSON configures a 200 JSON response with PokeAPI caching headers.
func (m *MockPokeAPI) SetJSON(path, body string) {
	m.SetResponse(path, NewHealthyResponse(body))
}

// SetStatus configures an error status for a path.
func (m *MockPokeAPI) SetStatus(path string, status int) {
	m.SetResponse(path, MockResponse{StatusCode: status, Body: http.StatusText(status)})
}

// Gate makes path block until the returned release func is called, then
// serve body. Used to observe in-progress states.
func (m *MockPokeAPI) Gate(path, body string) (release func()) {
	ch := make(chan struct{})
	var once sync.Once
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ch:
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	})
	return func() { once.Do(func() { close(ch) }) }
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockPokeAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockPokeAPI) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// RequestsFor returns how often path (relative to the API base) was hit.
func (m *MockPokeAPI) RequestsFor(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[normalize(APIPrefix+path)]
}

// Queries returns "path?query" for every request that carried a query.
func (m *MockPokeAPI) Queries() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.queries...)
}

func normalize(path string) string {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

// NewHealthyResponse creates a 200 OK response with PokeAPI caching headers.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Cache-Control": "public, max-age=86400, s-maxage=86400",
			"ETag":          `W/"test-etag-123"`,
			"Content-Type":  "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After":  retryAfter,
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewConditionalHandler creates a handler that answers 304 when the request
// carries the given ETag.
func NewConditionalHandler(etag string, data string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=86400")

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
