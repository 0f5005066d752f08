package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey identifies a cached upstream response.
type CacheKey struct {
	// Endpoint is the request path (e.g. "/api/v2/pokemon/1/")
	Endpoint string

	// QueryParams are the request query parameters (e.g. limit, offset)
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: pokeapi:endpoint:query1=val1:query2=val2
//
// Example:
//
//	pokeapi:api/v2/pokemon:limit=10:offset=20
func (k CacheKey) String() string {
	parts := []string{"pokeapi"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Query params sorted for determinism
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}

// KeyFromURL builds a CacheKey from a request URL. Host and scheme are not
// part of the key.
func KeyFromURL(u *url.URL) CacheKey {
	return CacheKey{
		Endpoint:    u.Path,
		QueryParams: u.Query(),
	}
}
