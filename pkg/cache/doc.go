// Package cache provides an optional Redis-backed HTTP response cache for the
// PokeAPI client.
//
// Upstream responses are stored together with their validators (ETag,
// Last-Modified) and an expiry derived from Cache-Control max-age or the
// Expires header:
//
//   - fresh entries are served without touching the network
//   - stale entries that carry validators are revalidated with a conditional
//     request; a 304 refreshes the expiry and the cached body is reused
//   - stale entries without validators are treated as a miss
//
// Entries stay in Redis for their freshness lifetime plus a retention window
// so that revalidation is possible after expiry.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Endpoint:    "/api/v2/pokemon",
//		QueryParams: url.Values{"limit": []string{"10"}, "offset": []string{"0"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from upstream
//	}
//
// # Metrics
//
//   - pokeapi_cache_hits_total{state="fresh|revalidated"}
//   - pokeapi_cache_misses_total
//   - pokeapi_cache_size_bytes
//   - pokeapi_cache_conditional_requests_total
//   - pokeapi_cache_errors_total{operation}
package cache
