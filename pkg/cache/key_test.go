package cache

import (
	"net/url"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "entity endpoint",
			key:  CacheKey{Endpoint: "/api/v2/pokemon/1/"},
			want: "pokeapi:api/v2/pokemon/1",
		},
		{
			name: "list endpoint with sorted query",
			key: CacheKey{
				Endpoint: "/api/v2/pokemon",
				QueryParams: url.Values{
					"offset": []string{"20"},
					"limit":  []string{"10"},
				},
			},
			want: "pokeapi:api/v2/pokemon:limit=10:offset=20",
		},
		{
			name: "empty endpoint",
			key:  CacheKey{},
			want: "pokeapi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("CacheKey.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyFromURL_IgnoresHost(t *testing.T) {
	a, _ := url.Parse("https://pokeapi.co/api/v2/pokemon?limit=10&offset=0")
	b, _ := url.Parse("http://127.0.0.1:54321/api/v2/pokemon?offset=0&limit=10")

	if KeyFromURL(a).String() != KeyFromURL(b).String() {
		t.Errorf("keys differ: %s vs %s", KeyFromURL(a), KeyFromURL(b))
	}
}
