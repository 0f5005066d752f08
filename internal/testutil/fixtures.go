package testutil

import "fmt"

// Fixture bodies mirroring real PokeAPI payloads, trimmed to the fields the
// explorer reads.

// BulbasaurJSON is pokemon #1. Score hp+speed+base_xp = 45+45+64 = 154.
const BulbasaurJSON = `{
  "id": 1,
  "name": "bulbasaur",
  "base_experience": 64,
  "height": 7,
  "weight": 69,
  "types": [{"slot": 1, "type": {"name": "grass", "url": "https://pokeapi.co/api/v2/type/12/"}},
            {"slot": 2, "type": {"name": "poison", "url": "https://pokeapi.co/api/v2/type/4/"}}],
  "abilities": [
    {"ability": {"name": "overgrow", "url": "https://pokeapi.co/api/v2/ability/65/"}, "is_hidden": false, "slot": 1},
    {"ability": {"name": "chlorophyll", "url": "https://pokeapi.co/api/v2/ability/34/"}, "is_hidden": true, "slot": 3}
  ],
  "stats": [
    {"stat": {"name": "hp"}, "base_stat": 45},
    {"stat": {"name": "attack"}, "base_stat": 49},
    {"stat": {"name": "defense"}, "base_stat": 49},
    {"stat": {"name": "special-attack"}, "base_stat": 65},
    {"stat": {"name": "special-defense"}, "base_stat": 65},
    {"stat": {"name": "speed"}, "base_stat": 45}
  ],
  "sprites": {
    "front_default": "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/1.png",
    "other": {"official-artwork": {"front_default": "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/other/official-artwork/1.png"}}
  },
  "moves": [
    {"move": {"name": "razor-wind", "url": "https://pokeapi.co/api/v2/move/13/"}},
    {"move": {"name": "swords-dance", "url": "https://pokeapi.co/api/v2/move/14/"}}
  ]
}`

// CharmanderJSON is pokemon #4. Score 39+65+62 = 166.
const CharmanderJSON = `{
  "id": 4,
  "name": "charmander",
  "base_experience": 62,
  "height": 6,
  "weight": 85,
  "types": [{"slot": 1, "type": {"name": "fire", "url": "https://pokeapi.co/api/v2/type/10/"}}],
  "abilities": [
    {"ability": {"name": "blaze", "url": "https://pokeapi.co/api/v2/ability/66/"}, "is_hidden": false, "slot": 1},
    {"ability": {"name": "solar-power", "url": "https://pokeapi.co/api/v2/ability/94/"}, "is_hidden": true, "slot": 3}
  ],
  "stats": [
    {"stat": {"name": "hp"}, "base_stat": 39},
    {"stat": {"name": "attack"}, "base_stat": 52},
    {"stat": {"name": "defense"}, "base_stat": 43},
    {"stat": {"name": "special-attack"}, "base_stat": 60},
    {"stat": {"name": "special-defense"}, "base_stat": 50},
    {"stat": {"name": "speed"}, "base_stat": 65}
  ],
  "sprites": {
    "front_default": "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/4.png",
    "other": {"official-artwork": {"front_default": null}}
  },
  "moves": [{"move": {"name": "scratch", "url": "https://pokeapi.co/api/v2/move/10/"}}]
}`

// ListJSON is a two-item index page with the real total count.
const ListJSON = `{
  "count": 1302,
  "next": "https://pokeapi.co/api/v2/pokemon?offset=2&limit=2",
  "previous": null,
  "results": [
    {"name": "bulbasaur", "url": "https://pokeapi.co/api/v2/pokemon/1/"},
    {"name": "charmander", "url": "https://pokeapi.co/api/v2/pokemon/4/"}
  ]
}`

// EmptyListJSON is an index page past the end of the collection.
const EmptyListJSON = `{"count": 1302, "next": null, "previous": null, "results": []}`

// SpeciesJSON returns the bulbasaur species record pointing at chain 1 on
// the given API base URL.
func SpeciesJSON(baseURL string) string {
	return fmt.Sprintf(`{
  "id": 1,
  "name": "bulbasaur",
  "evolution_chain": {"url": "%s/evolution-chain/1/"}
}`, baseURL)
}

// BulbasaurChainJSON is the linear chain bulbasaur -> ivysaur -> venusaur.
const BulbasaurChainJSON = `{
  "id": 1,
  "chain": {
    "species": {"name": "bulbasaur", "url": "https://pokeapi.co/api/v2/pokemon-species/1/"},
    "evolves_to": [{
      "species": {"name": "ivysaur", "url": "https://pokeapi.co/api/v2/pokemon-species/2/"},
      "evolves_to": [{
        "species": {"name": "venusaur", "url": "https://pokeapi.co/api/v2/pokemon-species/3/"},
        "evolves_to": []
      }]
    }]
  }
}`

// MoveJSON returns a move body with the given id, name and type.
func MoveJSON(id int, name, typeName string) string {
	return fmt.Sprintf(`{"id": %d, "name": %q, "type": {"name": %q, "url": "https://pokeapi.co/api/v2/type/1/"}}`, id, name, typeName)
}
