package explorer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/pokeapi-explorer/internal/testutil"
	"github.com/Sternrassler/pokeapi-explorer/pkg/client"
	"github.com/Sternrassler/pokeapi-explorer/pkg/pokeapi"
	"github.com/Sternrassler/pokeapi-explorer/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newTestCache(retry query.RetryConfig) *query.Cache {
	opts := DefaultQueryOptions()
	opts.Retry = retry
	opts.Retry.ShouldRetry = client.IsRetryable
	return query.New(opts)
}

// newMockExplorer wires an explorer to a mock PokeAPI through the real client.
func newMockExplorer(t *testing.T, mock *testutil.MockPokeAPI) *Explorer {
	t.Helper()

	cfg := client.DefaultConfig("pokeapi-explorer-test/1.0")
	cfg.BaseURL = mock.URL()
	c, err := client.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return New(c, newTestCache(query.NoRetry()), DefaultConfig())
}

func names(list []*pokeapi.Pokemon) []string {
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = p.Name
	}
	return out
}

// fakeSource records calls in order and serves canned values.
type fakeSource struct {
	mu    sync.Mutex
	calls []string

	pokemon map[string]*pokeapi.Pokemon
	species map[string]*pokeapi.Species
	chains  map[string]*pokeapi.EvolutionChain
	errs    map[string]error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pokemon: map[string]*pokeapi.Pokemon{},
		species: map[string]*pokeapi.Species{},
		chains:  map[string]*pokeapi.EvolutionChain{},
		errs:    map[string]error{},
	}
}

func (f *fakeSource) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.errs[call]
}

func (f *fakeSource) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSource) ListPokemon(ctx context.Context, limit, offset int) (*pokeapi.ListPage, error) {
	if err := f.record(fmt.Sprintf("list:%d:%d", limit, offset)); err != nil {
		return nil, err
	}
	return &pokeapi.ListPage{}, nil
}

func (f *fakeSource) Pokemon(ctx context.Context, id string) (*pokeapi.Pokemon, error) {
	if err := f.record("pokemon:" + id); err != nil {
		return nil, err
	}
	return f.pokemon[id], nil
}

func (f *fakeSource) Species(ctx context.Context, id string) (*pokeapi.Species, error) {
	if err := f.record("species:" + id); err != nil {
		return nil, err
	}
	return f.species[id], nil
}

func (f *fakeSource) EvolutionChain(ctx context.Context, url string) (*pokeapi.EvolutionChain, error) {
	if err := f.record("chain:" + url); err != nil {
		return nil, err
	}
	return f.chains[url], nil
}

func (f *fakeSource) Move(ctx context.Context, id string) (*pokeapi.Move, error) {
	if err := f.record("move:" + id); err != nil {
		return nil, err
	}
	return &pokeapi.Move{Name: id}, nil
}

func TestLoadPage_ListArguments(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	e := newMockExplorer(t, mock)

	load := e.LoadPage(context.Background(), 3, 10)
	defer load.Release()

	snap, err := load.Wait(waitCtx(t))
	require.NoError(t, err)

	assert.Equal(t, 20, snap.Offset)
	assert.Equal(t, 1302, snap.Count)
	assert.Equal(t, 131, snap.TotalPages())
	assert.Equal(t, "page:10:20", load.Key())
	assert.Equal(t, []string{"/api/v2/pokemon?limit=10&offset=20"}, mock.Queries())
}

func TestLoadPage_FetchesEachListedItem(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	e := newMockExplorer(t, mock)

	snap, err := e.LoadPage(context.Background(), 1, 10).Wait(waitCtx(t))
	require.NoError(t, err)

	assert.False(t, snap.IsLoading)
	assert.False(t, snap.IsError)
	assert.Nil(t, snap.Err)
	assert.Equal(t, []string{"bulbasaur", "charmander"}, names(snap.Pokemon))

	// ids come from the trailing URL segment of each list item
	assert.Equal(t, 1, mock.RequestsFor("/pokemon/1"))
	assert.Equal(t, 1, mock.RequestsFor("/pokemon/4"))
}

func TestLoadPage_PartialSnapshot(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	release := mock.Gate("/pokemon/1", testutil.BulbasaurJSON)
	e := newMockExplorer(t, mock)

	load := e.LoadPage(context.Background(), 1, 10)

	// charmander resolves first; bulbasaur (index 0) is still in flight
	require.Eventually(t, func() bool {
		return len(load.Snapshot().Pokemon) == 1
	}, 2*time.Second, 5*time.Millisecond)

	snap := load.Snapshot()
	assert.True(t, snap.IsLoading)
	assert.False(t, snap.IsError)
	assert.Equal(t, []string{"charmander"}, names(snap.Pokemon))

	release()
	snap, err := load.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.False(t, snap.IsLoading)
	assert.Equal(t, []string{"bulbasaur", "charmander"}, names(snap.Pokemon), "index order, not completion order")
}

func TestLoadPage_SlowDetailStaysPending(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	release := mock.Gate("/pokemon/1", testutil.BulbasaurJSON)
	defer release()
	e := newMockExplorer(t, mock)

	load := e.LoadPage(context.Background(), 1, 10)
	defer load.Release()

	short, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	snap, err := load.Wait(short)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, snap.IsLoading)
	assert.False(t, snap.IsError)
	assert.NoError(t, snap.Err)

	release()
	snap, err = load.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.False(t, snap.IsLoading)
	assert.False(t, snap.IsError)
	assert.Equal(t, []string{"bulbasaur", "charmander"}, names(snap.Pokemon))
}

func TestLoadPage_CallerCancelDoesNotFailSlots(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	release := mock.Gate("/pokemon/1", testutil.BulbasaurJSON)
	defer release()
	e := newMockExplorer(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	load := e.LoadPage(ctx, 1, 10)
	defer load.Release()

	require.Eventually(t, func() bool {
		return len(load.Snapshot().Pokemon) == 1
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-load.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("load did not settle after cancellation")
	}
	snap := load.Snapshot()
	assert.False(t, snap.IsError, "an abandoned fetch is not a failure")
	assert.True(t, snap.IsLoading)

	release()
	p, err := e.Pokemon(waitCtx(t), "1")
	require.NoError(t, err)
	assert.Equal(t, "bulbasaur", p.Name)
	assert.Equal(t, 1, mock.RequestsFor("/pokemon/1"), "the abandoned fetch is shared, not repeated")
}

func TestLoadPage_ListFailure(t *testing.T) {
	for _, status := range []int{404, 500} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			mock := testutil.NewMockPokeAPI()
			defer mock.Close()
			mock.SetStatus("/pokemon", status)
			e := newMockExplorer(t, mock)

			snap, err := e.LoadPage(context.Background(), 1, 10).Wait(waitCtx(t))
			require.NoError(t, err)

			assert.False(t, snap.IsLoading)
			assert.True(t, snap.IsError)
			require.Error(t, snap.Err)
			assert.Contains(t, snap.Err.Error(), fmt.Sprintf("PokeAPI error %d", status))
			assert.Contains(t, snap.Err.Error(), mock.URL()+"/pokemon?limit=10&offset=0")
			assert.Empty(t, snap.Pokemon)
		})
	}
}

func TestLoadPage_ServerErrorIsRetried(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetStatus("/pokemon", 500)

	cfg := client.DefaultConfig("pokeapi-explorer-test/1.0")
	cfg.BaseURL = mock.URL()
	c, err := client.New(cfg)
	require.NoError(t, err)
	defer c.Close()

	retry := query.RetryConfig{Retries: 2, InitialBackoff: time.Millisecond, BackoffMultiplier: 1}
	e := New(c, newTestCache(retry), DefaultConfig())

	snap, err := e.LoadPage(context.Background(), 1, 10).Wait(waitCtx(t))
	require.NoError(t, err)

	assert.True(t, snap.IsError)
	assert.ErrorIs(t, snap.Err, query.ErrRetryExhausted)
	assert.Contains(t, snap.Err.Error(), mock.URL()+"/pokemon?limit=10&offset=0")
	assert.Equal(t, 3, mock.RequestsFor("/pokemon"))
}

func TestLoadPage_NotFoundIsNotRetried(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetStatus("/pokemon", 404)

	cfg := client.DefaultConfig("pokeapi-explorer-test/1.0")
	cfg.BaseURL = mock.URL()
	c, err := client.New(cfg)
	require.NoError(t, err)
	defer c.Close()

	retry := query.RetryConfig{Retries: 2, InitialBackoff: time.Millisecond, BackoffMultiplier: 1}
	e := New(c, newTestCache(retry), DefaultConfig())

	snap, err := e.LoadPage(context.Background(), 1, 10).Wait(waitCtx(t))
	require.NoError(t, err)

	assert.True(t, client.IsNotFound(snap.Err))
	assert.Equal(t, 1, mock.RequestsFor("/pokemon"))
}

func TestLoadPage_DetailFailure(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	mock.SetStatus("/pokemon/4", 500)
	e := newMockExplorer(t, mock)

	snap, err := e.LoadPage(context.Background(), 1, 10).Wait(waitCtx(t))
	require.NoError(t, err)

	assert.False(t, snap.IsLoading)
	assert.True(t, snap.IsError)
	assert.Contains(t, snap.Err.Error(), "/pokemon/4")
	assert.Equal(t, []string{"bulbasaur"}, names(snap.Pokemon), "failed slots omitted")
}

func TestLoadPage_FirstErrorInIndexOrder(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	mock.SetStatus("/pokemon/1", 503)
	mock.SetResponse("/pokemon/4", testutil.MockResponse{StatusCode: 500, Delay: 50 * time.Millisecond})
	e := newMockExplorer(t, mock)

	snap, err := e.LoadPage(context.Background(), 1, 10).Wait(waitCtx(t))
	require.NoError(t, err)

	assert.Contains(t, snap.Err.Error(), "PokeAPI error 503")
	assert.Empty(t, snap.Pokemon)
}

func TestLoadPage_EmptyList(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetJSON("/pokemon", testutil.EmptyListJSON)
	e := newMockExplorer(t, mock)

	snap, err := e.LoadPage(context.Background(), 200, 10).Wait(waitCtx(t))
	require.NoError(t, err)

	assert.False(t, snap.IsLoading)
	assert.False(t, snap.IsError)
	assert.NotNil(t, snap.Pokemon)
	assert.Empty(t, snap.Pokemon)
	assert.Equal(t, 1, mock.GetRequestCount(), "no detail fetches")
}

func TestLoadPage_NonPositivePageSize(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	e := newMockExplorer(t, mock)

	snap, err := e.LoadPage(context.Background(), 1, 0).Wait(waitCtx(t))
	require.NoError(t, err)

	assert.False(t, snap.IsLoading)
	assert.Empty(t, snap.Pokemon)
	assert.Equal(t, 0, mock.RequestsFor("/pokemon/1"))
}

func TestLoadPage_ClampsPage(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	e := newMockExplorer(t, mock)

	snap, err := e.LoadPage(context.Background(), -3, 10).Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, 0, snap.Offset)
}

func TestLoadPage_ConcurrentLoadsShareFetches(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	releaseList := mock.Gate("/pokemon", testutil.ListJSON)
	e := newMockExplorer(t, mock)

	first := e.LoadPage(context.Background(), 1, 10)
	second := e.LoadPage(context.Background(), 1, 10)

	require.Eventually(t, func() bool {
		return mock.RequestsFor("/pokemon") == 1
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	releaseList()

	a, err := first.Wait(waitCtx(t))
	require.NoError(t, err)
	b, err := second.Wait(waitCtx(t))
	require.NoError(t, err)

	assert.Equal(t, names(a.Pokemon), names(b.Pokemon))
	assert.Equal(t, 1, mock.RequestsFor("/pokemon"))
	assert.Equal(t, 1, mock.RequestsFor("/pokemon/1"))
	assert.Equal(t, 1, mock.RequestsFor("/pokemon/4"))
}

func TestLoadPage_ServedFromCache(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	e := newMockExplorer(t, mock)

	_, err := e.LoadPage(context.Background(), 1, 10).Wait(waitCtx(t))
	require.NoError(t, err)
	before := mock.GetRequestCount()

	snap, err := e.LoadPage(context.Background(), 1, 10).Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Len(t, snap.Pokemon, 2)
	assert.Equal(t, before, mock.GetRequestCount())
}

func TestLoadPage_ReleaseAllowsSweep(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	e := newMockExplorer(t, mock)

	load := e.LoadPage(context.Background(), 1, 10)
	_, err := load.Wait(waitCtx(t))
	require.NoError(t, err)

	assert.Equal(t, 1, e.Cache().Observers("pokemon:1"))

	far := time.Now().Add(time.Hour)
	assert.Equal(t, 0, e.Cache().Sweep(far), "observed entries survive")

	load.Release()
	load.Release()
	assert.Equal(t, 0, e.Cache().Observers("pokemon:1"))
	assert.Equal(t, 3, e.Cache().Sweep(far))
}

func TestLoadPage_SupersededLoadKeepsItsOwnState(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	e := newMockExplorer(t, mock)

	old := e.LoadPage(context.Background(), 1, 10)
	current := e.LoadPage(context.Background(), 2, 10)

	oldSnap, err := old.Wait(waitCtx(t))
	require.NoError(t, err)
	curSnap, err := current.Wait(waitCtx(t))
	require.NoError(t, err)

	assert.NotEqual(t, old.Key(), current.Key())
	assert.Equal(t, 0, oldSnap.Offset)
	assert.Equal(t, 10, curSnap.Offset)
}

func TestLoadDetail_Stages(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	e := newMockExplorer(t, mock)

	load := e.LoadDetail(context.Background(), "1")
	defer load.Release()

	snap, err := load.Wait(waitCtx(t))
	require.NoError(t, err)

	assert.Equal(t, "pokemon:1", load.Key())
	assert.False(t, snap.IsLoading)
	assert.False(t, snap.IsError)
	require.NotNil(t, snap.Pokemon)
	require.NotNil(t, snap.Species)
	require.NotNil(t, snap.Chain)
	assert.Equal(t, "bulbasaur", snap.Pokemon.Name)
	assert.Equal(t, []Stage{
		{Name: "bulbasaur", ID: "1"},
		{Name: "ivysaur", ID: "2"},
		{Name: "venusaur", ID: "3"},
	}, snap.Evolution())
}

func TestLoadDetail_StageOrder(t *testing.T) {
	src := newFakeSource()
	src.pokemon["1"] = &pokeapi.Pokemon{ID: 1, Name: "bulbasaur"}
	src.species["1"] = &pokeapi.Species{EvolutionChain: &pokeapi.ResourceURL{URL: "https://pokeapi.co/api/v2/evolution-chain/1/"}}
	src.chains["https://pokeapi.co/api/v2/evolution-chain/1/"] = &pokeapi.EvolutionChain{ID: 1}

	e := New(src, newTestCache(query.NoRetry()), DefaultConfig())

	_, err := e.LoadDetail(context.Background(), "1").Wait(waitCtx(t))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"pokemon:1",
		"species:1",
		"chain:https://pokeapi.co/api/v2/evolution-chain/1/",
	}, src.Calls())
}

func TestLoadDetail_PokemonFailureStopsPipeline(t *testing.T) {
	src := newFakeSource()
	src.errs["pokemon:999"] = &client.APIError{StatusCode: 404, URL: "https://pokeapi.co/api/v2/pokemon/999", ErrorClass: client.ErrorClassClient}

	e := New(src, newTestCache(query.NoRetry()), DefaultConfig())

	snap, err := e.LoadDetail(context.Background(), "999").Wait(waitCtx(t))
	require.NoError(t, err)

	assert.False(t, snap.IsLoading)
	assert.True(t, snap.IsError)
	assert.True(t, client.IsNotFound(snap.Err))
	assert.Nil(t, snap.Pokemon)
	assert.Equal(t, []string{"pokemon:999"}, src.Calls())
}

func TestLoadDetail_SpeciesFailureDoesNotFailPage(t *testing.T) {
	src := newFakeSource()
	src.pokemon["1"] = &pokeapi.Pokemon{ID: 1, Name: "bulbasaur"}
	src.errs["species:1"] = errors.New("PokeAPI error 500: https://pokeapi.co/api/v2/pokemon-species/1")

	e := New(src, newTestCache(query.NoRetry()), DefaultConfig())

	snap, err := e.LoadDetail(context.Background(), "1").Wait(waitCtx(t))
	require.NoError(t, err)

	assert.False(t, snap.IsError)
	assert.Nil(t, snap.Err)
	assert.Error(t, snap.SpeciesErr)
	assert.Nil(t, snap.Chain)
	assert.Nil(t, snap.Evolution())
	assert.Equal(t, []string{"pokemon:1", "species:1"}, src.Calls())
}

func TestLoadDetail_NoChainURL(t *testing.T) {
	src := newFakeSource()
	src.pokemon["1"] = &pokeapi.Pokemon{ID: 1, Name: "bulbasaur"}
	src.species["1"] = &pokeapi.Species{}

	e := New(src, newTestCache(query.NoRetry()), DefaultConfig())

	snap, err := e.LoadDetail(context.Background(), "1").Wait(waitCtx(t))
	require.NoError(t, err)

	assert.NotNil(t, snap.Species)
	assert.Nil(t, snap.Chain)
	assert.Equal(t, []string{"pokemon:1", "species:1"}, src.Calls())
}

func TestLoadDetail_EmptyID(t *testing.T) {
	src := newFakeSource()
	e := New(src, newTestCache(query.NoRetry()), DefaultConfig())

	load := e.LoadDetail(context.Background(), "")
	select {
	case <-load.Done():
	default:
		t.Fatal("empty id load should be done immediately")
	}

	snap := load.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.False(t, snap.IsError)
	assert.Nil(t, snap.Pokemon)
	assert.Empty(t, src.Calls())
}

func TestLoadDetail_LoadingState(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	release := mock.Gate("/pokemon/1", testutil.BulbasaurJSON)
	e := newMockExplorer(t, mock)

	load := e.LoadDetail(context.Background(), "1")
	snap := load.Snapshot()
	assert.True(t, snap.IsLoading)
	assert.Nil(t, snap.Pokemon)

	release()
	snap, err := load.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.False(t, snap.IsLoading)
	assert.NotNil(t, snap.Pokemon)
}

func TestLoadDetail_CallerCancelKeepsLoading(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	release := mock.Gate("/pokemon/1", testutil.BulbasaurJSON)
	defer release()
	e := newMockExplorer(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	load := e.LoadDetail(ctx, "1")
	defer load.Release()
	cancel()

	select {
	case <-load.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("load did not settle after cancellation")
	}
	snap := load.Snapshot()
	assert.True(t, snap.IsLoading)
	assert.False(t, snap.IsError)
	assert.NoError(t, snap.Err)
}

func TestLoadDetail_ReusesPageCache(t *testing.T) {
	mock := testutil.NewFixtureAPI()
	defer mock.Close()
	e := newMockExplorer(t, mock)

	_, err := e.LoadPage(context.Background(), 1, 10).Wait(waitCtx(t))
	require.NoError(t, err)

	_, err = e.LoadDetail(context.Background(), "4").Wait(waitCtx(t))
	require.NoError(t, err)

	assert.Equal(t, 1, mock.RequestsFor("/pokemon/4"))
}
