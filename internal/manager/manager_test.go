package manager

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/sonicache/internal/adapter"
	"github.com/mmcdole/sonicache/internal/domain"
	"github.com/mmcdole/sonicache/internal/result"
	"github.com/mmcdole/sonicache/internal/search"
	"github.com/mmcdole/sonicache/internal/store"
	"github.com/mmcdole/sonicache/internal/testutil"
)

func testConfig(t *testing.T, address string) *adapter.Config {
	t.Helper()
	cfg := adapter.DefaultConfig()
	cfg.Server.Address = address
	cfg.Server.Username = "alice"
	cfg.Cache.Location = t.TempDir()
	cfg.Cache.StagingLocation = t.TempDir()
	cfg.Cache.WorkerPoolSize = 8
	return cfg
}

func serve(servers map[string]*testutil.FakeServer) ServerFactory {
	return func(ctx context.Context, cfg *adapter.Config) (domain.Server, error) {
		s, ok := servers[cfg.Server.Address]
		if !ok {
			return nil, domain.ErrServerOffline
		}
		return s, nil
	}
}

func newTestManager(t *testing.T, servers map[string]*testutil.FakeServer) *Manager {
	t.Helper()
	m := New(slog.New(slog.DiscardHandler),
		WithServerFactory(serve(servers)),
		WithSearchDebounce(time.Millisecond),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.Shutdown(ctx)
	})
	return m
}

func wait[T any](res *result.Result[T], err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return res.Await(ctx)
}

func TestNotReady(t *testing.T) {
	m := newTestManager(t, nil)
	assert.False(t, m.Ready())

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, domain.ErrNotReady)
	}()
	m.GetArtists()
}

func TestReset(t *testing.T) {
	t.Run("makes the manager ready", func(t *testing.T) {
		server := testutil.NewFakeServer()
		server.Artists = []domain.ArtistIndex{{Name: "L", Artists: []domain.Artist{{ID: "ar-1", Name: "Low"}}}}
		m := newTestManager(t, map[string]*testutil.FakeServer{"https://a.example.com": server})

		cfg := testConfig(t, "https://a.example.com")
		require.NoError(t, m.Reset(context.Background(), cfg))
		assert.True(t, m.Ready())
		assert.Same(t, cfg, m.Config())
		assert.Equal(t, 1, m.Store().Version())

		artists, err := wait(m.GetArtists())
		require.NoError(t, err)
		assert.Equal(t, "Low", artists[0].Name)
	})

	t.Run("failure keeps the previous session", func(t *testing.T) {
		server := testutil.NewFakeServer()
		m := newTestManager(t, map[string]*testutil.FakeServer{"https://a.example.com": server})
		require.NoError(t, m.Reset(context.Background(), testConfig(t, "https://a.example.com")))

		err := m.Reset(context.Background(), testConfig(t, "https://unknown.example.com"))
		assert.ErrorIs(t, err, domain.ErrServerOffline)
		assert.Same(t, domain.Server(server), m.Server())
	})

	t.Run("switching servers switches caches", func(t *testing.T) {
		first := testutil.NewFakeServer()
		first.Artists = []domain.ArtistIndex{{Name: "L", Artists: []domain.Artist{{ID: "ar-1", Name: "Low"}}}}
		second := testutil.NewFakeServer()
		second.Artists = []domain.ArtistIndex{{Name: "S", Artists: []domain.Artist{{ID: "ar-9", Name: "Slint"}}}}
		m := newTestManager(t, map[string]*testutil.FakeServer{
			"https://a.example.com": first,
			"https://b.example.com": second,
		})

		cfg := testConfig(t, "https://a.example.com")
		require.NoError(t, m.Reset(context.Background(), cfg))
		_, err := wait(m.GetArtists())
		require.NoError(t, err)
		firstRoot := m.Store().Layout().Root

		next := *cfg
		next.Server.Address = "https://b.example.com"
		require.NoError(t, m.Reset(context.Background(), &next))
		assert.NotEqual(t, firstRoot, m.Store().Layout().Root)

		artists, err := wait(m.GetArtists())
		require.NoError(t, err)
		assert.Equal(t, "Slint", artists[0].Name)
		assert.Equal(t, 1, second.Calls("GetArtists"))

		t.Run("returning finds the old cache", func(t *testing.T) {
			require.NoError(t, m.Reset(context.Background(), cfg))
			res, err := m.GetArtists()
			require.NoError(t, err)
			assert.False(t, res.IsPending())
			assert.Equal(t, 1, first.Calls("GetArtists"))
		})
	})
}

func TestResetSameServer(t *testing.T) {
	for _, backend := range []string{store.BackendFile, store.BackendBolt} {
		t.Run(backend, func(t *testing.T) {
			server := testutil.NewFakeServer()
			server.Artists = []domain.ArtistIndex{{Name: "L", Artists: []domain.Artist{{ID: "ar-1", Name: "Low"}}}}
			m := newTestManager(t, map[string]*testutil.FakeServer{"https://a.example.com": server})

			cfg := testConfig(t, "https://a.example.com")
			cfg.Cache.Backend = backend
			require.NoError(t, m.Reset(context.Background(), cfg))

			settings := *cfg
			settings.Cache.WorkerPoolSize = 4
			require.NoError(t, m.Reset(context.Background(), &settings))

			artists, err := wait(m.GetArtists())
			require.NoError(t, err)
			assert.Equal(t, "Low", artists[0].Name)

			require.NoError(t, m.Reset(context.Background(), cfg))
			res, err := m.GetArtists()
			require.NoError(t, err)
			assert.False(t, res.IsPending())
			assert.Equal(t, 1, server.Calls("GetArtists"))

			layout := m.Store().Layout()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			require.NoError(t, m.Shutdown(ctx))

			cache, err := store.Open(layout, backend, slog.New(slog.DiscardHandler))
			require.NoError(t, err)
			defer cache.Close()
			require.Len(t, cache.Artists(), 1)
			assert.Equal(t, "Low", cache.Artists()[0].Name)
		})
	}
}

func TestShutdown(t *testing.T) {
	server := testutil.NewFakeServer()
	m := newTestManager(t, map[string]*testutil.FakeServer{"https://a.example.com": server})
	require.NoError(t, m.Reset(context.Background(), testConfig(t, "https://a.example.com")))

	m.Scrobble("s-1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
	assert.False(t, m.Ready())
	assert.Equal(t, []string{"s-1"}, server.Scrobbled())

	t.Run("is idempotent", func(t *testing.T) {
		assert.NoError(t, m.Shutdown(ctx))
	})
}

func TestSearch(t *testing.T) {
	server := testutil.NewFakeServer()
	server.Artists = []domain.ArtistIndex{{Name: "B", Artists: []domain.Artist{
		{ID: "ar-1", Name: "The Beatles"},
		{ID: "ar-2", Name: "Slowdive"},
	}}}
	server.SearchResults = domain.SearchResults{
		Albums: []domain.Album{{ID: "al-1", Name: "Beatles for Sale", Artist: "The Beatles"}},
	}
	m := newTestManager(t, map[string]*testutil.FakeServer{"https://a.example.com": server})
	require.NoError(t, m.Reset(context.Background(), testConfig(t, "https://a.example.com")))

	_, err := wait(m.GetArtists())
	require.NoError(t, err)

	type call struct {
		final   bool
		artists []string
		albums  []string
	}
	var (
		mu    sync.Mutex
		calls []call
	)
	res, err := m.Search("bea", func(r *search.SearchResult, final bool) {
		c := call{final: final}
		for _, a := range r.Artists() {
			c.artists = append(c.artists, a.Name)
		}
		for _, a := range r.Albums() {
			c.albums = append(c.albums, a.Name)
		}
		mu.Lock()
		calls = append(calls, c)
		mu.Unlock()
	})
	require.NoError(t, err)

	_, err = wait(res, nil)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 2)

	assert.False(t, calls[0].final)
	assert.Equal(t, []string{"The Beatles"}, calls[0].artists)
	assert.Empty(t, calls[0].albums)

	assert.True(t, calls[1].final)
	assert.Equal(t, []string{"The Beatles"}, calls[1].artists)
	assert.Equal(t, []string{"Beatles for Sale"}, calls[1].albums)
}

func TestServerFactoryError(t *testing.T) {
	boom := errors.New("dial failed")
	m := New(slog.New(slog.DiscardHandler), WithServerFactory(
		func(ctx context.Context, cfg *adapter.Config) (domain.Server, error) { return nil, boom },
	))

	err := m.Reset(context.Background(), testConfig(t, "https://a.example.com"))
	assert.ErrorIs(t, err, boom)
	assert.False(t, m.Ready())
}
