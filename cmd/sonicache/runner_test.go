package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/sonicache/internal/adapter"
	"github.com/mmcdole/sonicache/internal/domain"
	"github.com/mmcdole/sonicache/internal/manager"
	"github.com/mmcdole/sonicache/internal/testutil"
)

func writeConfig(t *testing.T, server string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf(`server:
  address: %q
  username: alice
  password: sesame
cache:
  location: %q
  staging_location: %q
logging:
  file: %q
`, server, filepath.Join(dir, "data"), filepath.Join(dir, "staging"), filepath.Join(dir, "sonicache.log"))
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	return path
}

func run(t *testing.T, server *testutil.FakeServer, configPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	runner := NewRunner(RunnerOpts{
		Output: &out,
		ManagerOptions: []manager.Option{
			manager.WithServerFactory(func(ctx context.Context, cfg *adapter.Config) (domain.Server, error) {
				return server, nil
			}),
			manager.WithSearchDebounce(time.Millisecond),
		},
	})
	argv := append([]string{"sonicache", "--config", configPath}, args...)
	err := newApp(runner).Run(context.Background(), argv)
	return out.String(), err
}

func testServer() *testutil.FakeServer {
	server := testutil.NewFakeServer()
	server.Artists = []domain.ArtistIndex{{Name: "B", Artists: []domain.Artist{
		{ID: "ar-1", Name: "The Beatles", AlbumCount: 2},
	}}}
	server.AlbumLists["alphabeticalByName"] = []domain.Album{
		{ID: "al-1", Name: "Abbey Road", Artist: "The Beatles", CoverArt: "al-1", Year: 1969},
		{ID: "al-2", Name: "Help!", Artist: "The Beatles", CoverArt: "al-2", Year: 1965},
	}
	server.CoverArt["al-1"] = []byte("jpeg")
	server.CoverArt["al-2"] = []byte("jpeg")
	return server
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			assert.Equal(t, os.Stdout, runner.output)
			assert.Equal(t, os.Stdin, runner.input)
			assert.NotNil(t, runner.logger)
			assert.Nil(t, runner.manager)
		})

		t.Run("with output provided", func(t *testing.T) {
			out := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: out})
			assert.Same(t, out, runner.output)
		})
	})

	t.Run("register", func(t *testing.T) {
		var names []string
		for _, cmd := range NewRunner(RunnerOpts{}).register() {
			names = append(names, cmd.Name)
		}
		assert.ElementsMatch(t, []string{
			"configure", "artists", "albums", "album", "search", "artwork", "sync", "queue", "clear",
		}, names)
	})
}

func TestCommands(t *testing.T) {
	t.Run("artists", func(t *testing.T) {
		out, err := run(t, testServer(), writeConfig(t, "https://music.example.com"), "artists")
		require.NoError(t, err)
		assert.Equal(t, "ar-1\tThe Beatles\t2 albums\n", out)
	})

	t.Run("albums as json", func(t *testing.T) {
		out, err := run(t, testServer(), writeConfig(t, "https://music.example.com"), "albums", "--json")
		require.NoError(t, err)

		var albums []domain.Album
		require.NoError(t, json.Unmarshal([]byte(out), &albums))
		require.Len(t, albums, 2)
		assert.Equal(t, "Abbey Road", albums[0].Name)
	})

	t.Run("album requires an id", func(t *testing.T) {
		_, err := run(t, testServer(), writeConfig(t, "https://music.example.com"), "album")
		assert.ErrorContains(t, err, "album ID is required")
	})

	t.Run("search prints both phases", func(t *testing.T) {
		server := testServer()
		configPath := writeConfig(t, "https://music.example.com")
		_, err := run(t, server, configPath, "artists")
		require.NoError(t, err)

		out, err := run(t, server, configPath, "search", "bea")
		require.NoError(t, err)
		assert.Contains(t, out, "== cached results\nartist\tar-1\tThe Beatles\n")
		assert.Contains(t, out, "== server results")
	})

	t.Run("search can mark matched characters", func(t *testing.T) {
		server := testServer()
		configPath := writeConfig(t, "https://music.example.com")
		_, err := run(t, server, configPath, "artists")
		require.NoError(t, err)

		out, err := run(t, server, configPath, "search", "--highlight", "bea")
		require.NoError(t, err)
		assert.Contains(t, out, "artist\tar-1\tThe \x1b[1mBea\x1b[0mtles\n")
	})

	t.Run("sync warms the cache", func(t *testing.T) {
		server := testServer()
		out, err := run(t, server, writeConfig(t, "https://music.example.com"), "sync")
		require.NoError(t, err)
		assert.Contains(t, out, "✓ 1 artists, 0 playlists, 2 albums, 2 covers (0 failed")
		assert.Equal(t, 2, server.Calls("GetCoverArt"))
	})

	t.Run("scrobble completes before exit", func(t *testing.T) {
		server := testServer()
		_, err := run(t, server, writeConfig(t, "https://music.example.com"), "queue", "scrobble", "s-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"s-1"}, server.Scrobbled())
	})

	t.Run("save play queue", func(t *testing.T) {
		server := testServer()
		_, err := run(t, server, writeConfig(t, "https://music.example.com"),
			"queue", "save", "--current", "s-2", "s-1", "s-2")
		require.NoError(t, err)

		ids, current := server.SavedQueue()
		assert.Equal(t, []string{"s-1", "s-2"}, ids)
		assert.Equal(t, "s-2", current)
	})

	t.Run("no saved play queue", func(t *testing.T) {
		out, err := run(t, testServer(), writeConfig(t, "https://music.example.com"), "queue", "show")
		require.NoError(t, err)
		assert.Equal(t, "no saved play queue\n", out)
	})

	t.Run("unconfigured server", func(t *testing.T) {
		_, err := run(t, testServer(), writeConfig(t, ""), "artists")
		assert.ErrorContains(t, err, "no server configured")
	})
}

func TestHighlight(t *testing.T) {
	tests := map[string]struct {
		query string
		text  string
		want  string
	}{
		"contiguous": {"bea", "The Beatles", "The \x1b[1mBea\x1b[0mtles"},
		"split runs": {"btl", "beatles", "\x1b[1mb\x1b[0mea\x1b[1mtl\x1b[0mes"},
		"whole text": {"low", "Low", "\x1b[1mLow\x1b[0m"},
		"no match":   {"xyz", "The Beatles", "The Beatles"},
		"multibyte":  {"bjk", "Björk", "\x1b[1mBj\x1b[0mör\x1b[1mk\x1b[0m"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, highlight(tt.query, tt.text))
		})
	}
}
