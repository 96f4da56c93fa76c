package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/sonicache/internal/domain"
)

func testLayout(t *testing.T) Layout {
	t.Helper()
	return NewLayout(t.TempDir(), t.TempDir(), "https://music.example.com")
}

func openStore(t *testing.T, layout Layout, backend string) *CacheStore {
	t.Helper()
	s, err := Open(layout, backend, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleSnapshot(s *Snapshot) {
	starred := domain.NewTimestamp(time.UnixMilli(1500000000123))
	song := domain.Song{ID: "s1", Title: "Intro", AlbumID: "al1", Duration: 93, Starred: starred}

	s.Artists = []domain.Artist{{ID: "ar1", Name: "Boards of Canada", AlbumCount: 2, Starred: starred}}
	s.Indexes = []domain.Artist{{ID: "d1", Name: "Boards of Canada"}}
	s.ArtistDetails["ar1"] = domain.ArtistWithAlbums{
		Artist: s.Artists[0],
		Albums: []domain.Album{{ID: "al1", Name: "Geogaddi", CoverArt: "al-1"}},
	}
	s.ArtistInfos["ar1"] = domain.ArtistInfo{Biography: "Scottish duo", LargeImageURL: "https://img.example.com/boc.jpg"}
	s.AlbumDetails["al1"] = domain.AlbumWithSongs{
		Album: domain.Album{ID: "al1", Name: "Geogaddi", Created: starred},
		Songs: []domain.Song{song},
	}
	s.SongDetails["s1"] = song
	s.Albums["newest"] = []domain.Album{{ID: "al1", Name: "Geogaddi"}}
	s.MusicDirectories["d1"] = domain.Directory{ID: "d1", Name: "Boards of Canada", Children: []domain.Song{{ID: "d2", IsDir: true, Title: "Geogaddi"}}}
	s.Playlists = []domain.Playlist{{ID: "p1", Name: "Morning", SongCount: 1, Changed: starred}}
}

func TestOpenEmpty(t *testing.T) {
	s := openStore(t, testLayout(t), BackendFile)

	assert.Equal(t, CurrentVersion, s.Version())
	assert.Empty(t, s.Artists())
	assert.Empty(t, s.Indexes())
	assert.Empty(t, s.Playlists())
	assert.Empty(t, s.AlbumList("newest"))
	assert.Empty(t, s.CachedSongs())

	_, ok := s.AlbumDetail("missing")
	assert.False(t, ok)
}

func TestRoundTrip(t *testing.T) {
	for _, backend := range []string{BackendFile, BackendBolt} {
		t.Run(backend, func(t *testing.T) {
			layout := testLayout(t)

			s, err := Open(layout, backend, nil)
			require.NoError(t, err)
			require.NoError(t, s.Update(sampleSnapshot))

			var wantBytes []byte
			s.View(func(snap *Snapshot) {
				wantBytes, err = encodeSnapshot(snap)
			})
			require.NoError(t, err)
			require.NoError(t, s.Close())

			reopened := openStore(t, layout, backend)
			var gotBytes []byte
			reopened.View(func(snap *Snapshot) {
				gotBytes, err = encodeSnapshot(snap)
			})
			require.NoError(t, err)
			assert.JSONEq(t, string(wantBytes), string(gotBytes))

			detail, ok := reopened.AlbumDetail("al1")
			require.True(t, ok)
			assert.Equal(t, "Geogaddi", detail.Name)
			require.Len(t, detail.Songs, 1)
			assert.Equal(t, int64(1500000000123), detail.Created.UnixMilli())

			song, ok := reopened.Song("s1")
			require.True(t, ok)
			assert.Equal(t, domain.Seconds(93), song.Duration)

			info, ok := reopened.ArtistInfo("ar1")
			require.True(t, ok)
			assert.Equal(t, "Scottish duo", info.Biography)
		})
	}
}

func TestEncodingIsDeterministic(t *testing.T) {
	snap := NewSnapshot()
	snap.Version = CurrentVersion
	sampleSnapshot(snap)

	first, err := encodeSnapshot(snap)
	require.NoError(t, err)
	for range 5 {
		again, err := encodeSnapshot(snap)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}

	t.Run("timestamps are epoch milliseconds", func(t *testing.T) {
		assert.Contains(t, string(first), `"starred": 1500000000123`)
	})

	t.Run("empty fields are omitted", func(t *testing.T) {
		var doc map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(first, &doc))

		var artists []map[string]any
		require.NoError(t, json.Unmarshal(doc[CategoryArtists], &artists))
		require.Len(t, artists, 1)
		assert.NotContains(t, artists[0], "coverArt")
		assert.Equal(t, "Boards of Canada", artists[0]["name"])
	})
}

func TestLoadCorruptSnapshot(t *testing.T) {
	layout := testLayout(t)
	require.NoError(t, os.MkdirAll(layout.Root, 0755))
	require.NoError(t, os.WriteFile(layout.Path(metaFileName), []byte("{not json"), 0644))

	s := openStore(t, layout, BackendFile)
	assert.Empty(t, s.Artists())
	assert.Equal(t, CurrentVersion, s.Version())
}

func TestLoadCorruptCategory(t *testing.T) {
	layout := testLayout(t)
	require.NoError(t, os.MkdirAll(layout.Root, 0755))
	doc := `{
		"version": 1,
		"artists": "not a list",
		"playlists": [{"id": "p1", "name": "Morning"}]
	}`
	require.NoError(t, os.WriteFile(layout.Path(metaFileName), []byte(doc), 0644))

	s := openStore(t, layout, BackendFile)
	assert.Empty(t, s.Artists())
	require.Len(t, s.Playlists(), 1)
	assert.Equal(t, "Morning", s.Playlists()[0].Name)
}

func TestMigration(t *testing.T) {
	layout := testLayout(t)
	coverDir := layout.Path(CoverArtDir)
	require.NoError(t, os.MkdirAll(coverDir, 0755))
	for _, name := range []string{"123_1000", "123_300", "6_300", "7"} {
		require.NoError(t, os.WriteFile(filepath.Join(coverDir, name), []byte(name), 0644))
	}
	require.NoError(t, os.WriteFile(layout.Path(metaFileName), []byte(`{"version": 0}`), 0644))

	s := openStore(t, layout, BackendFile)
	assert.Equal(t, 1, s.Version())

	data, err := os.ReadFile(filepath.Join(coverDir, "123"))
	require.NoError(t, err)
	assert.Equal(t, "123_1000", string(data))

	for _, gone := range []string{"123_1000", "123_300", "6_300"} {
		assert.NoFileExists(t, filepath.Join(coverDir, gone))
	}
	assert.FileExists(t, filepath.Join(coverDir, "7"))

	t.Run("new version is persisted", func(t *testing.T) {
		raw, err := os.ReadFile(layout.Path(metaFileName))
		require.NoError(t, err)
		var doc struct {
			Version int `json:"version"`
		}
		require.NoError(t, json.Unmarshal(raw, &doc))
		assert.Equal(t, 1, doc.Version)
	})

	t.Run("loading again leaves the snapshot unchanged", func(t *testing.T) {
		before, err := os.ReadFile(layout.Path(metaFileName))
		require.NoError(t, err)

		require.NoError(t, s.Load())
		require.NoError(t, s.Save())

		after, err := os.ReadFile(layout.Path(metaFileName))
		require.NoError(t, err)
		assert.Equal(t, string(before), string(after))
	})

	t.Run("running again changes nothing", func(t *testing.T) {
		require.NoError(t, migrateCoverArtNames(layout, s.logger))
		entries, err := os.ReadDir(coverDir)
		require.NoError(t, err)
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		assert.ElementsMatch(t, []string{"123", "7"}, names)
	})
}

func TestCachedAlbumsSpansLists(t *testing.T) {
	s := openStore(t, testLayout(t), BackendFile)
	require.NoError(t, s.Update(func(snap *Snapshot) {
		snap.Albums["newest"] = []domain.Album{{ID: "a"}}
		snap.Albums["random"] = []domain.Album{{ID: "b"}, {ID: "c"}}
	}))

	assert.Len(t, s.CachedAlbums(), 3)
}

func TestReadsAreCopies(t *testing.T) {
	s := openStore(t, testLayout(t), BackendFile)
	require.NoError(t, s.Update(func(snap *Snapshot) {
		snap.Artists = []domain.Artist{{ID: "1", Name: "Low"}}
	}))

	artists := s.Artists()
	artists[0].Name = "changed"
	assert.Equal(t, "Low", s.Artists()[0].Name)
}

func TestLayout(t *testing.T) {
	t.Run("server hash ignores case and trailing slash", func(t *testing.T) {
		assert.Equal(t, HashServerID("https://Music.example.com/"), HashServerID("https://music.example.com"))
		assert.NotEqual(t, HashServerID("https://a.example.com"), HashServerID("https://b.example.com"))
		assert.Len(t, HashServerID("x"), 12)
	})

	t.Run("delete cover art removes every variant", func(t *testing.T) {
		layout := testLayout(t)
		dir := layout.Path(CoverArtDir)
		require.NoError(t, os.MkdirAll(dir, 0755))
		for _, name := range []string{"al-1", "al-1_300", "al-2"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
		}

		require.NoError(t, layout.DeleteCoverArt("al-1"))
		assert.NoFileExists(t, filepath.Join(dir, "al-1"))
		assert.NoFileExists(t, filepath.Join(dir, "al-1_300"))
		assert.FileExists(t, filepath.Join(dir, "al-2"))
	})
}
