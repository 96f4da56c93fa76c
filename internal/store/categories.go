package store

import (
	"encoding/json"

	"github.com/mmcdole/sonicache/internal/domain"
)

// Category names as they appear in the snapshot.
const (
	CategorySongDetails      = "song_details"
	CategoryMusicDirectories = "music_directories"
	CategoryIndexes          = "indexes"
	CategoryAlbums           = "albums"
	CategoryAlbumDetails     = "album_details"
	CategoryArtists          = "artists"
	CategoryArtistDetails    = "artist_details"
	CategoryArtistInfos      = "artist_infos"
	CategoryPlaylists        = "playlists"
)

// Snapshot is the in-memory content of the cache. Entities inside it are
// values and are only ever replaced, never mutated in place.
type Snapshot struct {
	Version int

	SongDetails      map[string]domain.Song
	MusicDirectories map[string]domain.Directory
	Indexes          []domain.Artist
	Albums           map[string][]domain.Album
	AlbumDetails     map[string]domain.AlbumWithSongs
	Artists          []domain.Artist
	ArtistDetails    map[string]domain.ArtistWithAlbums
	ArtistInfos      map[string]domain.ArtistInfo
	Playlists        []domain.Playlist
}

// NewSnapshot returns a snapshot with every category set to its empty shape.
func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	for _, c := range categories {
		c.reset(s)
	}
	return s
}

// category is the serialization contract of one snapshot partition.
type category struct {
	name   string
	encode func(*Snapshot) ([]byte, error)
	decode func(*Snapshot, json.RawMessage) error
	reset  func(*Snapshot)
}

var categories = []category{
	mapCategory(CategorySongDetails, func(s *Snapshot) *map[string]domain.Song { return &s.SongDetails }),
	mapCategory(CategoryMusicDirectories, func(s *Snapshot) *map[string]domain.Directory { return &s.MusicDirectories }),
	listCategory(CategoryIndexes, func(s *Snapshot) *[]domain.Artist { return &s.Indexes }),
	groupCategory(CategoryAlbums, func(s *Snapshot) *map[string][]domain.Album { return &s.Albums }),
	mapCategory(CategoryAlbumDetails, func(s *Snapshot) *map[string]domain.AlbumWithSongs { return &s.AlbumDetails }),
	listCategory(CategoryArtists, func(s *Snapshot) *[]domain.Artist { return &s.Artists }),
	mapCategory(CategoryArtistDetails, func(s *Snapshot) *map[string]domain.ArtistWithAlbums { return &s.ArtistDetails }),
	mapCategory(CategoryArtistInfos, func(s *Snapshot) *map[string]domain.ArtistInfo { return &s.ArtistInfos }),
	listCategory(CategoryPlaylists, func(s *Snapshot) *[]domain.Playlist { return &s.Playlists }),
}

func listCategory[T any](name string, field func(*Snapshot) *[]T) category {
	return category{
		name: name,
		encode: func(s *Snapshot) ([]byte, error) {
			return json.Marshal(*field(s))
		},
		decode: func(s *Snapshot, raw json.RawMessage) error {
			var v []T
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			if v == nil {
				v = []T{}
			}
			*field(s) = v
			return nil
		},
		reset: func(s *Snapshot) { *field(s) = []T{} },
	}
}

func mapCategory[T any](name string, field func(*Snapshot) *map[string]T) category {
	return category{
		name: name,
		encode: func(s *Snapshot) ([]byte, error) {
			return json.Marshal(*field(s))
		},
		decode: func(s *Snapshot, raw json.RawMessage) error {
			var v map[string]T
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			if v == nil {
				v = map[string]T{}
			}
			*field(s) = v
			return nil
		},
		reset: func(s *Snapshot) { *field(s) = map[string]T{} },
	}
}

func groupCategory[T any](name string, field func(*Snapshot) *map[string][]T) category {
	return category{
		name: name,
		encode: func(s *Snapshot) ([]byte, error) {
			return json.Marshal(*field(s))
		},
		decode: func(s *Snapshot, raw json.RawMessage) error {
			var v map[string][]T
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			if v == nil {
				v = map[string][]T{}
			}
			*field(s) = v
			return nil
		},
		reset: func(s *Snapshot) { *field(s) = map[string][]T{} },
	}
}
