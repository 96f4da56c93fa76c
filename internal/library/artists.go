package library

import (
	"context"

	"github.com/mmcdole/sonicache/internal/domain"
	"github.com/mmcdole/sonicache/internal/result"
	"github.com/mmcdole/sonicache/internal/store"
)

// GetArtists returns the flattened ID3 artist index.
func (s *Service) GetArtists(opts ...Option) (*result.Result[[]domain.Artist], error) {
	return load(s, readThrough[[]domain.Artist]{
		category: store.CategoryArtists,
		cached: func() ([]domain.Artist, bool) {
			artists := s.store.Artists()
			return artists, len(artists) > 0
		},
		fetch: func(ctx context.Context) ([]domain.Artist, error) {
			return flattenIndex(s.server.GetArtists(ctx))
		},
		merge: func(snap *store.Snapshot, v []domain.Artist) { snap.Artists = v },
	}, collect(opts))
}

// GetIndexes returns the flattened folder-based artist index.
func (s *Service) GetIndexes(opts ...Option) (*result.Result[[]domain.Artist], error) {
	return load(s, readThrough[[]domain.Artist]{
		category: store.CategoryIndexes,
		cached: func() ([]domain.Artist, bool) {
			artists := s.store.Indexes()
			return artists, len(artists) > 0
		},
		fetch: func(ctx context.Context) ([]domain.Artist, error) {
			return flattenIndex(s.server.GetIndexes(ctx))
		},
		merge: func(snap *store.Snapshot, v []domain.Artist) { snap.Indexes = v },
	}, collect(opts))
}

func flattenIndex(index []domain.ArtistIndex, err error) ([]domain.Artist, error) {
	if err != nil {
		return nil, err
	}
	artists := []domain.Artist{}
	for _, group := range index {
		artists = append(artists, group.Artists...)
	}
	return artists, nil
}

// GetArtist returns an artist with its albums.
func (s *Service) GetArtist(id string, opts ...Option) (*result.Result[domain.ArtistWithAlbums], error) {
	return load(s, readThrough[domain.ArtistWithAlbums]{
		category: store.CategoryArtistDetails,
		cached:   func() (domain.ArtistWithAlbums, bool) { return s.store.ArtistDetail(id) },
		fetch: func(ctx context.Context) (domain.ArtistWithAlbums, error) {
			artist, err := s.server.GetArtist(ctx, id)
			if err != nil {
				return domain.ArtistWithAlbums{}, err
			}
			return *artist, nil
		},
		merge: func(snap *store.Snapshot, v domain.ArtistWithAlbums) { snap.ArtistDetails[id] = v },
	}, collect(opts))
}

// GetArtistInfo returns biography and images for an artist. An empty answer
// from the server is returned but not cached.
func (s *Service) GetArtistInfo(id string, opts ...Option) (*result.Result[domain.ArtistInfo], error) {
	return load(s, readThrough[domain.ArtistInfo]{
		category: store.CategoryArtistInfos,
		cached:   func() (domain.ArtistInfo, bool) { return s.store.ArtistInfo(id) },
		fetch: func(ctx context.Context) (domain.ArtistInfo, error) {
			info, err := s.server.GetArtistInfo2(ctx, id)
			if err != nil {
				return domain.ArtistInfo{}, err
			}
			if info == nil {
				return domain.ArtistInfo{}, nil
			}
			return *info, nil
		},
		merge:     func(snap *store.Snapshot, v domain.ArtistInfo) { snap.ArtistInfos[id] = v },
		skipMerge: domain.ArtistInfo.IsEmpty,
	}, collect(opts))
}

// GetMusicDirectory returns a folder listing.
func (s *Service) GetMusicDirectory(id string, opts ...Option) (*result.Result[domain.Directory], error) {
	return load(s, readThrough[domain.Directory]{
		category: store.CategoryMusicDirectories,
		cached:   func() (domain.Directory, bool) { return s.store.MusicDirectory(id) },
		fetch: func(ctx context.Context) (domain.Directory, error) {
			dir, err := s.server.GetMusicDirectory(ctx, id)
			if err != nil {
				return domain.Directory{}, err
			}
			return *dir, nil
		},
		merge: func(snap *store.Snapshot, v domain.Directory) { snap.MusicDirectories[id] = v },
	}, collect(opts))
}

// GetPlaylists returns the user's playlists.
func (s *Service) GetPlaylists(opts ...Option) (*result.Result[[]domain.Playlist], error) {
	return load(s, readThrough[[]domain.Playlist]{
		category: store.CategoryPlaylists,
		cached: func() ([]domain.Playlist, bool) {
			playlists := s.store.Playlists()
			return playlists, len(playlists) > 0
		},
		fetch: func(ctx context.Context) ([]domain.Playlist, error) {
			playlists, err := s.server.GetPlaylists(ctx)
			if err != nil {
				return nil, err
			}
			if playlists == nil {
				playlists = []domain.Playlist{}
			}
			return playlists, nil
		},
		merge: func(snap *store.Snapshot, v []domain.Playlist) { snap.Playlists = v },
	}, collect(opts))
}
