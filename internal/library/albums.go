package library

import (
	"context"

	"github.com/mmcdole/sonicache/internal/domain"
	"github.com/mmcdole/sonicache/internal/result"
	"github.com/mmcdole/sonicache/internal/store"
)

// Album list paging.
const (
	albumPageSize  = 500
	randomPageSize = 40

	// ListRandom is the album list type that is fetched as a single page.
	ListRandom = "random"
)

// GetAlbum returns an album with its tracks. The tracks are also cached
// individually so they can be looked up by id.
func (s *Service) GetAlbum(id string, opts ...Option) (*result.Result[domain.AlbumWithSongs], error) {
	return load(s, readThrough[domain.AlbumWithSongs]{
		category: store.CategoryAlbumDetails,
		cached:   func() (domain.AlbumWithSongs, bool) { return s.store.AlbumDetail(id) },
		fetch: func(ctx context.Context) (domain.AlbumWithSongs, error) {
			album, err := s.server.GetAlbum(ctx, id)
			if err != nil {
				return domain.AlbumWithSongs{}, err
			}
			return *album, nil
		},
		merge: func(snap *store.Snapshot, v domain.AlbumWithSongs) {
			snap.AlbumDetails[id] = v
			for _, song := range v.Songs {
				snap.SongDetails[song.ID] = song
			}
		},
	}, collect(opts))
}

// GetAlbumList returns the complete album list of the given type.
func (s *Service) GetAlbumList(listType string, params domain.AlbumListOptions, opts ...Option) (*result.Result[[]domain.Album], error) {
	o := collect(opts)
	return load(s, readThrough[[]domain.Album]{
		category: store.CategoryAlbums,
		cached: func() ([]domain.Album, bool) {
			albums := s.store.AlbumList(listType)
			return albums, len(albums) > 0
		},
		fetch: func(ctx context.Context) ([]domain.Album, error) {
			pageSize, single := albumPageSize, false
			if listType == ListRandom {
				pageSize, single = randomPageSize, true
			}
			return fetchPages(ctx, func(ctx context.Context, offset, size int) ([]domain.Album, error) {
				return s.server.GetAlbumList2(ctx, listType, size, offset, params)
			}, pageSize, single, o.onProgress)
		},
		merge: func(snap *store.Snapshot, v []domain.Album) { snap.Albums[listType] = v },
	}, o)
}

// fetchPages requests pages from offset 0 until the server returns a short
// page. With single set only the first page is requested.
func fetchPages[T any](
	ctx context.Context,
	fetch func(ctx context.Context, offset, size int) ([]T, error),
	pageSize int,
	single bool,
	onProgress domain.ProgressFunc,
) ([]T, error) {
	all := []T{}
	offset, pages := 0, 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		items, err := fetch(ctx, offset, pageSize)
		if err != nil {
			return nil, err
		}

		all = append(all, items...)
		pages++

		if onProgress != nil {
			onProgress(len(all), pages)
		}

		if single || len(items) < pageSize {
			break
		}
		offset += pageSize
	}

	return all, nil
}
