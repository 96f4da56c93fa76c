package manager

import (
	"time"

	"github.com/mmcdole/sonicache/internal/domain"
	"github.com/mmcdole/sonicache/internal/library"
	"github.com/mmcdole/sonicache/internal/result"
	"github.com/mmcdole/sonicache/internal/search"
)

func (m *Manager) GetArtists(opts ...library.Option) (*result.Result[[]domain.Artist], error) {
	return m.active().library.GetArtists(opts...)
}

func (m *Manager) GetIndexes(opts ...library.Option) (*result.Result[[]domain.Artist], error) {
	return m.active().library.GetIndexes(opts...)
}

func (m *Manager) GetArtist(id string, opts ...library.Option) (*result.Result[domain.ArtistWithAlbums], error) {
	return m.active().library.GetArtist(id, opts...)
}

func (m *Manager) GetArtistInfo(id string, opts ...library.Option) (*result.Result[domain.ArtistInfo], error) {
	return m.active().library.GetArtistInfo(id, opts...)
}

func (m *Manager) GetMusicDirectory(id string, opts ...library.Option) (*result.Result[domain.Directory], error) {
	return m.active().library.GetMusicDirectory(id, opts...)
}

func (m *Manager) GetAlbum(id string, opts ...library.Option) (*result.Result[domain.AlbumWithSongs], error) {
	return m.active().library.GetAlbum(id, opts...)
}

func (m *Manager) GetAlbumList(listType string, params domain.AlbumListOptions, opts ...library.Option) (*result.Result[[]domain.Album], error) {
	return m.active().library.GetAlbumList(listType, params, opts...)
}

func (m *Manager) GetPlaylists(opts ...library.Option) (*result.Result[[]domain.Playlist], error) {
	return m.active().library.GetPlaylists(opts...)
}

func (m *Manager) GetCoverArtFilename(id string, opts ...library.Option) (*result.Result[string], error) {
	return m.active().library.GetCoverArtFilename(id, opts...)
}

func (m *Manager) GetArtistArtwork(subject domain.ArtworkSubject, opts ...library.Option) (*result.Result[string], error) {
	return m.active().library.GetArtistArtwork(subject, opts...)
}

func (m *Manager) DeleteCachedCoverArt(id string) error {
	return m.active().library.DeleteCachedCoverArt(id)
}

func (m *Manager) GetPlayQueue(opts ...library.Option) (*result.Result[*domain.PlayQueue], error) {
	return m.active().library.GetPlayQueue(opts...)
}

func (m *Manager) SavePlayQueue(songIDs []string, current string, position time.Duration) {
	m.active().library.SavePlayQueue(songIDs, current, position)
}

func (m *Manager) Scrobble(songID string) {
	m.active().library.Scrobble(songID)
}

// Search runs a two-phase search. cb is called with the local results and
// again, final, once the server has answered.
func (m *Manager) Search(query string, cb search.Callback) (*result.Result[*search.SearchResult], error) {
	return m.active().search.Search(query, cb)
}
