// Package testutil contains shared test doubles.
package testutil

import (
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/mmcdole/sonicache/internal/domain"
)

// FakeServer is an in-memory [domain.Server]. Data fields are set up before
// the server is used; calls are counted per method.
type FakeServer struct {
	Artists       []domain.ArtistIndex
	Indexes       []domain.ArtistIndex
	ArtistDetails map[string]domain.ArtistWithAlbums
	ArtistInfos   map[string]domain.ArtistInfo
	Directories   map[string]domain.Directory
	Albums        map[string]domain.AlbumWithSongs
	AlbumLists    map[string][]domain.Album
	Playlists     []domain.Playlist
	SearchResults domain.SearchResults
	Queue         *domain.PlayQueue
	CoverArt      map[string][]byte
	URLs          map[string][]byte

	// Gate, when set, holds every call until it is closed.
	Gate chan struct{}

	mu         sync.Mutex
	err        error
	calls      map[string]int
	scrobbled  []string
	savedQueue []string
	savedAt    string
}

func NewFakeServer() *FakeServer {
	return &FakeServer{
		ArtistDetails: map[string]domain.ArtistWithAlbums{},
		ArtistInfos:   map[string]domain.ArtistInfo{},
		Directories:   map[string]domain.Directory{},
		Albums:        map[string]domain.AlbumWithSongs{},
		AlbumLists:    map[string][]domain.Album{},
		CoverArt:      map[string][]byte{},
		URLs:          map[string][]byte{},
		calls:         map[string]int{},
	}
}

var _ domain.Server = (*FakeServer)(nil)

// Fail makes every following call return err. Fail(nil) restores service.
func (f *FakeServer) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Calls returns how often method was invoked.
func (f *FakeServer) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *FakeServer) Scrobbled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.scrobbled)
}

// SavedQueue returns the song ids and current song of the last saved queue.
func (f *FakeServer) SavedQueue() ([]string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.savedQueue), f.savedAt
}

func (f *FakeServer) begin(ctx context.Context, method string) error {
	f.mu.Lock()
	f.calls[method]++
	err := f.err
	f.mu.Unlock()

	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *FakeServer) Ping(ctx context.Context) error {
	return f.begin(ctx, "Ping")
}

func (f *FakeServer) GetArtists(ctx context.Context) ([]domain.ArtistIndex, error) {
	if err := f.begin(ctx, "GetArtists"); err != nil {
		return nil, err
	}
	return slices.Clone(f.Artists), nil
}

func (f *FakeServer) GetIndexes(ctx context.Context) ([]domain.ArtistIndex, error) {
	if err := f.begin(ctx, "GetIndexes"); err != nil {
		return nil, err
	}
	return slices.Clone(f.Indexes), nil
}

func (f *FakeServer) GetArtist(ctx context.Context, id string) (*domain.ArtistWithAlbums, error) {
	if err := f.begin(ctx, "GetArtist"); err != nil {
		return nil, err
	}
	artist, ok := f.ArtistDetails[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &artist, nil
}

// GetArtistInfo2 answers with an empty info for unknown artists, as servers
// without an external metadata agent do.
func (f *FakeServer) GetArtistInfo2(ctx context.Context, id string) (*domain.ArtistInfo, error) {
	if err := f.begin(ctx, "GetArtistInfo2"); err != nil {
		return nil, err
	}
	info := f.ArtistInfos[id]
	return &info, nil
}

func (f *FakeServer) GetMusicDirectory(ctx context.Context, id string) (*domain.Directory, error) {
	if err := f.begin(ctx, "GetMusicDirectory"); err != nil {
		return nil, err
	}
	dir, ok := f.Directories[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &dir, nil
}

func (f *FakeServer) GetAlbum(ctx context.Context, id string) (*domain.AlbumWithSongs, error) {
	if err := f.begin(ctx, "GetAlbum"); err != nil {
		return nil, err
	}
	album, ok := f.Albums[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &album, nil
}

func (f *FakeServer) GetAlbumList2(ctx context.Context, listType string, size, offset int, opts domain.AlbumListOptions) ([]domain.Album, error) {
	if err := f.begin(ctx, "GetAlbumList2"); err != nil {
		return nil, err
	}
	list := f.AlbumLists[listType]
	if offset >= len(list) {
		return []domain.Album{}, nil
	}
	end := min(offset+size, len(list))
	return slices.Clone(list[offset:end]), nil
}

func (f *FakeServer) GetPlaylists(ctx context.Context) ([]domain.Playlist, error) {
	if err := f.begin(ctx, "GetPlaylists"); err != nil {
		return nil, err
	}
	return slices.Clone(f.Playlists), nil
}

func (f *FakeServer) Search3(ctx context.Context, query string) (*domain.SearchResults, error) {
	if err := f.begin(ctx, "Search3"); err != nil {
		return nil, err
	}
	res := f.SearchResults
	return &res, nil
}

func (f *FakeServer) GetCoverArt(ctx context.Context, id string, w io.Writer) error {
	if err := f.begin(ctx, "GetCoverArt"); err != nil {
		return err
	}
	data, ok := f.CoverArt[id]
	if !ok {
		return domain.ErrNotFound
	}
	_, err := w.Write(data)
	return err
}

func (f *FakeServer) DownloadURL(ctx context.Context, url string, w io.Writer) error {
	if err := f.begin(ctx, "DownloadURL"); err != nil {
		return err
	}
	data, ok := f.URLs[url]
	if !ok {
		return domain.ErrNotFound
	}
	_, err := w.Write(data)
	return err
}

func (f *FakeServer) Scrobble(ctx context.Context, songID string) error {
	if err := f.begin(ctx, "Scrobble"); err != nil {
		return err
	}
	f.mu.Lock()
	f.scrobbled = append(f.scrobbled, songID)
	f.mu.Unlock()
	return nil
}

func (f *FakeServer) GetPlayQueue(ctx context.Context) (*domain.PlayQueue, error) {
	if err := f.begin(ctx, "GetPlayQueue"); err != nil {
		return nil, err
	}
	return f.Queue, nil
}

func (f *FakeServer) SavePlayQueue(ctx context.Context, songIDs []string, current string, position time.Duration) error {
	if err := f.begin(ctx, "SavePlayQueue"); err != nil {
		return err
	}
	f.mu.Lock()
	f.savedQueue = slices.Clone(songIDs)
	f.savedAt = current
	f.mu.Unlock()
	return nil
}
