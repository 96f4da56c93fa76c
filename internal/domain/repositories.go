package domain

import (
	"context"
	"io"
	"time"
)

// LibraryRepository provides metadata about the music library
type LibraryRepository interface {
	// GetArtists returns the ID3 artist index
	GetArtists(ctx context.Context) ([]ArtistIndex, error)

	// GetIndexes returns the folder-based artist index
	GetIndexes(ctx context.Context) ([]ArtistIndex, error)

	GetArtist(ctx context.Context, id string) (*ArtistWithAlbums, error)

	// GetArtistInfo2 returns biography and image URLs; may be empty
	GetArtistInfo2(ctx context.Context, id string) (*ArtistInfo, error)

	GetMusicDirectory(ctx context.Context, id string) (*Directory, error)

	GetAlbum(ctx context.Context, id string) (*AlbumWithSongs, error)

	// GetAlbumList2 returns one page of an album list of the given type
	// ("newest", "random", "alphabeticalByName", ...)
	GetAlbumList2(ctx context.Context, listType string, size, offset int, opts AlbumListOptions) ([]Album, error)

	GetPlaylists(ctx context.Context) ([]Playlist, error)
}

// SearchRepository provides server-side search
type SearchRepository interface {
	Search3(ctx context.Context, query string) (*SearchResults, error)
}

// MediaRepository streams binary resources
type MediaRepository interface {
	// GetCoverArt writes the cover art image with the given id to w
	GetCoverArt(ctx context.Context, id string, w io.Writer) error

	// DownloadURL writes the body of an arbitrary (external) URL to w
	DownloadURL(ctx context.Context, url string, w io.Writer) error
}

// PlaybackRepository covers one-shot calls that only send data to the server
type PlaybackRepository interface {
	Scrobble(ctx context.Context, songID string) error
	GetPlayQueue(ctx context.Context) (*PlayQueue, error)
	SavePlayQueue(ctx context.Context, songIDs []string, current string, position time.Duration) error
}

// Server is the network collaborator the cache sits in front of.
type Server interface {
	LibraryRepository
	SearchRepository
	MediaRepository
	PlaybackRepository

	Ping(ctx context.Context) error
}
