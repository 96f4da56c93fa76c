package library

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"path/filepath"
	"strings"

	"github.com/mmcdole/sonicache/internal/domain"
	"github.com/mmcdole/sonicache/internal/download"
	"github.com/mmcdole/sonicache/internal/result"
	"github.com/mmcdole/sonicache/internal/store"
)

// Image names servers hand out when they have no artist picture.
var placeholderImages = []string{
	"2a96cbd8b46e442fc41c2b86b821562f.png",
	"1024px-No_image_available.svg.png",
}

func isPlaceholder(url string) bool {
	if url == "" {
		return true
	}
	for _, name := range placeholderImages {
		if strings.HasSuffix(url, name) {
			return true
		}
	}
	return false
}

// ArtworkURLPath is the cache-relative path of an image downloaded from an
// external URL.
func ArtworkURLPath(url string) string {
	sum := md5.Sum([]byte(url))
	return filepath.Join(store.CoverArtDir, "artist."+hex.EncodeToString(sum[:]))
}

// GetCoverArtFilename returns the local path of a cover art image,
// downloading it when necessary. An empty id resolves to "".
func (s *Service) GetCoverArtFilename(id string, opts ...Option) (*result.Result[string], error) {
	if id == "" {
		return result.FromData(""), nil
	}
	return s.cachedOrDownload(store.CoverArtPath(id), s.coverArtFetcher(id), collect(opts))
}

func (s *Service) coverArtFetcher(id string) download.FetchFunc {
	return func(ctx context.Context, w io.Writer) error {
		return s.server.GetCoverArt(ctx, id, w)
	}
}

// GetArtistArtwork returns the local path of the best image for an artist:
// the artist-info picture unless it is missing or a placeholder, otherwise
// the subject's own cover art, otherwise the placeholder. Resolves to "" when
// nothing is available.
func (s *Service) GetArtistArtwork(subject domain.ArtworkSubject, opts ...Option) (*result.Result[string], error) {
	o := collect(opts)

	info, err := s.GetArtistInfo(subject.GetID())
	if err != nil {
		return nil, err
	}

	if !info.IsPending() {
		v, err := info.Result()
		if err != nil {
			return nil, err
		}
		rel, fetch := s.artworkSource(subject, v)
		if rel == "" {
			return result.FromData(""), nil
		}
		return s.cachedOrDownload(rel, fetch, o)
	}

	// The artist info has to arrive before we know what to download, so the
	// whole chain becomes one pending result.
	return result.FromServer(s.pool,
		func(ctx context.Context) (string, error) {
			v, err := info.Await(ctx)
			if err != nil {
				return "", err
			}
			rel, fetch := s.artworkSource(subject, v)
			if rel == "" {
				return "", nil
			}
			return s.downloads.Fetch(ctx, rel, fetch, o.force)
		},
		result.BeforeStart[string](o.beforeDownload),
		result.OnCancel[string](func() { info.Cancel() }),
	)
}

// artworkSource picks what to download for subject. A placeholder picture is
// only used when the subject has no cover art of its own.
func (s *Service) artworkSource(subject domain.ArtworkSubject, info domain.ArtistInfo) (string, download.FetchFunc) {
	url := info.LargeImageURL
	if !isPlaceholder(url) {
		return s.urlSource(url)
	}
	if ids := subject.CoverArtCandidates(); len(ids) > 0 {
		return store.CoverArtPath(ids[0]), s.coverArtFetcher(ids[0])
	}
	if url != "" {
		return s.urlSource(url)
	}
	return "", nil
}

func (s *Service) urlSource(url string) (string, download.FetchFunc) {
	return ArtworkURLPath(url), func(ctx context.Context, w io.Writer) error {
		return s.server.DownloadURL(ctx, url, w)
	}
}
