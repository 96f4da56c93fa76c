package search

import (
	"cmp"
	"slices"
	"sync"

	"github.com/mmcdole/sonicache/internal/domain"
)

const (
	// minScore is exclusive: a candidate must score above it.
	minScore = 60

	// maxResults caps each ranked category.
	maxResults = 20
)

// SearchResult aggregates local and server results of one query. Only the
// raw sets are stored; ranked views are recomputed on every read.
type SearchResult struct {
	Query string

	scorer *Scorer

	mu        sync.RWMutex
	artists   map[string]domain.Artist
	albums    map[string]domain.Album
	songs     map[string]domain.Song
	playlists map[string]domain.Playlist
}

// NewSearchResult creates an empty aggregate. A nil scorer gets a private one.
func NewSearchResult(query string, scorer *Scorer) *SearchResult {
	if scorer == nil {
		scorer = NewScorer()
	}
	return &SearchResult{
		Query:     query,
		scorer:    scorer,
		artists:   make(map[string]domain.Artist),
		albums:    make(map[string]domain.Album),
		songs:     make(map[string]domain.Song),
		playlists: make(map[string]domain.Playlist),
	}
}

func (r *SearchResult) AddArtists(artists ...domain.Artist) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range artists {
		r.artists[a.ID] = a
	}
}

func (r *SearchResult) AddAlbums(albums ...domain.Album) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range albums {
		r.albums[a.ID] = a
	}
}

func (r *SearchResult) AddSongs(songs ...domain.Song) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range songs {
		r.songs[s.ID] = s
	}
}

func (r *SearchResult) AddPlaylists(playlists ...domain.Playlist) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range playlists {
		r.playlists[p.ID] = p
	}
}

// AddServerResults merges what the server returned for the query.
func (r *SearchResult) AddServerResults(res *domain.SearchResults) {
	if res == nil {
		return
	}
	r.AddArtists(res.Artists...)
	r.AddAlbums(res.Albums...)
	r.AddSongs(res.Songs...)
}

// Merge adds everything from other, which must be for the same query.
func (r *SearchResult) Merge(other *SearchResult) {
	if other == nil || other == r {
		return
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range other.artists {
		r.artists[k] = v
	}
	for k, v := range other.albums {
		r.albums[k] = v
	}
	for k, v := range other.songs {
		r.songs[k] = v
	}
	for k, v := range other.playlists {
		r.playlists[k] = v
	}
}

func (r *SearchResult) Artists() []domain.Artist {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return rank(r, r.artists, func(a domain.Artist) []string { return []string{a.Name} })
}

func (r *SearchResult) Albums() []domain.Album {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return rank(r, r.albums, func(a domain.Album) []string { return []string{a.Name, a.Artist} })
}

func (r *SearchResult) Songs() []domain.Song {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return rank(r, r.songs, func(s domain.Song) []string { return []string{s.Title, s.Artist} })
}

func (r *SearchResult) Playlists() []domain.Playlist {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return rank(r, r.playlists, func(p domain.Playlist) []string { return []string{p.Name} })
}

type scored[T any] struct {
	item  T
	key   string
	score int
}

// rank scores each candidate by its best matching text, sorts descending and
// keeps the leading candidates above minScore, at most maxResults of them.
func rank[T any](r *SearchResult, items map[string]T, texts func(T) []string) []T {
	all := make([]scored[T], 0, len(items))
	for id, item := range items {
		best := 0
		for _, text := range texts(item) {
			if text == "" {
				continue
			}
			best = max(best, r.scorer.Score(r.Query, text))
		}
		all = append(all, scored[T]{item: item, key: id, score: best})
	}
	slices.SortFunc(all, func(a, b scored[T]) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})

	out := make([]T, 0, min(len(all), maxResults))
	for _, s := range all {
		// Sorted, so nothing after the first miss can qualify.
		if s.score <= minScore || len(out) >= maxResults {
			break
		}
		out = append(out, s.item)
	}
	return out
}
