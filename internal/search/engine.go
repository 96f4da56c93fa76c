// Package search ranks cached and server results against a query.
package search

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mmcdole/sonicache/internal/domain"
	"github.com/mmcdole/sonicache/internal/result"
)

// DefaultDebounce is the pause before each search phase.
const DefaultDebounce = 200 * time.Millisecond

// LocalSource provides the cached entities searched in the local phase.
type LocalSource interface {
	CachedAlbums() []domain.Album
	CachedArtists() []domain.Artist
	CachedSongs() []domain.Song
	CachedPlaylists() []domain.Playlist
}

// Callback receives the aggregate after each phase. final is true exactly
// once, after the server phase.
type Callback func(r *SearchResult, final bool)

// Engine runs two-phase searches: cached entities first, then the server.
type Engine struct {
	local    LocalSource
	remote   domain.SearchRepository
	pool     *result.Pool
	scorer   *Scorer
	debounce time.Duration
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) EngineOption {
	return func(e *Engine) { e.debounce = d }
}

// NewEngine creates an engine with its own similarity memo.
func NewEngine(local LocalSource, remote domain.SearchRepository, pool *result.Pool, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		local:    local,
		remote:   remote,
		pool:     pool,
		scorer:   NewScorer(),
		debounce: DefaultDebounce,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scorer exposes the engine's memoized scorer.
func (e *Engine) Scorer() *Scorer { return e.scorer }

// Search starts a search for query. Cancelling the returned Result stops any
// further callbacks; a newer query should cancel the previous one.
func (e *Engine) Search(query string, cb Callback) (*result.Result[*SearchResult], error) {
	if query == "" {
		empty := NewSearchResult("", e.scorer)
		cb(empty, true)
		return result.FromData(empty), nil
	}

	var cancelled atomic.Bool

	search := func(ctx context.Context) (*SearchResult, error) {
		if !e.pause(ctx, &cancelled) {
			return nil, result.ErrCancelled
		}

		r := NewSearchResult(query, e.scorer)
		r.AddAlbums(e.local.CachedAlbums()...)
		r.AddArtists(e.local.CachedArtists()...)
		r.AddSongs(e.local.CachedSongs()...)
		r.AddPlaylists(e.local.CachedPlaylists()...)
		cb(r, false)

		// Second pause before the server phase.
		if !e.pause(ctx, &cancelled) {
			return r, result.ErrCancelled
		}

		server, err := e.remote.Search3(ctx, query)
		if err != nil {
			// Local results still count as final.
			e.logger.Debug("server search failed", "query", query, "error", err)
		} else {
			r.AddServerResults(server)
		}

		if cancelled.Load() {
			return r, result.ErrCancelled
		}
		cb(r, true)
		return r, nil
	}

	return result.FromServer(e.pool, search,
		result.OnCancel[*SearchResult](func() { cancelled.Store(true) }),
	)
}

// pause waits one debounce period and reports whether the search should
// go on.
func (e *Engine) pause(ctx context.Context, cancelled *atomic.Bool) bool {
	timer := time.NewTimer(e.debounce)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return false
	}
	return !cancelled.Load()
}
