// Package library implements read-through cache access for every entity
// type: cached data is returned immediately, anything else is fetched on the
// worker pool, merged into the store and persisted.
package library

import (
	"context"
	"log/slog"

	"github.com/mmcdole/sonicache/internal/domain"
	"github.com/mmcdole/sonicache/internal/download"
	"github.com/mmcdole/sonicache/internal/result"
	"github.com/mmcdole/sonicache/internal/store"
)

// Service orchestrates server + store + download manager operations.
type Service struct {
	server    domain.Server
	store     *store.CacheStore
	downloads *download.Manager
	pool      *result.Pool
	logger    *slog.Logger
}

// NewService creates a new library service.
func NewService(
	server domain.Server,
	cache *store.CacheStore,
	downloads *download.Manager,
	pool *result.Pool,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		server:    server,
		store:     cache,
		downloads: downloads,
		pool:      pool,
		logger:    logger,
	}
}

// Option tunes a single retrieval.
type Option func(*options)

type options struct {
	force          bool
	beforeDownload func() error
	onProgress     domain.ProgressFunc
}

// WithForce bypasses the cache when force is true.
func WithForce(force bool) Option {
	return func(o *options) { o.force = force }
}

// WithBeforeDownload runs fn synchronously before any network work is
// scheduled, typically to show a loading state. An error aborts the call.
func WithBeforeDownload(fn func() error) Option {
	return func(o *options) { o.beforeDownload = fn }
}

// WithProgress reports paging progress of album lists.
func WithProgress(fn domain.ProgressFunc) Option {
	return func(o *options) { o.onProgress = fn }
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// readThrough describes how one entity is looked up, fetched and merged.
type readThrough[T any] struct {
	category string
	cached   func() (T, bool)
	fetch    func(ctx context.Context) (T, error)
	merge    func(snap *store.Snapshot, v T)

	// skipMerge reports values that are returned but not cached.
	skipMerge func(v T) bool
}

func load[T any](s *Service, rt readThrough[T], o options) (*result.Result[T], error) {
	if !o.force {
		if v, ok := rt.cached(); ok {
			s.logger.Debug("cache hit", "category", rt.category)
			return result.FromData(v), nil
		}
	}

	s.logger.Debug("cache miss, fetching", "category", rt.category, "force", o.force)
	return result.FromServer(s.pool, rt.fetch,
		result.BeforeStart[T](o.beforeDownload),
		result.AfterComplete(func(v T) {
			if rt.skipMerge != nil && rt.skipMerge(v) {
				return
			}
			if err := s.store.Update(func(snap *store.Snapshot) { rt.merge(snap, v) }); err != nil {
				s.logger.Error("failed to save cache", "category", rt.category, "error", err)
			}
		}),
	)
}

// cachedOrDownload resolves a path-keyed resource through the download
// manager.
func (s *Service) cachedOrDownload(rel string, fetch download.FetchFunc, o options) (*result.Result[string], error) {
	if path, ok := s.downloads.Cached(rel); ok && !o.force {
		return result.FromData(path), nil
	}
	return result.FromServer(s.pool,
		func(ctx context.Context) (string, error) {
			return s.downloads.Fetch(ctx, rel, fetch, o.force)
		},
		result.BeforeStart[string](o.beforeDownload),
	)
}

// DeleteCachedCoverArt removes every cached image for a cover art id.
func (s *Service) DeleteCachedCoverArt(id string) error {
	return s.store.Layout().DeleteCoverArt(id)
}
