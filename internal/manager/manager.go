// Package manager is the entry point of the cache: it owns one session per
// configured server and hands out Results for every cached entity.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/sonicache/internal/adapter"
	"github.com/mmcdole/sonicache/internal/adapter/source"
	"github.com/mmcdole/sonicache/internal/domain"
	"github.com/mmcdole/sonicache/internal/download"
	"github.com/mmcdole/sonicache/internal/library"
	"github.com/mmcdole/sonicache/internal/result"
	"github.com/mmcdole/sonicache/internal/search"
	"github.com/mmcdole/sonicache/internal/store"
)

// ServerFactory builds the server collaborator for a configuration.
type ServerFactory func(ctx context.Context, cfg *adapter.Config) (domain.Server, error)

// session is everything derived from one configuration.
type session struct {
	cfg       *adapter.Config
	server    domain.Server
	store     *store.CacheStore
	downloads *download.Manager
	pool      *result.Pool
	library   *library.Service
	search    *search.Engine
}

// close drains the pool, then persists and closes the store.
func (s *session) close(ctx context.Context) error {
	poolErr := s.pool.Shutdown(ctx)
	saveErr := s.store.Save()
	closeErr := s.store.Close()
	return errors.Join(poolErr, saveErr, closeErr)
}

// Manager is the cache facade. It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	current *session

	// resetMu serializes Reset and Shutdown. pending holds, by cache root,
	// the sessions still closing in the background.
	resetMu sync.Mutex
	pending map[string]chan struct{}
	closing sync.WaitGroup

	newServer ServerFactory
	detector  source.SSIDDetector
	debounce  time.Duration
	logger    *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithServerFactory replaces the Subsonic client factory.
func WithServerFactory(fn ServerFactory) Option {
	return func(m *Manager) { m.newServer = fn }
}

// WithSSIDDetector sets how the current wireless networks are found.
func WithSSIDDetector(d source.SSIDDetector) Option {
	return func(m *Manager) { m.detector = d }
}

// WithSearchDebounce overrides the pause before each search phase.
func WithSearchDebounce(d time.Duration) Option {
	return func(m *Manager) { m.debounce = d }
}

// New creates a Manager. It is not usable until Reset succeeds.
func New(logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		pending:  map[string]chan struct{}{},
		detector: source.NoSSIDs{},
		debounce: search.DefaultDebounce,
		logger:   logger,
	}
	m.newServer = func(ctx context.Context, cfg *adapter.Config) (domain.Server, error) {
		return source.NewClientFromConfig(ctx, cfg, m.detector, m.logger)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reset builds a fresh session for cfg and swaps it in. A cache directory is
// open in at most one session: when cfg maps to the active session's
// directory, that session is closed before the store is reopened. Otherwise
// the previous session is drained in the background. If building the client
// fails the previous session stays active.
func (m *Manager) Reset(ctx context.Context, cfg *adapter.Config) error {
	m.resetMu.Lock()
	defer m.resetMu.Unlock()

	server, err := m.newServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create server client: %w", err)
	}

	layout := store.NewLayout(cfg.Cache.Location, cfg.Cache.StagingLocation, cfg.Server.Identity())
	logger := m.logger.With("server", store.HashServerID(cfg.Server.Identity()))

	m.mu.RLock()
	prev := m.current
	m.mu.RUnlock()

	sameRoot := prev != nil && prev.store.Layout().Root == layout.Root
	if sameRoot {
		if err := prev.close(ctx); err != nil {
			logger.Warn("failed to close previous session", "error", err)
		}
	}
	if err := m.awaitClose(ctx, layout.Root); err != nil {
		return err
	}

	cache, err := store.Open(layout, cfg.Cache.Backend, logger)
	if err != nil {
		if sameRoot {
			m.mu.Lock()
			m.current = nil
			m.mu.Unlock()
		}
		return fmt.Errorf("failed to open cache: %w", err)
	}

	pool := result.NewPool(cfg.Cache.WorkerPoolSize, logger)
	downloads := download.NewManager(layout.Root, layout.Staging, download.Options{
		Concurrency: cfg.Cache.ConcurrentDownloadLimit,
		Rate:        cfg.Cache.DownloadRate,
	}, logger)

	next := &session{
		cfg:       cfg,
		server:    server,
		store:     cache,
		downloads: downloads,
		pool:      pool,
		library:   library.NewService(server, cache, downloads, pool, logger),
		search:    search.NewEngine(cache, server, pool, logger, search.WithDebounce(m.debounce)),
	}

	m.mu.Lock()
	m.current = next
	m.mu.Unlock()

	logger.Info("cache ready", "root", layout.Root, "version", cache.Version())

	if prev != nil && !sameRoot {
		m.closeLater(prev)
	}
	return nil
}

// closeLater closes s in the background and records it under its cache root.
func (m *Manager) closeLater(s *session) {
	done := make(chan struct{})
	m.pending[s.store.Layout().Root] = done
	m.closing.Go(func() {
		defer close(done)
		if err := s.close(context.Background()); err != nil {
			m.logger.Warn("failed to close previous session", "error", err)
		}
	})
}

// awaitClose waits for a background close of the session using root.
func (m *Manager) awaitClose(ctx context.Context, root string) error {
	done, ok := m.pending[root]
	if !ok {
		return nil
	}
	select {
	case <-done:
		delete(m.pending, root)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting work, waits for running tasks and saves the
// cache. Sessions replaced by Reset are waited for as well. The Manager is
// not ready afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.resetMu.Lock()
	defer m.resetMu.Unlock()

	m.mu.Lock()
	s := m.current
	m.current = nil
	m.mu.Unlock()

	var err error
	if s != nil {
		m.logger.Info("shutting down cache")
		err = s.close(ctx)
	}

	done := make(chan struct{})
	go func() {
		m.closing.Wait()
		close(done)
	}()
	select {
	case <-done:
		clear(m.pending)
	case <-ctx.Done():
		err = errors.Join(err, ctx.Err())
	}
	return err
}

// Ready reports whether Reset has completed.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil
}

// active returns the active session. Using the cache before Reset is a
// programming error.
func (m *Manager) active() *session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		panic(domain.ErrNotReady)
	}
	return m.current
}

// Server returns the server collaborator for calls that bypass the cache.
func (m *Manager) Server() domain.Server { return m.active().server }

// Config returns the configuration of the active session.
func (m *Manager) Config() *adapter.Config { return m.active().cfg }

// Store returns the active cache store.
func (m *Manager) Store() *store.CacheStore { return m.active().store }

// Downloads returns the active download manager.
func (m *Manager) Downloads() *download.Manager { return m.active().downloads }
