// Package download fetches path-keyed resources into the cache directory,
// making sure each resource is downloaded by at most one caller at a time.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	// DefaultConcurrency caps simultaneous physical downloads.
	DefaultConcurrency = 2

	stagingSuffix = ".part"
)

// FetchFunc writes the resource body to w.
type FetchFunc func(ctx context.Context, w io.Writer) error

// Options tune download backpressure.
type Options struct {
	// Concurrency is the number of downloads that may transfer at once.
	Concurrency int

	// Rate limits how many downloads may start per second. Zero means no limit.
	Rate float64
}

// Manager deduplicates downloads by cache-relative path and publishes
// finished files atomically.
type Manager struct {
	root    string
	staging string
	logger  *slog.Logger

	sem     *semaphore.Weighted
	limiter *rate.Limiter
	flights singleflight.Group

	mu     sync.Mutex
	active map[string]struct{}

	fetches      atomic.Int64
	coincidences atomic.Int64
}

// NewManager creates a manager publishing into root and staging partial
// files under staging.
func NewManager(root, staging string, opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	return &Manager{
		root:    root,
		staging: staging,
		logger:  logger,
		sem:     semaphore.NewWeighted(int64(opts.Concurrency)),
		limiter: rate.NewLimiter(limit, 1),
		active:  make(map[string]struct{}),
	}
}

// Path returns the absolute cache path of rel.
func (m *Manager) Path(rel string) string {
	return filepath.Join(m.root, rel)
}

// Cached returns the absolute path of rel if it is already on disk.
func (m *Manager) Cached(rel string) (string, bool) {
	path := m.Path(rel)
	return path, fileExists(path)
}

// Fetch returns the absolute cache path of rel, downloading it first when it
// is missing or force is set. Concurrent callers for the same rel share a
// single download and all observe its outcome.
func (m *Manager) Fetch(ctx context.Context, rel string, fetch FetchFunc, force bool) (string, error) {
	if path, ok := m.Cached(rel); ok && !force {
		return path, nil
	}

	// The download outlives any single caller; joiners depend on it.
	dlCtx := context.WithoutCancel(ctx)
	claimed := false
	ch := m.flights.DoChan(rel, func() (any, error) {
		claimed = true
		return m.download(dlCtx, rel, fetch, force)
	})

	select {
	case res := <-ch:
		if !claimed {
			m.coincidences.Add(1)
			m.logger.Info("resource was already being downloaded", "path", rel)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) download(ctx context.Context, rel string, fetch FetchFunc, force bool) (string, error) {
	m.claim(rel)
	defer m.release(rel)

	path := m.Path(rel)
	// A previous flight may have published the file since the caller checked.
	if !force && fileExists(path) {
		return path, nil
	}

	if err := m.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer m.sem.Release(1)

	if err := m.limiter.Wait(ctx); err != nil {
		return "", err
	}

	m.logger.Info("downloading resource", "path", rel)
	m.fetches.Add(1)

	staged, err := m.stage(ctx, rel, fetch)
	if err != nil {
		m.logger.Warn("download failed", "path", rel, "error", err)
		return "", err
	}
	if err := publish(staged, path); err != nil {
		os.Remove(staged)
		return "", fmt.Errorf("failed to publish %s: %w", rel, err)
	}

	m.logger.Info("resource downloaded", "path", rel)
	return path, nil
}

// stage downloads into a unique file under the staging directory.
func (m *Manager) stage(ctx context.Context, rel string, fetch FetchFunc) (string, error) {
	staged := filepath.Join(m.staging, rel) + "." + uuid.NewString() + stagingSuffix
	if err := os.MkdirAll(filepath.Dir(staged), 0755); err != nil {
		return "", err
	}
	f, err := os.Create(staged)
	if err != nil {
		return "", err
	}
	if err := fetch(ctx, f); err != nil {
		f.Close()
		os.Remove(staged)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(staged)
		return "", err
	}
	return staged, nil
}

// publish moves staged to path. When the staging directory lives on another
// filesystem the file is copied next to path first so the final step is
// still a rename.
func publish(staged, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	err := os.Rename(staged, path)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}

	tmp := path + "." + uuid.NewString() + stagingSuffix
	if err := copyFile(staged, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Remove(staged)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (m *Manager) claim(rel string) {
	m.mu.Lock()
	m.active[rel] = struct{}{}
	m.mu.Unlock()
}

func (m *Manager) release(rel string) {
	m.mu.Lock()
	delete(m.active, rel)
	m.mu.Unlock()
}

// Downloading reports whether rel is currently being fetched.
func (m *Manager) Downloading(rel string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[rel]
	return ok
}

// InFlight lists the paths currently being fetched.
func (m *Manager) InFlight() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.active))
	for rel := range m.active {
		paths = append(paths, rel)
	}
	slices.Sort(paths)
	return paths
}

// Fetches is the number of physical downloads started.
func (m *Manager) Fetches() int64 { return m.fetches.Load() }

// Coincidences is the number of callers that joined another caller's download.
func (m *Manager) Coincidences() int64 { return m.coincidences.Load() }

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
