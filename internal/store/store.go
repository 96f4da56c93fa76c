package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/mmcdole/sonicache/internal/domain"
)

// CacheStore is the versioned metadata cache. A single mutex guards both
// in-memory mutation and serialization, so Save never sees a half-applied
// update.
type CacheStore struct {
	mu      sync.Mutex
	snap    *Snapshot
	backend Backend
	layout  Layout
	logger  *slog.Logger
}

// Open creates the per-server directory, opens the backend and loads the
// snapshot, running any pending migrations.
func Open(layout Layout, backendKind string, logger *slog.Logger) (*CacheStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(layout.Root, 0755); err != nil {
		return nil, err
	}
	backend, err := OpenBackend(backendKind, layout.Root)
	if err != nil {
		return nil, err
	}
	s := New(layout, backend, logger)
	if err := s.Load(); err != nil {
		backend.Close()
		return nil, err
	}
	return s, nil
}

// New wraps a backend without loading it.
func New(layout Layout, backend Backend, logger *slog.Logger) *CacheStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheStore{
		snap:    NewSnapshot(),
		backend: backend,
		layout:  layout,
		logger:  logger,
	}
}

func (s *CacheStore) Layout() Layout { return s.layout }

func (s *CacheStore) Close() error {
	return s.backend.Close()
}

// Load replaces the in-memory snapshot with the persisted one. A corrupt
// snapshot is logged and treated as empty.
func (s *CacheStore) Load() error {
	data, err := s.backend.Read()
	if err != nil {
		return fmt.Errorf("failed to read cache snapshot: %w", err)
	}

	raw := map[string]json.RawMessage{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			s.logger.Warn("unable to load cache, starting empty", "error", err)
			raw = map[string]json.RawMessage{}
		}
	}

	version := 0
	if v, ok := raw["version"]; ok {
		if err := json.Unmarshal(v, &version); err != nil {
			s.logger.Warn("invalid cache version", "error", err)
		}
	}

	migrated, ranMigration := runMigrations(s.layout, version, s.logger)

	snap := NewSnapshot()
	snap.Version = migrated
	for _, c := range categories {
		v, ok := raw[c.name]
		if !ok {
			continue
		}
		if err := c.decode(snap, v); err != nil {
			s.logger.Warn("unable to decode cache category", "category", c.name, "error", err)
			c.reset(snap)
		}
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.logger.Debug("loaded cache", "version", migrated, "root", s.layout.Root)

	if ranMigration {
		return s.Save()
	}
	return nil
}

// Save writes the whole snapshot to the backend.
func (s *CacheStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encodeSnapshot(s.snap)
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := s.backend.Write(data); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Update applies fn under the store lock and then persists the result.
func (s *CacheStore) Update(fn func(*Snapshot)) error {
	s.mu.Lock()
	fn(s.snap)
	s.mu.Unlock()
	return s.Save()
}

// View runs fn with read access to the snapshot. fn must not retain or
// modify anything it is handed.
func (s *CacheStore) View(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.snap)
}

func encodeSnapshot(snap *Snapshot) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(categories)+1)
	version, err := json.Marshal(snap.Version)
	if err != nil {
		return nil, err
	}
	out["version"] = version
	for _, c := range categories {
		data, err := c.encode(snap)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", c.name, err)
		}
		out[c.name] = data
	}
	// Map keys are emitted sorted, which keeps the output deterministic.
	return json.MarshalIndent(out, "", "  ")
}

// === Reads ===

func (s *CacheStore) Version() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Version
}

func (s *CacheStore) Artists() []domain.Artist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.snap.Artists)
}

func (s *CacheStore) Indexes() []domain.Artist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.snap.Indexes)
}

func (s *CacheStore) ArtistDetail(id string) (domain.ArtistWithAlbums, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.snap.ArtistDetails[id]
	return v, ok
}

func (s *CacheStore) ArtistInfo(id string) (domain.ArtistInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.snap.ArtistInfos[id]
	return v, ok
}

func (s *CacheStore) MusicDirectory(id string) (domain.Directory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.snap.MusicDirectories[id]
	return v, ok
}

func (s *CacheStore) AlbumDetail(id string) (domain.AlbumWithSongs, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.snap.AlbumDetails[id]
	return v, ok
}

func (s *CacheStore) AlbumList(listType string) []domain.Album {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.snap.Albums[listType])
}

func (s *CacheStore) Song(id string) (domain.Song, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.snap.SongDetails[id]
	return v, ok
}

func (s *CacheStore) Playlists() []domain.Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.snap.Playlists)
}

// === Search source ===

// CachedAlbums returns every album of every cached album list.
func (s *CacheStore) CachedAlbums() []domain.Album {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Album
	for _, key := range slices.Sorted(maps.Keys(s.snap.Albums)) {
		out = append(out, s.snap.Albums[key]...)
	}
	return out
}

func (s *CacheStore) CachedArtists() []domain.Artist {
	return s.Artists()
}

func (s *CacheStore) CachedSongs() []domain.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(maps.Values(s.snap.SongDetails))
}

func (s *CacheStore) CachedPlaylists() []domain.Playlist {
	return s.Playlists()
}
