package store

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

const (
	metaFileName = ".cache_meta"
	boltFileName = "cache.db"
)

// CoverArtDir is the cache subdirectory that holds downloaded images.
const CoverArtDir = "cover_art"

// Layout locates the per-server cache directory and the staging directory
// that holds in-progress downloads.
type Layout struct {
	Root    string
	Staging string
}

// NewLayout keys both directories by a hash of the server identity so that
// switching servers never mixes caches.
func NewLayout(baseCacheDir, stagingDir, serverID string) Layout {
	hash := HashServerID(serverID)
	return Layout{
		Root:    filepath.Join(baseCacheDir, hash),
		Staging: filepath.Join(stagingDir, hash),
	}
}

// HashServerID returns a short stable hash of a server identity string.
func HashServerID(serverID string) string {
	normalized := strings.TrimRight(strings.ToLower(serverID), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// Path returns the absolute path of a cache-relative path.
func (l Layout) Path(rel ...string) string {
	return filepath.Join(append([]string{l.Root}, rel...)...)
}

// StagingPath returns the absolute staging path of a cache-relative path.
func (l Layout) StagingPath(rel ...string) string {
	return filepath.Join(append([]string{l.Staging}, rel...)...)
}

// CoverArtPath is the cache-relative path of a server cover art image.
func CoverArtPath(id string) string {
	return filepath.Join(CoverArtDir, id)
}

// DeleteCoverArt removes every cached cover art file whose name contains id.
func (l Layout) DeleteCoverArt(id string) error {
	matches, err := filepath.Glob(l.Path(CoverArtDir, "*"+id+"*"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
