package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
)

// CurrentVersion is the snapshot schema version this build writes.
const CurrentVersion = 1

// migration brings a cache from version-1 to version. Every step must be
// safe to run again on an already migrated cache.
type migration struct {
	version int
	name    string
	run     func(layout Layout, logger *slog.Logger) error
}

var migrations = []migration{
	{version: 1, name: "normalize cover art names", run: migrateCoverArtNames},
}

// runMigrations applies every migration above version. It stops at the
// first failure so the failed step is retried on the next load.
func runMigrations(layout Layout, version int, logger *slog.Logger) (int, bool) {
	ran := false
	for _, m := range migrations {
		if version >= m.version {
			continue
		}
		logger.Info("migrating cache", "to", m.version, "step", m.name)
		if err := m.run(layout, logger); err != nil {
			logger.Error("cache migration failed", "to", m.version, "error", err)
			return version, ran
		}
		version = m.version
		ran = true
	}
	return version, ran
}

var sizedCoverArt = regexp.MustCompile(`^(\d+)_(\d+)$`)

// migrateCoverArtNames keeps the 1000px variant of each cover art file under
// its bare id and deletes every other size.
func migrateCoverArtNames(layout Layout, logger *slog.Logger) error {
	dir := layout.Path(CoverArtDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		m := sizedCoverArt.FindStringSubmatch(entry.Name())
		if m == nil || entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if m[2] == "1000" {
			target := filepath.Join(dir, m[1])
			logger.Info("moving cover art", "from", path, "to", target)
			if err := os.Rename(path, target); err != nil {
				return fmt.Errorf("rename %s: %w", path, err)
			}
			continue
		}
		logger.Info("deleting cover art", "path", path)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}
