package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("reads a yaml file over the defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		yaml := `server:
  address: https://music.example.com
  username: alice
cache:
  backend: bolt
  concurrent_download_limit: 4
`
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "https://music.example.com", cfg.Server.Address)
		assert.Equal(t, "alice", cfg.Server.Username)
		assert.Equal(t, "bolt", cfg.Cache.Backend)
		assert.Equal(t, 4, cfg.Cache.ConcurrentDownloadLimit)
		assert.Equal(t, 50, cfg.Cache.WorkerPoolSize)
		assert.Equal(t, DefaultConfig().Cache.Location, cfg.Cache.Location)
		assert.True(t, cfg.IsConfigured())
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  address: https://music.example.com\n"), 0644))
		t.Setenv("SONICACHE_SERVER_ADDRESS", "https://other.example.com")
		t.Setenv("SONICACHE_CACHE_WORKER_POOL_SIZE", "8")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "https://other.example.com", cfg.Server.Address)
		assert.Equal(t, 8, cfg.Cache.WorkerPoolSize)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Name = "home"
	cfg.Server.Address = "https://music.example.com"
	cfg.Server.LocalNetworkAddress = "http://192.168.1.10:4533"
	cfg.Server.LocalNetworkSSID = "home"
	cfg.Server.Username = "alice"
	cfg.Server.DisableCertVerify = true
	cfg.Cache.Location = "/var/cache/sonicache"
	cfg.Cache.DownloadRate = 2.5

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestIdentity(t *testing.T) {
	s := ServerConfig{Address: "https://music.example.com", LocalNetworkAddress: "http://192.168.1.10"}
	assert.Equal(t, "https://music.example.com", s.Identity())
}

func TestClearCache(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Location = filepath.Join(t.TempDir(), "data")
	cfg.Cache.StagingLocation = filepath.Join(t.TempDir(), "staging")
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Cache.Location, "abc", "cover_art"), 0755))
	require.NoError(t, os.MkdirAll(cfg.Cache.StagingLocation, 0755))

	require.NoError(t, cfg.ClearCache())
	assert.NoDirExists(t, cfg.Cache.Location)
	assert.NoDirExists(t, cfg.Cache.StagingLocation)

	t.Run("clearing twice is fine", func(t *testing.T) {
		assert.NoError(t, cfg.ClearCache())
	})
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := map[string]string{
		"~":                    home,
		"~/music/cache":        filepath.Join(home, "music", "cache"),
		"/var/cache/sonicache": "/var/cache/sonicache",
		"relative/~/path":      "relative/~/path",
		"~other/cache":         "~other/cache",
	}
	for in, want := range tests {
		got, err := ExpandPath(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
