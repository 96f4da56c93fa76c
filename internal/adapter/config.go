package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const appName = "sonicache"

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the Subsonic server connection
type ServerConfig struct {
	Name                string `mapstructure:"name"`
	Address             string `mapstructure:"address"`
	LocalNetworkAddress string `mapstructure:"local_network_address"` // used while on LocalNetworkSSID
	LocalNetworkSSID    string `mapstructure:"local_network_ssid"`
	Username            string `mapstructure:"username"`
	Password            string `mapstructure:"password"`
	DisableCertVerify   bool   `mapstructure:"disable_cert_verify"`
}

// CacheConfig holds cache storage and download settings
type CacheConfig struct {
	Location                string  `mapstructure:"location"`
	StagingLocation         string  `mapstructure:"staging_location"` // partial downloads
	Backend                 string  `mapstructure:"backend"`          // "file" or "bolt"
	WorkerPoolSize          int     `mapstructure:"worker_pool_size"`
	ConcurrentDownloadLimit int     `mapstructure:"concurrent_download_limit"`
	DownloadRate            float64 `mapstructure:"download_rate"` // downloads started per second, 0 = unlimited
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Location:                filepath.Join(xdg.DataHome, appName),
			StagingLocation:         filepath.Join(xdg.CacheHome, appName),
			Backend:                 "file",
			WorkerPoolSize:          50,
			ConcurrentDownloadLimit: 2,
		},
		Logging: LoggingConfig{
			File:  filepath.Join(xdg.StateHome, appName, appName+".log"),
			Level: "INFO",
		},
	}
}

// ConfigDir returns the directory config.yaml is read from and written to
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// LoadConfig loads configuration from file and environment. An empty
// configFile searches the default config directory and the working
// directory for config.yaml.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	v := newViper(cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	for _, path := range []*string{&cfg.Cache.Location, &cfg.Cache.StagingLocation, &cfg.Logging.File} {
		expanded, err := ExpandPath(*path)
		if err != nil {
			return nil, err
		}
		*path = expanded
	}

	return cfg, nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// newViper registers every key with its default so environment overrides
// (SONICACHE_SERVER_ADDRESS, ...) are seen by Unmarshal.
func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range cfg.settings() {
		v.SetDefault(key, value)
	}
	return v
}

// settings flattens cfg into viper keys (snake_case)
func (c *Config) settings() map[string]any {
	return map[string]any{
		"server.name":                     c.Server.Name,
		"server.address":                  c.Server.Address,
		"server.local_network_address":    c.Server.LocalNetworkAddress,
		"server.local_network_ssid":       c.Server.LocalNetworkSSID,
		"server.username":                 c.Server.Username,
		"server.password":                 c.Server.Password,
		"server.disable_cert_verify":      c.Server.DisableCertVerify,
		"cache.location":                  c.Cache.Location,
		"cache.staging_location":          c.Cache.StagingLocation,
		"cache.backend":                   c.Cache.Backend,
		"cache.worker_pool_size":          c.Cache.WorkerPoolSize,
		"cache.concurrent_download_limit": c.Cache.ConcurrentDownloadLimit,
		"cache.download_rate":             c.Cache.DownloadRate,
		"logging.file":                    c.Logging.File,
		"logging.level":                   c.Logging.Level,
	}
}

// SaveConfig writes cfg as YAML. An empty configFile writes config.yaml in
// the default config directory.
func SaveConfig(cfg *Config, configFile string) error {
	if configFile == "" {
		configFile = filepath.Join(ConfigDir(), "config.yaml")
	}

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	for key, value := range cfg.settings() {
		v.Set(key, value)
	}

	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if the server address and username are set
func (c *Config) IsConfigured() bool {
	return c.Server.Address != "" && c.Server.Username != ""
}

// Identity is the stable string the per-server cache directory is derived
// from. It does not change when the local network address is in use.
func (s ServerConfig) Identity() string {
	return s.Address
}

// ClearCache removes all cached data for every server
func (c *Config) ClearCache() error {
	for _, dir := range []string{c.Cache.Location, c.Cache.StagingLocation} {
		if dir == "" {
			continue
		}
		if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	return nil
}
