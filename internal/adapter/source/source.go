package source

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mmcdole/sonicache/internal/adapter"
	"github.com/mmcdole/sonicache/internal/adapter/source/subsonic"
	"github.com/mmcdole/sonicache/internal/domain"
)

// SSIDDetector reports the wireless networks the machine is connected to
type SSIDDetector interface {
	CurrentSSIDs(ctx context.Context) ([]string, error)
}

// NoSSIDs is the detector used when no network integration is available
type NoSSIDs struct{}

func (NoSSIDs) CurrentSSIDs(context.Context) ([]string, error) { return nil, nil }

// StaticSSIDs reports a fixed set of networks
type StaticSSIDs []string

func (s StaticSSIDs) CurrentSSIDs(context.Context) ([]string, error) { return s, nil }

// ResolveHostname returns the local network address while connected to the
// configured local SSID, and the regular address otherwise.
func ResolveHostname(ctx context.Context, cfg adapter.ServerConfig, detector SSIDDetector, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LocalNetworkSSID == "" || cfg.LocalNetworkAddress == "" || detector == nil {
		return cfg.Address
	}

	ssids, err := detector.CurrentSSIDs(ctx)
	if err != nil {
		logger.Warn("failed to detect current SSIDs", "error", err)
		return cfg.Address
	}

	if slices.Contains(ssids, cfg.LocalNetworkSSID) {
		logger.Debug("using local network address", "ssid", cfg.LocalNetworkSSID)
		return cfg.LocalNetworkAddress
	}
	return cfg.Address
}

// NewClient creates the server collaborator for hostname.
func NewClient(hostname string, cfg adapter.ServerConfig, logger *slog.Logger) (domain.Server, error) {
	if hostname == "" {
		return nil, fmt.Errorf("server address is required")
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("server username is required")
	}

	return subsonic.NewClient(hostname, cfg.Username, cfg.Password, subsonic.Options{
		DisableCertVerify: cfg.DisableCertVerify,
	}, logger), nil
}

// NewClientFromConfig resolves the hostname and creates the client
func NewClientFromConfig(ctx context.Context, cfg *adapter.Config, detector SSIDDetector, logger *slog.Logger) (domain.Server, error) {
	hostname := ResolveHostname(ctx, cfg.Server, detector, logger)
	return NewClient(hostname, cfg.Server, logger)
}
