// SPDX-License-Identifier: MIT

// Package config loads the daemon configuration with the precedence
// ENV > YAML file > defaults, validates it, and supports hot reloading.
package config

import (
	"fmt"
	"net"
	"path/filepath"
	"time"
)

const (
	// MinScanInterval is the floor for the hub poll interval. The hub
	// firmware misbehaves when polled faster than this.
	MinScanInterval = 5 * time.Second

	// DefaultScanInterval is the poll interval used when none is configured.
	DefaultScanInterval = 30 * time.Second
)

// HubConfig identifies and tunes the connection to the Eagle hub.
type HubConfig struct {
	// Host is the hub hostname or IP. Empty means "eagle-<cloudid>" with
	// LAN suffix fallback.
	Host string `yaml:"host"`

	// CloudID is the hub's cloud ID (six hex digits, printed on the label).
	CloudID string `yaml:"cloudId"`

	// InstallCode is the hub's install code (sixteen hex digits).
	InstallCode string `yaml:"installCode"`

	// Timeout bounds a single command round trip.
	Timeout time.Duration `yaml:"timeout"`

	// MinSpacing is the minimum gap between consecutive commands to the hub.
	MinSpacing time.Duration `yaml:"minSpacing"`
}

// PollConfig tunes the background refresh loop.
type PollConfig struct {
	// Interval is the scan interval. Validate rejects values below
	// MinScanInterval.
	Interval time.Duration `yaml:"interval"`

	// Debounce is the minimum gap between manual refresh triggers.
	Debounce time.Duration `yaml:"debounce"`
}

// StoreConfig selects the device state store backend.
type StoreConfig struct {
	// Backend is "memory" or "badger".
	Backend string `yaml:"backend"`

	// Path is the badger database directory. Ignored for memory.
	Path string `yaml:"path"`
}

// CacheConfig selects the latest-readings cache backend.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend string `yaml:"backend"`

	// RedisAddr is the host:port of the redis server.
	RedisAddr string `yaml:"redisAddr"`

	// RedisPassword authenticates against redis. Empty disables auth.
	RedisPassword string `yaml:"redisPassword"`

	// TTL is how long cached readings stay valid.
	TTL time.Duration `yaml:"ttl"`
}

// HistoryConfig tunes the readings history database.
type HistoryConfig struct {
	// Path is the sqlite database file. Empty disables history.
	Path string `yaml:"path"`

	// Retention is how long readings are kept before pruning.
	Retention time.Duration `yaml:"retention"`
}

// ManifestConfig tunes the per-device snapshot manifests.
type ManifestConfig struct {
	// Dir is the directory manifests are exported to. Empty disables export.
	Dir string `yaml:"dir"`
}

// APIConfig tunes the public HTTP API.
type APIConfig struct {
	// ListenAddr is the address the API server binds (e.g. ":8099").
	ListenAddr string `yaml:"listenAddr"`

	// Token, when set, requires a Bearer token on /api routes.
	Token string `yaml:"token"`

	// RateLimit is requests per minute per client IP. Zero disables.
	RateLimit int `yaml:"rateLimit"`

	// ReadyzStrict makes /readyz probe the hub instead of reporting
	// process readiness only.
	ReadyzStrict bool `yaml:"readyzStrict"`
}

// MetricsConfig tunes the Prometheus metrics listener.
type MetricsConfig struct {
	// Enabled turns the dedicated metrics listener on.
	Enabled bool `yaml:"enabled"`

	// ListenAddr is the metrics listener address (e.g. ":9090").
	ListenAddr string `yaml:"listenAddr"`
}

// TelemetryConfig tunes OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Protocol    string  `yaml:"protocol"` // "grpc" or "http"
	SampleRatio float64 `yaml:"sampleRatio"`
	Insecure    bool    `yaml:"insecure"`
}

// LogConfig tunes logging.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `yaml:"level"`

	// Output is "json" or "console".
	Output string `yaml:"output"`
}

// AppConfig is the effective daemon configuration after merging defaults,
// file and environment.
type AppConfig struct {
	Version string `yaml:"-"`

	// DataDir anchors relative store/history/manifest paths.
	DataDir string `yaml:"dataDir"`

	Hub       HubConfig       `yaml:"hub"`
	Poll      PollConfig      `yaml:"poll"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	History   HistoryConfig   `yaml:"history"`
	Manifest  ManifestConfig  `yaml:"manifest"`
	API       APIConfig       `yaml:"api"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

func defaults() AppConfig {
	return AppConfig{
		DataDir: "./data",
		Hub: HubConfig{
			Timeout:    10 * time.Second,
			MinSpacing: 500 * time.Millisecond,
		},
		Poll: PollConfig{
			Interval: DefaultScanInterval,
			Debounce: 2 * time.Second,
		},
		Store: StoreConfig{
			Backend: "memory",
			Path:    "state",
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     5 * time.Minute,
		},
		History: HistoryConfig{
			Path:      "history.db",
			Retention: 30 * 24 * time.Hour,
		},
		Manifest: ManifestConfig{
			Dir: "manifests",
		},
		API: APIConfig{
			ListenAddr: ":8099",
			RateLimit:  120,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: ":9090",
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			SampleRatio: 1.0,
		},
		Log: LogConfig{
			Level:  "info",
			Output: "json",
		},
	}
}

// resolvePaths anchors relative storage paths under DataDir.
func (c *AppConfig) resolvePaths() {
	if abs, err := filepath.Abs(c.DataDir); err == nil {
		c.DataDir = abs
	}
	anchor := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(c.DataDir, p)
	}
	c.Store.Path = anchor(c.Store.Path)
	c.History.Path = anchor(c.History.Path)
	c.Manifest.Dir = anchor(c.Manifest.Dir)
}

// Validate checks the configuration for contradictions and malformed
// values. It is called on initial load and on every reload; a config that
// fails validation is never applied.
func Validate(cfg AppConfig) error {
	if err := validateCloudID(cfg.Hub.CloudID); err != nil {
		return err
	}
	if cfg.Hub.InstallCode == "" {
		return fmt.Errorf("config: hub install code is required")
	}
	if !isHex(cfg.Hub.InstallCode) {
		return fmt.Errorf("config: hub install code must be hexadecimal")
	}

	if cfg.Poll.Interval < MinScanInterval {
		return fmt.Errorf("config: poll interval %s below minimum %s", cfg.Poll.Interval, MinScanInterval)
	}

	switch cfg.Store.Backend {
	case "memory":
	case "badger":
		if cfg.Store.Path == "" {
			return fmt.Errorf("config: badger store requires a path")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", cfg.Store.Backend)
	}

	switch cfg.Cache.Backend {
	case "memory":
	case "redis":
		if cfg.Cache.RedisAddr == "" {
			return fmt.Errorf("config: redis cache requires an address")
		}
	default:
		return fmt.Errorf("config: unknown cache backend %q", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL <= 0 {
		return fmt.Errorf("config: cache ttl must be positive")
	}

	if cfg.History.Path != "" && cfg.History.Retention <= 0 {
		return fmt.Errorf("config: history retention must be positive")
	}

	if err := validateListenAddr("api.listenAddr", cfg.API.ListenAddr); err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		if err := validateListenAddr("metrics.listenAddr", cfg.Metrics.ListenAddr); err != nil {
			return err
		}
	}

	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.Endpoint == "" {
			return fmt.Errorf("config: telemetry requires an endpoint")
		}
		switch cfg.Telemetry.Protocol {
		case "grpc", "http":
		default:
			return fmt.Errorf("config: unknown telemetry protocol %q", cfg.Telemetry.Protocol)
		}
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("config: telemetry sample ratio must be within [0, 1]")
	}

	return nil
}

func validateCloudID(id string) error {
	if id == "" {
		return fmt.Errorf("config: hub cloud id is required")
	}
	if len(id) != 6 || !isHex(id) {
		return fmt.Errorf("config: hub cloud id must be six hex digits, got %q", id)
	}
	return nil
}

func validateListenAddr(field, addr string) error {
	if addr == "" {
		return fmt.Errorf("config: %s is required", field)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("config: %s: %w", field, err)
	}
	return nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return s != ""
}
