// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration with the precedence ENV > File > Defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a configuration loader. configPath may be empty for
// ENV-only operation.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load builds the effective configuration: defaults, then the YAML file
// (strict parse), then environment overrides, then validation.
func (l *Loader) Load() (AppConfig, error) {
	cfg := defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)

	cfg.Version = l.version
	cfg.resolvePaths()

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile overlays a YAML file onto cfg with STRICT parsing: unknown
// fields and multi-document files are rejected to surface typos early.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// mergeEnv overrides cfg fields from EAGLE3D_* environment variables. The
// current (default or file-provided) value doubles as the fallback, so
// unset variables change nothing.
func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.DataDir = ParseString("EAGLE3D_DATA_DIR", cfg.DataDir)

	cfg.Hub.Host = ParseString("EAGLE3D_HUB_HOST", cfg.Hub.Host)
	cfg.Hub.CloudID = ParseString("EAGLE3D_CLOUD_ID", cfg.Hub.CloudID)
	cfg.Hub.InstallCode = ParseString("EAGLE3D_INSTALL_CODE", cfg.Hub.InstallCode)
	cfg.Hub.Timeout = ParseDuration("EAGLE3D_HUB_TIMEOUT", cfg.Hub.Timeout)
	cfg.Hub.MinSpacing = ParseDuration("EAGLE3D_HUB_MIN_SPACING", cfg.Hub.MinSpacing)

	cfg.Poll.Interval = ParseDuration("EAGLE3D_POLL_INTERVAL", cfg.Poll.Interval)
	cfg.Poll.Debounce = ParseDuration("EAGLE3D_POLL_DEBOUNCE", cfg.Poll.Debounce)

	cfg.Store.Backend = ParseString("EAGLE3D_STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Path = ParseString("EAGLE3D_STORE_PATH", cfg.Store.Path)

	cfg.Cache.Backend = ParseString("EAGLE3D_CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.RedisAddr = ParseString("EAGLE3D_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = ParseString("EAGLE3D_REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.TTL = ParseDuration("EAGLE3D_CACHE_TTL", cfg.Cache.TTL)

	cfg.History.Path = ParseString("EAGLE3D_HISTORY_PATH", cfg.History.Path)
	cfg.History.Retention = ParseDuration("EAGLE3D_HISTORY_RETENTION", cfg.History.Retention)

	cfg.Manifest.Dir = ParseString("EAGLE3D_MANIFEST_DIR", cfg.Manifest.Dir)

	cfg.API.ListenAddr = ParseString("EAGLE3D_LISTEN_ADDR", cfg.API.ListenAddr)
	cfg.API.Token = ParseString("EAGLE3D_API_TOKEN", cfg.API.Token)
	cfg.API.RateLimit = ParseInt("EAGLE3D_RATE_LIMIT", cfg.API.RateLimit)
	cfg.API.ReadyzStrict = ParseBool("EAGLE3D_READYZ_STRICT", cfg.API.ReadyzStrict)

	cfg.Metrics.Enabled = ParseBool("EAGLE3D_METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.ListenAddr = ParseString("EAGLE3D_METRICS_ADDR", cfg.Metrics.ListenAddr)

	cfg.Telemetry.Enabled = ParseBool("EAGLE3D_OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = ParseString("EAGLE3D_OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Protocol = ParseString("EAGLE3D_OTEL_PROTOCOL", cfg.Telemetry.Protocol)
	cfg.Telemetry.SampleRatio = ParseFloat("EAGLE3D_OTEL_SAMPLE_RATIO", cfg.Telemetry.SampleRatio)
	cfg.Telemetry.Insecure = ParseBool("EAGLE3D_OTEL_INSECURE", cfg.Telemetry.Insecure)

	cfg.Log.Level = ParseString("EAGLE3D_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Output = ParseString("EAGLE3D_LOG_OUTPUT", cfg.Log.Output)
}
