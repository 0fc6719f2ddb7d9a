// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/neggles/eagle3d/internal/api"
	"github.com/neggles/eagle3d/internal/cache"
	"github.com/neggles/eagle3d/internal/config"
	"github.com/neggles/eagle3d/internal/eagle"
	"github.com/neggles/eagle3d/internal/health"
	"github.com/neggles/eagle3d/internal/history"
	"github.com/neggles/eagle3d/internal/jobs"
	xlog "github.com/neggles/eagle3d/internal/log"
	"github.com/neggles/eagle3d/internal/manifest"
	"github.com/neggles/eagle3d/internal/store"
	"github.com/neggles/eagle3d/internal/telemetry"
)

// Bootstrap assembles the full runtime from the effective configuration:
// hub client, sinks, refresher, poller, API server and daemon manager.
// Every resource it opens is released through a shutdown hook.
func Bootstrap(ctx context.Context, cfg config.AppConfig, holder *config.Holder) (*App, error) {
	logger := xlog.WithComponent("bootstrap")

	// Tracing first so everything downstream picks up the global provider.
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "eagle3d",
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Protocol,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SamplingRate:   cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	host, addr := eagle.ResolveHost(ctx, cfg.Hub.Host, nil)
	if addr == "" {
		logger.Warn().
			Str(xlog.FieldHost, host).
			Msg("hub host did not resolve, connecting anyway")
	}
	client := eagle.NewClient(host, cfg.Hub.CloudID, cfg.Hub.InstallCode, eagle.Options{
		Timeout:    cfg.Hub.Timeout,
		MinSpacing: cfg.Hub.MinSpacing,
	})
	hub := eagle.NewHub(client)

	state, err := store.Open(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	readings, err := cache.New(cfg.Cache.Backend, cache.RedisConfig{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
	})
	if err != nil {
		_ = state.Close()
		return nil, fmt.Errorf("open readings cache: %w", err)
	}

	var hist *history.Store
	if cfg.History.Path != "" {
		hist, err = history.Open(cfg.History.Path)
		if err != nil {
			_ = readings.Close()
			_ = state.Close()
			return nil, fmt.Errorf("open history: %w", err)
		}
	}

	var exporter *manifest.Exporter
	if cfg.Manifest.Dir != "" {
		exporter = manifest.NewExporter(cfg.Manifest.Dir, manifest.Default)
	}

	refresher := jobs.NewRefresher(jobs.RefresherConfig{
		Hub:       hub,
		State:     state,
		History:   hist,
		Cache:     readings,
		Exporter:  exporter,
		CacheTTL:  cfg.Cache.TTL,
		Retention: cfg.History.Retention,
	})
	poller := jobs.NewPoller(refresher, cfg.Poll.Interval, cfg.Poll.Debounce)

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewHubChecker(hub, cfg.API.ReadyzStrict))
	hm.RegisterChecker(health.NewLastPollChecker(refresher.LastSuccess, 3*cfg.Poll.Interval))
	if cfg.Manifest.Dir != "" {
		hm.RegisterChecker(health.NewDirChecker("manifest_dir", cfg.Manifest.Dir))
	}

	tracingService := ""
	if cfg.Telemetry.Enabled {
		tracingService = "eagle3d"
	}
	apiServer := api.NewServer(api.ServerConfig{
		Hub:       hub,
		Refresher: refresher,
		Poller:    poller,
		History:   hist,
		Cache:     readings,
		Holder:    holder,
		Health:    hm,
		Version:   cfg.Version,
	})

	deps := Deps{
		Logger: xlog.Derive(func(c *zerolog.Context) {
			*c = c.Str(xlog.FieldComponent, "daemon").Str("listen_addr", cfg.API.ListenAddr)
		}),
		APIHandler: apiServer.Routes(cfg.API, tracingService),
	}
	if cfg.Metrics.Enabled {
		deps.MetricsHandler = promhttp.Handler()
		deps.MetricsAddr = cfg.Metrics.ListenAddr
	}

	mgr, err := NewManager(config.ParseServerConfig(cfg.API.ListenAddr), deps)
	if err != nil {
		_ = readings.Close()
		_ = state.Close()
		if hist != nil {
			_ = hist.Close()
		}
		return nil, err
	}

	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("state_store", func(context.Context) error { return state.Close() })
	mgr.RegisterShutdownHook("readings_cache", func(context.Context) error { return readings.Close() })
	if hist != nil {
		mgr.RegisterShutdownHook("history", func(context.Context) error { return hist.Close() })
	}
	if holder != nil {
		mgr.RegisterShutdownHook("config_watcher", func(context.Context) error {
			holder.Stop()
			return nil
		})
	}

	return NewApp(xlog.WithComponent("app"), mgr, holder, poller), nil
}
