// SPDX-License-Identifier: MIT

// Command eagle3d polls a Rainforest Eagle-200 energy hub and serves the
// readings over a REST API, Prometheus metrics and exported manifests.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/neggles/eagle3d/internal/config"
	"github.com/neggles/eagle3d/internal/daemon"
	xlog "github.com/neggles/eagle3d/internal/log"
	"github.com/neggles/eagle3d/internal/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		os.Exit(runHealthcheck(os.Args[2:]))
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("eagle3d %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	// Safe logging defaults until the config is loaded.
	xlog.Configure(xlog.Config{
		Level:   "info",
		Service: "eagle3d",
		Version: version.Version,
	})
	logger := xlog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config path: explicit flag, else ${EAGLE3D_DATA_DIR}/config.yaml when
	// it exists.
	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(config.ParseString("EAGLE3D_DATA_DIR", "./data"))
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectiveConfigPath = autoPath
		}
	}

	loader := config.NewLoader(effectiveConfigPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	// Re-configure logging from the effective config.
	xlog.Configure(xlog.Config{
		Level:   cfg.Log.Level,
		Output:  logOutput(cfg.Log.Output),
		Service: "eagle3d",
		Version: cfg.Version,
	})

	if effectiveConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env").
			Msg("loaded configuration from environment and defaults")
	}

	holder := config.NewHolder(cfg, loader, effectiveConfigPath)

	app, err := daemon.Bootstrap(ctx, cfg, holder)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.bootstrap_failed").
			Msg("failed to assemble daemon")
	}

	logger.Info().
		Str("event", "daemon.starting").
		Str("version", version.Version).
		Str("hub_host", cfg.Hub.Host).
		Str("listen", cfg.API.ListenAddr).
		Msg("starting eagle3d")

	if err := app.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon exited with error")
	}
	logger.Info().Str("event", "daemon.stopped").Msg("eagle3d stopped")
}

// runHealthcheck probes the local daemon's readiness endpoint. Used as a
// container HEALTHCHECK so images need no curl.
func runHealthcheck(args []string) int {
	fs := flag.NewFlagSet("healthcheck", flag.ExitOnError)
	addr := fs.String("addr", config.ParseString("EAGLE3D_LISTEN_ADDR", ":8099"), "API listen address to probe")
	_ = fs.Parse(args)

	target := *addr
	if strings.HasPrefix(target, ":") {
		target = "127.0.0.1" + target
	}

	client := &http.Client{Timeout: 5 * time.Second}
	res, err := client.Get("http://" + target + "/readyz")
	if err != nil {
		fmt.Fprintf(os.Stderr, "healthcheck: %v\n", err)
		return 1
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "healthcheck: not ready (status %d)\n", res.StatusCode)
		return 1
	}
	return 0
}

// logOutput maps the configured output mode to a writer. Console output is
// for humans at a terminal; everything else is JSON on stdout.
func logOutput(mode string) io.Writer {
	if mode == "console" {
		return zerolog.ConsoleWriter{Out: os.Stdout}
	}
	return os.Stdout
}
