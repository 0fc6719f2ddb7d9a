// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/neggles/eagle3d/internal/config"
	"github.com/neggles/eagle3d/internal/jobs"
)

// App owns the long-lived runtime lifecycle (poller, config watcher,
// reload wiring) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.Holder
	poller       *jobs.Poller
	reloadSignal os.Signal

	// InitialRefresh triggers one poll as soon as the app is running.
	InitialRefresh bool
}

// NewApp creates the app orchestrator. Holder and poller are optional.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.Holder, poller *jobs.Poller) *App {
	return &App{
		logger:         logger,
		manager:        manager,
		cfgHolder:      cfgHolder,
		poller:         poller,
		reloadSignal:   syscall.SIGHUP,
		InitialRefresh: true,
	}
}

// Run starts all owned background subsystems and blocks until ctx is
// cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup must not fail on it.
	if a.cfgHolder != nil {
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("failed to start config watcher")
		}
	}

	// Config swaps adjust the poll interval at runtime.
	if a.cfgHolder != nil && a.poller != nil {
		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.poller.SetInterval(cfg.Poll.Interval)
				}
			}
		})
	}

	// SIGHUP triggers a manual config reload.
	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.cfgHolder.Reload(context.Background()); err != nil {
						a.logger.Warn().
							Err(err).
							Str("event", "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	// Poller lifecycle (stops via ctx).
	if a.poller != nil {
		g.Go(func() error {
			a.poller.Run(ctx)
			return nil
		})
		if a.InitialRefresh {
			a.poller.Trigger()
		}
	}

	// Main server lifecycle.
	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}
