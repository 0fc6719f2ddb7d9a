// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	xlog "github.com/neggles/eagle3d/internal/log"
)

// Cycle deadline bounds: a cycle must finish a second before the next tick
// and never runs longer than maxCycleTimeout, whichever is smaller.
const (
	maxCycleTimeout   = 10 * time.Second
	cycleTimeoutFloor = time.Second
)

// Retry backoff bounds for failed cycles.
const (
	retryBaseDelay = 5 * time.Second
	retryMaxDelay  = 2 * time.Minute
)

// Poller drives the refresher on a fixed interval. Manual triggers are
// debounced so a burst of refresh requests costs one hub round trip.
type Poller struct {
	refresher *Refresher
	logger    zerolog.Logger

	mu          sync.Mutex
	interval    time.Duration
	debounce    time.Duration
	lastTrigger time.Time

	trigger chan struct{}
	reset   chan time.Duration
}

// NewPoller creates a poller over the refresher.
func NewPoller(r *Refresher, interval, debounce time.Duration) *Poller {
	return &Poller{
		refresher: r,
		logger:    xlog.WithComponent("poller"),
		interval:  interval,
		debounce:  debounce,
		trigger:   make(chan struct{}, 1),
		reset:     make(chan time.Duration, 1),
	}
}

// Interval returns the current polling interval.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// SetInterval changes the polling interval. The running loop picks the new
// interval up before its next tick.
func (p *Poller) SetInterval(d time.Duration) {
	p.mu.Lock()
	if d == p.interval {
		p.mu.Unlock()
		return
	}
	old := p.interval
	p.interval = d
	p.mu.Unlock()

	p.logger.Info().
		Str(xlog.FieldEvent, "poller.interval_changed").
		Dur("old", old).
		Dur("new", d).
		Msg("polling interval changed")

	select {
	case p.reset <- d:
	default:
	}
}

// Trigger requests an immediate refresh. Triggers inside the debounce
// window are dropped; returns whether the trigger was accepted.
func (p *Poller) Trigger() bool {
	p.mu.Lock()
	if p.debounce > 0 && time.Since(p.lastTrigger) < p.debounce {
		p.mu.Unlock()
		return false
	}
	p.lastTrigger = time.Now()
	p.mu.Unlock()

	select {
	case p.trigger <- struct{}{}:
	default:
		// A trigger is already queued; coalesce.
	}
	return true
}

// Run polls until the context is cancelled. Refresh errors are logged and
// the loop keeps going; the hub being away for a while is normal.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	p.logger.Info().
		Str(xlog.FieldEvent, "poller.started").
		Dur("interval", p.Interval()).
		Msg("poller started")

	failures := 0
	var retryC <-chan time.Time

	cycle := func(reason string) {
		if err := p.runCycle(ctx, reason); err != nil && ctx.Err() == nil {
			failures++
			delay := retryDelay(failures)
			retryC = time.After(delay)
			p.logger.Info().
				Str(xlog.FieldEvent, "poller.retry_scheduled").
				Dur("delay", delay).
				Int("failures", failures).
				Msg("scheduling retry after failed cycle")
			return
		}
		failures = 0
		retryC = nil
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Str(xlog.FieldEvent, "poller.stopped").Msg("poller stopped")
			return
		case d := <-p.reset:
			ticker.Reset(d)
		case <-ticker.C:
			cycle("interval")
		case <-retryC:
			cycle("retry")
		case <-p.trigger:
			cycle("trigger")
		}
	}
}

// retryDelay backs off exponentially with +/-20% jitter.
func retryDelay(failures int) time.Duration {
	delay := retryBaseDelay << (failures - 1)
	if delay > retryMaxDelay || delay <= 0 {
		delay = retryMaxDelay
	}
	jitter := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(delay) * jitter)
}

// cycleTimeout bounds one refresh cycle for the given poll interval.
func cycleTimeout(interval time.Duration) time.Duration {
	timeout := interval - time.Second
	if timeout > maxCycleTimeout {
		timeout = maxCycleTimeout
	}
	if timeout < cycleTimeoutFloor {
		timeout = cycleTimeoutFloor
	}
	return timeout
}

func (p *Poller) runCycle(ctx context.Context, reason string) error {
	cycleCtx, cancel := context.WithTimeout(ctx, cycleTimeout(p.Interval()))
	defer cancel()

	if err := p.refresher.Refresh(cycleCtx); err != nil {
		p.logger.Warn().
			Err(err).
			Str(xlog.FieldEvent, "poller.cycle_failed").
			Str("reason", reason).
			Msg("refresh cycle failed")
		return err
	}
	p.logger.Debug().
		Str("reason", reason).
		Msg("refresh cycle finished")
	return nil
}
