// SPDX-License-Identifier: MIT

// Package jobs runs the polling cycle: refresh the hub registry, then fan
// the meter readings out to the state store, the readings cache, the
// history database and the manifest exporter.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/neggles/eagle3d/internal/cache"
	"github.com/neggles/eagle3d/internal/eagle"
	"github.com/neggles/eagle3d/internal/history"
	xlog "github.com/neggles/eagle3d/internal/log"
	"github.com/neggles/eagle3d/internal/manifest"
	"github.com/neggles/eagle3d/internal/metrics"
	"github.com/neggles/eagle3d/internal/store"
	"github.com/neggles/eagle3d/internal/telemetry"
)

// ErrRefreshInProgress is returned when a refresh is requested while one is
// already running.
var ErrRefreshInProgress = errors.New("jobs: refresh already in progress")

// ManifestDomain is the integration domain written into exported manifests.
const ManifestDomain = "rainforest_eagle"

// persistWorkers bounds the per-meter fan-out. The hub itself is polled
// sequentially (it rate-limits hard); only the local sinks run in parallel.
const persistWorkers = 4

// Status describes the outcome of the most recent refresh cycle.
type Status struct {
	Running     bool      `json:"running"`
	LastRun     time.Time `json:"last_run,omitzero"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	Duration    string    `json:"duration,omitempty"`
	Devices     int       `json:"devices"`
	Meters      int       `json:"meters"`
	Error       string    `json:"error,omitempty"`
}

// Refresher executes refresh cycles. At most one cycle runs at a time.
type Refresher struct {
	hub      *eagle.Hub
	state    store.StateStore
	history  *history.Store
	cache    cache.Cache
	exporter *manifest.Exporter

	cacheTTL  time.Duration
	retention time.Duration
	logger    zerolog.Logger

	mu      sync.Mutex
	running bool
	status  Status
}

// RefresherConfig carries the sinks and tunables for a Refresher. History
// and exporter are optional; nil disables that sink.
type RefresherConfig struct {
	Hub       *eagle.Hub
	State     store.StateStore
	History   *history.Store
	Cache     cache.Cache
	Exporter  *manifest.Exporter
	CacheTTL  time.Duration
	Retention time.Duration
}

// NewRefresher creates a refresher over the given hub and sinks.
func NewRefresher(cfg RefresherConfig) *Refresher {
	return &Refresher{
		hub:       cfg.Hub,
		state:     cfg.State,
		history:   cfg.History,
		cache:     cfg.Cache,
		exporter:  cfg.Exporter,
		cacheTTL:  cfg.CacheTTL,
		retention: cfg.Retention,
		logger:    xlog.WithComponent("refresh"),
	}
}

// Status returns the outcome of the most recent cycle.
func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.status
	s.Running = r.running
	return s
}

// LastSuccess returns when the last cycle completed without error. Zero
// when no cycle succeeded yet.
func (r *Refresher) LastSuccess() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status.LastSuccess
}

// Refresh runs one full cycle. Returns ErrRefreshInProgress when a cycle
// is already running.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrRefreshInProgress
	}
	r.running = true
	r.mu.Unlock()

	// Every cycle gets its own poll ID so all log lines from one cycle
	// correlate, mirroring the request ID on the API side.
	ctx = xlog.ContextWithPollID(ctx, uuid.New().String())
	ctx, span := telemetry.Tracer("eagle3d/jobs").Start(ctx, "poll.refresh")
	defer span.End()

	start := time.Now()
	err := r.refresh(ctx)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(telemetry.PollAttributes(len(r.hub.Devices()), len(r.hub.Meters()), elapsed.Milliseconds())...)
		span.SetStatus(codes.Ok, "")
	}

	r.mu.Lock()
	r.running = false
	r.status.LastRun = start
	r.status.Duration = elapsed.Round(time.Millisecond).String()
	if err != nil {
		r.status.Error = err.Error()
	} else {
		r.status.Error = ""
		r.status.LastSuccess = start
		r.status.Devices = len(r.hub.Devices())
		r.status.Meters = len(r.hub.Meters())
	}
	r.mu.Unlock()

	if err != nil {
		metrics.RecordPoll("failure", elapsed)
		return err
	}
	metrics.RecordPoll("success", elapsed)
	return nil
}

func (r *Refresher) refresh(ctx context.Context) error {
	logger := xlog.WithContext(ctx, r.logger)

	err := r.hub.RefreshDevices(ctx)
	metrics.RecordHubOnline(r.hub.Online())
	if err != nil {
		metrics.IncPollFailure("hub")
		logger.Warn().Err(err).Str(xlog.FieldEvent, "refresh.hub_failed").Msg("hub refresh failed")
		return err
	}

	devices := r.hub.Devices()
	meters := r.hub.Meters()
	metrics.RecordDeviceCounts(len(devices), len(meters))

	now := time.Now().UTC()
	if err := r.persistDevices(ctx, devices, now); err != nil {
		metrics.IncPollFailure("store")
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(persistWorkers)
	for i := range meters {
		m := meters[i]
		g.Go(func() error { return r.persistMeter(ctx, m, now) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if r.history != nil && r.retention > 0 {
		pruned, err := r.history.Prune(ctx, now.Add(-r.retention))
		if err != nil {
			metrics.IncPollFailure("history")
			return fmt.Errorf("prune history: %w", err)
		}
		metrics.AddHistoryRowsPruned(pruned)
	}

	logger.Info().
		Str(xlog.FieldEvent, "refresh.completed").
		Int("devices", len(devices)).
		Int("meters", len(meters)).
		Msg("refresh cycle completed")
	return nil
}

// persistDevices records every paired device, meter or not, so the device
// inventory survives restarts. Non-meter devices also get their snapshot
// manifest here; meters get theirs in persistMeter with readings attached.
func (r *Refresher) persistDevices(ctx context.Context, devices []eagle.Device, now time.Time) error {
	for _, d := range devices {
		rec := store.DeviceRecord{Device: d, UpdatedAt: now}
		isMeter := false
		if m, ok := r.hub.Meter(d.HardwareAddress); ok {
			rec.Variables = m.AllVariables(false)
			isMeter = true
		}
		if err := r.state.Put(ctx, rec); err != nil {
			return fmt.Errorf("store device %s: %w", d.HardwareAddress, err)
		}

		if r.exporter != nil && !isMeter {
			rel := path.Join(d.HardwareAddress, "manifest.json")
			if _, err := r.exporter.Export(rel, manifestDoc(d, nil, now)); err != nil {
				metrics.IncManifestExport("failure")
				return fmt.Errorf("export manifest for %s: %w", d.HardwareAddress, err)
			}
			metrics.IncManifestExport("success")
		}
	}
	return nil
}

// persistMeter fans one meter's readings out to metrics, the cache, the
// history database and the manifest exporter.
func (r *Refresher) persistMeter(ctx context.Context, m eagle.Meter, now time.Time) error {
	ctx, span := telemetry.Tracer("eagle3d/jobs").Start(ctx, "poll.persist_meter",
		trace.WithAttributes(telemetry.DeviceAttributes(m.Address(), m.Device.ModelID)...))
	defer span.End()

	readings := cache.Readings{
		Address:   m.Address(),
		Values:    make(map[string]float64),
		Units:     make(map[string]string),
		Timestamp: now,
	}
	var rows []history.Reading
	for _, name := range eagle.MeterVariables {
		v, ok := m.Variable(name)
		if !ok {
			continue
		}
		value, numeric := v.Value.Float64()
		if !numeric {
			continue
		}
		metrics.RecordMeterReading(m.Address(), name, value)
		readings.Values[name] = value
		readings.Units[name] = v.Units
		rows = append(rows, history.Reading{
			Address:   m.Address(),
			Variable:  name,
			Value:     value,
			Timestamp: now,
		})
	}

	if r.cache != nil && len(readings.Values) > 0 {
		r.cache.Set(readings, r.cacheTTL)
	}

	if r.history != nil && len(rows) > 0 {
		if err := r.history.Append(ctx, rows); err != nil {
			metrics.IncPollFailure("history")
			return fmt.Errorf("append history for %s: %w", m.Address(), err)
		}
	}

	if r.exporter != nil {
		rel := path.Join(m.Address(), "manifest.json")
		if _, err := r.exporter.Export(rel, manifestDoc(m.Device, m.AllVariables(false), now)); err != nil {
			metrics.IncManifestExport("failure")
			return fmt.Errorf("export manifest for %s: %w", m.Address(), err)
		}
		metrics.IncManifestExport("success")
	}
	return nil
}

// manifestDoc builds the per-device manifest document. Key ordering is the
// exporter's job; this just assembles the content.
func manifestDoc(d eagle.Device, variables []eagle.Variable, now time.Time) map[string]any {
	doc := map[string]any{
		"domain":           ManifestDomain,
		"name":             d.Name,
		"hardware_address": d.HardwareAddress,
		"manufacturer":     d.Manufacturer,
		"model_id":         d.ModelID,
		"protocol":         d.Protocol,
		"updated_at":       now.Format(time.RFC3339),
	}
	if d.ConnectionStatus != "" {
		doc["connection_status"] = d.ConnectionStatus
	}
	if !d.LastContact.IsZero() {
		doc["last_contact"] = d.LastContact.Time.Format(time.RFC3339)
	}
	vars := make(map[string]any)
	for _, v := range variables {
		entry := map[string]any{"value": v.Value.Any()}
		if v.Units != "" {
			entry["units"] = v.Units
		}
		vars[v.Name] = entry
	}
	if len(vars) > 0 {
		doc["variables"] = vars
	}
	return doc
}
