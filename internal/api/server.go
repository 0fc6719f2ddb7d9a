// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/neggles/eagle3d/internal/api/middleware"
	"github.com/neggles/eagle3d/internal/cache"
	"github.com/neggles/eagle3d/internal/config"
	"github.com/neggles/eagle3d/internal/eagle"
	"github.com/neggles/eagle3d/internal/health"
	"github.com/neggles/eagle3d/internal/history"
	"github.com/neggles/eagle3d/internal/jobs"
	xlog "github.com/neggles/eagle3d/internal/log"
)

// Readings query bounds.
const (
	defaultReadingsLimit = 500
	maxReadingsLimit     = 5000
)

// Server exposes the daemon's REST API.
type Server struct {
	hub       *eagle.Hub
	refresher *jobs.Refresher
	poller    *jobs.Poller
	history   *history.Store
	cache     cache.Cache
	holder    *config.Holder
	health    *health.Manager
	version   string
	logger    zerolog.Logger
}

// ServerConfig carries the collaborators of a Server. History, cache,
// poller and holder are optional.
type ServerConfig struct {
	Hub       *eagle.Hub
	Refresher *jobs.Refresher
	Poller    *jobs.Poller
	History   *history.Store
	Cache     cache.Cache
	Holder    *config.Holder
	Health    *health.Manager
	Version   string
}

// NewServer creates the API server.
func NewServer(cfg ServerConfig) *Server {
	return &Server{
		hub:       cfg.Hub,
		refresher: cfg.Refresher,
		poller:    cfg.Poller,
		history:   cfg.History,
		cache:     cfg.Cache,
		holder:    cfg.Holder,
		health:    cfg.Health,
		version:   cfg.Version,
		logger:    xlog.WithComponent("api"),
	}
}

// Routes builds the router with the canonical middleware stack applied.
func (s *Server) Routes(apiCfg config.APIConfig, tracingService string) *chi.Mux {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        tracingService,
		EnableLogging:         true,
		RateLimitPerMinute:    apiCfg.RateLimit,
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(bearerAuth(apiCfg.Token))

		r.Get("/status", s.handleStatus)
		r.Get("/devices", s.handleDevices)
		r.Get("/meters", s.handleMeters)
		r.Get("/meters/{address}", s.handleMeter)
		r.Get("/meters/{address}/readings", s.handleReadings)

		r.With(middleware.RefreshRateLimit()).Post("/refresh", s.handleRefresh)
		r.Post("/config/reload", s.handleConfigReload)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	return r
}

// statusResponse is the /api/status body.
type statusResponse struct {
	Version   string       `json:"version"`
	HubOnline bool         `json:"hub_online"`
	Poll      jobs.Status  `json:"poll"`
	Cache     *cache.Stats `json:"cache,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version:   s.version,
		HubOnline: s.hub.Online(),
		Poll:      s.refresher.Status(),
	}
	if s.cache != nil {
		stats := s.cache.Stats()
		resp.Cache = &stats
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.hub.Devices())
}

// meterView is the API shape of one meter.
type meterView struct {
	Address     string             `json:"address"`
	Name        string             `json:"name"`
	Connected   bool               `json:"connected"`
	LastContact time.Time          `json:"last_contact,omitzero"`
	Readings    map[string]float64 `json:"readings,omitempty"`
	Units       map[string]string  `json:"units,omitempty"`
}

func (s *Server) meterView(m eagle.Meter) meterView {
	view := meterView{
		Address:     m.Address(),
		Name:        m.Device.Name,
		Connected:   m.Device.Connected(),
		LastContact: m.LastContact(),
	}

	// Prefer the cache so every reader sees the same published snapshot.
	if s.cache != nil {
		if cached, ok := s.cache.Get(m.Address()); ok {
			view.Readings = cached.Values
			view.Units = cached.Units
			return view
		}
	}

	view.Readings = make(map[string]float64)
	view.Units = make(map[string]string)
	for _, name := range eagle.MeterVariables {
		v, ok := m.Variable(name)
		if !ok {
			continue
		}
		if value, numeric := v.Value.Float64(); numeric {
			view.Readings[name] = value
			view.Units[name] = v.Units
		}
	}
	return view
}

func (s *Server) handleMeters(w http.ResponseWriter, r *http.Request) {
	meters := s.hub.Meters()
	views := make([]meterView, 0, len(meters))
	for _, m := range meters {
		views = append(views, s.meterView(m))
	}
	writeJSON(w, r, http.StatusOK, views)
}

func (s *Server) handleMeter(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	m, ok := s.hub.Meter(address)
	if !ok {
		writeError(w, r, http.StatusNotFound, "no such meter")
		return
	}
	writeJSON(w, r, http.StatusOK, s.meterView(m))
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, r, http.StatusNotImplemented, "history is not configured")
		return
	}

	address := chi.URLParam(r, "address")
	if _, ok := s.hub.Meter(address); !ok {
		writeError(w, r, http.StatusNotFound, "no such meter")
		return
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		since = parsed
	}

	limit := defaultReadingsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxReadingsLimit {
		limit = maxReadingsLimit
	}

	rows, err := s.history.Query(r.Context(), address, since, limit)
	if err != nil {
		s.logger.Error().Err(err).Str(xlog.FieldEvent, "api.history_query_failed").Msg("history query failed")
		writeError(w, r, http.StatusInternalServerError, "history query failed")
		return
	}
	if rows == nil {
		rows = []history.Reading{}
	}
	writeJSON(w, r, http.StatusOK, rows)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	// Without a poller (tests, one-shot tools) run the cycle inline.
	if s.poller == nil {
		if err := s.refresher.Refresh(r.Context()); err != nil {
			if errors.Is(err, jobs.ErrRefreshInProgress) {
				writeError(w, r, http.StatusConflict, "refresh already in progress")
				return
			}
			writeError(w, r, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, r, http.StatusOK, s.refresher.Status())
		return
	}

	if s.refresher.Status().Running {
		writeError(w, r, http.StatusConflict, "refresh already in progress")
		return
	}
	if !s.poller.Trigger() {
		writeError(w, r, http.StatusTooManyRequests, "refresh requested too recently")
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]string{"status": "refresh scheduled"})
}

func (s *Server) handleConfigReload(w http.ResponseWriter, r *http.Request) {
	if s.holder == nil {
		writeError(w, r, http.StatusNotImplemented, "config reload is not available")
		return
	}
	if err := s.holder.Reload(r.Context()); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "config reloaded"})
}
