// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the HTTP control surface of the coordinator.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ManuGH/tvinput/internal/api/middleware"
	"github.com/ManuGH/tvinput/internal/arbiter"
	"github.com/ManuGH/tvinput/internal/bus"
	"github.com/ManuGH/tvinput/internal/health"
	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/source"
	"github.com/ManuGH/tvinput/internal/status"
	"github.com/ManuGH/tvinput/internal/streamcfg"
)

const defaultHeartbeat = 15 * time.Second

// Coordinator is the part of *tvinput.Coordinator the API drives.
type Coordinator interface {
	GetSupportedSources(ctx context.Context) ([]source.ID, error)
	Snapshot(ctx context.Context) (arbiter.Snapshot, error)
	CurrentSource(ctx context.Context) (source.ID, error)

	StartSource(ctx context.Context, src source.ID) (status.Code, error)
	StopSource(ctx context.Context, src source.ID) (status.Code, error)
	SwitchSource(ctx context.Context, src source.ID) (status.Code, error)
	CheckSourceStatus(ctx context.Context, src source.ID, wantActive bool) (status.Code, error)
	NextWaiting(ctx context.Context, wantActive bool) (source.ID, error)
	NextHeld(ctx context.Context) (source.ID, error)

	SetStreamTunnelID(ctx context.Context, id int32) error
	SetStreamGivenID(ctx context.Context, id int32) error
	SetDeviceGivenID(ctx context.Context, id int32) error

	SourceConnectStatus(ctx context.Context, src source.ID) (status.Code, error)
	HdmiPort(ctx context.Context, src source.ID) (int32, error)
	IsHdmiPIP(ctx context.Context, src source.ID) (bool, error)
	Streams() *streamcfg.Table
}

// Deps wires a Server.
type Deps struct {
	Coordinator Coordinator
	Bus         bus.Bus
	Health      *health.Manager

	// RateLimit is requests per minute per client; zero disables it.
	RateLimit      int
	EnableMetrics  bool
	TracingService string
	// Heartbeat is the idle interval between SSE keep-alive comments.
	Heartbeat time.Duration
}

// Server is the HTTP control surface.
type Server struct {
	coord     Coordinator
	bus       bus.Bus
	health    *health.Manager
	heartbeat time.Duration
	logger    zerolog.Logger
	router    chi.Router
}

// New builds the router.
func New(deps Deps) *Server {
	s := &Server{
		coord:     deps.Coordinator,
		bus:       deps.Bus,
		health:    deps.Health,
		heartbeat: deps.Heartbeat,
		logger:    log.WithComponent("api"),
	}
	if s.heartbeat <= 0 {
		s.heartbeat = defaultHeartbeat
	}
	if s.health == nil {
		s.health = health.NewManager("")
	}

	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  deps.EnableMetrics,
		TracingService: deps.TracingService,
		EnableLogging:  true,
	})
	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)

	r.Route("/api/v1", func(r chi.Router) {
		if deps.RateLimit > 0 {
			r.Use(middleware.APIRateLimit(deps.RateLimit))
		}
		r.Get("/sources", s.handleListSources)
		r.Get("/current", s.handleCurrent)
		r.Get("/state", s.handleState)
		r.Patch("/state", s.handlePatchState)

		r.Route("/sources/{id}", func(r chi.Router) {
			r.Post("/start", s.handleTransition(s.coord.StartSource))
			r.Post("/stop", s.handleTransition(s.coord.StopSource))
			r.Post("/switch", s.handleTransition(s.coord.SwitchSource))
			r.Get("/check", s.handleCheck)
			r.Get("/connect-status", s.handleConnectStatus)
			r.Get("/device", s.handleDevice)
		})

		r.Post("/queues/waiting/next", s.handleNextWaiting)
		r.Post("/queues/held/next", s.handleNextHeld)

		r.Get("/devices/{id}/streams", s.handleStreams)
		r.Get("/events", s.handleEvents)
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }
