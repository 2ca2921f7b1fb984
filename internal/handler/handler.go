// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the REST API: task queueing and polling,
// scope lifecycle, human translation edits, render-time resolution, health
// probes, and the event log listing.
package handler

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lingotag/lingotag/internal/fetch"
	"github.com/lingotag/lingotag/internal/middleware"
	"github.com/lingotag/lingotag/internal/store"
	"github.com/lingotag/lingotag/internal/translate"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	db        *sql.DB
	queries   *store.Queries
	tracker   *fetch.Tracker
	resolver  *translate.Resolver
	logger    *slog.Logger
	startTime time.Time
}

// Options configures the API surface.
type Options struct {
	RateLimitRPS   float64 // per-IP request rate, 0 disables limiting
	RateLimitBurst int
	RequestTimeout time.Duration
}

// NewHandler creates the API handler.
func NewHandler(db *sql.DB, tracker *fetch.Tracker, resolver *translate.Resolver, logger *slog.Logger) *Handler {
	return &Handler{
		db:        db,
		queries:   store.New(db),
		tracker:   tracker,
		resolver:  resolver,
		logger:    logger,
		startTime: time.Now(),
	}
}

// Routes builds the router with the full middleware chain.
func (h *Handler) Routes(opts Options) chi.Router {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLog(h.logger))
	r.Use(middleware.Timeout(opts.RequestTimeout))

	r.Get("/health", h.Health)
	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimitRPS > 0 {
			rl := middleware.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
			r.Use(rl.Middleware())
		}

		r.Post("/tasks", h.EnqueueTask)
		r.Get("/tasks/{taskID}", h.PollTask)
		r.Delete("/scopes/{scopeID}", h.DeleteScope)
		r.Put("/translations/{hash}/{lang}", h.EditTranslation)
		r.Post("/render", h.Render)
		r.Get("/events", h.ListEvents)
	})

	return r
}
