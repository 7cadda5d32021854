// Warden - Rate Limiting and Behavioral Integrity Engine
// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wardenhq/warden/internal/engine"
)

// RouterConfig tunes the HTTP surface.
type RouterConfig struct {
	// RequestLimit caps requests per client IP per Window. Zero disables
	// the transport limiter.
	RequestLimit int
	Window       time.Duration
}

// NewRouter builds the full route tree over the given engine.
func NewRouter(eng *engine.Engine, cfg RouterConfig) http.Handler {
	h := &Handler{engine: eng}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RequestLimit > 0 {
			window := cfg.Window
			if window <= 0 {
				window = time.Minute
			}
			r.Use(httprate.LimitByIP(cfg.RequestLimit, window))
		}

		r.Post("/actions", h.CheckAction)

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", h.ListProfiles)
			r.Get("/{userID}", h.GetProfile)
			r.Post("/{userID}/ban", h.BanProfile)
			r.Post("/{userID}/unban", h.UnbanProfile)
			r.Post("/{userID}/promote", h.PromoteProfile)
			r.Post("/{userID}/demote", h.DemoteProfile)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Get("/{eventID}", h.GetEvent)
			r.Post("/{eventID}/resolve", h.ResolveEvent)
		})

		r.Route("/limits", func(r chi.Router) {
			r.Get("/", h.ListLimits)
			r.Put("/{key}", h.SetLimit)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.ListRules)
			r.Put("/{ruleID}/enabled", h.SetRuleEnabled)
		})
	})

	return r
}
