// CoursePilot - Personalized Course Recommendations
// Copyright 2026 CoursePilot Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepilot/coursepilot

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires the handlers and middleware into the HTTP surface.
type Router struct {
	middleware *Middleware
	recommend  *RecommendHandler
	catalog    *CatalogHandler
	userState  *UserStateHandler
	health     *HealthHandler
}

// NewRouter creates a router from its handlers. A nil middleware config
// uses DefaultMiddlewareConfig.
func NewRouter(mw *MiddlewareConfig, recommend *RecommendHandler, catalog *CatalogHandler, userState *UserStateHandler, health *HealthHandler) *Router {
	return &Router{
		middleware: NewMiddleware(mw),
		recommend:  recommend,
		catalog:    catalog,
		userState:  userState,
		health:     health,
	}
}

// Routes builds the chi handler tree.
func (router *Router) Routes() http.Handler {
	r := chi.NewRouter()

	// Global middleware, in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS()) // CORS must be global to handle OPTIONS preflight

	// Health endpoints stay outside the rate limit so orchestrators can
	// probe freely.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", router.health.GetHealth)
		r.Get("/vector", router.health.GetVectorHealth)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(PrometheusMetrics())

		r.Route("/recommendations/{userID}", func(r chi.Router) {
			r.Get("/", router.recommend.GetRecommendations)
			r.Post("/", router.recommend.PostRecommendations)
			r.Get("/similar/{courseID}", router.recommend.GetSimilar)
			r.Get("/search", router.recommend.Search)
		})

		r.Post("/feedback", router.userState.PostFeedback)
		r.Route("/preferences/{userID}", func(r chi.Router) {
			r.Get("/", router.userState.GetPreferences)
			r.Put("/", router.userState.PutPreferences)
		})
		r.Post("/interactions", router.userState.PostInteraction)

		r.Route("/courses", func(r chi.Router) {
			r.Get("/", router.catalog.ListCourses)
			r.Get("/{courseID}", router.catalog.GetCourse)
			r.Put("/{courseID}", router.catalog.PutCourse)
		})
	})

	return r
}
