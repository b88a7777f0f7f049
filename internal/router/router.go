// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains of the
// portal. Webhooks and the health check bypass visitor sessions; every
// other route gets a session, a navigation context and CSRF protection.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"taxportal/internal/handlers"
	"taxportal/internal/middleware"
	"taxportal/internal/navigation"
	"taxportal/internal/session"
	"taxportal/web"
)

// Handlers groups the handler sets mounted by New.
type Handlers struct {
	Site         *handlers.Site
	Consultation *handlers.Consultation
	Member       *handlers.Member
	Events       *handlers.Events
	Hooks        *handlers.Hooks
}

// Options tunes the middleware chain.
type Options struct {
	// Secure enables HSTS and Secure cookies; set it behind TLS.
	Secure bool
	// LoginLimiter throttles credential and code submissions.
	LoginLimiter *middleware.RateLimiter
	// FormLimiter throttles consultation requests.
	FormLimiter *middleware.RateLimiter
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(sessions *session.Store, hier *navigation.Hierarchies, h Handlers, opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders(opts.Secure))

	r.Get("/health", handlers.Health)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	// CMS webhooks authenticate with a shared secret, not a session.
	r.Post("/hooks/cms", h.Hooks.ContentChanged)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Visitor(sessions))
		r.Use(middleware.Navigation(hier))
		r.Use(middleware.NewCSRF(opts.Secure))

		r.Get("/", h.Site.Home)

		r.Route("/insights", func(r chi.Router) {
			r.Get("/", h.Site.Insights)
			r.Get("/newsletter/{id}", h.Site.NewsletterDetail)
			r.Get("/{id}", h.Site.InsightDetail)
		})
		r.Route("/services", func(r chi.Router) {
			r.Get("/", h.Site.Services)
			r.Get("/{id}", h.Site.ServiceDetail)
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/menu", h.Site.APIMenu)
			r.Get("/insights", h.Site.APIInsights)
			r.Get("/services", h.Site.APIServices)
		})

		r.Get("/events/auth", h.Events.Auth)

		r.Get("/consultation", h.Consultation.Form)
		r.With(limit(opts.FormLimiter)...).Post("/consultation", h.Consultation.Submit)

		r.Route("/member", func(r chi.Router) {
			r.Get("/login", h.Member.LoginPage)
			r.With(limit(opts.LoginLimiter)...).Post("/login", h.Member.LoginSubmit)
			r.Post("/logout", h.Member.Logout)

			// A pending second factor is completed here, so these routes
			// only need a signed-in session.
			r.Get("/2fa/verify", h.Member.TwoFAVerifyPage)
			r.With(limit(opts.LoginLimiter)...).Post("/2fa/verify", h.Member.TwoFAVerifySubmit)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireMember)
				r.Get("/2fa/setup", h.Member.TwoFASetupPage)
				r.Get("/profile/{step}", h.Member.ProfilePage)
				r.Post("/profile/{step}", h.Member.ProfileSubmit)
			})
		})
	})

	return r
}

func limit(rl *middleware.RateLimiter) []func(next http.Handler) http.Handler {
	if rl == nil {
		return nil
	}
	return []func(next http.Handler) http.Handler{rl.Middleware}
}
