// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the TaxPortal server. It loads
// configuration, connects to services, sets up routing, and starts the
// HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taxportal/internal/authbus"
	"taxportal/internal/backend"
	"taxportal/internal/cache"
	"taxportal/internal/config"
	"taxportal/internal/database"
	"taxportal/internal/handlers"
	"taxportal/internal/menu"
	"taxportal/internal/middleware"
	"taxportal/internal/navigation"
	"taxportal/internal/render"
	"taxportal/internal/router"
	"taxportal/internal/session"
	"taxportal/internal/store"
)

// paginatorIdle is how long an unused per-session paginator is kept.
const paginatorIdle = 10 * time.Minute

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON everywhere else.
	var logHandler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	if cfg.IsDev() {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(logHandler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"cms", cfg.CMSBaseURL,
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed one member per member type (no-op if members exist).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (sessions, hierarchy snapshots, auth events).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// Session cookies are Secure outside development.
	secure := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secure)

	// Navigation core: CMS client, per-session hierarchies and paginators.
	cms := backend.NewClient(cfg.CMSBaseURL, cfg.CMSTimeout)
	snapshots := cache.NewSnapshotStore(valkeyClient, cfg.SnapshotTTL)
	hier := navigation.NewHierarchies(cms, snapshots)
	pagers := navigation.NewPaginators(cms, paginatorIdle)
	defer pagers.Stop()

	insights := navigation.NewNavigator(navigation.Surface{
		Name:               "insights",
		Resource:           "insights",
		ListingResource:    "insights",
		NewsletterResource: "newsletters",
		NewsletterEnabled:  cfg.NewsletterEnabled,
	}, hier, pagers)
	services := navigation.NewNavigator(navigation.Surface{
		Name:     "services",
		Resource: "services",
	}, hier, pagers)

	menuDef, err := menu.Load(cfg.MenuFile)
	if err != nil {
		slog.Error("failed to load menu", "error", err)
		os.Exit(1)
	}
	siteMenu := menu.New(menuDef, hier, cfg.NewsletterEnabled)

	renderer, err := render.New(cfg.IsDev(), cfg.SiteName)
	if err != nil {
		slog.Error("failed to initialize template renderer", "error", err)
		os.Exit(1)
	}

	// Auth events: the relay fans them out to every instance; locally
	// they invalidate hierarchy snapshots and feed the SSE streams.
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	bus := authbus.New()
	defer bus.Close()
	relay := authbus.NewRelay(valkeyClient, bus, "")
	go func() {
		if err := relay.Run(ctx); err != nil {
			slog.Error("auth relay stopped", "error", err)
		}
	}()
	authEvents, unsubscribe := bus.Subscribe(authbus.DefaultBuffer)
	defer unsubscribe()
	go hier.Follow(ctx, authEvents)

	loginLimiter := middleware.NewRateLimiter("login", 10, time.Minute, middleware.ByIP)
	defer loginLimiter.Stop()
	formLimiter := middleware.NewRateLimiter("consultation", 5, time.Minute, middleware.ByVisitor)
	defer formLimiter.Stop()

	// Create handler groups with their dependencies.
	base := handlers.NewBase(renderer, siteMenu)
	h := router.Handlers{
		Site:         handlers.NewSite(base, insights, services, cms),
		Consultation: handlers.NewConsultation(base, store.NewConsultationStore(db)),
		Member:       handlers.NewMember(base, sessionStore, store.NewMemberStore(db), relay, cfg.SiteName),
		Events:       handlers.NewEvents(bus),
		Hooks:        handlers.NewHooks(cfg.CMSWebhookSecret, snapshots),
	}
	r := router.New(sessionStore, hier, h, router.Options{
		Secure:       cfg.IsProd(),
		LoginLimiter: loginLimiter,
		FormLimiter:  formLimiter,
	})

	// WriteTimeout covers page renders; the SSE handler lifts it for its
	// own connection.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Ending the bus closes open event streams so Shutdown can finish.
	stop()
	bus.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
