// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/crm-json-events/internal/cache"
	"github.com/olegiv/crm-json-events/internal/config"
	"github.com/olegiv/crm-json-events/internal/handler"
	"github.com/olegiv/crm-json-events/internal/logging"
	"github.com/olegiv/crm-json-events/internal/middleware"
	"github.com/olegiv/crm-json-events/internal/module"
	"github.com/olegiv/crm-json-events/internal/query"
	"github.com/olegiv/crm-json-events/internal/store"
	"github.com/olegiv/crm-json-events/internal/version"
	"github.com/olegiv/crm-json-events/modules/eventprops"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "crmevents - CRM event properties service\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CRMEVENTS_DB_DRIVER                    sqlite|sqlite3|mysql (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CRMEVENTS_DB_PATH                      SQLite database path (default: ./data/crmevents.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CRMEVENTS_DB_DSN                       MySQL DSN (required for mysql)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CRMEVENTS_SERVER_PORT                  Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CRMEVENTS_EXPERIMENTAL_EVENT_TRACKING  Enable event property features (default: false)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CRMEVENTS_CATALOG_CACHE_TTL            Property catalog cache TTL in seconds (default: 0)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CRMEVENTS_REDIS_URL                    Redis URL for the catalog cache (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}
	if *showVersion {
		_, _ = fmt.Println(versionInfo.String())
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	if !cfg.IsMySQL() {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	slog.Info("initializing database", "driver", cfg.DBDriver)
	db, err := store.NewDB(cfg.DBDriver, cfg.DataSource())
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db, cfg.DBDriver); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Mirror WARN and ERROR logs into the event log table
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if err := store.SeedDemo(ctx, db, cfg.DoSeed); err != nil {
		return fmt.Errorf("seeding demo data: %w", err)
	}

	// The catalog cache is only worth a backend when it can be hit
	var appCache cache.Cache
	if cfg.UseRedisCache() || cfg.CatalogCacheDuration() > 0 {
		appCache = cache.New(cache.Config{
			RedisURL:        cfg.RedisURL,
			Prefix:          cfg.CachePrefix,
			DefaultTTL:      cfg.CatalogCacheDuration(),
			MaxSize:         cfg.CacheMaxSize,
			CleanupInterval: time.Minute,
		}, logger)
		defer func() {
			if err := appCache.Close(); err != nil {
				slog.Error("error closing cache", "error", err)
			}
		}()
	}

	hookRegistry := module.NewHookRegistry(logger)
	moduleRegistry := module.NewRegistry(logger)
	moduleCtx := &module.Context{
		DB:      db,
		Store:   store.New(db),
		Dialect: query.DialectFor(cfg.DBDriver),
		Logger:  logger,
		Config:  cfg,
		Hooks:   hookRegistry,
		Cache:   appCache,
	}

	if err := moduleRegistry.Register(eventprops.New(eventprops.OptionsFromConfig(cfg))); err != nil {
		return fmt.Errorf("registering eventprops module: %w", err)
	}
	if err := moduleRegistry.InitAll(moduleCtx); err != nil {
		return fmt.Errorf("initializing modules: %w", err)
	}
	defer func() {
		if err := moduleRegistry.ShutdownAll(); err != nil {
			slog.Error("error shutting down modules", "error", err)
		}
	}()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))

	var cachePinger handler.Pinger
	if p, ok := appCache.(handler.Pinger); ok {
		cachePinger = p
	}
	healthHandler := handler.NewHealthHandler(db, cachePinger, versionInfo.Version)
	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	modulesHandler := handler.NewModulesHandler(moduleRegistry, hookRegistry)
	cacheHandler := handler.NewCacheHandler(appCache)
	r.Route("/admin", func(r chi.Router) {
		r.Get("/modules", modulesHandler.List)
		r.Put("/modules/{name}/active", modulesHandler.SetActive)
		r.Get("/cache", cacheHandler.Stats)
		r.Delete("/cache", cacheHandler.Clear)
		moduleRegistry.AdminRouteAll(r)
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env,
			"event_tracking", cfg.ExperimentalEventTracking)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
