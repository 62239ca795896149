// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Registry manages module registration and lifecycle.
type Registry struct {
	modules      map[string]Module
	order        []string // initialization order
	activeStatus map[string]bool
	ctx          *Context
	logger       *slog.Logger
	mu           sync.RWMutex
}

// NewRegistry creates a new module registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		modules:      make(map[string]Module),
		order:        make([]string, 0),
		activeStatus: make(map[string]bool),
		logger:       logger,
	}
}

// Register adds a module to the registry.
// Modules are registered in the order they are added.
func (r *Registry) Register(m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := m.Name()
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %q already registered", name)
	}

	r.modules[name] = m
	r.order = append(r.order, name)
	r.logger.Info("module registered", "name", name, "version", m.Version())

	return nil
}

// Get returns a module by name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[name]
	return m, ok
}

// List returns all registered modules in registration order.
func (r *Registry) List() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modules := make([]Module, 0, len(r.order))
	for _, name := range r.order {
		modules = append(modules, r.modules[name])
	}
	return modules
}

// InitAll initializes all registered modules in registration order.
// Dependencies are checked and module migrations applied first; hooks of
// inactive modules are skipped from then on.
func (r *Registry) InitAll(ctx *Context) error {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	if err := r.checkDependencies(); err != nil {
		return err
	}

	if err := r.runAllMigrations(ctx.DB); err != nil {
		return err
	}

	if err := r.loadActiveStatus(ctx.DB); err != nil {
		return fmt.Errorf("loading module active status: %w", err)
	}

	if ctx.Hooks != nil {
		ctx.Hooks.SetIsModuleActive(r.IsActive)
	}

	for _, name := range r.order {
		m := r.modules[name]
		r.logger.Info("initializing module", "name", name, "active", r.IsActive(name))

		if err := m.Init(ctx); err != nil {
			return fmt.Errorf("initializing module %q: %w", name, err)
		}

		r.logger.Info("module initialized", "name", name)
	}

	return nil
}

// checkDependencies verifies that all module dependencies are registered.
func (r *Registry) checkDependencies() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		for _, dep := range r.modules[name].Dependencies() {
			if _, ok := r.modules[dep]; !ok {
				return fmt.Errorf("module %q depends on %q which is not registered", name, dep)
			}
		}
	}
	return nil
}

// runAllMigrations runs pending migrations for all modules.
func (r *Registry) runAllMigrations(db *sql.DB) error {
	if err := r.ensureMigrationsTable(db); err != nil {
		return fmt.Errorf("ensuring migrations table: %w", err)
	}

	for _, name := range r.order {
		migrations := r.modules[name].Migrations()
		if len(migrations) == 0 {
			continue
		}

		r.logger.Info("running module migrations", "module", name, "count", len(migrations))

		for _, mig := range migrations {
			applied, err := r.isMigrationApplied(db, name, mig.Version)
			if err != nil {
				return fmt.Errorf("checking migration status for %s v%d: %w", name, mig.Version, err)
			}
			if applied {
				continue
			}

			r.logger.Info("applying migration", "module", name, "version", mig.Version, "description", mig.Description)

			if err := mig.Up(db); err != nil {
				return fmt.Errorf("running migration %s v%d: %w", name, mig.Version, err)
			}

			if err := r.recordMigration(db, name, mig.Version); err != nil {
				return fmt.Errorf("recording migration %s v%d: %w", name, mig.Version, err)
			}
		}
	}

	return nil
}

// ensureMigrationsTable creates the module bookkeeping tables.
// The DDL is valid for both SQLite and MySQL.
func (r *Registry) ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS module_migrations (
			module VARCHAR(191) NOT NULL,
			version BIGINT NOT NULL,
			applied_at DATETIME NOT NULL,
			PRIMARY KEY (module, version)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS modules (
			name VARCHAR(191) NOT NULL PRIMARY KEY,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			updated_at DATETIME NOT NULL
		)
	`)
	return err
}

// isMigrationApplied checks if a migration has already been applied.
func (r *Registry) isMigrationApplied(db *sql.DB, module string, version int64) (bool, error) {
	var count int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM module_migrations WHERE module = ? AND version = ?",
		module, version,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// recordMigration records that a migration has been applied.
func (r *Registry) recordMigration(db *sql.DB, module string, version int64) error {
	_, err := db.Exec(
		"INSERT INTO module_migrations (module, version, applied_at) VALUES (?, ?, ?)",
		module, version, time.Now().UTC(),
	)
	return err
}

// loadActiveStatus loads the active status for all registered modules.
// Modules not in the database are considered active and inserted.
func (r *Registry) loadActiveStatus(db *sql.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		var isActive bool
		err := db.QueryRow("SELECT is_active FROM modules WHERE name = ?", name).Scan(&isActive)
		if errors.Is(err, sql.ErrNoRows) {
			_, err = db.Exec(
				"INSERT INTO modules (name, is_active, updated_at) VALUES (?, ?, ?)",
				name, true, time.Now().UTC(),
			)
			if err != nil {
				return fmt.Errorf("inserting module %s: %w", name, err)
			}
			r.activeStatus[name] = true
			r.logger.Debug("module registered in database", "module", name, "active", true)
			continue
		}
		if err != nil {
			return fmt.Errorf("loading active status for module %s: %w", name, err)
		}
		r.activeStatus[name] = isActive
		r.logger.Debug("loaded module status", "module", name, "active", isActive)
	}
	return nil
}

// IsActive returns whether a module is active. Untracked modules are active.
func (r *Registry) IsActive(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active, exists := r.activeStatus[name]
	return !exists || active
}

// SetActive sets a module's active status and persists it to the database.
func (r *Registry) SetActive(name string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[name]; !exists {
		return fmt.Errorf("module %q not registered", name)
	}
	if r.ctx == nil || r.ctx.DB == nil {
		return errors.New("registry not initialized")
	}

	_, err := r.ctx.DB.Exec(
		"UPDATE modules SET is_active = ?, updated_at = ? WHERE name = ?",
		active, time.Now().UTC(), name,
	)
	if err != nil {
		return fmt.Errorf("updating module is_active: %w", err)
	}

	r.activeStatus[name] = active
	r.logger.Info("module status changed", "module", name, "active", active)
	return nil
}

// ShutdownAll shuts down all modules in reverse order.
func (r *Registry) ShutdownAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		r.logger.Info("shutting down module", "name", name)

		if err := r.modules[name].Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("shutting down module %q: %w", name, err))
			r.logger.Error("module shutdown error", "name", name, "error", err)
		}
	}

	return errors.Join(errs...)
}

// AdminRouteAll registers all module admin routes behind an active status
// check.
func (r *Registry) AdminRouteAll(router chi.Router) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		m := r.modules[name]
		moduleName := name
		router.Group(func(subRouter chi.Router) {
			subRouter.Use(r.moduleActiveMiddleware(moduleName))
			m.RegisterAdminRoutes(subRouter)
		})
	}
}

// moduleActiveMiddleware answers 404 for routes of inactive modules.
func (r *Registry) moduleActiveMiddleware(moduleName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !r.IsActive(moduleName) {
				r.logger.Debug("blocked request to inactive module",
					"module", moduleName,
					"path", req.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"error":   "module " + moduleName + " is not active",
				})
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// Info contains information about a registered module.
type Info struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	Description       string `json:"description"`
	Active            bool   `json:"active"`
	MigrationCount    int    `json:"migration_count"`
	MigrationsApplied int    `json:"migrations_applied"`
}

// ListInfo returns information about all registered modules.
func (r *Registry) ListInfo() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		m := r.modules[name]
		migrations := m.Migrations()

		applied := 0
		if r.ctx != nil && r.ctx.DB != nil {
			for _, mig := range migrations {
				ok, err := r.isMigrationApplied(r.ctx.DB, name, mig.Version)
				if err == nil && ok {
					applied++
				}
			}
		}

		active, exists := r.activeStatus[name]
		infos = append(infos, Info{
			Name:              m.Name(),
			Version:           m.Version(),
			Description:       m.Description(),
			Active:            !exists || active,
			MigrationCount:    len(migrations),
			MigrationsApplied: applied,
		})
	}
	return infos
}

// Count returns the number of registered modules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}
