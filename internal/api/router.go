package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nexcrm/nexus/internal/api/handlers"
	mw "github.com/nexcrm/nexus/internal/api/middleware"
	"github.com/nexcrm/nexus/internal/config"
	"github.com/nexcrm/nexus/internal/domain"
	"github.com/nexcrm/nexus/internal/service"
	"github.com/nexcrm/nexus/internal/store"
	"github.com/nexcrm/nexus/internal/tenantdb"
	"go.uber.org/zap"
)

// App holds the router and the tenant session factory. The factory is
// exported so collaborating modules (business CRUD owned elsewhere) can
// open tenant-scoped handles through the same isolation rules.
type App struct {
	Router   *chi.Mux
	Sessions *tenantdb.Factory

	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, cfg config.Settings, logger *zap.Logger) (*App, error) {
	// Stores
	tenantStore := store.NewTenantStore(db, cfg.AdminSchema)
	rbacStore := store.NewRBACStore(db, cfg.AdminSchema)
	customStore := store.NewCustomSchemaStore(db, cfg.AdminSchema)
	apiKeyStore := store.NewAPIKeyStore(db, cfg.AdminSchema)
	auditStore := store.NewAuditStore(db, cfg.AdminSchema)

	// Tenant session factory
	sessions, err := tenantdb.New(db, tenantStore, tenantdb.Config{
		AdminSchema:             cfg.AdminSchema,
		SandboxStatementTimeout: cfg.SandboxStatementTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	// Services
	permSvc := service.NewPermissionService(rbacStore)
	recordSvc := service.NewRecordService(customStore, logger)
	keySvc := service.NewAPIKeyService(apiKeyStore)
	querySvc := service.NewQueryService(sessions, cfg.AdminSchema, logger)

	// Handlers
	tenantHandler := handlers.NewTenantHandler(tenantStore, logger)
	rbacHandler := handlers.NewRBACHandler(rbacStore, auditStore, logger)
	customHandler := handlers.NewCustomSchemaHandler(recordSvc, auditStore, logger)
	recordHandler := handlers.NewRecordHandler(recordSvc, logger)
	apiKeyHandler := handlers.NewAPIKeyHandler(keySvc, auditStore, logger)
	queryHandler := handlers.NewQueryHandler(querySvc, logger)
	auditHandler := handlers.NewAuditHandler(auditStore, logger)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Sessions:  sessions,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Tenant registration (no auth, bootstrap endpoint)
	r.Post("/v1/tenants", tenantHandler.Create)

	identity := mw.Identity(mw.IdentityConfig{
		DefaultTenantID:  cfg.DefaultTenantID,
		DefaultUserID:    cfg.DefaultUserID,
		DefaultUserRoles: cfg.DefaultUserRoles,
	})
	requireAdmin := mw.RequirePermission(permSvc, domain.ActionAdminConfigManage, logger)

	// Protected routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(identity)

		// Schema browser
		r.Get("/meta/schemas", queryHandler.ListSchemas)

		// SQL Studio and generic records
		r.Route("/data", func(r chi.Router) {
			r.With(mw.RequirePermission(permSvc, domain.ActionSQLStudioExecute, logger)).
				Post("/query", queryHandler.Execute)

			r.Route("/{table}/records", func(r chi.Router) {
				r.With(mw.RequirePermission(permSvc, domain.ActionRecordsWrite, logger)).
					Post("/", recordHandler.Create)
				r.With(mw.RequirePermission(permSvc, domain.ActionRecordsRead, logger)).
					Get("/", recordHandler.List)
				r.With(mw.RequirePermission(permSvc, domain.ActionRecordsRead, logger)).
					Get("/{id}", recordHandler.GetByID)
			})
		})

		// Admin configuration
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)

			r.Route("/roles", func(r chi.Router) {
				r.Get("/", rbacHandler.ListRoles)
				r.Post("/", rbacHandler.CreateRole)
				r.Post("/{id}/permissions", rbacHandler.Grant)
				r.Delete("/{id}/permissions/{permID}", rbacHandler.Revoke)
			})

			r.Route("/permissions", func(r chi.Router) {
				r.Get("/", rbacHandler.ListPermissions)
				r.Post("/", rbacHandler.CreatePermission)
			})

			r.Route("/custom/tables", func(r chi.Router) {
				r.Get("/", customHandler.ListTables)
				r.Post("/", customHandler.CreateTable)
				r.Get("/{id}/fields", customHandler.ListFields)
				r.Post("/{id}/fields", customHandler.CreateField)
			})

			r.Route("/api-keys", func(r chi.Router) {
				r.Get("/", apiKeyHandler.List)
				r.Post("/", apiKeyHandler.Create)
				r.Delete("/{id}", apiKeyHandler.Revoke)
			})

			r.Get("/audit-log", auditHandler.List)
		})
	})

	return app, nil
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores satisfy their interfaces at compile time.
var (
	_ domain.TenantStore       = (*store.TenantStore)(nil)
	_ domain.RBACStore         = (*store.RBACStore)(nil)
	_ domain.CustomSchemaStore = (*store.CustomSchemaStore)(nil)
	_ domain.APIKeyStore       = (*store.APIKeyStore)(nil)
	_ domain.AuditStore        = (*store.AuditStore)(nil)
	_ mw.Authorizer            = (*service.PermissionService)(nil)
)
