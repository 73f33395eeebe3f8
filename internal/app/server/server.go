package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"clima/internal/domain/audit"
	"clima/internal/domain/catalog"
	"clima/internal/domain/directory"
	"clima/internal/domain/reporting"
	"clima/internal/domain/survey"
	"clima/internal/platform/config"
	cryptoutil "clima/internal/platform/crypto"
	"clima/internal/platform/db"
	"clima/internal/platform/jobs"
	"clima/internal/platform/metrics"
	audithandler "clima/internal/transport/http/handlers/audit"
	cataloghandler "clima/internal/transport/http/handlers/catalog"
	directoryhandler "clima/internal/transport/http/handlers/directory"
	reportshandler "clima/internal/transport/http/handlers/reports"
	surveyhandler "clima/internal/transport/http/handlers/survey"
	"clima/internal/transport/http/middleware"
)

// App wires storage, domain services, background jobs and the HTTP router.
// Tests construct it against a scratch database and mount Router directly.
type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Jobs    *jobs.Service
	Metrics *metrics.Collector

	stopJobs context.CancelFunc
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	if err := db.Seed(ctx, pool, cfg); err != nil {
		pool.Close()
		return nil, fmt.Errorf("seed: %w", err)
	}

	cryptoSvc, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("crypto init: %w", err)
	}

	collector := metrics.New()

	catalogSvc := catalog.NewService(catalog.NewStore(pool))
	surveyStore := survey.NewStore(pool, cryptoSvc)
	surveySvc := survey.NewService(surveyStore, catalogSvc)
	directorySvc := directory.NewService(directory.NewStore(pool))
	auditSvc := audit.New(pool)
	reportingSvc := reporting.NewService(surveyStore, catalogSvc, directorySvc, collector)
	idemStore := middleware.NewIdempotencyStore(pool)

	jobsSvc := jobs.New(pool, catalogSvc, collector, idemStore)
	jobsCtx, stopJobs := context.WithCancel(context.Background())
	jobsSvc.Start(jobsCtx, cfg.PeriodSweepInterval)

	app := &App{
		Config:   cfg,
		DB:       pool,
		Jobs:     jobsSvc,
		Metrics:  collector,
		stopJobs: stopJobs,
	}
	app.Router = app.buildRouter(surveySvc, catalogSvc, directorySvc, auditSvc, reportingSvc, reporting.NewStore(pool), idemStore)
	return app, nil
}

func (a *App) buildRouter(
	surveySvc *survey.Service,
	catalogSvc *catalog.Service,
	directorySvc *directory.Service,
	auditSvc *audit.Service,
	reportingSvc *reporting.Service,
	runsStore *reporting.Store,
	idemStore *middleware.IdempotencyStore,
) http.Handler {
	cfg := a.Config

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Total-Count"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Logger(a.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.DB.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Method(http.MethodGet, "/metrics", a.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SubmissionRateLimit(cfg.RateLimitPerMinute, time.Minute))

		surveyhandler.NewHandler(surveySvc, idemStore, auditSvc, a.Metrics).RegisterRoutes(r)
		cataloghandler.NewHandler(catalogSvc, auditSvc).RegisterRoutes(r)
		directoryhandler.NewHandler(directorySvc, auditSvc).RegisterRoutes(r)
		reportshandler.NewHandler(reportingSvc, runsStore).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc).RegisterRoutes(r)
	})

	return router
}

// Close stops the job runner and releases the connection pool.
func (a *App) Close() {
	if a.stopJobs != nil {
		a.stopJobs()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
