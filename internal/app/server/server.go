package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"

	"phpayroll/internal/domain/audit"
	"phpayroll/internal/domain/auth"
	"phpayroll/internal/domain/payroll"
	"phpayroll/internal/domain/reports"
	"phpayroll/internal/platform/config"
	cryptoutil "phpayroll/internal/platform/crypto"
	"phpayroll/internal/platform/db"
	"phpayroll/internal/platform/jobs"
	"phpayroll/internal/platform/logging"
	"phpayroll/internal/platform/metrics"
	audithandler "phpayroll/internal/transport/http/handlers/audit"
	payrollhandler "phpayroll/internal/transport/http/handlers/payroll"
	reportshandler "phpayroll/internal/transport/http/handlers/reports"
	"phpayroll/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *db.Pool
	Router  http.Handler
	Logger  *slog.Logger
	Metrics *metrics.Collector
	Payroll *payroll.Service
	Jobs    *jobs.Service

	stopJobs context.CancelFunc
}

// Deps is everything the router needs. Kept separate from App so the HTTP
// surface can be exercised without a database.
type Deps struct {
	Config      config.Config
	Logger      *slog.Logger
	Metrics     *metrics.Collector
	Ready       func(ctx context.Context) error
	Payroll     payrollhandler.PayrollService
	Jobs        payrollhandler.JobRunner
	Audit       AuditService
	Idempotency payrollhandler.IdempotencyStore
	Reports     reportshandler.ReportService
}

type AuditService interface {
	payrollhandler.AuditRecorder
	audithandler.EventReader
}

// New connects to Postgres, applies migrations when enabled and assembles the
// services behind the router. Callers must Close the returned App.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.Environment)

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if !crypto.Configured() {
		logger.Warn("DATA_ENCRYPTION_KEY not set, payslips are stored unencrypted")
	}

	var collector *metrics.Collector
	var observer payroll.RunObserver
	if cfg.MetricsEnabled {
		collector = metrics.New()
		observer = collector
	}

	store := payroll.NewStore(pool)
	payrollService := payroll.NewService(store, payroll.Options{
		Crypto:     crypto,
		Logger:     logger,
		Observer:   observer,
		Workers:    cfg.PayrollWorkers,
		PayslipDir: cfg.PayslipDir,
	})

	jobCtx, stopJobs := context.WithCancel(context.WithoutCancel(ctx))
	jobService := jobs.New(store, logger, 0)
	jobService.Start(jobCtx, cfg.JobWorkers)

	router := NewRouter(Deps{
		Config:      cfg,
		Logger:      logger,
		Metrics:     collector,
		Ready:       pool.Ping,
		Payroll:     payrollService,
		Jobs:        jobService,
		Audit:       audit.New(pool),
		Idempotency: middleware.NewIdempotencyStore(pool),
		Reports:     reports.NewService(reports.NewStore(pool)),
	})

	return &App{
		Config:   cfg,
		DB:       pool,
		Router:   router,
		Logger:   logger,
		Metrics:  collector,
		Payroll:  payrollService,
		Jobs:     jobService,
		stopJobs: stopJobs,
	}, nil
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	perms := auth.StaticPermissions{}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(httplog.RequestLogger(logger, logging.RequestOptions(cfg.LogLevel)))
	router.Use(chimw.Recoverer)
	router.Use(chimw.CleanPath)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", middleware.IdempotencyHeader},
		ExposedHeaders:   []string{"X-Request-ID", "X-Total-Count", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(chimw.Heartbeat("/healthz"))
	if deps.Metrics != nil {
		router.Use(middleware.Metrics(deps.Metrics))
	}

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready == nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := deps.Ready(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.PayrollMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		payrollhandler.NewHandler(deps.Payroll, deps.Jobs, deps.Audit, deps.Idempotency, perms, logger).RegisterRoutes(r)
		audithandler.NewHandler(deps.Audit, perms, logger).RegisterRoutes(r)
		reportshandler.NewHandler(deps.Reports, perms, logger).RegisterRoutes(r)
	})

	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to
// ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("payroll server listening", "addr", a.Config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down", "timeout", a.Config.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *App) Close() {
	if a.stopJobs != nil {
		a.stopJobs()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
