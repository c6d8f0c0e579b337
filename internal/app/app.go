// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	supa "github.com/nedpals/supabase-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/voipdesk/planwatch/internal/config"
	"github.com/voipdesk/planwatch/internal/notifications"
	notificationspostgres "github.com/voipdesk/planwatch/internal/notifications/postgres"
	notificationssupabase "github.com/voipdesk/planwatch/internal/notifications/supabase"
	"github.com/voipdesk/planwatch/internal/pkg/ctxlog"
	"github.com/voipdesk/planwatch/internal/pkg/httputil"
	"github.com/voipdesk/planwatch/internal/pkg/metrics"
	"github.com/voipdesk/planwatch/internal/pkg/postgres"
	"github.com/voipdesk/planwatch/internal/plans"
	planspostgres "github.com/voipdesk/planwatch/internal/plans/postgres"
	"github.com/voipdesk/planwatch/internal/subscribers"
	subscriberspostgres "github.com/voipdesk/planwatch/internal/subscribers/postgres"
	subscriberssupabase "github.com/voipdesk/planwatch/internal/subscribers/supabase"
	"github.com/voipdesk/planwatch/internal/sweep"
	"github.com/voipdesk/planwatch/internal/version"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool // nil with the supabase driver
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
	sweepWorker   *sweep.Worker
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	app := &App{
		config: cfg,
		logger: logger,
	}

	var (
		subscriberRepo   subscribers.Repository
		notificationRepo notifications.Repository
		planRepo         plans.Repository
	)

	switch cfg.Subscribers.Driver {
	case "supabase":
		client := supa.CreateClient(cfg.Supabase.URL, cfg.Supabase.ServiceKey)
		subscriberRepo = subscriberssupabase.NewRepository(client)
		notificationRepo = notificationssupabase.NewRepository(client)
		// No plan catalog on this driver; the built-in table applies.
		slog.Info("using supabase subscriber store", "url", cfg.Supabase.URL)
	default:
		connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
		defer connectCancel()

		db, err := postgres.Connect(connectCtx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnectAttempts: cfg.Database.ConnectAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		app.db = db

		subscriberRepo = subscriberspostgres.NewRepository(db)
		notificationRepo = notificationspostgres.NewRepository(db)
		planRepo = planspostgres.NewRepository(db)
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())
	app.metricsCancel = metricsCancel

	if app.db != nil {
		go app.collectDBMetrics(metricsCtx)
	}

	resolver := plans.NewResolver(planRepo)
	sweepService := sweep.NewService(subscriberRepo, notificationRepo, resolver)
	notificationsService := notifications.NewService(notificationRepo)

	if cfg.Sweep.Enabled {
		app.sweepWorker = sweep.NewWorker(sweep.WorkerConfig{
			Interval:   cfg.Sweep.Interval,
			RunOnStart: cfg.Sweep.RunOnStart,
		}, sweepService)
		app.sweepWorker.Start(metricsCtx)
	}

	router := app.setupRouter(sweepService, notificationsService, planRepo)

	app.server = &http.Server{
		Addr:              cfg.Server.ListenAddr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              cfg.Server.MetricsAddr(),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server", "addr", a.metricsServer.Addr)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server", "addr", a.server.Addr)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	// Stop the sweep worker before the servers so an in-flight sweep
	// can finish its writes.
	if a.sweepWorker != nil {
		a.sweepWorker.Stop()
	}

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if a.db != nil {
		a.db.Close()
	}

	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	// Collect immediately on start
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// SweepWorker returns the sweep worker instance. Used in tests to access
// worker state. Returns nil if the sweep is disabled.
func (a *App) SweepWorker() *sweep.Worker {
	return a.sweepWorker
}

func (a *App) setupRouter(sweepService *sweep.Service, notificationsService *notifications.Service, planRepo plans.Repository) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	r.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Planwatch API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`))
	})

	sweepHandler := sweep.NewHandler(sweepService)
	notificationsHandler := notifications.NewHandler(notificationsService)
	plansHandler := plans.NewHandler(planRepo)
	limiter := httputil.RateLimitMiddleware(a.config.RateLimit.RPS, a.config.RateLimit.Burst)

	r.Route("/api/v1", func(r chi.Router) {
		sweepHandler.RegisterRoutes(r, limiter)
		notificationsHandler.RegisterRoutes(r)
		plansHandler.RegisterRoutes(r)
	})

	return r
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if a.db == nil {
		// The supabase driver holds no local connection to probe.
		httputil.Text(w, http.StatusOK, "OK")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
