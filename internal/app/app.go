package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"

	"namerank/internal/aggregation"
	"namerank/internal/config"
	apierrors "namerank/internal/errors"
	"namerank/internal/infrastructure"
	"namerank/internal/ingest"
	customMiddleware "namerank/internal/middleware"
	"namerank/internal/services"
	handlers "namerank/internal/transport/http"
	"namerank/pkg/contracts"
)

// Application wires configuration, telemetry, the dataset and the HTTP API
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.Metrics
	Service       *services.AnalysisService
	Router        *chi.Mux
	Server        *http.Server
}

// NewApplication initializes telemetry, ingests the dataset and builds the
// analysis service. The router is ready to serve once this returns.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Application{Config: cfg, Logger: logger}

	providers, err := infrastructure.InitializeOTel(
		infrastructure.OTelConfigFrom(cfg.Telemetry, contracts.Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	a.OTelProviders = providers

	meter := providers.Meter
	if meter == nil {
		meter = otel.Meter(infrastructure.MeterName)
	}
	if a.Metrics, err = infrastructure.NewMetrics(meter); err != nil {
		a.shutdownTelemetry(ctx)
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	if err := a.initializeServices(ctx); err != nil {
		a.shutdownTelemetry(ctx)
		return nil, err
	}

	a.setupRouter()
	a.createServer()
	return a, nil
}

func (a *Application) initializeServices(ctx context.Context) error {
	loader := ingest.NewLoader(ingest.OptionsFrom(a.Config.Dataset), a.Logger)
	table, err := loader.LoadTable(ctx)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	defaults, err := services.RequestFromConfig(a.Config.Analysis)
	if err != nil {
		return err
	}

	engine := aggregation.NewEngine(a.Logger)
	a.Service, err = services.NewAnalysisService(table, engine, defaults, a.Config.Cache, a.Metrics, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create analysis service: %w", err)
	}

	stats := a.Service.Stats()
	a.Logger.InfoContext(ctx, "dataset loaded",
		slog.Int("records", stats.Records),
		slog.Int("groups", stats.Groups),
		slog.Int("first_year", stats.FirstYear),
		slog.Int("last_year", stats.LastYear))
	return nil
}

// setupRouter configures the HTTP router with all routes.
// Middleware order: RequestID, RealIP, OTel, Logger, Recoverer, Timeout.
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.Use(customMiddleware.RequestID)
	r.Use(chimw.RealIP)

	errorHandler := apierrors.NewErrorHandler(a.Logger)
	r.NotFound(errorHandler.NotFound)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Server.AllowedOrigins,
			Logger:         a.Logger,
		}))
		if rl := a.Config.Server.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
		}
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))

		healthHandler := handlers.NewHealthHandler(a.Service, a.Logger)
		r.Get("/api/health", healthHandler.HealthCheck)
		r.Get("/api/version", healthHandler.Version)

		analysisHandler := handlers.NewAnalysisHandler(a.Service, a.Logger, errorHandler)
		r.Mount("/api", analysisHandler.Routes())
	})

	// Prometheus scrapes outside the middleware group
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Address(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run serves HTTP until ctx is cancelled or the server fails, then shuts down
// gracefully.
func (a *Application) Run(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "starting server",
		slog.String("version", contracts.Version),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	serveErr := make(chan error, 1)
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "shutdown requested")
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("server error: %w", err)
		}
	}

	if err := a.Stop(context.WithoutCancel(ctx)); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// Stop gracefully stops the server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return errors.Join(errs...)
}

// Close releases telemetry without serving, for one-shot commands
func (a *Application) Close(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()
	return a.OTelProviders.Shutdown(shutdownCtx)
}

func (a *Application) shutdownTelemetry(ctx context.Context) {
	if a.OTelProviders == nil {
		return
	}
	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		a.Logger.WarnContext(ctx, "telemetry shutdown failed", slog.String("error", err.Error()))
	}
}
