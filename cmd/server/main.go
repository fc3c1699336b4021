package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DukeRupert/authflow/internal"
	"github.com/DukeRupert/authflow/internal/authapi"
	"github.com/DukeRupert/authflow/internal/handler"
	"github.com/DukeRupert/authflow/internal/idp"
	"github.com/DukeRupert/authflow/internal/idp/identitytoolkit"
	"github.com/DukeRupert/authflow/internal/idp/static"
	"github.com/DukeRupert/authflow/internal/metrics"
	"github.com/DukeRupert/authflow/internal/middleware"
	"github.com/DukeRupert/authflow/internal/schema"
	"github.com/DukeRupert/authflow/internal/service"
	"github.com/DukeRupert/authflow/internal/store"
	"github.com/DukeRupert/authflow/internal/worker"
	"github.com/DukeRupert/authflow/web"
)

// sessionStore is what both backends provide.
type sessionStore interface {
	store.IdentityStore
	store.ResetStore
	store.FormLockStore
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize session storage
	var sessions sessionStore
	switch cfg.SessionStore {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		if err := internal.RunMigrations(pool); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		sessions = store.NewPostgresStore(pool)
		logger.Info("Database ready")
	default:
		sessions = store.NewMemoryStore()
		logger.Info("Using in-memory session store")
	}

	// Initialize identity provider
	provider, err := newProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("identity provider initialization failed: %w", err)
	}

	// Initialize backend auth API client
	apiClient, err := authapi.New(authapi.Config{
		BaseURL: cfg.AuthAPIBaseURL,
		Timeout: cfg.AuthAPITimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("auth api client initialization failed: %w", err)
	}

	// Initialize template renderer
	isDev := cfg.Env == "development"
	templatesFS := web.Templates()
	if isDev {
		templatesFS = os.DirFS("web/templates")
	}
	renderer, err := handler.NewRenderer(handler.RendererConfig{
		FS:     templatesFS,
		Logger: logger,
		IsDev:  isDev,
	})
	if err != nil {
		return fmt.Errorf("renderer initialization failed: %w", err)
	}
	logger.Info("Templates loaded", "count", len(renderer.ListTemplates()))

	// Initialize services
	authService := service.NewAuthService(sessions, provider, apiClient, logger)
	resetService := service.NewResetService(sessions, apiClient, service.ResetConfig{
		TTL: cfg.ResetSessionTTL,
	}, logger)
	formGuard := service.NewFormGuard(sessions, logger)

	// Start background sweeper
	var bgWorker *worker.Worker
	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig()
		workerCfg.Interval = cfg.WorkerInterval
		bgWorker, err = worker.New(workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		bgWorker.Register(resetService.SweepTask())
		bgWorker.Start(ctx)
	}

	// Initialize middleware
	isSecure := cfg.IsSecure()
	sessionMw := middleware.NewSessionMiddleware(authService, logger, isSecure)
	csrfMw := middleware.NewCSRFMiddleware(logger, isSecure, "/auth/login/google", "/auth/register/google")
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword, logger)
	if cfg.MetricsUsername == "" && cfg.MetricsPassword == "" {
		logger.Warn("Metrics endpoint is unprotected; set METRICS_USERNAME and METRICS_PASSWORD")
	}

	rateLimiter := middleware.NewAuthRateLimiter(middleware.DefaultAuthRateLimits(), logger)
	defer rateLimiter.Close()
	limit := func(mw func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
		if !cfg.RateLimitEnabled {
			return h
		}
		return mw(h)
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, formGuard, renderer, logger, isSecure, cfg.GoogleClientID)
	resetHandler := handler.NewResetHandler(resetService, formGuard, renderer, logger, isSecure, schema.CodePolicy(cfg.ResetCodePolicy))
	homeHandler := handler.NewHomeHandler(authService, renderer, logger)
	prefsHandler := handler.NewPreferencesHandler(logger, isSecure)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	// Operational endpoints
	mux.HandleFunc("GET /health", handler.Health)
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// Public pages
	mux.HandleFunc("GET /{$}", homeHandler.ShowHome)
	mux.HandleFunc("POST /preferences/theme", prefsHandler.SetTheme)
	mux.HandleFunc("POST /preferences/language", prefsHandler.SetLanguage)

	// Sign in and registration
	mux.HandleFunc("GET /auth/login", authHandler.ShowLogin)
	mux.Handle("POST /auth/login", limit(rateLimiter.LimitLogin, authHandler.Login))
	mux.Handle("POST /auth/login/google", limit(rateLimiter.LimitLogin, authHandler.LoginGoogle))
	mux.HandleFunc("GET /auth/register", authHandler.ShowRegister)
	mux.Handle("POST /auth/register", limit(rateLimiter.LimitRegister, authHandler.Register))
	mux.Handle("POST /auth/register/google", limit(rateLimiter.LimitRegister, authHandler.RegisterGoogle))
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)

	// Password reset
	mux.HandleFunc("GET /auth/forgot-password/verify-email", resetHandler.ShowVerifyEmail)
	mux.Handle("POST /auth/forgot-password/verify-email", limit(rateLimiter.LimitPasswordReset, resetHandler.VerifyEmail))
	mux.HandleFunc("GET /auth/forgot-password/verify-code", resetHandler.ShowVerifyCode)
	mux.Handle("POST /auth/forgot-password/verify-code", limit(rateLimiter.LimitVerifyCode, resetHandler.VerifyCode))
	mux.HandleFunc("GET /auth/forgot-password/reset-password", resetHandler.ShowResetPassword)
	mux.Handle("POST /auth/forgot-password/reset-password", limit(rateLimiter.LimitPasswordReset, resetHandler.ResetPassword))

	// Every request gets security headers, logging and metrics, a browser
	// session and CSRF protection.
	stack := middleware.Stack(
		middleware.NewSecurityHeadersMiddleware(isSecure).Handler,
		middleware.NewRequestLoggingMiddleware(logger).Handler,
		metrics.Middleware,
		sessionMw.WithSession,
		sessionMw.WithIdentity,
		csrfMw.Handler,
	)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           stack(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
	serveErr := serve(server, sigChan, 30*time.Second, logger)

	if bgWorker != nil {
		bgWorker.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return serveErr
}

// serve runs server until stop fires or the listener fails, then shuts it
// down within timeout. A listener failure is returned after the shutdown.
func serve(server *http.Server, stop <-chan os.Signal, timeout time.Duration, logger *slog.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a failed listener
	var listenErr error
	select {
	case <-stop:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case listenErr = <-serverErr:
		logger.Error("Server failed", "error", listenErr)
	}

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if listenErr != nil {
		return fmt.Errorf("server failed: %w", listenErr)
	}
	return nil
}

func newProvider(cfg *internal.Config, logger *slog.Logger) (idp.Provider, error) {
	if cfg.IDPProvider == "identitytoolkit" {
		return identitytoolkit.New(identitytoolkit.Config{
			APIKey:     cfg.IDPAPIKey,
			BaseURL:    cfg.IDPBaseURL,
			RequestURI: cfg.BaseURL,
			Timeout:    cfg.AuthAPITimeout,
		}, logger)
	}

	logger.Warn("Using in-memory identity provider; accounts are lost on restart")
	return static.New(logger), nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
