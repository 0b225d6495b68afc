package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/courtsidehq/courtside/internal/auth/http"
	"github.com/courtsidehq/courtside/internal/auth/ratelimit"
	"github.com/courtsidehq/courtside/internal/auth/service"
	"github.com/courtsidehq/courtside/internal/auth/store"
	"github.com/courtsidehq/courtside/internal/auth/store/drivers/sqlite"
	"github.com/courtsidehq/courtside/pkg/cryptox"
	"github.com/courtsidehq/courtside/pkg/slogx"

	"github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	limiter ratelimit.Limiter
	sweeper ratelimit.Sweeper // non-nil only for the in-memory limiter

	// Services
	tokenService        *service.TokenService
	sessionService      *service.SessionService
	authService         *service.AuthService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initLimiter(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initLimiter selects the rate limiter driver. The in-memory default is
// single-process: limits reset on restart and replicas do not share counters.
// Multi-instance deployments should set AUTH_LIMITER_BACKEND=redis.
func (app *Application) initLimiter() error {
	switch app.cfg.LimiterBackend {
	case "", "memory":
		mem := ratelimit.NewMemoryLimiter()
		app.limiter = mem
		app.sweeper = mem
		app.logger.Info("rate limiter initialized", "backend", "memory")
		return nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
		})
		rl := ratelimit.NewRedisLimiter(client)
		if err := rl.Ping(context.Background()); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", app.cfg.RedisAddr, err)
		}
		app.limiter = rl
		app.logger.Info("rate limiter initialized", "backend", "redis", "addr", app.cfg.RedisAddr)
		return nil

	default:
		return fmt.Errorf("unknown limiter backend %q", app.cfg.LimiterBackend)
	}
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	secret := app.cfg.SessionSecret
	if secret == "" {
		// Dev convenience only: sessions will not survive a restart.
		buf := make([]byte, 32)
		_, _ = rand.Read(buf)
		secret = hex.EncodeToString(buf)
		app.logger.Warn("AUTH_SESSION_SECRET not set, generated an ephemeral secret")
	}

	app.tokenService = &service.TokenService{}
	app.sessionService = &service.SessionService{
		Store:  app.db,
		Secret: []byte(secret),
		Issuer: app.cfg.Issuer,
		TTL:    app.cfg.SessionTTL,
	}

	app.authService = &service.AuthService{
		Store:    app.db,
		Limiter:  app.limiter,
		Tokens:   app.tokenService,
		Sessions: app.sessionService,
		Mailer: &service.LogMailer{
			Logger:  app.logger,
			BaseURL: app.cfg.MailBaseURL,
		},
	}

	app.userService = &service.UserService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.sweeper,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.cfg.VerifyResultURL,
		app.db,
		app.limiter,
		app.logger,
	)

	// Wire services to router
	router.AuthService = app.authService
	router.SessionService = app.sessionService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
