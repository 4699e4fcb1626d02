package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/orinotech/timecapsule/internal/capsule/http"
	"github.com/orinotech/timecapsule/internal/capsule/mail"
	"github.com/orinotech/timecapsule/internal/capsule/service"
	"github.com/orinotech/timecapsule/internal/capsule/session"
	"github.com/orinotech/timecapsule/internal/capsule/store"
	"github.com/orinotech/timecapsule/internal/capsule/store/drivers/sqlite"
	"github.com/orinotech/timecapsule/pkg/cryptox"
	"github.com/orinotech/timecapsule/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the capsule service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	sessions *session.Registry
	mailer   mail.Dispatcher

	// Services
	accountService       *service.AccountService
	passwordResetService *service.PasswordResetService
	capsuleService       *service.CapsuleService
	housekeepingService  *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "capsule-service",
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

	if err := app.initMailer(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.sessions = session.NewRegistry(app.cfg.SessionTTL)

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("capsule service starting", "port", app.cfg.Port, "version", BuildVersion)

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

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down capsule service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("capsule service stopped")
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

// initMailer selects the mail dispatcher. Without an SMTP relay
// configured, outgoing mail is logged instead, which keeps dev
// environments self-contained.
func (app *Application) initMailer() error {
	if app.cfg.SMTPAddr == "" {
		app.logger.Warn("SMTP_ADDR not set, emails will only be logged")
		app.mailer = &mail.LogOnly{Logger: app.logger}
		return nil
	}

	mailer, err := mail.NewSMTP(app.cfg.SMTPAddr, app.cfg.SMTPFrom, app.cfg.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}
	app.mailer = mailer
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.accountService = &service.AccountService{
		Store:    app.db,
		Sessions: app.sessions,
		Mail:     app.mailer,
	}

	app.passwordResetService = &service.PasswordResetService{
		Store:    app.db,
		Sessions: app.sessions,
		Mail:     app.mailer,
		TokenTTL: app.cfg.ResetTokenTTL,
	}

	app.capsuleService = &service.CapsuleService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.sessions,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.UnverifiedMaxAge = app.cfg.UnverifiedMaxAge
	app.housekeepingService.ResetTokenTTL = app.cfg.ResetTokenTTL
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.sessions,
		app.logger,
	)

	// Wire services to router
	router.AccountService = app.accountService
	router.PasswordResetService = app.passwordResetService
	router.CapsuleService = app.capsuleService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
