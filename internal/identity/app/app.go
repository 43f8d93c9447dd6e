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

	"github.com/fairmarket/identity/internal/identity/domain"
	httpapi "github.com/fairmarket/identity/internal/identity/http"
	"github.com/fairmarket/identity/internal/identity/provider/local"
	"github.com/fairmarket/identity/internal/identity/service"
	"github.com/fairmarket/identity/internal/identity/store"
	"github.com/fairmarket/identity/internal/identity/store/drivers/sqlite"
	"github.com/fairmarket/identity/pkg/idx"
	"github.com/fairmarket/identity/pkg/jwtx"
	"github.com/fairmarket/identity/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the identity service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	signer   *jwtx.EdDSASigner
	verifier jwtx.Verifier
	provider *local.Provider

	// Services
	adminService   *service.AdminService
	sessionManager *service.SessionManager
	mfaService     *service.MFAService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initProvider(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()

	if err := app.seedSuperAdmin(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to seed super admin: %w", err)
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("identity service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

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
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Drops the session, cancels any armed refresh timer, and clears the
	// credential cache.
	if err := app.sessionManager.SignOut(ctx); err != nil {
		app.logger.Warn("sign-out during shutdown failed", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
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

// initProvider generates a fresh Ed25519 signing key and stands up the
// in-process identity provider. Keys are ephemeral: a restart invalidates
// outstanding tokens, which is acceptable for session-scoped credentials.
func (app *Application) initProvider() error {
	signer, err := jwtx.GenerateSigner(idx.New().String())
	if err != nil {
		return fmt.Errorf("failed to generate signing key: %w", err)
	}
	app.signer = signer
	app.verifier = jwtx.NewVerifier(app.cfg.Issuer, signer)
	app.provider = local.New(signer, app.cfg.Issuer, app.cfg.AccessTokenTTL)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.adminService = &service.AdminService{
		Store:  app.db,
		Logger: app.logger,
	}

	app.sessionManager = service.NewSessionManager(
		app.provider,
		service.NewCredentialStore(),
		app.logger,
		service.SessionConfig{
			SignInTimeout: app.cfg.SignInTimeout,
			RefreshLead:   app.cfg.RefreshLead,
		},
	)

	app.mfaService = &service.MFAService{
		Store:    app.db,
		Sessions: app.sessionManager,
		Issuer:   app.cfg.Issuer,
	}
}

// seedSuperAdmin makes sure the system has at least one active super admin
// to act from. Without one, every privileged operation is unreachable.
// Seeding is skipped when a super admin already exists or when no bootstrap
// password is configured.
func (app *Application) seedSuperAdmin(ctx context.Context) error {
	count, err := app.db.Admins().CountActiveByRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return err
	}

	if count == 0 && app.cfg.BootstrapPassword == "" {
		app.logger.Warn("no active super admin and no bootstrap password set; privileged operations will be unavailable")
		return nil
	}

	if count == 0 {
		id := idx.New().String()
		now := time.Now().UTC()
		err := app.db.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Admins().CreateAdmin(ctx, domain.Administrator{
				ID:        id,
				Email:     app.cfg.BootstrapEmail,
				Role:      domain.RoleSuperAdmin,
				IsActive:  true,
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return err
			}
			return tx.Directory().UpsertUser(ctx, domain.DirectoryUser{
				ID:        id,
				Email:     app.cfg.BootstrapEmail,
				UserType:  domain.UserTypeAdmin,
				Role:      domain.RoleSuperAdmin,
				IsActive:  true,
				CreatedAt: now,
				UpdatedAt: now,
			})
		})
		if err != nil {
			return err
		}
		app.logger.Info("seeded bootstrap super admin", "email", app.cfg.BootstrapEmail)

		return app.provider.Register(
			id, app.cfg.BootstrapEmail, app.cfg.BootstrapPassword,
			domain.RoleSuperAdmin, domain.UserTypeAdmin,
		)
	}

	// Super admin rows exist; re-register the bootstrap account with the
	// ephemeral provider so sign-in works after a restart.
	if app.cfg.BootstrapPassword != "" {
		admin, err := app.db.Admins().GetAdminByEmail(ctx, app.cfg.BootstrapEmail)
		if err == nil && admin.IsActive {
			return app.provider.Register(
				admin.ID, admin.Email, app.cfg.BootstrapPassword,
				admin.Role, domain.UserTypeAdmin,
			)
		}
	}

	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AdminService = app.adminService
	router.SessionManager = app.sessionManager
	router.MFAService = app.mfaService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
