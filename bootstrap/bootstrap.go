// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stamply/stamply/adapters/clock"
	"github.com/stamply/stamply/adapters/idgen"
	"github.com/stamply/stamply/adapters/metrics"
	"github.com/stamply/stamply/adapters/payment"
	"github.com/stamply/stamply/adapters/sqlite"
	"github.com/stamply/stamply/app"
	"github.com/stamply/stamply/config"
	"github.com/stamply/stamply/web"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Holder
	DB         *sqlite.DB
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	resetService *app.ResetService
	resetCancel  context.CancelFunc
}

// Options controls application initialization.
type Options struct {
	// ConfigPath is the path to the YAML config file. If empty or missing,
	// configuration is read from STAMPLY_* environment variables.
	ConfigPath string

	// Version is reported by the /version endpoint.
	Version string
}

// New creates and initializes the application.
func New(opts Options) (*App, error) {
	cfg, err := config.LoadWithFallback(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	logger.Info().Msg("initializing stamply")

	a := &App{
		Logger: logger,
	}

	// Hot reload is only available for file-based config
	if opts.ConfigPath != "" {
		if holder, err := config.NewHolder(opts.ConfigPath, logger); err == nil {
			a.Config = holder
			cfg = holder.Get()
			if err := holder.WatchFile(); err != nil {
				logger.Warn().Err(err).Msg("config file watch unavailable")
			}
			holder.WatchSignals()
		}
	}

	// Database
	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a.DB = db
	logger.Info().Str("dsn", cfg.Database.DSN).Msg("database initialized")

	// Metrics
	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Msg("prometheus metrics enabled")
	}
	if a.Metrics != nil && a.Config != nil {
		m := a.Metrics
		a.Config.OnChange(func(*config.Config) {
			m.ConfigReloads.Inc()
			m.ConfigLastReload.SetToCurrentTime()
		})
		a.Config.OnReloadError(func(error) {
			m.ConfigReloadErrors.Inc()
		})
	}

	// Stores
	restaurants := sqlite.NewRestaurantStore(db)
	campaigns := sqlite.NewCampaignStore(db)
	notifications := sqlite.NewNotificationStore(db)
	audit := sqlite.NewAuditStore(db)

	// Payment provider
	provider, err := payment.NewProvider(payment.Config{
		Mode:          cfg.Billing.Mode,
		SecretKey:     cfg.Billing.SecretKey,
		PublicKey:     cfg.Billing.PublicKey,
		WebhookSecret: cfg.Billing.WebhookSecret,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create payment provider: %w", err)
	}
	logger.Info().Str("provider", provider.Name()).Msg("payment provider initialized")

	clk := clock.Real{}
	ids := idgen.UUID{}
	prices := cfg.PriceTable()

	// Services
	entitlements := app.NewEntitlementService(restaurants, campaigns, clk, a.Metrics, logger)
	billingSvc := app.NewBillingService(restaurants, provider, prices, clk, a.Metrics, logger)
	campaignSvc := app.NewCampaignService(restaurants, campaigns, audit, entitlements, ids, clk, logger)
	notificationSvc := app.NewNotificationService(restaurants, notifications, audit, entitlements, ids, clk, a.Metrics, logger)
	webhookSvc := app.NewPaymentWebhookService(restaurants, provider, clk, a.Metrics, logger)
	a.resetService = app.NewResetService(restaurants, clk, a.Metrics, logger)

	// HTTP server
	handler := web.NewHandler(web.Deps{
		Billing:       billingSvc,
		Entitlements:  entitlements,
		Campaigns:     campaignSvc,
		Notifications: notificationSvc,
		Webhooks:      webhookSvc,
		Metrics:       a.Metrics,
		Logger:        logger,
		Version:       opts.Version,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	a.HTTPServer = &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info().Str("addr", addr).Msg("http server configured")
	return a, nil
}

// Run starts the HTTP server and the reset sweeper, and blocks until shutdown.
func (a *App) Run() error {
	// Background sweeper for notification cycle resets and matured plan changes
	interval := time.Hour
	if a.Config != nil {
		interval = a.Config.Get().Reset.SweepInterval
	}
	resetCtx, cancel := context.WithCancel(context.Background())
	a.resetCancel = cancel
	go a.resetService.Run(resetCtx, interval)

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Sweep runs one pass of the notification reset sweeper.
// Used by the CLI for manual invocation.
func (a *App) Sweep(ctx context.Context) (int, error) {
	return a.resetService.Sweep(ctx)
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.resetCancel != nil {
		a.resetCancel()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.Config != nil {
		a.Config.Stop()
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
