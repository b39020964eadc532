package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bugreport/internal/attachment"
	"github.com/bugreport/internal/config"
	"github.com/bugreport/internal/mailer"
	"github.com/bugreport/internal/metrics"
	"github.com/bugreport/internal/nonce"
	"github.com/bugreport/internal/report"
	"github.com/bugreport/internal/store"
	"github.com/bugreport/internal/submission"
)

type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *store.DB
	sessionStore  *store.SessionStore
	settingsStore *store.SettingsStore
	nonces        *nonce.Issuer
	mailer        *mailer.Mailer
	submissions   *submission.Service
	metrics       *metrics.Metrics
}

func (app *App) Close() {
	app.db.Close()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := newLogger(cfg)

	transport, err := newTransport(cfg, logger)
	if err != nil {
		return nil, err
	}
	return build(ctx, cfg, logger, transport)
}

// build wires the application around a mail transport.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger, transport mailer.Transport) (*App, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	nonces, err := nonce.NewIssuer(cfg.SessionSecret, cfg.Report.NonceLifetime)
	if err != nil {
		db.Close()
		return nil, err
	}

	m := mailer.New(transport, cfg.Mail.FromEmail, cfg.Mail.FromName, cfg.Mail.Timeout)
	mets := metrics.New()

	service := submission.NewService(submission.Deps{
		Tokens:    nonces,
		Decoder:   attachment.NewDecoder(cfg.UploadDir),
		Composer:  report.NewComposer(cfg.Report.LeadIn),
		Mailer:    m,
		Retention: cfg.Report.RetentionPolicy,
		Metrics:   mets,
		SiteURL:   cfg.SiteURL,
		Logger:    logger,
	})

	return &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		sessionStore:  store.NewSessionStore(db),
		settingsStore: store.NewSettingsStore(db),
		nonces:        nonces,
		mailer:        m,
		submissions:   service,
		metrics:       mets,
	}, nil
}

func (app *App) Start(ctx context.Context) error {
	// Create an errgroup derived from the parent context
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", app.config.Port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: app.config.Mail.Timeout + 15*time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	scheduler, err := app.newScheduler()
	if err != nil {
		return fmt.Errorf("schedule jobs: %w", err)
	}
	scheduler.Start()

	// Start the server in a goroutine
	g.Go(func() error {
		app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env, "db", app.db.Dialect())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	// Start shutdown listener
	g.Go(func() error {
		<-gctx.Done() // Wait for OS signal or parent context to fail

		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		<-scheduler.Stop().Done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	app.logger.Info("stopped server")
	return nil
}
