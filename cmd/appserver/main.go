// Package main runs the Clubhouse HTTP API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	app "github.com/clubhouse-sports/clubhouse/internal/app"
	"github.com/clubhouse-sports/clubhouse/internal/app/blob"
	"github.com/clubhouse-sports/clubhouse/internal/app/codes"
	"github.com/clubhouse-sports/clubhouse/internal/app/housekeeping"
	"github.com/clubhouse-sports/clubhouse/internal/app/httpapi"
	"github.com/clubhouse-sports/clubhouse/internal/app/notify"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/auth"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage/postgres"
	"github.com/clubhouse-sports/clubhouse/internal/config"
	"github.com/clubhouse-sports/clubhouse/internal/middleware"
	"github.com/clubhouse-sports/clubhouse/pkg/logger"
)

const limiterIdle = 10 * time.Minute

func main() {
	envFile := flag.String("env", ".env", "Optional .env file to load before reading the environment")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}).Named("appserver")

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		stores app.Stores
		ready  func(context.Context) error
	)
	if cfg.Database.DSN != "" {
		db, err := postgres.Open(ctx, cfg.Database.DSN, postgres.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
		}, cfg.Database.MigrateOnStart)
		if err != nil {
			return err
		}
		defer db.Close()
		store := postgres.New(db)
		stores = app.Stores{
			Users: store, Sessions: store, Applications: store, Trials: store,
			Coaches: store, Teams: store, Documents: store,
		}
		ready = store.Ping
		log.Info("using postgres storage")
	} else {
		log.Warn("DATABASE_URL not set; using in-memory storage")
	}

	codeStore := codeStore(ctx, cfg.Codes.RedisURL, log)

	var notifier notify.Notifier
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.WebhookKey, log.Named("notify"))
	} else {
		log.Warn("NOTIFY_WEBHOOK_URL not set; verification codes are written to the log")
		notifier = notify.NewLogNotifier(log.Named("notify"))
	}

	blobs, err := blobStore(cfg.Storage)
	if err != nil {
		return err
	}

	application, err := app.New(stores, app.Options{
		Auth: auth.Config{
			Secret:          []byte(cfg.Auth.JWTSecret),
			Issuer:          cfg.Auth.Issuer,
			TokenTTL:        cfg.Auth.TokenTTL,
			SetupTokenTTL:   cfg.Auth.SetupTokenTTL,
			MaxFailedLogins: cfg.Auth.MaxFailedLogins,
			LockoutDuration: cfg.Auth.LockoutDuration,
			BcryptCost:      cfg.Auth.BcryptCost,
		},
		Codes:                codes.NewManager(codeStore, cfg.Codes.TTL, cfg.Codes.MaxAttempts),
		Notifier:             notifier,
		Blobs:                blobs,
		MaxUploadBytes:       cfg.Storage.MaxUploadBytes,
		HousekeepingSchedule: cfg.Housekeeping.Schedule,
	}, log)
	if err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(cfg.Auth.LoginRatePerSec, cfg.Auth.LoginRateBurst, log.Named("ratelimit"))
	application.Housekeeping.Add(housekeeping.Job{
		Name: "sweep-rate-limiters",
		Run: func(context.Context, time.Time) (int, error) {
			return limiter.Cleanup(limiterIdle), nil
		},
	})

	var sink httpapi.AuditSink
	if cfg.Audit.FilePath != "" {
		fileSink, err := httpapi.NewFileAuditSink(cfg.Audit.FilePath)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer fileSink.Close()
		sink = fileSink
	}

	handler := httpapi.NewHandler(application, httpapi.Config{
		CORSOrigins: cfg.Server.AllowedOrigins(),
		Limiter:     limiter,
		Audit:       httpapi.NewAuditLog(cfg.Audit.Capacity, sink, log.Named("audit")),
		Ready:       ready,
		Log:         log.Named("http"),
	})

	if err := application.Start(ctx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("listener failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Closing the hub first ends websocket streams so Shutdown can drain.
	application.Events.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application stop")
	}
	log.Info("stopped")
	return nil
}

// codeStore prefers redis and falls back to memory when it is unset or
// unreachable.
func codeStore(ctx context.Context, url string, log *logger.Logger) codes.Store {
	if url == "" {
		return codes.NewMemoryStore()
	}
	client, err := codes.OpenRedis(ctx, url)
	if err != nil {
		log.WithError(err).Warn("redis unavailable; verification codes kept in memory")
		return codes.NewMemoryStore()
	}
	log.Info("verification codes stored in redis")
	return codes.NewRedisStore(client)
}

func blobStore(cfg config.StorageConfig) (blob.Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "object":
		return blob.NewObjectStore(cfg.ObjectURL, cfg.ObjectBucket, cfg.ObjectKey), nil
	default:
		return blob.NewFSStore(cfg.Directory)
	}
}
