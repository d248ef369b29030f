// Command logging-service consumes operation-log messages and serves
// the audit trail.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/digitlabs/pm-sys/internal/logging/application"
	logginghttp "github.com/digitlabs/pm-sys/internal/logging/delivery/http"
	loggingpg "github.com/digitlabs/pm-sys/internal/logging/infrastructure/postgres"
	permclient "github.com/digitlabs/pm-sys/internal/permission/client"
	"github.com/digitlabs/pm-sys/internal/platform/config"
	"github.com/digitlabs/pm-sys/internal/platform/httpx"
	"github.com/digitlabs/pm-sys/internal/platform/mq"
	"github.com/digitlabs/pm-sys/internal/platform/postgres"
	"github.com/digitlabs/pm-sys/internal/platform/token"
	"github.com/digitlabs/pm-sys/internal/platform/tracing"
	"github.com/digitlabs/pm-sys/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("logging-service failed")
	}
}

func run() error {
	cfg, err := config.Load(config.Defaults{
		ServiceName: "logging-service",
		Port:        8083,
		DBName:      "logging_db",
		DBUser:      "logging_svc",
		DBPassword:  "logging_svc",
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Setup(cfg.App.Name, cfg.Logger.Level, cfg.Logger.Format)
	log.Info().
		Str("version", cfg.App.Version).
		Str("env", cfg.App.Env).
		Msg("Starting logging-service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := tracing.NewProvider(ctx, &cfg.Tracing, cfg.App.Name, cfg.App.Version)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Failed to shut down tracing")
		}
	}()

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(loggingpg.Migrations, loggingpg.MigrationsDir); err != nil {
		return err
	}

	broker, err := mq.NewClient(&cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer broker.Close()

	logs := loggingpg.NewLogRepository(db)
	recorder := application.NewRecorder(logs)
	perms := permclient.NewClient(&cfg.Services)
	tokens := token.NewManager(&cfg.JWT)

	consumerErr := make(chan error, 1)
	go func() {
		log.Info().Str("queue", cfg.RabbitMQ.Queue).Msg("Operation log consumer started")
		if err := broker.Consume(ctx, recorder.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
			consumerErr <- err
		}
	}()

	router := httpx.NewRouter(cfg.App.Name, cfg.App.Env, map[string]httpx.HealthCheck{
		"database": db.Health,
	})
	authed := router.Group("/", httpx.Auth(tokens))
	logginghttp.NewHandler(application.NewListLogsHandler(logs, perms)).Register(authed)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case err := <-consumerErr:
		return fmt.Errorf("consumer error: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}
