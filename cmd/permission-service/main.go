// Command permission-service runs the role management API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/digitlabs/pm-sys/internal/oplog"
	"github.com/digitlabs/pm-sys/internal/permission/application"
	permhttp "github.com/digitlabs/pm-sys/internal/permission/delivery/http"
	permpg "github.com/digitlabs/pm-sys/internal/permission/infrastructure/postgres"
	permredis "github.com/digitlabs/pm-sys/internal/permission/infrastructure/redis"
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
		log.Fatal().Err(err).Msg("permission-service failed")
	}
}

func run() error {
	cfg, err := config.Load(config.Defaults{
		ServiceName: "permission-service",
		Port:        8082,
		DBName:      "permission_db",
		DBUser:      "permission_svc",
		DBPassword:  "permission_svc",
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Setup(cfg.App.Name, cfg.Logger.Level, cfg.Logger.Format)
	log.Info().
		Str("version", cfg.App.Version).
		Str("env", cfg.App.Env).
		Msg("Starting permission-service")

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

	if err := db.Migrate(permpg.Migrations, permpg.MigrationsDir); err != nil {
		return err
	}

	cache, err := permredis.NewRoleCache(&cfg.Redis)
	if err != nil {
		return err
	}
	defer cache.Close()

	broker, err := mq.NewClient(&cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer broker.Close()

	service := application.NewService(
		permpg.NewRoleRepository(db),
		permpg.NewBindingRepository(db),
		cache,
		oplog.NewPublisher(broker),
	)
	tokens := token.NewManager(&cfg.JWT)

	router := httpx.NewRouter(cfg.App.Name, cfg.App.Env, map[string]httpx.HealthCheck{
		"database": db.Health,
		"redis":    cache.Health,
	})
	internal := router.Group("/")
	authed := router.Group("/", httpx.Auth(tokens))
	permhttp.NewHandler(service).Register(internal, authed)

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
