// Command user-service runs the account and listing API.
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
	permclient "github.com/digitlabs/pm-sys/internal/permission/client"
	"github.com/digitlabs/pm-sys/internal/platform/config"
	"github.com/digitlabs/pm-sys/internal/platform/httpx"
	"github.com/digitlabs/pm-sys/internal/platform/mq"
	"github.com/digitlabs/pm-sys/internal/platform/postgres"
	"github.com/digitlabs/pm-sys/internal/platform/token"
	"github.com/digitlabs/pm-sys/internal/platform/tracing"
	"github.com/digitlabs/pm-sys/internal/user/application"
	userhttp "github.com/digitlabs/pm-sys/internal/user/delivery/http"
	"github.com/digitlabs/pm-sys/internal/user/infrastructure/id"
	"github.com/digitlabs/pm-sys/internal/user/infrastructure/password"
	userpg "github.com/digitlabs/pm-sys/internal/user/infrastructure/postgres"
	"github.com/digitlabs/pm-sys/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("user-service failed")
	}
}

func run() error {
	cfg, err := config.Load(config.Defaults{
		ServiceName: "user-service",
		Port:        8081,
		DBName:      "user_db",
		DBUser:      "user_svc",
		DBPassword:  "user_svc",
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Setup(cfg.App.Name, cfg.Logger.Level, cfg.Logger.Format)
	log.Info().
		Str("version", cfg.App.Version).
		Str("env", cfg.App.Env).
		Msg("Starting user-service")

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

	if err := db.Migrate(userpg.Migrations, userpg.MigrationsDir); err != nil {
		return err
	}

	broker, err := mq.NewClient(&cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer broker.Close()

	ids, err := id.NewGenerator(cfg.App.NodeID)
	if err != nil {
		return err
	}

	users := userpg.NewUserRepository(db)
	perms := application.GuardPermissionClient(permclient.NewClient(&cfg.Services))
	hasher := password.NewHasher(0)
	tokens := token.NewManager(&cfg.JWT)
	auditPublisher := oplog.NewPublisher(broker)

	if err := application.EnsureSuperAdmin(ctx, users, perms, hasher, ids); err != nil {
		// The permission service may come up later; the bootstrap
		// retries on next start.
		log.Warn().Err(err).Msg("Super admin bootstrap incomplete")
	}

	handler := userhttp.NewHandler(
		application.NewRegisterHandler(users, perms, hasher, ids, auditPublisher),
		application.NewLoginHandler(users, hasher, tokens, auditPublisher),
		application.NewProfileHandler(users, perms, auditPublisher),
		application.NewPasswordHandler(users, perms, hasher, auditPublisher),
		application.NewListUsersHandler(users, perms),
	)

	router := httpx.NewRouter(cfg.App.Name, cfg.App.Env, map[string]httpx.HealthCheck{
		"database": db.Health,
	})
	public := router.Group("/")
	authed := router.Group("/", httpx.Auth(tokens))
	handler.Register(public, authed)

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
