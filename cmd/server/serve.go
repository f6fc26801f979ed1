package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/iliyamo/tripmate/internal/config"
	"github.com/iliyamo/tripmate/internal/database"
	"github.com/iliyamo/tripmate/internal/handler"
	"github.com/iliyamo/tripmate/internal/logging"
	"github.com/iliyamo/tripmate/internal/metrics"
	"github.com/iliyamo/tripmate/internal/queue"
	"github.com/iliyamo/tripmate/internal/recommend"
	"github.com/iliyamo/tripmate/internal/repository"
	"github.com/iliyamo/tripmate/internal/router"
	"github.com/iliyamo/tripmate/internal/service"
	"github.com/iliyamo/tripmate/internal/token"
	"github.com/iliyamo/tripmate/internal/tracing"
)

const shutdownTimeout = 10 * time.Second

var skipMigrations bool

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE:  runServe,
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on startup")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.Setup("tripmate", version, cfg.LogFormat, nil)
	slog.SetDefault(logger)
	shutdownTracing := tracing.Setup("tripmate", version)
	defer func() { _ = shutdownTracing(context.Background()) }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer func() { _ = db.Close() }()
	if !skipMigrations {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	tokens, err := token.NewService(token.Config{
		AccessSecret:  cfg.Token.AccessSecret,
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshSecret: cfg.Token.RefreshSecret,
		RefreshTTL:    cfg.Token.RefreshTTL,
	})
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unreachable, response cache disabled", "addr", cfg.Redis.Addr, "error", err)
	} else {
		defer func() { _ = rdb.Close() }()
	}

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.AMQPURL != "" {
		events = queue.NewAMQPPublisher(cfg.AMQPURL, logger)
	}

	var gen recommend.Generator
	gen, err = recommend.NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		logger.Warn("recommendations unavailable", "error", err)
		gen = recommend.Unavailable{Reason: err}
	}

	users := repository.NewUserRepo(db, cfg.BcryptCost)
	auth := service.NewAuthService(users, tokens, events, m, logger)

	e := router.New(router.Deps{
		Config:    cfg,
		Auth:      handler.NewAuthHandler(auth, cfg.HTTP),
		Recommend: handler.NewRecommendHandler(recommend.NewService(gen, logger)),
		Tokens:    tokens,
		Users:     users,
		Redis:     rdb,
		DB:        db,
		Metrics:   m,
		Logger:    logger,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return oops.Code("SERVER_FAILED").Wrap(err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
