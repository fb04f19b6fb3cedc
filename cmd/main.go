package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/golang-cz/devslog"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/kiterunner/internal/auth"
	"github.com/siahsang/kiterunner/internal/cache"
	"github.com/siahsang/kiterunner/internal/config"
	"github.com/siahsang/kiterunner/internal/core"
	"github.com/siahsang/kiterunner/internal/data"
	"github.com/siahsang/kiterunner/internal/database"
	"github.com/siahsang/kiterunner/internal/utils/databaseutils"
)

type application struct {
	config *config.Config
	logger *slog.Logger
	core   *core.Core
	// checks are the dependency probes reported by /healthz, keyed by name.
	checks map[string]func(context.Context) error
}

func main() {
	if err := run(); err != nil {
		slog.Error("application stopped", "error", xerrors.Sprint(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := configLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("Starting application...", "env", cfg.Env, "port", cfg.Port)

	ctx := context.Background()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", "error", err)
		}
	}()
	logger.Info("Database connection established successfully")

	if err := data.EnsureSchema(ctx, db); err != nil {
		return err
	}

	checks := map[string]func(context.Context) error{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}

	var opts []core.Option
	redisClient, err := cache.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, core.WithTagCache(cache.NewTagCache(redisClient, cfg.TagCacheTTL)))
		checks["redis"] = func(ctx context.Context) error { return cache.Ping(ctx, redisClient) }
		logger.Info("Tag cache enabled", "addr", cfg.RedisAddr)
	}

	tokens, err := auth.New(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return err
	}

	repos := data.NewModels(databaseutils.NewSQLTemplate(db, cfg.DBQueryTimeout))
	session := databaseutils.NewSession(db, logger)

	app := &application{
		config: cfg,
		logger: logger,
		core:   core.NewCore(repos, session, tokens, auth.BcryptHasher{Cost: cfg.BcryptCost}, logger, opts...),
		checks: checks,
	}

	return app.serve()
}

// configLogger uses the colored devslog handler locally and JSON in production.
func configLogger(cfg *config.Config) *slog.Logger {
	handlerOptions := &slog.HandlerOptions{
		AddSource: true,
		Level:     cfg.LogLevel,
	}

	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, handlerOptions))
	}

	handler := devslog.NewHandler(
		os.Stdout, &devslog.Options{
			HandlerOptions:  handlerOptions,
			NewLineAfterLog: false,
		})

	return slog.New(handler)
}
