// internal/app/app.go

// Package app assembles the board from configuration. Shared by the server
// and the admin CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/gurkanbulca/kanboard/internal/cache"
	"github.com/gurkanbulca/kanboard/internal/config"
	"github.com/gurkanbulca/kanboard/internal/database"
	"github.com/gurkanbulca/kanboard/internal/repository"
	"github.com/gurkanbulca/kanboard/internal/service"
	"github.com/gurkanbulca/kanboard/pkg/auth"
)

// NewLogger returns a JSON logger in production and a text logger at debug
// level elsewhere.
func NewLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// BoardOptions maps the board policy onto service options.
func BoardOptions(cfg *config.Config, logger *slog.Logger) service.Options {
	opts := service.DefaultOptions()
	opts.SeedDefaultColumns = cfg.Board.SeedDefaultColumns
	opts.DefaultColumns = append([]string(nil), cfg.Board.DefaultColumns...)
	opts.DefaultDoneColumn = cfg.Board.DefaultDoneColumn
	opts.MaxRetries = cfg.Board.MaxRetries
	opts.DefaultActivityLimit = cfg.Board.DefaultActivityLimit
	opts.MaxActivityLimit = cfg.Board.MaxActivityLimit
	opts.Logger = logger
	return opts
}

// OpenStore opens the configured document store. The returned close
// function releases it.
func OpenStore(ctx context.Context, cfg *config.Config, migrate bool, logger *slog.Logger) (repository.Store, func() error, error) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("using in-memory store; data is lost on exit")
		return repository.NewMemoryStore(), func() error { return nil }, nil
	}

	db, err := database.Open(ctx, cfg.ToDatabaseConfig())
	if err != nil {
		return nil, nil, err
	}
	if migrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("schema migrated")
	}
	store := repository.NewPostgresStore(db)
	return store, store.Close, nil
}

// OpenCache connects the overview cache when Redis is enabled. A nil
// cache means the board runs uncached.
func OpenCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) *cache.OverviewCache {
	if !cfg.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	c := cache.NewOverviewCache(client, cfg.Redis.Prefix, cfg.Redis.TTL)
	if err := c.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, running without overview cache", "addr", cfg.Redis.Addr, "error", err)
		_ = c.Close()
		return nil
	}
	logger.Info("overview cache connected", "addr", cfg.Redis.Addr)
	return c
}

// Board bundles the assembled services.
type Board struct {
	Service *service.BoardService
	Auth    *service.AuthService
	Cache   *cache.OverviewCache // nil when uncached
	Logger  *slog.Logger
	close   []func() error
}

// Close releases the store and cache.
func (b *Board) Close() error {
	var firstErr error
	for i := len(b.close) - 1; i >= 0; i-- {
		if err := b.close[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Build wires the board service, auth service, store and cache from cfg.
func Build(ctx context.Context, cfg *config.Config, migrate bool, logger *slog.Logger) (*Board, error) {
	store, closeStore, err := OpenStore(ctx, cfg, migrate, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	b := &Board{Logger: logger, close: []func() error{closeStore}}

	opts := BoardOptions(cfg, logger)
	if c := OpenCache(ctx, cfg, logger); c != nil {
		opts.Cache = c
		b.Cache = c
		b.close = append(b.close, c.Close)
	}
	b.Service = service.NewBoardService(store, opts)

	tokenManager := auth.NewTokenManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenDuration,
		cfg.JWT.RefreshTokenDuration,
	)
	b.Auth = service.NewAuthService(b.Service, tokenManager, auth.NewPasswordManager(0))
	return b, nil
}
