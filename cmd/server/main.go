package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/userimport/internal/cache"
	"github.com/JonMunkholm/userimport/internal/config"
	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/logging"
	"github.com/JonMunkholm/userimport/internal/metrics"
	"github.com/JonMunkholm/userimport/internal/store/memory"
	"github.com/JonMunkholm/userimport/internal/store/postgres"
	"github.com/JonMunkholm/userimport/internal/web"
)

func main() {
	// Load .env file if it exists; real environment variables win.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		slog.Error("failed to open user store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	var statsCache core.StatsCache
	if cfg.Cache.Enabled {
		client, err := cache.Connect(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			slog.Warn("stats cache disabled", "error", err)
		} else {
			defer func(c *redis.Client) { _ = c.Close() }(client)
			statsCache = cache.NewStatsCache(client, cfg.Cache.StatsTTL)
			slog.Info("stats cache enabled", "addr", cfg.Cache.RedisAddr)
		}
	}

	loc, err := cfg.Export.Location()
	if err != nil {
		slog.Error("invalid export timezone", "error", err)
		os.Exit(1)
	}

	hasher := core.NewBcryptHasher(cfg.Auth.BcryptCost)
	server := web.NewServer(cfg, web.Deps{
		Importer: core.NewImporter(repo, hasher, core.DefaultAliases()),
		Exporter: core.NewExporter(repo, loc),
		Users:    core.NewUserService(repo, hasher, statsCache),
		Limiter:  core.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		Metrics:  metrics.New(),
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openRepository returns the configured user store and a func releasing it.
func openRepository(ctx context.Context, cfg *config.Config) (core.UserRepository, func(), error) {
	if strings.EqualFold(cfg.Store.Driver, "memory") {
		slog.Warn("using in-memory user store; data is lost on restart")
		return memory.New(), func() {}, nil
	}

	pool, err := postgres.Connect(ctx, cfg.Database.URL, postgres.PoolConfig{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return nil, nil, err
	}

	if cfg.Store.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("database migrations applied")
	}

	slog.Info("connected to database")
	return postgres.New(pool), pool.Close, nil
}
