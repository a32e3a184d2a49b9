// Package bootstrap wires the process-level dependencies shared by the
// server and the command-line tools.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"crowdfund/internal/cache"
	"crowdfund/internal/config"
	"crowdfund/internal/database"
	"crowdfund/internal/middleware"
	"crowdfund/internal/observability"
	"crowdfund/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedBuiltIns bool
}

// Runtime holds initialized process dependencies.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	// ShutdownTracing flushes spans; it is never nil.
	ShutdownTracing func(context.Context) error
}

// InitRuntime configures logging and tracing, connects to DB and Redis, makes
// sure the sentinel category exists and optionally seeds built-in categories.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	middleware.InitLogger(cfg.Env, os.Stdout)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "crowdfund-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := PrepareSentinel(ctx, cfg, db); err != nil {
		return nil, err
	}

	if opts.SeedBuiltIns {
		items, err := seed.BuiltInCategories()
		if err != nil {
			return nil, err
		}
		if _, err := seed.Categories(db, items); err != nil {
			return nil, fmt.Errorf("failed to seed built-in categories: %w", err)
		}
		cache.Invalidate(ctx, r, cache.CategoryListKey)
	}

	return &Runtime{DB: db, Redis: r, ShutdownTracing: shutdownTracing}, nil
}

// PrepareSentinel creates the sentinel category when bootstrapping is enabled
// and otherwise refuses to continue without it.
func PrepareSentinel(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg.SentinelCategory == "" {
		return fmt.Errorf("SENTINEL_CATEGORY must be set")
	}

	if cfg.BootstrapSentinel {
		if _, err := database.EnsureSentinelCategory(ctx, db, cfg.SentinelCategory); err != nil {
			return fmt.Errorf("failed to bootstrap sentinel category: %w", err)
		}
		return nil
	}

	if _, err := database.VerifySentinelCategory(ctx, db, cfg.SentinelCategory); err != nil {
		middleware.Logger.ErrorContext(ctx, "sentinel category missing",
			slog.String("name", cfg.SentinelCategory),
		)
		return fmt.Errorf("refusing to start: %w", err)
	}
	return nil
}
