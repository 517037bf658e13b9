package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/alchemorsel-engine/backend/config"
	"github.com/pageza/alchemorsel-engine/backend/internal/database"
	"github.com/pageza/alchemorsel-engine/backend/internal/logging"
	"github.com/pageza/alchemorsel-engine/backend/internal/middleware"
	"github.com/pageza/alchemorsel-engine/backend/internal/normalize"
	"github.com/pageza/alchemorsel-engine/backend/internal/nutrition"
	"github.com/pageza/alchemorsel-engine/backend/internal/router"
	"github.com/pageza/alchemorsel-engine/backend/internal/scoring"
	"github.com/pageza/alchemorsel-engine/backend/internal/server"
	"github.com/pageza/alchemorsel-engine/backend/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting alchemorsel engine", zap.String("env", string(cfg.Env)))
	if cfg.Env.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.New(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	var cache service.INutritionCache
	var limiter middleware.Limiter
	limitCfg := middleware.RateLimitConfig{
		Window:    cfg.RateLimit.Window,
		Limit:     cfg.RateLimit.Requests,
		KeyPrefix: "ratelimit",
	}
	if cfg.Redis.Enabled {
		client, err := database.NewRedisClient(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("redis unavailable, continuing without nutrition cache", zap.Error(err))
		} else {
			defer func() { _ = client.Close() }()
			cache = service.NewRedisNutritionCache(client, cfg.Redis.TTL)
			if cfg.RateLimit.Enabled {
				limiter = middleware.NewRedisLimiter(client, limitCfg)
			}
		}
	}
	if cfg.RateLimit.Enabled && limiter == nil {
		limiter = middleware.NewMemoryLimiter(limitCfg)
	}

	normalizer, err := newNormalizer(cfg.Engine.AliasTablePath)
	if err != nil {
		return err
	}
	logger.Info("ingredient normalizer ready", zap.String("alias_version", normalizer.Version()))

	source, err := newNutrientSource(ctx, cfg, db)
	if err != nil {
		return err
	}

	engine, err := service.NewEngine(
		service.NewRecipeRepository(db),
		source,
		cache,
		normalizer,
		service.EngineConfig{
			Weights: scoring.Weights{
				Recipe: cfg.Engine.HybridWeights.Recipe,
				Query:  cfg.Engine.HybridWeights.Query,
			},
			FuzzyThreshold: cfg.Engine.FuzzyThreshold,
			DefaultTopK:    cfg.Engine.DefaultTopK,
		},
		logger,
	)
	if err != nil {
		return err
	}

	// The server starts even when the first build fails; queries answer 503
	// until a later rebuild succeeds.
	if _, err := engine.Rebuild(ctx); err != nil {
		logger.Error("initial snapshot build failed", zap.Error(err))
	}
	if cfg.Engine.RebuildInterval > 0 {
		go engine.RunPeriodicRebuild(ctx, cfg.Engine.RebuildInterval)
	}

	handler := router.SetupRouter(engine, router.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AdminToken:     cfg.Server.AdminToken,
		Limiter:        limiter,
		RateLimit:      cfg.RateLimit.Requests,
		Logger:         logger,
	})
	return server.New(cfg.Server, handler, logger).Run(ctx)
}

func newNormalizer(aliasPath string) (*normalize.Normalizer, error) {
	if aliasPath == "" {
		return normalize.NewDefault()
	}
	table, err := normalize.LoadAliasTable(aliasPath)
	if err != nil {
		return nil, err
	}
	return normalize.New(table)
}

func newNutrientSource(ctx context.Context, cfg *config.Config, db *gorm.DB) (nutrition.Source, error) {
	switch cfg.Engine.NutrientSource {
	case config.NutrientSourceDatabase, "":
		return nutrition.NewDBSource(db), nil
	case config.NutrientSourceFile:
		return nutrition.NewFileSource(cfg.Engine.NutrientFile), nil
	case config.NutrientSourceS3:
		store, err := config.NewS3Config(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		return nutrition.NewS3Source(store, cfg.Storage.NutrientKey), nil
	default:
		return nil, fmt.Errorf("unknown nutrient source %q", cfg.Engine.NutrientSource)
	}
}
