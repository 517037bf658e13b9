package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/pageza/alchemorsel-engine/backend/config"
	"github.com/pageza/alchemorsel-engine/backend/internal/database"
	"github.com/pageza/alchemorsel-engine/backend/internal/logging"
)

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last SQL migration")
	migrationsDir := flag.String("dir", "migrations", "Directory holding the SQL migration files")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.New(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	if *rollback {
		if err := database.RollbackLast(db, *migrationsDir, logger); err != nil {
			logger.Fatal("rollback failed", zap.Error(err))
		}
		return
	}

	if err := database.RunMigrations(db, *migrationsDir, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("migrations completed")
}
