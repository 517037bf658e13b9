package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/alchemorsel-engine/backend/internal/model"
)

const downSuffix = ".down.sql"

// AutoMigrate creates or updates the engine's tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Recipe{},
		&model.RecipeIngredient{},
		&model.NutrientRecord{},
	); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return nil
}

// RunMigrations auto-migrates the schema and, on postgres, applies the SQL
// files in migrationsDir that have not been applied yet. A missing directory
// is not an error.
func RunMigrations(db *gorm.DB, migrationsDir string, log *zap.Logger) error {
	if err := AutoMigrate(db); err != nil {
		return err
	}
	if db.Dialector.Name() != "postgres" {
		log.Info("using gorm auto-migration only", zap.String("dialect", db.Dialector.Name()))
		return nil
	}

	entries, err := os.ReadDir(migrationsDir)
	if os.IsNotExist(err) {
		log.Info("no migrations directory, skipping SQL migrations", zap.String("dir", migrationsDir))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") && !strings.HasSuffix(e.Name(), downSuffix) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if err := ensureMigrationsTable(db); err != nil {
		return err
	}

	for _, name := range files {
		var count int64
		if err := db.Table("migrations").Where("name = ?", name).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if count > 0 {
			log.Debug("skipping migration, already applied", zap.String("name", name))
			continue
		}

		content, err := os.ReadFile(filepath.Join(migrationsDir, name))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(string(content)).Error; err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", name, err)
			}
			if err := tx.Exec("INSERT INTO migrations (name) VALUES (?)", name).Error; err != nil {
				return fmt.Errorf("failed to record migration %s: %w", name, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		log.Info("applied migration", zap.String("name", name))
	}
	return nil
}

// RollbackLast reverts the most recently applied SQL migration using its
// .down.sql companion file.
func RollbackLast(db *gorm.DB, migrationsDir string, log *zap.Logger) error {
	if err := ensureMigrationsTable(db); err != nil {
		return err
	}

	var last struct{ Name string }
	err := db.Table("migrations").Select("name").Order("applied_at DESC, id DESC").Limit(1).Scan(&last).Error
	if err != nil {
		return fmt.Errorf("failed to get last migration: %w", err)
	}
	if last.Name == "" {
		log.Info("no migrations to roll back")
		return nil
	}

	downFile := strings.TrimSuffix(last.Name, ".sql") + downSuffix
	content, err := os.ReadFile(filepath.Join(migrationsDir, downFile))
	if err != nil {
		return fmt.Errorf("failed to read rollback file %s: %w", downFile, err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(string(content)).Error; err != nil {
			return fmt.Errorf("failed to execute rollback %s: %w", downFile, err)
		}
		if err := tx.Exec("DELETE FROM migrations WHERE name = ?", last.Name).Error; err != nil {
			return fmt.Errorf("failed to remove migration record %s: %w", last.Name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Info("rolled back migration", zap.String("name", last.Name))
	return nil
}

func ensureMigrationsTable(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}
