package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/alchemorsel-engine/backend/config"
	"github.com/pageza/alchemorsel-engine/backend/internal/database"
	"github.com/pageza/alchemorsel-engine/backend/internal/logging"
	"github.com/pageza/alchemorsel-engine/backend/internal/model"
	"github.com/pageza/alchemorsel-engine/backend/internal/nutrition"
	"github.com/pageza/alchemorsel-engine/backend/internal/service"
)

// flag values shared by the subcommands
var (
	recipesPath   string
	nutrientsPath string
	objectKey     string
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "seed_recipes",
		Short:         "Load recipe and nutrient fixtures for the matching engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	recipes := &cobra.Command{
		Use:   "recipes",
		Short: "Insert recipes from a JSON fixture",
		RunE:  runRecipesCommand,
	}
	recipes.Flags().StringVar(&recipesPath, "file", filepath.Join("data", "recipes.json"), "recipe fixture")

	nutrients := &cobra.Command{
		Use:   "nutrients",
		Short: "Upsert nutrient reference records from a JSON or YAML fixture",
		RunE:  runNutrientsCommand,
	}
	nutrients.Flags().StringVar(&nutrientsPath, "file", filepath.Join("data", "nutrients.json"), "nutrient fixture")

	upload := &cobra.Command{
		Use:   "upload-nutrients",
		Short: "Upload the nutrient fixture to the configured S3 bucket",
		RunE:  runUploadCommand,
	}
	upload.Flags().StringVar(&nutrientsPath, "file", filepath.Join("data", "nutrients.json"), "nutrient fixture")
	upload.Flags().StringVar(&objectKey, "key", "", "object key (defaults to storage.nutrient_key)")

	root.AddCommand(recipes, nutrients, upload)
	return root
}

type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

func setup(ctx context.Context, withDB bool) (*env, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	e := &env{cfg: cfg, logger: logger}
	cleanup := func() { _ = logger.Sync() }
	if !withDB {
		return e, cleanup, nil
	}

	db, err := database.New(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}
	e.db = db
	return e, func() {
		_ = database.Close(db)
		cleanup()
	}, nil
}

func runRecipesCommand(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, cleanup, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	recipes, err := loadRecipes(recipesPath)
	if err != nil {
		return err
	}
	n, err := seedRecipes(ctx, service.NewRecipeRepository(e.db), recipes)
	if err != nil {
		return err
	}
	e.logger.Info("recipes seeded", zap.Int("created", n), zap.Int("in_file", len(recipes)))
	return nil
}

func runNutrientsCommand(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, cleanup, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := nutrition.NewFileSource(nutrientsPath).Load(ctx)
	if err != nil {
		return err
	}
	if err := service.NewRecipeRepository(e.db).UpsertNutrientRecords(ctx, records); err != nil {
		return err
	}
	e.logger.Info("nutrient records upserted", zap.Int("records", len(records)))
	return nil
}

func runUploadCommand(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	e, cleanup, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer cleanup()

	data, err := os.ReadFile(nutrientsPath)
	if err != nil {
		return fmt.Errorf("failed to read nutrient fixture: %w", err)
	}
	// refuse to publish a table the engine could not decode
	records, err := nutrition.DecodeRecords(nutrientsPath, data)
	if err != nil {
		return err
	}

	key := objectKey
	if key == "" {
		key = e.cfg.Storage.NutrientKey
	}
	store, err := config.NewS3Config(ctx, e.cfg.Storage)
	if err != nil {
		return err
	}
	if err := store.PutObject(ctx, key, data, contentTypeFor(nutrientsPath)); err != nil {
		return err
	}
	e.logger.Info("nutrient table uploaded",
		zap.String("bucket", store.BucketName),
		zap.String("key", key),
		zap.Int("records", len(records)),
	)
	return nil
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		return "application/json"
	}
}

// recipeRepository is the part of service.RecipeRepository the seeder needs.
type recipeRepository interface {
	ListRecipes(ctx context.Context) ([]*model.Recipe, error)
	CreateRecipe(ctx context.Context, recipe *model.Recipe) error
}

func loadRecipes(path string) ([]*model.Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe fixture: %w", err)
	}
	var recipes []*model.Recipe
	if err := json.Unmarshal(data, &recipes); err != nil {
		return nil, fmt.Errorf("failed to parse recipe fixture %s: %w", path, err)
	}
	return recipes, nil
}

// seedRecipes creates the recipes whose name is not stored yet, in file order.
func seedRecipes(ctx context.Context, repo recipeRepository, recipes []*model.Recipe) (int, error) {
	existing, err := repo.ListRecipes(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.Name] = true
	}

	base := time.Now().UTC()
	created := 0
	for i, r := range recipes {
		if r == nil || r.Name == "" || seen[r.Name] {
			continue
		}
		// distinct timestamps keep corpus order equal to file order
		r.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		if err := repo.CreateRecipe(ctx, r); err != nil {
			return created, err
		}
		seen[r.Name] = true
		created++
	}
	return created, nil
}
