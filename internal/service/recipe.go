package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/alchemorsel-engine/backend/internal/model"
	apperrors "github.com/pageza/alchemorsel-engine/backend/pkg/errors"
)

// RecipeRepository reads recipes and nutrient records through gorm.
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository creates a new RecipeRepository instance
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// ListRecipes returns every recipe in corpus order with ingredients in
// recipe order.
func (r *RecipeRepository) ListRecipes(ctx context.Context) ([]*model.Recipe, error) {
	var recipes []*model.Recipe
	err := r.db.WithContext(ctx).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Order("created_at ASC, id ASC").
		Find(&recipes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, nil
}

// GetRecipe retrieves a recipe by ID
func (r *RecipeRepository) GetRecipe(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	var recipe model.Recipe
	err := r.db.WithContext(ctx).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		First(&recipe, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("recipe %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe %s: %w", id, err)
	}
	return &recipe, nil
}

// SaveNutrition writes back the cached summary columns only.
func (r *RecipeRepository) SaveNutrition(ctx context.Context, id uuid.UUID, summary model.NutritionSummary, version string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Recipe{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"nutrition_calories":            summary.Calories,
			"nutrition_protein":             summary.Protein,
			"nutrition_carbs":               summary.Carbs,
			"nutrition_fats":                summary.Fats,
			"nutrition_calculated":          summary.Calculated,
			"nutrition_ingredients_matched": summary.IngredientsMatched,
			"nutrition_total_ingredients":   summary.TotalIngredients,
			"nutrition_table_version":       version,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save nutrition for recipe %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("recipe %s not found", id))
	}
	return nil
}

// CreateRecipe stores a recipe with its ingredients. Ingredient positions
// follow slice order.
func (r *RecipeRepository) CreateRecipe(ctx context.Context, recipe *model.Recipe) error {
	for i := range recipe.Ingredients {
		recipe.Ingredients[i].Position = i
	}
	if err := r.db.WithContext(ctx).Create(recipe).Error; err != nil {
		return fmt.Errorf("failed to create recipe %q: %w", recipe.Name, err)
	}
	return nil
}

// UpsertNutrientRecords inserts records, replacing values for existing keys.
func (r *RecipeRepository) UpsertNutrientRecords(ctx context.Context, records []model.NutrientRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"reference_amount", "reference_unit", "density", "calories", "protein", "carbs", "fat",
			}),
		}).
		Create(&records).Error
	if err != nil {
		return fmt.Errorf("failed to upsert nutrient records: %w", err)
	}
	return nil
}
