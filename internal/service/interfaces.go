package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/pageza/alchemorsel-engine/backend/internal/corpus"
	"github.com/pageza/alchemorsel-engine/backend/internal/model"
	"github.com/pageza/alchemorsel-engine/backend/internal/types"
)

// IRecipeRepository is the read contract the engine needs from the recipe
// store, plus the single write it is allowed to make.
type IRecipeRepository interface {
	ListRecipes(ctx context.Context) ([]*model.Recipe, error)
	SaveNutrition(ctx context.Context, id uuid.UUID, summary model.NutritionSummary, version string) error
}

// INutritionCache caches summaries keyed by recipe id and summary version
// (table digest plus ingredient fingerprint). Get returns nil without error
// on a miss.
type INutritionCache interface {
	Get(ctx context.Context, recipeID uuid.UUID, version string) (*model.NutritionSummary, error)
	Set(ctx context.Context, recipeID uuid.UUID, version string, summary model.NutritionSummary) error
}

// IEngine defines the matching and nutrition operations served over HTTP.
type IEngine interface {
	Recommend(ctx context.Context, req *types.RecommendRequest) (*types.RecommendResponse, error)
	SearchByIngredients(ctx context.Context, req *types.RecommendRequest) (*types.RecommendResponse, error)
	Nutrition(ctx context.Context, recipeID uuid.UUID) (*types.NutritionResponse, error)
	FilterOptions(ctx context.Context) (*types.FilterOptionsResponse, error)
	ListRecipes(ctx context.Context, filters corpus.Filters) ([]*model.Recipe, error)
	GetRecipe(ctx context.Context, id uuid.UUID) (*model.Recipe, error)
	Rebuild(ctx context.Context) (*types.RebuildResponse, error)
	Status() types.EngineStatus
}
