package testhelpers

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/pageza/alchemorsel-engine/backend/internal/corpus"
	"github.com/pageza/alchemorsel-engine/backend/internal/model"
	"github.com/pageza/alchemorsel-engine/backend/internal/types"
)

// MockEngine is a mock implementation of the IEngine interface
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Recommend(ctx context.Context, req *types.RecommendRequest) (*types.RecommendResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RecommendResponse), args.Error(1)
}

func (m *MockEngine) SearchByIngredients(ctx context.Context, req *types.RecommendRequest) (*types.RecommendResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RecommendResponse), args.Error(1)
}

func (m *MockEngine) Nutrition(ctx context.Context, recipeID uuid.UUID) (*types.NutritionResponse, error) {
	args := m.Called(ctx, recipeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.NutritionResponse), args.Error(1)
}

func (m *MockEngine) FilterOptions(ctx context.Context) (*types.FilterOptionsResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.FilterOptionsResponse), args.Error(1)
}

func (m *MockEngine) ListRecipes(ctx context.Context, filters corpus.Filters) ([]*model.Recipe, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Recipe), args.Error(1)
}

func (m *MockEngine) GetRecipe(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Recipe), args.Error(1)
}

func (m *MockEngine) Rebuild(ctx context.Context) (*types.RebuildResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RebuildResponse), args.Error(1)
}

func (m *MockEngine) Status() types.EngineStatus {
	args := m.Called()
	return args.Get(0).(types.EngineStatus)
}

// MockRecipeRepository is a mock implementation of the IRecipeRepository interface
type MockRecipeRepository struct {
	mock.Mock
}

func (m *MockRecipeRepository) ListRecipes(ctx context.Context) ([]*model.Recipe, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Recipe), args.Error(1)
}

func (m *MockRecipeRepository) SaveNutrition(ctx context.Context, id uuid.UUID, summary model.NutritionSummary, version string) error {
	args := m.Called(ctx, id, summary, version)
	return args.Error(0)
}

// MockNutritionCache is a mock implementation of the INutritionCache interface
type MockNutritionCache struct {
	mock.Mock
}

func (m *MockNutritionCache) Get(ctx context.Context, recipeID uuid.UUID, version string) (*model.NutritionSummary, error) {
	args := m.Called(ctx, recipeID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NutritionSummary), args.Error(1)
}

func (m *MockNutritionCache) Set(ctx context.Context, recipeID uuid.UUID, version string, summary model.NutritionSummary) error {
	args := m.Called(ctx, recipeID, version, summary)
	return args.Error(0)
}

// MockNutrientSource is a mock implementation of nutrition.Source
type MockNutrientSource struct {
	mock.Mock
}

func (m *MockNutrientSource) Name() string {
	return "mock"
}

func (m *MockNutrientSource) Load(ctx context.Context) ([]model.NutrientRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.NutrientRecord), args.Error(1)
}
