package service_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/alchemorsel-engine/backend/internal/corpus"
	"github.com/pageza/alchemorsel-engine/backend/internal/model"
	"github.com/pageza/alchemorsel-engine/backend/internal/normalize"
	"github.com/pageza/alchemorsel-engine/backend/internal/nutrition"
	"github.com/pageza/alchemorsel-engine/backend/internal/service"
	"github.com/pageza/alchemorsel-engine/backend/internal/testhelpers"
	"github.com/pageza/alchemorsel-engine/backend/internal/types"
	apperrors "github.com/pageza/alchemorsel-engine/backend/pkg/errors"
)

// memoryCache is an in-process INutritionCache.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]model.NutritionSummary
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]model.NutritionSummary)}
}

func (c *memoryCache) Get(_ context.Context, id uuid.UUID, version string) (*model.NutritionSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[id.String()+":"+version]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (c *memoryCache) Set(_ context.Context, id uuid.UUID, version string, s model.NutritionSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id.String()+":"+version] = s
	c.sets++
	return nil
}

type engineFixture struct {
	db     *gorm.DB
	engine *service.Engine
	repo   *service.RecipeRepository
	cache  *memoryCache
}

func newNormalizer(t *testing.T) *normalize.Normalizer {
	t.Helper()
	n, err := normalize.NewDefault()
	require.NoError(t, err)
	return n
}

// newEngineFixture seeds the sample corpus into sqlite and builds the first snapshots.
func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	db := testhelpers.SetupSQLiteDB(t)
	testhelpers.SeedRecipes(t, db, testhelpers.SampleRecipes())
	testhelpers.SeedNutrients(t, db, testhelpers.SampleNutrients())

	repo := service.NewRecipeRepository(db)
	cache := newMemoryCache()
	engine, err := service.NewEngine(repo, nutrition.NewDBSource(db), cache, newNormalizer(t), service.DefaultEngineConfig(), zap.NewNop())
	require.NoError(t, err)

	_, err = engine.Rebuild(context.Background())
	require.NoError(t, err)
	return &engineFixture{db: db, engine: engine, repo: repo, cache: cache}
}

func names(t *testing.T, resp *types.RecommendResponse) []string {
	t.Helper()
	out := make([]string, len(resp.Recipes))
	for i, r := range resp.Recipes {
		out[i] = r.Name
	}
	return out
}

func ingredients(raw ...string) []types.IngredientInput {
	out := make([]types.IngredientInput, len(raw))
	for i, r := range raw {
		out[i] = types.IngredientInput{Name: r}
	}
	return out
}

func TestRecommendRanksByHybridScore(t *testing.T) {
	f := newEngineFixture(t)

	resp, err := f.engine.Recommend(context.Background(), &types.RecommendRequest{
		Ingredients: ingredients("Tomatoes", "onions", "garlic"),
	})
	require.NoError(t, err)

	assert.Equal(t, "hybrid", resp.Method)
	assert.Equal(t, []string{"tomato", "onion", "garlic"}, resp.SearchedIngredients)
	assert.Equal(t, []string{"Tomato Salsa", "Garlic Butter Eggs", "Pancakes"}, names(t, resp))
	assert.Equal(t, 3, resp.Count)

	top := resp.Recipes[0]
	assert.Equal(t, testhelpers.SalsaID, top.RecipeID)
	assert.InDelta(t, 1.0, top.MatchScore, 1e-9)
	assert.InDelta(t, 1.0, top.HybridScore, 1e-9)
	assert.Equal(t, 3, top.MatchedCount)
	assert.Empty(t, top.MissingIngredients)
}

func TestRecommendExactAndHybridScores(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	exact, err := f.engine.Recommend(ctx, &types.RecommendRequest{Ingredients: ingredients("egg"), Method: "exact"})
	require.NoError(t, err)
	assert.Equal(t, "exact", exact.Method)
	assert.Equal(t, []string{"Pancakes", "Garlic Butter Eggs", "Tomato Salsa"}, names(t, exact))
	assert.InDelta(t, 1.0/3, exact.Recipes[0].MatchScore, 1e-9)
	assert.InDelta(t, 0.25, exact.Recipes[1].MatchScore, 1e-9)

	hybrid, err := f.engine.Recommend(ctx, &types.RecommendRequest{Ingredients: ingredients("egg")})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, hybrid.Recipes[0].HybridScore, 1e-9)
	assert.InDelta(t, 0.55, hybrid.Recipes[1].HybridScore, 1e-9)
}

func TestRecommendContentAndIngredientMethods(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	content, err := f.engine.Recommend(ctx, &types.RecommendRequest{Ingredients: ingredients("egg"), Method: "content"})
	require.NoError(t, err)
	assert.Equal(t, "content", content.Method)
	assert.Equal(t, []string{"Pancakes", "Garlic Butter Eggs", "Tomato Salsa"}, names(t, content))
	assert.InDelta(t, 1/math.Sqrt(3), content.Recipes[0].ContentScore, 1e-9)
	assert.InDelta(t, 0.5, content.Recipes[1].ContentScore, 1e-9)
	assert.Zero(t, content.Recipes[2].ContentScore)

	ingredient, err := f.engine.Recommend(ctx, &types.RecommendRequest{Ingredients: ingredients("egg"), Method: "ingredient"})
	require.NoError(t, err)
	assert.Equal(t, "exact", ingredient.Method)
	assert.Equal(t, []string{"Pancakes", "Garlic Butter Eggs", "Tomato Salsa"}, names(t, ingredient))
}

func TestRecommendIgnoresConfidence(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	withConfidence := func(c float64) []types.IngredientInput {
		out := ingredients("Tomatoes", "egg", "butter", "flour")
		for i := range out {
			out[i].Confidence = &c
		}
		return out
	}

	for _, method := range []string{"hybrid", "exact", "content"} {
		low, err := f.engine.Recommend(ctx, &types.RecommendRequest{Ingredients: withConfidence(0.05), Method: method})
		require.NoError(t, err)
		high, err := f.engine.Recommend(ctx, &types.RecommendRequest{Ingredients: withConfidence(1.0), Method: method})
		require.NoError(t, err)
		bare, err := f.engine.Recommend(ctx, &types.RecommendRequest{Ingredients: ingredients("Tomatoes", "egg", "butter", "flour"), Method: method})
		require.NoError(t, err)

		assert.Equal(t, low.Recipes, high.Recipes, method)
		assert.Equal(t, bare.Recipes, high.Recipes, method)
	}
}

func TestRecommendAppliesFiltersMinScoreAndTopK(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	resp, err := f.engine.Recommend(ctx, &types.RecommendRequest{
		Ingredients: ingredients("egg"),
		Filters:     &types.FilterInput{DietaryType: "VEGETARIAN", MaxTimeMinutes: 20},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Garlic Butter Eggs"}, names(t, resp))

	resp, err = f.engine.Recommend(ctx, &types.RecommendRequest{Ingredients: ingredients("egg"), MinScore: 0.56})
	require.NoError(t, err)
	assert.Equal(t, []string{"Pancakes"}, names(t, resp))

	one := 1
	resp, err = f.engine.Recommend(ctx, &types.RecommendRequest{Ingredients: ingredients("garlic"), TopK: &one})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tomato Salsa"}, names(t, resp))
}

func TestRecommendEmptyQueryScoresZero(t *testing.T) {
	f := newEngineFixture(t)

	resp, err := f.engine.Recommend(context.Background(), &types.RecommendRequest{Ingredients: []types.IngredientInput{}})
	require.NoError(t, err)
	require.Len(t, resp.Recipes, 3)
	for _, r := range resp.Recipes {
		assert.Zero(t, r.HybridScore)
	}
	assert.Equal(t, []string{"Tomato Salsa", "Garlic Butter Eggs", "Pancakes"}, names(t, resp))
}

func TestRecommendRejectsInvalidOptions(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	tooMany := 101

	tests := []struct {
		name string
		req  *types.RecommendRequest
	}{
		{name: "missing ingredients", req: &types.RecommendRequest{Method: "hybrid"}},
		{name: "unknown method", req: &types.RecommendRequest{Ingredients: ingredients("egg"), Method: "cosine"}},
		{name: "min score above one", req: &types.RecommendRequest{Ingredients: ingredients("egg"), MinScore: 1.5}},
		{name: "top k too large", req: &types.RecommendRequest{Ingredients: ingredients("egg"), TopK: &tooMany}},
		{name: "negative max time", req: &types.RecommendRequest{Ingredients: ingredients("egg"), Filters: &types.FilterInput{MaxTimeMinutes: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Recommend(ctx, tt.req)
			assert.True(t, apperrors.IsValidation(err), "got %v", err)
		})
	}
}

func TestSearchByIngredientsRequiresAValidIngredient(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.engine.SearchByIngredients(ctx, &types.RecommendRequest{Ingredients: ingredients("  ", "(optional)")})
	assert.True(t, apperrors.IsValidation(err))

	resp, err := f.engine.SearchByIngredients(ctx, &types.RecommendRequest{Ingredients: ingredients("flour", "milk")})
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", resp.Recipes[0].Name)
}

func TestNutritionComputesWritesBackAndCaches(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	resp, err := f.engine.Nutrition(ctx, testhelpers.EggsID)
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.Equal(t, 1587.0, resp.Calories)
	assert.InDelta(t, 14.8, resp.Protein, 1e-9)
	assert.InDelta(t, 171.8, resp.Fats, 1e-9)
	assert.Equal(t, 3, resp.IngredientsMatched)
	assert.Equal(t, 4, resp.TotalIngredients)
	assert.NotEmpty(t, resp.TableVersion)

	stored, err := f.repo.GetRecipe(ctx, testhelpers.EggsID)
	require.NoError(t, err)
	assert.True(t, stored.Nutrition.Calculated)
	assert.Equal(t, 1587.0, stored.Nutrition.Calories)
	assert.Len(t, resp.IngredientsFingerprint, 16)
	assert.Equal(t, resp.TableVersion+"."+resp.IngredientsFingerprint, stored.NutritionTableVersion)
	assert.Equal(t, 1, f.cache.sets)

	again, err := f.engine.Nutrition(ctx, testhelpers.EggsID)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, resp.NutritionSummary, again.NutritionSummary)
}

func TestNutritionUsesPersistedSummaryForSameTable(t *testing.T) {
	db := testhelpers.SetupSQLiteDB(t)
	testhelpers.SeedRecipes(t, db, testhelpers.SampleRecipes())
	testhelpers.SeedNutrients(t, db, testhelpers.SampleNutrients())
	repo := service.NewRecipeRepository(db)
	ctx := context.Background()

	first, err := service.NewEngine(repo, nutrition.NewDBSource(db), nil, newNormalizer(t), service.DefaultEngineConfig(), zap.NewNop())
	require.NoError(t, err)
	_, err = first.Rebuild(ctx)
	require.NoError(t, err)
	computed, err := first.Nutrition(ctx, testhelpers.PancakesID)
	require.NoError(t, err)
	require.False(t, computed.Cached)

	// A fresh engine sees the written-back summary in its corpus snapshot.
	second, err := service.NewEngine(repo, nutrition.NewDBSource(db), nil, newNormalizer(t), service.DefaultEngineConfig(), zap.NewNop())
	require.NoError(t, err)
	_, err = second.Rebuild(ctx)
	require.NoError(t, err)
	persisted, err := second.Nutrition(ctx, testhelpers.PancakesID)
	require.NoError(t, err)
	assert.True(t, persisted.Cached)
	assert.Equal(t, computed.NutritionSummary, persisted.NutritionSummary)
	assert.Equal(t, 636.0, persisted.Calories)
}

func TestNutritionRecomputesAfterIngredientEdit(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	before, err := f.engine.Nutrition(ctx, testhelpers.EggsID)
	require.NoError(t, err)
	require.Equal(t, 4, before.TotalIngredients)

	// served from the cache until the corpus sees the edit
	require.NoError(t, f.db.Where("recipe_id = ? AND name = ?", testhelpers.EggsID, "unicorn dust").
		Delete(&model.RecipeIngredient{}).Error)
	_, err = f.engine.Rebuild(ctx)
	require.NoError(t, err)

	after, err := f.engine.Nutrition(ctx, testhelpers.EggsID)
	require.NoError(t, err)
	assert.False(t, after.Cached)
	assert.Equal(t, 3, after.TotalIngredients)
	assert.Equal(t, 3, after.IngredientsMatched)
	assert.Equal(t, before.TableVersion, after.TableVersion)
	assert.NotEqual(t, before.IngredientsFingerprint, after.IngredientsFingerprint)

	stored, err := f.repo.GetRecipe(ctx, testhelpers.EggsID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Nutrition.TotalIngredients)
	assert.Equal(t, after.TableVersion+"."+after.IngredientsFingerprint, stored.NutritionTableVersion)

	// an unchanged recipe keeps reusing its summary
	again, err := f.engine.Nutrition(ctx, testhelpers.EggsID)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, after.NutritionSummary, again.NutritionSummary)
}

func TestNutritionToleratesWriteBackAndCacheFailures(t *testing.T) {
	recipes := testhelpers.SampleRecipes()
	repo := new(testhelpers.MockRecipeRepository)
	repo.On("ListRecipes", mock.Anything).Return(recipes, nil)
	repo.On("SaveNutrition", mock.Anything, testhelpers.SalsaID, mock.Anything, mock.Anything).Return(errors.New("read-only replica"))

	source := new(testhelpers.MockNutrientSource)
	source.On("Load", mock.Anything).Return(testhelpers.SampleNutrients(), nil)

	cache := new(testhelpers.MockNutritionCache)
	cache.On("Get", mock.Anything, testhelpers.SalsaID, mock.Anything).Return(nil, errors.New("connection refused"))
	cache.On("Set", mock.Anything, testhelpers.SalsaID, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	engine, err := service.NewEngine(repo, source, cache, newNormalizer(t), service.DefaultEngineConfig(), zap.NewNop())
	require.NoError(t, err)
	_, err = engine.Rebuild(context.Background())
	require.NoError(t, err)

	resp, err := engine.Nutrition(context.Background(), testhelpers.SalsaID)
	require.NoError(t, err)
	// 3 tomatoes, 1 onion, 2 garlic cloves
	assert.Equal(t, 119.0, resp.Calories)
	assert.Equal(t, 3, resp.IngredientsMatched)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestNutritionUnknownRecipe(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Nutrition(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestQueriesFailBeforeFirstRebuild(t *testing.T) {
	repo := new(testhelpers.MockRecipeRepository)
	source := new(testhelpers.MockNutrientSource)
	engine, err := service.NewEngine(repo, source, nil, newNormalizer(t), service.DefaultEngineConfig(), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = engine.Recommend(ctx, &types.RecommendRequest{Ingredients: ingredients("egg")})
	assert.True(t, apperrors.IsIndexUnavailable(err))
	_, err = engine.Nutrition(ctx, testhelpers.SalsaID)
	assert.True(t, apperrors.IsIndexUnavailable(err))
	_, err = engine.FilterOptions(ctx)
	assert.True(t, apperrors.IsIndexUnavailable(err))
	assert.False(t, engine.Status().Ready)
}

func TestRebuildFailureKeepsPreviousSnapshot(t *testing.T) {
	recipes := testhelpers.SampleRecipes()
	repo := new(testhelpers.MockRecipeRepository)
	repo.On("ListRecipes", mock.Anything).Return(recipes, nil).Once()
	repo.On("ListRecipes", mock.Anything).Return(nil, errors.New("database is down")).Once()

	source := new(testhelpers.MockNutrientSource)
	source.On("Load", mock.Anything).Return(testhelpers.SampleNutrients(), nil)

	engine, err := service.NewEngine(repo, source, nil, newNormalizer(t), service.DefaultEngineConfig(), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := engine.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.CorpusVersion)
	assert.Equal(t, 3, first.Recipes)

	_, err = engine.Rebuild(ctx)
	assert.Equal(t, apperrors.ErrorTypeInternal, apperrors.TypeOf(err))

	status := engine.Status()
	assert.True(t, status.Ready)
	assert.Equal(t, uint64(1), status.CorpusVersion)
	assert.Equal(t, uint64(2), status.NutrientVersion)
	assert.Equal(t, nutrition.DefaultFuzzyThreshold, status.FuzzyThreshold)
	assert.Equal(t, "2024.06.1", status.AliasVersion)

	resp, err := engine.Recommend(ctx, &types.RecommendRequest{Ingredients: ingredients("tomato")})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), resp.SnapshotVersion)
}

func TestFilterOptionsAndListRecipes(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	opts, err := f.engine.FilterOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"American", "French", "Mexican"}, opts.Cuisines)
	assert.Equal(t, []string{"vegan", "vegetarian"}, opts.DietaryTypes)

	recipes, err := f.engine.ListRecipes(ctx, corpus.Filters{Cuisine: "mexican"})
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, testhelpers.SalsaID, recipes[0].ID)

	recipes, err = f.engine.ListRecipes(ctx, corpus.Filters{MaxTimeMinutes: 15})
	require.NoError(t, err)
	assert.Len(t, recipes, 2)

	_, err = f.engine.ListRecipes(ctx, corpus.Filters{MaxTimeMinutes: -5})
	assert.True(t, apperrors.IsValidation(err))

	recipe, err := f.engine.GetRecipe(ctx, testhelpers.PancakesID)
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", recipe.Name)
	_, err = f.engine.GetRecipe(ctx, uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestConcurrentRebuildsShareWork(t *testing.T) {
	f := newEngineFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Rebuild(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	status := f.engine.Status()
	assert.True(t, status.Ready)
	assert.GreaterOrEqual(t, status.CorpusVersion, uint64(2))
	assert.LessOrEqual(t, status.CorpusVersion, uint64(9))
	assert.Equal(t, 3, status.Recipes)
	assert.Equal(t, "2024.06.1", status.AliasVersion)
}
