package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/alchemorsel-engine/backend/internal/middleware"
	"github.com/pageza/alchemorsel-engine/backend/internal/model"
	"github.com/pageza/alchemorsel-engine/backend/internal/normalize"
	"github.com/pageza/alchemorsel-engine/backend/internal/nutrition"
	"github.com/pageza/alchemorsel-engine/backend/internal/router"
	"github.com/pageza/alchemorsel-engine/backend/internal/service"
	"github.com/pageza/alchemorsel-engine/backend/internal/testhelpers"
	"github.com/pageza/alchemorsel-engine/backend/internal/types"
)

const adminToken = "integration-token"

func init() {
	gin.SetMode(gin.TestMode)
}

func setupApp(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testhelpers.SetupSQLiteDB(t)
	testhelpers.SeedRecipes(t, db, testhelpers.SampleRecipes())
	testhelpers.SeedNutrients(t, db, testhelpers.SampleNutrients())

	n, err := normalize.NewDefault()
	require.NoError(t, err)
	engine, err := service.NewEngine(
		service.NewRecipeRepository(db),
		nutrition.NewDBSource(db),
		nil,
		n,
		service.DefaultEngineConfig(),
		zap.NewNop(),
	)
	require.NoError(t, err)

	return router.SetupRouter(engine, router.Options{
		AllowedOrigins: []string{"*"},
		AdminToken:     adminToken,
	}), db
}

func request(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestEngineLifecycle(t *testing.T) {
	r, db := setupApp(t)

	// nothing is served before the first build
	assert.Equal(t, http.StatusServiceUnavailable, request(t, r, http.MethodGet, "/health", nil).Code)
	w := request(t, r, http.MethodPost, "/api/v1/recipes/recommend", map[string]interface{}{"ingredients": []string{"egg"}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))

	w = request(t, r, http.MethodPost, "/api/v1/admin/rebuild", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rebuilt := decode[types.RebuildResponse](t, w)
	assert.Equal(t, 3, rebuilt.Recipes)
	assert.Equal(t, len(testhelpers.SampleNutrients()), rebuilt.NutrientRecords)
	assert.Equal(t, http.StatusOK, request(t, r, http.MethodGet, "/health", nil).Code)

	// ranking
	w = request(t, r, http.MethodPost, "/api/v1/recipes/recommend", map[string]interface{}{
		"ingredients": []interface{}{"Tomatoes", map[string]interface{}{"name": "onions", "confidence": 0.7}, "garlic"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	recs := decode[types.RecommendResponse](t, w)
	require.NotEmpty(t, recs.Recipes)
	assert.Equal(t, "Tomato Salsa", recs.Recipes[0].Name)
	assert.InDelta(t, 1.0, recs.Recipes[0].HybridScore, 1e-9)

	w = request(t, r, http.MethodPost, "/api/v1/recipes/search-by-ingredients", map[string]interface{}{"ingredients": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// a missing ingredients field is invalid; an explicit empty list scores 0
	w = request(t, r, http.MethodPost, "/api/v1/recipes/recommend", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION", decode[middleware.ErrorResponse](t, w).Code)
	w = request(t, r, http.MethodPost, "/api/v1/recipes/recommend", map[string]interface{}{"ingredients": []string{}})
	require.Equal(t, http.StatusOK, w.Code)
	for _, rec := range decode[types.RecommendResponse](t, w).Recipes {
		assert.Zero(t, rec.HybridScore)
	}

	// nutrition is computed once, then served from the written-back row
	path := "/api/v1/recipes/" + testhelpers.EggsID.String() + "/nutrition"
	w = request(t, r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	first := decode[types.NutritionResponse](t, w)
	assert.False(t, first.Cached)
	assert.Equal(t, 1587.0, first.Calories)
	assert.Equal(t, 3, first.IngredientsMatched)

	var stored model.Recipe
	require.NoError(t, db.First(&stored, "id = ?", testhelpers.EggsID).Error)
	assert.Equal(t, first.TableVersion+"."+first.IngredientsFingerprint, stored.NutritionTableVersion)

	require.Equal(t, http.StatusOK, request(t, r, http.MethodPost, "/api/v1/admin/rebuild", nil).Code)
	w = request(t, r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[types.NutritionResponse](t, w)
	assert.True(t, second.Cached)
	assert.Equal(t, first.NutritionSummary, second.NutritionSummary)

	// editing the ingredient list invalidates the stored summary
	require.NoError(t, db.Where("recipe_id = ? AND name = ?", testhelpers.EggsID, "unicorn dust").
		Delete(&model.RecipeIngredient{}).Error)
	require.Equal(t, http.StatusOK, request(t, r, http.MethodPost, "/api/v1/admin/rebuild", nil).Code)
	w = request(t, r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	edited := decode[types.NutritionResponse](t, w)
	assert.False(t, edited.Cached)
	assert.Equal(t, 3, edited.TotalIngredients)
	assert.Equal(t, 3, edited.IngredientsMatched)

	// new recipes become visible after a rebuild
	testhelpers.SeedRecipes(t, db, []*model.Recipe{{
		Name:        "Tomato Soup",
		Cuisine:     "Italian",
		DietaryType: "vegan",
		CookingTime: 35,
		Ingredients: []model.RecipeIngredient{{Name: "tomato", Quantity: testhelpers.Qty(6)}, {Name: "onion", Quantity: testhelpers.Qty(1)}},
	}})
	w = request(t, r, http.MethodGet, "/api/v1/recipes?cuisine=italian", nil)
	assert.Equal(t, 0, decode[types.RecipeListResponse](t, w).Count)

	require.Equal(t, http.StatusOK, request(t, r, http.MethodPost, "/api/v1/admin/rebuild", nil).Code)
	w = request(t, r, http.MethodGet, "/api/v1/recipes?cuisine=italian", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[types.RecipeListResponse](t, w)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Tomato Soup", list.Recipes[0].Name)

	w = request(t, r, http.MethodGet, "/api/v1/recipes/filter-options", nil)
	opts := decode[types.FilterOptionsResponse](t, w)
	assert.Equal(t, []string{"American", "French", "Italian", "Mexican"}, opts.Cuisines)
}
