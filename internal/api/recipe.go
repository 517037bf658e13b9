package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/alchemorsel-engine/backend/internal/corpus"
	"github.com/pageza/alchemorsel-engine/backend/internal/service"
	"github.com/pageza/alchemorsel-engine/backend/internal/types"
	apperrors "github.com/pageza/alchemorsel-engine/backend/pkg/errors"
)

// RecipeHandler serves recommendations, recipe lookups and nutrition.
// Errors are attached to the context and rendered by middleware.ErrorHandler.
type RecipeHandler struct {
	engine service.IEngine
}

func NewRecipeHandler(engine service.IEngine) *RecipeHandler {
	return &RecipeHandler{engine: engine}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.POST("/recommend", h.Recommend)
		recipes.POST("/search-by-ingredients", h.SearchByIngredients)
		recipes.GET("/filter-options", h.FilterOptions)
		recipes.GET("", h.ListRecipes)
		recipes.GET("/:id", h.GetRecipe)
		recipes.GET("/:id/nutrition", h.GetNutrition)
	}
}

// Recommend ranks recipes against observed ingredients.
func (h *RecipeHandler) Recommend(c *gin.Context) {
	var req types.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewValidationError("invalid request body: " + err.Error()))
		return
	}

	resp, err := h.engine.Recommend(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SearchByIngredients ranks recipes against manually entered ingredients.
func (h *RecipeHandler) SearchByIngredients(c *gin.Context) {
	var req types.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewValidationError("invalid request body: " + err.Error()))
		return
	}

	resp, err := h.engine.SearchByIngredients(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecipeHandler) FilterOptions(c *gin.Context) {
	resp, err := h.engine.FilterOptions(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	var q types.ListRecipesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(apperrors.NewValidationError("invalid query parameters: " + err.Error()))
		return
	}

	recipes, err := h.engine.ListRecipes(c.Request.Context(), corpus.Filters{
		Cuisine:        q.Cuisine,
		DietaryType:    q.DietaryType,
		MaxTimeMinutes: q.MaxTime,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types.RecipeListResponse{Recipes: recipes, Count: len(recipes)})
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}

	recipe, err := h.engine.GetRecipe(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// GetNutrition returns the whole-recipe nutrition summary.
func (h *RecipeHandler) GetNutrition(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}

	resp, err := h.engine.Nutrition(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func recipeID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.NewValidationError("invalid recipe id"))
		return uuid.Nil, false
	}
	return id, true
}
