package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/pageza/alchemorsel-engine/backend/internal/model"
)

// RecipeMatch is one ranked recommendation.
type RecipeMatch struct {
	RecipeID           uuid.UUID `json:"recipe_id"`
	Name               string    `json:"name"`
	Cuisine            string    `json:"cuisine"`
	DietaryType        string    `json:"dietary_type"`
	CookingTime        int       `json:"cooking_time"`
	ImageURL           string    `json:"image_url,omitempty"`
	MatchScore         float64   `json:"match_score"`
	HybridScore        float64   `json:"hybrid_score"`
	ContentScore       float64   `json:"content_score"`
	MatchedCount       int       `json:"matched_count"`
	TotalCount         int       `json:"total_count"`
	MatchedIngredients []string  `json:"matched_ingredients"`
	MissingIngredients []string  `json:"missing_ingredients"`
}

// RecommendResponse is the ranked list plus the parameters that produced it.
type RecommendResponse struct {
	Recipes             []RecipeMatch `json:"recipes"`
	Count               int           `json:"count"`
	Method              string        `json:"method"`
	SearchedIngredients []string      `json:"searched_ingredients"`
	SnapshotVersion     uint64        `json:"snapshot_version"`
}

// NutritionResponse is a recipe's whole-recipe nutrition summary.
type NutritionResponse struct {
	RecipeID uuid.UUID `json:"recipe_id"`
	model.NutritionSummary
	TableVersion string `json:"table_version"`
	// IngredientsFingerprint identifies the ingredient lines the summary was computed from.
	IngredientsFingerprint string `json:"ingredients_fingerprint"`
	Cached                 bool   `json:"cached"`
}

// FilterOptionsResponse lists the distinct filter values of the corpus.
type FilterOptionsResponse struct {
	Cuisines     []string `json:"cuisines"`
	DietaryTypes []string `json:"dietary_types"`
}

// RecipeListResponse is the body of GET /recipes.
type RecipeListResponse struct {
	Recipes []*model.Recipe `json:"recipes"`
	Count   int             `json:"count"`
}

// RebuildResponse reports the snapshots published by a rebuild.
type RebuildResponse struct {
	CorpusVersion   uint64    `json:"corpus_version"`
	Recipes         int       `json:"recipes"`
	NutrientVersion uint64    `json:"nutrient_version"`
	NutrientRecords int       `json:"nutrient_records"`
	TableVersion    string    `json:"table_version"`
	CompletedAt     time.Time `json:"completed_at"`
}

// EngineStatus describes the snapshots currently being served.
type EngineStatus struct {
	Ready           bool      `json:"ready"`
	CorpusVersion   uint64    `json:"corpus_version"`
	Recipes         int       `json:"recipes"`
	CorpusBuiltAt   time.Time `json:"corpus_built_at,omitempty"`
	NutrientVersion uint64    `json:"nutrient_version"`
	NutrientRecords int       `json:"nutrient_records"`
	TableVersion    string    `json:"table_version,omitempty"`
	FuzzyThreshold  float64   `json:"fuzzy_threshold,omitempty"`
	AliasVersion    string    `json:"alias_version"`
}
