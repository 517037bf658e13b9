package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// IngredientInput is one observed ingredient. Producers send either a bare
// string or {"name": ..., "confidence": ...}.
type IngredientInput struct {
	Name string `json:"name"`
	// Confidence is carried through untouched; scoring never reads it.
	Confidence *float64 `json:"confidence,omitempty"`
}

// UnmarshalJSON accepts both the string and the object form.
func (i *IngredientInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*i = IngredientInput{Name: name}
		return nil
	}

	type plain IngredientInput
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("ingredient must be a string or an object with a name: %w", err)
	}
	if p.Confidence != nil && (*p.Confidence < 0 || *p.Confidence > 1) {
		return fmt.Errorf("confidence for %q must be within [0,1]", p.Name)
	}
	*i = IngredientInput(p)
	return nil
}

// FilterInput are the optional eligibility filters of a ranking request.
type FilterInput struct {
	Cuisine        string `json:"cuisine,omitempty"`
	DietaryType    string `json:"dietary_type,omitempty"`
	MaxTimeMinutes int    `json:"max_time_minutes,omitempty"`
}

// RecommendRequest is the body of the recommend and search-by-ingredients endpoints.
// Ingredients must be present; an explicit empty list is a valid query.
type RecommendRequest struct {
	Ingredients []IngredientInput `json:"ingredients" binding:"required"`
	Filters     *FilterInput      `json:"filters,omitempty"`
	// Method is "hybrid", "exact" (alias "ingredient") or "content"; empty means hybrid.
	Method   string  `json:"method,omitempty"`
	MinScore float64 `json:"min_score,omitempty"`
	// TopK defaults to the configured limit when omitted.
	TopK *int `json:"top_k,omitempty"`
}

// IngredientNames returns the raw names in request order.
func (r *RecommendRequest) IngredientNames() []string {
	names := make([]string, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		names[i] = ing.Name
	}
	return names
}

// ListRecipesQuery are the query parameters of GET /recipes.
type ListRecipesQuery struct {
	Cuisine     string `form:"cuisine"`
	DietaryType string `form:"dietary_type"`
	MaxTime     int    `form:"max_time"`
}
