package testhelpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/alchemorsel-engine/backend/internal/model"
)

// Fixed ids for the sample recipes so tests can address them directly.
var (
	SalsaID    = uuid.MustParse("6f1c1a52-7a8e-4c53-9a61-0d7c0a1e0001")
	EggsID     = uuid.MustParse("6f1c1a52-7a8e-4c53-9a61-0d7c0a1e0002")
	PancakesID = uuid.MustParse("6f1c1a52-7a8e-4c53-9a61-0d7c0a1e0003")
)

// Qty returns a pointer to v for ingredient quantities.
func Qty(v float64) *float64 { return &v }

// SampleRecipes returns three recipes in corpus order.
//
//	Tomato Salsa        Mexican  vegan       15 min  tomato, onion, garlic
//	Garlic Butter Eggs  French   vegetarian  10 min  butter, egg, garlic, unicorn dust
//	Pancakes            American vegetarian  25 min  flour, milk, egg
func SampleRecipes() []*model.Recipe {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return []*model.Recipe{
		{
			ID:          SalsaID,
			CreatedAt:   base,
			Name:        "Tomato Salsa",
			Cuisine:     "Mexican",
			DietaryType: "vegan",
			CookingTime: 15,
			Ingredients: []model.RecipeIngredient{
				{Name: "Tomatoes", Quantity: Qty(3)},
				{Name: "onion", Quantity: Qty(1)},
				{Name: "garlic", Quantity: Qty(2), Unit: "clove"},
			},
			Instructions: model.JSONBStringArray{"Chop everything.", "Mix."},
		},
		{
			ID:          EggsID,
			CreatedAt:   base.Add(time.Minute),
			Name:        "Garlic Butter Eggs",
			Cuisine:     "French",
			DietaryType: "vegetarian",
			CookingTime: 10,
			Ingredients: []model.RecipeIngredient{
				{Name: "Butter", Quantity: Qty(200), Unit: "g"},
				{Name: "eggs", Quantity: Qty(2)},
				{Name: "2 cloves garlic"},
				{Name: "unicorn dust", Quantity: Qty(1), Unit: "tsp"},
			},
			Instructions: model.JSONBStringArray{"Melt the butter.", "Fry the eggs with garlic."},
		},
		{
			ID:          PancakesID,
			CreatedAt:   base.Add(2 * time.Minute),
			Name:        "Pancakes",
			Cuisine:     "American",
			DietaryType: "vegetarian",
			CookingTime: 25,
			Ingredients: []model.RecipeIngredient{
				{Name: "flour", Quantity: Qty(1), Unit: "cup"},
				{Name: "milk", Quantity: Qty(1), Unit: "cup"},
				{Name: "egg", Quantity: Qty(1)},
			},
			Instructions: model.JSONBStringArray{"Whisk.", "Cook on a griddle."},
		},
	}
}

// SampleNutrients returns reference records covering the sample recipes
// except unicorn dust.
func SampleNutrients() []model.NutrientRecord {
	return []model.NutrientRecord{
		{Key: "flour", ReferenceAmount: 100, ReferenceUnit: "g", Density: 0.53, Macros: model.Macros{Calories: 364, Protein: 10.3, Carbs: 76.3, Fat: 1}},
		{Key: "butter", ReferenceAmount: 100, ReferenceUnit: "g", Macros: model.Macros{Calories: 717, Protein: 0.9, Carbs: 0.1, Fat: 81.1}},
		{Key: "egg", ReferenceAmount: 1, ReferenceUnit: "piece", Macros: model.Macros{Calories: 72, Protein: 6.3, Carbs: 0.4, Fat: 4.8}},
		{Key: "milk", ReferenceAmount: 100, ReferenceUnit: "ml", Density: 1.03, Macros: model.Macros{Calories: 42, Protein: 3.4, Carbs: 5, Fat: 1}},
		{Key: "garlic", ReferenceAmount: 1, ReferenceUnit: "clove", Macros: model.Macros{Calories: 4.5, Protein: 0.2, Carbs: 1, Fat: 0}},
		{Key: "tomato", ReferenceAmount: 1, ReferenceUnit: "piece", Macros: model.Macros{Calories: 22, Protein: 1.1, Carbs: 4.8, Fat: 0.2}},
		{Key: "onion", ReferenceAmount: 1, ReferenceUnit: "piece", Macros: model.Macros{Calories: 44, Protein: 1.2, Carbs: 10.3, Fat: 0.1}},
	}
}

// SeedRecipes stores recipes with ingredient positions in slice order.
func SeedRecipes(t *testing.T, db *gorm.DB, recipes []*model.Recipe) {
	t.Helper()
	for _, r := range recipes {
		for i := range r.Ingredients {
			r.Ingredients[i].Position = i
		}
		if err := db.Create(r).Error; err != nil {
			t.Fatalf("failed to seed recipe %q: %v", r.Name, err)
		}
	}
}

// SeedNutrients stores nutrient reference records.
func SeedNutrients(t *testing.T, db *gorm.DB, records []model.NutrientRecord) {
	t.Helper()
	if err := db.Create(&records).Error; err != nil {
		t.Fatalf("failed to seed nutrient records: %v", err)
	}
}

// moduleRoot walks up from the working directory to the directory holding go.mod.
func moduleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("go.mod not found above working directory")
		}
		dir = parent
	}
}
