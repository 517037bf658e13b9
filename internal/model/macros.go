package model

import "math"

// Macros holds the four macro values tracked by the engine.
type Macros struct {
	Calories float64 `json:"calories" yaml:"calories"`
	Protein  float64 `json:"protein" yaml:"protein"`
	Carbs    float64 `json:"carbs" yaml:"carbs"`
	Fat      float64 `json:"fat" yaml:"fat"`
}

// Scale returns m multiplied by factor.
func (m Macros) Scale(factor float64) Macros {
	return Macros{
		Calories: m.Calories * factor,
		Protein:  m.Protein * factor,
		Carbs:    m.Carbs * factor,
		Fat:      m.Fat * factor,
	}
}

// Add returns the per-field sum of m and o.
func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
	}
}

// Rounded rounds calories to whole numbers and the rest to one decimal.
func (m Macros) Rounded() Macros {
	return Macros{
		Calories: math.Round(m.Calories),
		Protein:  roundTenth(m.Protein),
		Carbs:    roundTenth(m.Carbs),
		Fat:      roundTenth(m.Fat),
	}
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// NutritionSummary is the aggregate nutrition of a whole recipe (not per serving).
type NutritionSummary struct {
	Calories           float64 `json:"calories"`
	Protein            float64 `json:"protein"`
	Carbs              float64 `json:"carbs"`
	Fats               float64 `json:"fats"`
	Calculated         bool    `json:"calculated"`
	IngredientsMatched int     `json:"ingredients_matched"`
	TotalIngredients   int     `json:"total_ingredients"`
}

// NewNutritionSummary builds a calculated summary from aggregated macros.
func NewNutritionSummary(m Macros, matched, total int) NutritionSummary {
	r := m.Rounded()
	return NutritionSummary{
		Calories:           r.Calories,
		Protein:            r.Protein,
		Carbs:              r.Carbs,
		Fats:               r.Fat,
		Calculated:         true,
		IngredientsMatched: matched,
		TotalIngredients:   total,
	}
}
