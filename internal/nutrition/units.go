package nutrition

import "strings"

// Dimension groups units that convert into each other by a constant factor.
type Dimension int

const (
	DimensionUnknown Dimension = iota
	DimensionMass              // base: gram
	DimensionVolume            // base: millilitre
	DimensionPiece
	DimensionClove
	DimensionSlice
)

// Unit is a known measuring unit.
type Unit struct {
	Name      string
	Dimension Dimension
	// Factor converts one of this unit into the dimension's base unit.
	Factor float64
}

var (
	gram       = Unit{Name: "g", Dimension: DimensionMass, Factor: 1}
	milligram  = Unit{Name: "mg", Dimension: DimensionMass, Factor: 0.001}
	kilogram   = Unit{Name: "kg", Dimension: DimensionMass, Factor: 1000}
	ounce      = Unit{Name: "oz", Dimension: DimensionMass, Factor: 28.35}
	pound      = Unit{Name: "lb", Dimension: DimensionMass, Factor: 453.59}
	pinch      = Unit{Name: "pinch", Dimension: DimensionMass, Factor: 0.5}
	splash     = Unit{Name: "splash", Dimension: DimensionMass, Factor: 2}
	millilitre = Unit{Name: "ml", Dimension: DimensionVolume, Factor: 1}
	litre      = Unit{Name: "l", Dimension: DimensionVolume, Factor: 1000}
	teaspoon   = Unit{Name: "tsp", Dimension: DimensionVolume, Factor: 5}
	tablespoon = Unit{Name: "tbsp", Dimension: DimensionVolume, Factor: 15}
	cup        = Unit{Name: "cup", Dimension: DimensionVolume, Factor: 240}
	piece      = Unit{Name: "piece", Dimension: DimensionPiece, Factor: 1}
	clove      = Unit{Name: "clove", Dimension: DimensionClove, Factor: 1}
	slice      = Unit{Name: "slice", Dimension: DimensionSlice, Factor: 1}
)

var unitsByAlias = map[string]Unit{
	"g": gram, "gr": gram, "gram": gram, "grams": gram, "gramme": gram, "grammes": gram,
	"mg": milligram, "milligram": milligram, "milligrams": milligram,
	"kg": kilogram, "kgs": kilogram, "kilo": kilogram, "kilos": kilogram, "kilogram": kilogram, "kilograms": kilogram,
	"oz": ounce, "ounce": ounce, "ounces": ounce,
	"lb": pound, "lbs": pound, "pound": pound, "pounds": pound,
	"pinch": pinch, "pinches": pinch,
	"splash": splash, "splashes": splash, "sprinkling": splash, "dash": splash, "dashes": splash,
	"ml": millilitre, "millilitre": millilitre, "millilitres": millilitre, "milliliter": millilitre, "milliliters": millilitre,
	"l": litre, "litre": litre, "litres": litre, "liter": litre, "liters": litre,
	"tsp": teaspoon, "tsps": teaspoon, "teaspoon": teaspoon, "teaspoons": teaspoon,
	"tbsp": tablespoon, "tbsps": tablespoon, "tbs": tablespoon, "tablespoon": tablespoon, "tablespoons": tablespoon,
	"cup": cup, "cups": cup,
	"": piece, "piece": piece, "pieces": piece, "pc": piece, "pcs": piece, "each": piece, "whole": piece,
	"item": piece, "items": piece, "unit": piece, "units": piece,
	"clove": clove, "cloves": clove,
	"slice": slice, "slices": slice,
}

// LookupUnit resolves a unit spelling. An empty unit means a count of pieces.
func LookupUnit(s string) (Unit, bool) {
	u, ok := unitsByAlias[strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")]
	return u, ok
}

// convert expresses amount of from in units of to. Mass and volume bridge
// only through a positive density in g/ml.
func convert(amount float64, from, to Unit, density float64) (float64, bool) {
	base := amount * from.Factor
	switch {
	case from.Dimension == to.Dimension:
	case density > 0 && from.Dimension == DimensionVolume && to.Dimension == DimensionMass:
		base *= density
	case density > 0 && from.Dimension == DimensionMass && to.Dimension == DimensionVolume:
		base /= density
	default:
		return 0, false
	}
	return base / to.Factor, true
}
