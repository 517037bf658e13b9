package nutrition

import (
	"math"

	"github.com/pageza/alchemorsel-engine/backend/internal/model"
	"github.com/pageza/alchemorsel-engine/backend/internal/normalize"
)

// LineResult explains how one recipe ingredient contributed to the summary.
type LineResult struct {
	Raw        string  `json:"raw"`
	Key        string  `json:"key"`
	Outcome    Outcome `json:"outcome"`
	MatchedKey string  `json:"matched_key,omitempty"`
	Factor     float64 `json:"factor"`
}

// Result is a summary plus the per-ingredient trail that produced it.
type Result struct {
	Summary      model.NutritionSummary
	TableVersion string
	Lines        []LineResult
}

// Aggregator computes whole-recipe nutrition. It is a pure function of the
// recipe and the table it is given.
type Aggregator struct {
	normalizer *normalize.Normalizer
}

func NewAggregator(n *normalize.Normalizer) *Aggregator {
	return &Aggregator{normalizer: n}
}

// Aggregate resolves every ingredient, scales the matched records and sums
// them. Unresolved ingredients reduce coverage but still count toward the
// total.
func (a *Aggregator) Aggregate(r *model.Recipe, t *Table) Result {
	var total model.Macros
	lines := make([]LineResult, 0, len(r.Ingredients))
	matched := 0

	for _, ing := range r.Ingredients {
		name, qty, unit := amountOf(ing)
		key := a.normalizer.Normalize(name)
		res := t.Resolve(key)

		line := LineResult{Raw: ing.Name, Key: key, Outcome: res.Outcome}
		if res.Record != nil {
			matched++
			line.MatchedKey = res.Record.Key
			line.Factor = scaleFactor(qty, unit, res.Record)
			total = total.Add(res.Record.Macros.Scale(line.Factor))
		}
		lines = append(lines, line)
	}

	return Result{
		Summary:      model.NewNutritionSummary(total, matched, len(r.Ingredients)),
		TableVersion: t.Version(),
		Lines:        lines,
	}
}

// amountOf prefers the structured quantity; otherwise it tries to read an
// amount from the free-text name.
func amountOf(ing model.RecipeIngredient) (name string, qty *float64, unit string) {
	if ing.Quantity != nil {
		return ing.Name, ing.Quantity, ing.Unit
	}
	line := ParseLine(ing.Name)
	if line.Quantity != nil && line.Name != "" {
		return line.Name, line.Quantity, line.Unit
	}
	return ing.Name, nil, ing.Unit
}

// scaleFactor is the number of reference amounts the ingredient represents.
// A missing or unusable quantity, or a unit that cannot be converted to the
// reference unit, counts as one reference amount.
func scaleFactor(qty *float64, unit string, rec *model.NutrientRecord) float64 {
	if qty == nil || !(*qty > 0) || math.IsInf(*qty, 0) {
		return 1
	}
	from, ok := LookupUnit(unit)
	if !ok {
		return 1
	}
	to, ok := LookupUnit(rec.ReferenceUnit)
	if !ok || !(rec.ReferenceAmount > 0) {
		return 1
	}
	amount, ok := convert(*qty, from, to, rec.Density)
	if !ok {
		return 1
	}
	return amount / rec.ReferenceAmount
}
