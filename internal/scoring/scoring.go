// Package scoring computes how well a query ingredient set covers a recipe.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/pageza/alchemorsel-engine/backend/internal/corpus"
)

// Strategy selects which score the ranker orders by.
type Strategy string

const (
	StrategyExact   Strategy = "EXACT"
	StrategyHybrid  Strategy = "HYBRID"
	StrategyContent Strategy = "CONTENT"
)

// ParseStrategy accepts "exact", "hybrid" or "content" in any case.
// "ingredient" is an alias of exact. An empty string selects hybrid.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(StrategyHybrid):
		return StrategyHybrid, nil
	case string(StrategyExact), "INGREDIENT":
		return StrategyExact, nil
	case string(StrategyContent):
		return StrategyContent, nil
	default:
		return "", fmt.Errorf("unknown scoring method %q", s)
	}
}

const (
	DefaultRecipeWeight = 0.6
	DefaultQueryWeight  = 0.4
)

// Weights control the hybrid blend of recipe coverage and query coverage.
type Weights struct {
	Recipe float64 `mapstructure:"recipe" json:"recipe"`
	Query  float64 `mapstructure:"query" json:"query"`
}

// DefaultWeights returns the 0.6/0.4 blend.
func DefaultWeights() Weights {
	return Weights{Recipe: DefaultRecipeWeight, Query: DefaultQueryWeight}
}

// Validate checks that both weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	if w.Recipe < 0 || w.Query < 0 {
		return fmt.Errorf("hybrid weights must be non-negative, got recipe=%v query=%v", w.Recipe, w.Query)
	}
	if math.Abs(w.Recipe+w.Query-1) > 1e-9 {
		return fmt.Errorf("hybrid weights must sum to 1, got %v", w.Recipe+w.Query)
	}
	return nil
}

// Result is the explainable outcome of scoring one recipe.
type Result struct {
	Entry              *corpus.Entry
	MatchScore         float64
	HybridScore        float64
	ContentScore       float64
	MatchedCount       int
	TotalCount         int
	MatchedIngredients []string
	MissingIngredients []string
}

// Score returns the score selected by strategy.
func (r Result) Score(s Strategy) float64 {
	switch s {
	case StrategyExact:
		return r.MatchScore
	case StrategyContent:
		return r.ContentScore
	default:
		return r.HybridScore
	}
}

// Query is a normalized, de-duplicated set of ingredient keys.
type Query struct {
	keys []string
	set  map[string]struct{}
}

// NewQuery builds a query from normalized keys. Empty and duplicate keys are
// ignored.
func NewQuery(keys []string) Query {
	q := Query{set: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := q.set[k]; ok {
			continue
		}
		q.set[k] = struct{}{}
		q.keys = append(q.keys, k)
	}
	return q
}

// Size is |Q|.
func (q Query) Size() int { return len(q.keys) }

// Scorer computes both scores for a query against corpus entries. It holds no
// mutable state.
type Scorer struct {
	weights Weights
}

// NewScorer validates w and returns a Scorer.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

// Weights returns the configured hybrid weights.
func (s *Scorer) Weights() Weights { return s.weights }

// Score computes match_score = |Q∩R|/|R|,
// hybrid_score = wR·|Q∩R|/|R| + wQ·|Q∩R|/max(1,|Q|) and
// content_score = |Q∩R|/sqrt(|Q|·|R|), the cosine of the two key sets.
// A recipe without ingredients or an empty query scores 0 on all of them.
func (s *Scorer) Score(q Query, e *corpus.Entry) Result {
	res := Result{
		Entry:              e,
		TotalCount:         e.Size(),
		MatchedIngredients: []string{},
		MissingIngredients: []string{},
	}

	for _, key := range e.Ingredients {
		if _, ok := q.set[key]; ok {
			res.MatchedIngredients = append(res.MatchedIngredients, key)
		} else {
			res.MissingIngredients = append(res.MissingIngredients, key)
		}
	}
	res.MatchedCount = len(res.MatchedIngredients)

	if res.TotalCount == 0 || q.Size() == 0 {
		return res
	}

	recipeCoverage := float64(res.MatchedCount) / float64(res.TotalCount)
	queryCoverage := float64(res.MatchedCount) / float64(max(1, q.Size()))

	res.MatchScore = clamp01(recipeCoverage)
	res.HybridScore = clamp01(s.weights.Recipe*recipeCoverage + s.weights.Query*queryCoverage)
	res.ContentScore = clamp01(float64(res.MatchedCount) / math.Sqrt(float64(res.TotalCount*q.Size())))
	return res
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
