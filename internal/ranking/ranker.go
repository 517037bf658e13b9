// Package ranking filters, scores, orders and truncates recipe candidates.
package ranking

import (
	"fmt"
	"sort"

	"github.com/pageza/alchemorsel-engine/backend/internal/corpus"
	"github.com/pageza/alchemorsel-engine/backend/internal/scoring"
)

const (
	DefaultTopK = 20
	MaxTopK     = 100
)

// Options describe one ranking request.
type Options struct {
	Filters  corpus.Filters
	Strategy scoring.Strategy
	// MinScore drops results whose selected score is below it. 0 keeps everything.
	MinScore float64
	// TopK truncates the result. 0 means no truncation.
	TopK int
}

// Validate rejects out-of-range thresholds and limits.
func (o Options) Validate() error {
	if o.MinScore < 0 || o.MinScore > 1 {
		return fmt.Errorf("min_score must be within [0,1], got %v", o.MinScore)
	}
	if o.TopK < 0 || o.TopK > MaxTopK {
		return fmt.Errorf("top_k must be within [0,%d], got %d", MaxTopK, o.TopK)
	}
	if o.Filters.MaxTimeMinutes < 0 {
		return fmt.Errorf("max_time_minutes must not be negative, got %d", o.Filters.MaxTimeMinutes)
	}
	switch o.Strategy {
	case scoring.StrategyExact, scoring.StrategyHybrid, scoring.StrategyContent:
	default:
		return fmt.Errorf("unknown scoring strategy %q", o.Strategy)
	}
	return nil
}

// Ranker orders corpus entries for a query.
type Ranker struct {
	scorer *scoring.Scorer
}

// NewRanker creates a ranker around scorer.
func NewRanker(scorer *scoring.Scorer) *Ranker {
	return &Ranker{scorer: scorer}
}

// Rank applies the eligibility filters, scores the survivors and returns them
// in descending order of the selected score. Equal scores keep corpus
// insertion order.
func (r *Ranker) Rank(snap *corpus.Snapshot, q scoring.Query, opts Options) []scoring.Result {
	candidates := snap.Query(opts.Filters)

	results := make([]scoring.Result, 0, len(candidates))
	for _, e := range candidates {
		res := r.scorer.Score(q, e)
		if res.Score(opts.Strategy) < opts.MinScore {
			continue
		}
		results = append(results, res)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Score(opts.Strategy), results[j].Score(opts.Strategy)
		if a != b {
			return a > b
		}
		return results[i].Entry.Position < results[j].Entry.Position
	})

	if opts.TopK > 0 && len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results
}
