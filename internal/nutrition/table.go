// Package nutrition resolves ingredients against the nutrient reference
// table and aggregates whole-recipe nutrition summaries.
package nutrition

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/pageza/alchemorsel-engine/backend/internal/model"
	"github.com/pageza/alchemorsel-engine/backend/internal/normalize"
)

// DefaultFuzzyThreshold is the minimum similarity a fuzzy match must reach.
const DefaultFuzzyThreshold = 0.8

// Outcome classifies a resolution attempt.
type Outcome string

const (
	OutcomeExact Outcome = "exact"
	OutcomeFuzzy Outcome = "fuzzy"
	OutcomeMiss  Outcome = "miss"
)

// Resolution is the result of resolving one normalized ingredient key.
type Resolution struct {
	Record     *model.NutrientRecord
	Outcome    Outcome
	Similarity float64
}

// Table is an immutable snapshot of the nutrient reference data.
type Table struct {
	generation uint64
	digest     string
	threshold  float64
	records    map[string]*model.NutrientRecord
	keys       []string
	skipped    int
}

// NewTable indexes records by their normalized key. When two records
// normalize to the same key the first one wins. Records with a non-positive
// reference amount, an unknown reference unit or negative macros are skipped.
func NewTable(generation uint64, records []model.NutrientRecord, n *normalize.Normalizer, threshold float64) (*Table, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("fuzzy threshold must be within (0,1], got %v", threshold)
	}

	t := &Table{
		generation: generation,
		threshold:  threshold,
		records:    make(map[string]*model.NutrientRecord, len(records)),
	}
	for i := range records {
		rec := records[i]
		key := n.Normalize(rec.Key)
		if key == "" || !validRecord(&rec) {
			t.skipped++
			continue
		}
		if _, dup := t.records[key]; dup {
			t.skipped++
			continue
		}
		rec.Key = key
		t.records[key] = &rec
		t.keys = append(t.keys, key)
	}
	sort.Strings(t.keys)
	t.digest = digestOf(t.keys, t.records, n.Version())
	return t, nil
}

func validRecord(r *model.NutrientRecord) bool {
	if !(r.ReferenceAmount > 0) || math.IsInf(r.ReferenceAmount, 0) {
		return false
	}
	if _, ok := LookupUnit(r.ReferenceUnit); !ok {
		return false
	}
	if r.Density < 0 {
		return false
	}
	for _, v := range []float64{r.Calories, r.Protein, r.Carbs, r.Fat} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// digestOf fingerprints the table content so cached summaries survive restarts
// as long as the reference data is unchanged.
func digestOf(keys []string, records map[string]*model.NutrientRecord, normalizerVersion string) string {
	h := sha256.New()
	h.Write([]byte(normalizerVersion))
	for _, k := range keys {
		r := records[k]
		for _, part := range []string{
			k,
			strconv.FormatFloat(r.ReferenceAmount, 'g', -1, 64),
			r.ReferenceUnit,
			strconv.FormatFloat(r.Density, 'g', -1, 64),
			strconv.FormatFloat(r.Calories, 'g', -1, 64),
			strconv.FormatFloat(r.Protein, 'g', -1, 64),
			strconv.FormatFloat(r.Carbs, 'g', -1, 64),
			strconv.FormatFloat(r.Fat, 'g', -1, 64),
		} {
			h.Write([]byte(part))
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Generation is the in-process rebuild counter of this table.
func (t *Table) Generation() uint64 { return t.generation }

// Version is a content digest of the table; equal tables share a version.
func (t *Table) Version() string { return t.digest }

// Len returns the number of indexed records.
func (t *Table) Len() int { return len(t.records) }

// Skipped returns how many input records were rejected while indexing.
func (t *Table) Skipped() int { return t.skipped }

// Threshold returns the fuzzy acceptance threshold.
func (t *Table) Threshold() float64 { return t.threshold }

// Resolve looks key up exactly, then falls back to the most similar record
// whose similarity reaches the threshold. Equal similarities resolve to the
// lexicographically smallest key.
func (t *Table) Resolve(key string) Resolution {
	if key == "" {
		return Resolution{Outcome: OutcomeMiss}
	}
	if rec, ok := t.records[key]; ok {
		return Resolution{Record: rec, Outcome: OutcomeExact, Similarity: 1}
	}

	var (
		bestKey string
		bestSim float64
	)
	for _, candidate := range t.keys {
		sim := Similarity(key, candidate)
		if sim >= t.threshold && sim > bestSim {
			bestKey, bestSim = candidate, sim
		}
	}
	if bestKey == "" {
		return Resolution{Outcome: OutcomeMiss}
	}
	return Resolution{Record: t.records[bestKey], Outcome: OutcomeFuzzy, Similarity: bestSim}
}

// Similarity is 1 - levenshtein(a, b) / max(len(a), len(b)) counted in runes.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
