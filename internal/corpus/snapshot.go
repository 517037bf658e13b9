package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pageza/alchemorsel-engine/backend/internal/model"
	"github.com/pageza/alchemorsel-engine/backend/internal/normalize"
)

// Filters are the static eligibility predicates applied before scoring.
// Zero values mean "no constraint".
type Filters struct {
	Cuisine        string `json:"cuisine,omitempty" form:"cuisine"`
	DietaryType    string `json:"dietary_type,omitempty" form:"dietary_type"`
	MaxTimeMinutes int    `json:"max_time_minutes,omitempty" form:"max_time"`
}

// Matches reports whether the recipe satisfies every set predicate.
func (f Filters) Matches(r *model.Recipe) bool {
	if f.Cuisine != "" && !strings.EqualFold(strings.TrimSpace(r.Cuisine), strings.TrimSpace(f.Cuisine)) {
		return false
	}
	if f.DietaryType != "" && !strings.EqualFold(strings.TrimSpace(r.DietaryType), strings.TrimSpace(f.DietaryType)) {
		return false
	}
	if f.MaxTimeMinutes > 0 && r.CookingTime > f.MaxTimeMinutes {
		return false
	}
	return true
}

// Entry is one recipe inside a snapshot together with its precomputed
// normalized ingredient set.
type Entry struct {
	Recipe *model.Recipe
	// Ingredients holds the unique normalized keys in recipe order.
	Ingredients []string
	// Position is the corpus insertion order, used for stable tie-breaking.
	Position int
	// Fingerprint identifies the recipe's ingredient lines (name, quantity,
	// unit, in order). It changes whenever the list is edited.
	Fingerprint string
}

// Size is the number of unique normalized ingredients.
func (e *Entry) Size() int {
	return len(e.Ingredients)
}

// Snapshot is an immutable, versioned view of the recipe corpus.
type Snapshot struct {
	version           uint64
	builtAt           time.Time
	normalizerVersion string
	entries           []*Entry
	byID              map[uuid.UUID]*Entry
	cuisines          []string
	dietaryTypes      []string
}

// Build precomputes the normalized ingredient sets for recipes, preserving
// their order. The recipes must not be mutated after Build.
func Build(version uint64, recipes []*model.Recipe, n *normalize.Normalizer) *Snapshot {
	s := &Snapshot{
		version:           version,
		builtAt:           time.Now().UTC(),
		normalizerVersion: n.Version(),
		entries:           make([]*Entry, 0, len(recipes)),
		byID:              make(map[uuid.UUID]*Entry, len(recipes)),
	}

	cuisines := newOptionSet()
	dietaryTypes := newOptionSet()

	for _, r := range recipes {
		if r == nil {
			continue
		}
		if _, dup := s.byID[r.ID]; dup {
			continue
		}

		e := &Entry{
			Recipe:      r,
			Ingredients: n.NormalizeAll(r.IngredientNames()),
			Position:    len(s.entries),
			Fingerprint: Fingerprint(r.Ingredients),
		}
		s.entries = append(s.entries, e)
		s.byID[r.ID] = e

		cuisines.add(r.Cuisine)
		dietaryTypes.add(r.DietaryType)
	}

	s.cuisines = cuisines.sorted()
	s.dietaryTypes = dietaryTypes.sorted()
	return s
}

// Fingerprint hashes ingredient lines in order.
func Fingerprint(lines []model.RecipeIngredient) string {
	h := sha256.New()
	for _, ing := range lines {
		qty := "-"
		if ing.Quantity != nil {
			qty = strconv.FormatFloat(*ing.Quantity, 'g', -1, 64)
		}
		for _, part := range []string{ing.Name, qty, ing.Unit} {
			h.Write([]byte(part))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// optionSet collects distinct filter values. Values equal under case folding
// collapse onto the first spelling seen, matching Filters.Matches.
type optionSet struct {
	seen   map[string]struct{}
	values []string
}

func newOptionSet() *optionSet {
	return &optionSet{seen: make(map[string]struct{})}
}

func (o *optionSet) add(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	folded := strings.ToLower(v)
	if _, ok := o.seen[folded]; ok {
		return
	}
	o.seen[folded] = struct{}{}
	o.values = append(o.values, v)
}

func (o *optionSet) sorted() []string {
	out := append([]string{}, o.values...)
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

// Version returns the snapshot version.
func (s *Snapshot) Version() uint64 { return s.version }

// BuiltAt returns when the snapshot was built.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// NormalizerVersion returns the alias table version used to build the snapshot.
func (s *Snapshot) NormalizerVersion() string { return s.normalizerVersion }

// Len returns the number of recipes in the snapshot.
func (s *Snapshot) Len() int { return len(s.entries) }

// Get looks up a recipe by id.
func (s *Snapshot) Get(id uuid.UUID) (*Entry, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// Query returns the entries satisfying f in insertion order. Scores are not
// involved.
func (s *Snapshot) Query(f Filters) []*Entry {
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if f.Matches(e.Recipe) {
			out = append(out, e)
		}
	}
	return out
}

// Cuisines returns the distinct, sorted, non-empty cuisines.
func (s *Snapshot) Cuisines() []string {
	return append([]string(nil), s.cuisines...)
}

// DietaryTypes returns the distinct, sorted, non-empty dietary types.
func (s *Snapshot) DietaryTypes() []string {
	return append([]string(nil), s.dietaryTypes...)
}
