package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)

	// words that end in a plural-looking suffix but are already singular
	invariantWords = map[string]bool{
		"asparagus": true,
		"bass":      true,
		"citrus":    true,
		"couscous":  true,
		"grits":     true,
		"hummus":    true,
		"molasses":  true,
		"series":    true,
		"swiss":     true,
	}
)

type suffixRule struct {
	suffix      string
	replacement string
	minLen      int
}

// Ordered; the first matching rule wins.
var pluralRules = []suffixRule{
	{suffix: "ies", replacement: "y", minLen: 5},
	{suffix: "oes", replacement: "o", minLen: 5},
	{suffix: "sses", replacement: "ss", minLen: 5},
	{suffix: "ches", replacement: "ch", minLen: 5},
	{suffix: "shes", replacement: "sh", minLen: 5},
	{suffix: "xes", replacement: "x", minLen: 4},
}

// Normalizer canonicalizes raw ingredient strings into lookup keys.
// It is immutable after construction and safe for concurrent use.
type Normalizer struct {
	version     string
	descriptors map[string]bool
	aliases     map[string]string
}

// New builds a Normalizer from an alias table. Alias keys and targets are
// normalized with the base pipeline and alias chains are collapsed so that
// every target is terminal.
func New(table *AliasTable) (*Normalizer, error) {
	if table == nil {
		return nil, fmt.Errorf("alias table is required")
	}

	n := &Normalizer{
		version:     table.Version,
		descriptors: make(map[string]bool, len(table.Descriptors)),
		aliases:     make(map[string]string, len(table.Aliases)),
	}
	for _, d := range table.Descriptors {
		for _, word := range strings.Fields(strings.ToLower(d)) {
			n.descriptors[word] = true
		}
	}

	raw := make(map[string]string, len(table.Aliases))
	keys := make([]string, 0, len(table.Aliases))
	for from := range table.Aliases {
		keys = append(keys, from)
	}
	sort.Strings(keys)
	for _, from := range keys {
		key := n.base(from)
		target := n.base(table.Aliases[from])
		if key == "" || target == "" || key == target {
			continue
		}
		if existing, ok := raw[key]; ok && existing != target {
			return nil, fmt.Errorf("alias %q maps to both %q and %q", key, existing, target)
		}
		raw[key] = target
	}

	for key := range raw {
		target, err := resolveChain(raw, key)
		if err != nil {
			return nil, err
		}
		n.aliases[key] = target
	}
	return n, nil
}

// NewDefault builds a Normalizer from the embedded alias table.
func NewDefault() (*Normalizer, error) {
	table, err := DefaultAliasTable()
	if err != nil {
		return nil, err
	}
	return New(table)
}

func resolveChain(aliases map[string]string, key string) (string, error) {
	seen := map[string]bool{key: true}
	current := aliases[key]
	for {
		next, ok := aliases[current]
		if !ok {
			return current, nil
		}
		if seen[current] {
			return "", fmt.Errorf("alias cycle detected at %q", current)
		}
		seen[current] = true
		current = next
	}
}

// Version returns the version of the alias table in use.
func (n *Normalizer) Version() string {
	return n.version
}

// Normalize returns the canonical key for raw, or "" when nothing
// meaningful remains. Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(raw string) string {
	key := n.base(raw)
	if key == "" {
		return ""
	}
	if target, ok := n.aliases[key]; ok {
		return target
	}
	return key
}

// NormalizeAll normalizes every entry and returns the unique, non-empty keys
// in first-seen order.
func (n *Normalizer) NormalizeAll(raws []string) []string {
	seen := make(map[string]bool, len(raws))
	keys := make([]string, 0, len(raws))
	for _, raw := range raws {
		key := n.Normalize(raw)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// base runs every step except alias substitution.
func (n *Normalizer) base(raw string) string {
	s := strings.ToLower(foldAccents(raw))
	s = parentheticalRe.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)

	words := strings.Fields(s)
	out := words[:0]
	for _, word := range words {
		word = singularize(word)
		if n.descriptors[word] {
			continue
		}
		out = append(out, word)
	}
	return strings.Join(out, " ")
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// singularize strips allow-listed plural suffixes until the word is stable.
func singularize(word string) string {
	for {
		next := stripPlural(word)
		if next == word {
			return word
		}
		word = next
	}
}

func stripPlural(word string) string {
	if invariantWords[word] {
		return word
	}
	for _, rule := range pluralRules {
		if len(word) >= rule.minLen && strings.HasSuffix(word, rule.suffix) {
			return strings.TrimSuffix(word, rule.suffix) + rule.replacement
		}
	}
	if len(word) > 3 && strings.HasSuffix(word, "s") &&
		!strings.HasSuffix(word, "ss") &&
		!strings.HasSuffix(word, "us") &&
		!strings.HasSuffix(word, "is") {
		return strings.TrimSuffix(word, "s")
	}
	return word
}
