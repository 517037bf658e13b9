package nutrition

import (
	"regexp"
	"strconv"
	"strings"
)

// Line is a free-text ingredient line split into its parts.
type Line struct {
	Quantity *float64
	Unit     string
	Name     string
}

var (
	vulgarFractions = strings.NewReplacer(
		"½", " 1/2", "⅓", " 1/3", "⅔", " 2/3", "¼", " 1/4", "¾", " 3/4",
		"⅛", " 1/8", "⅜", " 3/8", "⅝", " 5/8", "⅞", " 7/8",
	)
	numberWithSuffixRe = regexp.MustCompile(`^(\d+(?:[.,]\d+)?(?:/\d+)?)(?:-\d+(?:[.,]\d+)?)?([a-zA-Z]*\.?)$`)
	fractionRe         = regexp.MustCompile(`^\d+/\d+$`)
)

// ParseLine splits lines such as "2 cups flour", "1 1/2 tsp salt" or
// "200g butter". Lines without a leading amount come back as a bare name.
// A leading range like "2-3" keeps its lower bound.
func ParseLine(raw string) Line {
	s := strings.TrimSpace(vulgarFractions.Replace(raw))
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Line{}
	}

	m := numberWithSuffixRe.FindStringSubmatch(fields[0])
	if m == nil {
		return Line{Name: s}
	}
	qty, ok := parseNumber(m[1])
	if !ok {
		return Line{Name: s}
	}
	rest := fields[1:]
	unit := m[2]

	if unit == "" && len(rest) > 0 && fractionRe.MatchString(rest[0]) && !strings.Contains(m[1], "/") {
		if frac, ok := parseNumber(rest[0]); ok {
			qty += frac
			rest = rest[1:]
		}
	}

	if unit != "" {
		if _, known := LookupUnit(unit); !known {
			return Line{Name: s}
		}
	} else if len(rest) > 1 {
		if _, known := LookupUnit(rest[0]); known {
			unit = rest[0]
			rest = rest[1:]
		}
	}
	if len(rest) > 1 && strings.EqualFold(rest[0], "of") {
		rest = rest[1:]
	}

	if u, ok := LookupUnit(unit); ok {
		unit = u.Name
	}
	if unit == piece.Name {
		unit = ""
	}
	return Line{Quantity: &qty, Unit: unit, Name: strings.Join(rest, " ")}
}

func parseNumber(s string) (float64, bool) {
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
