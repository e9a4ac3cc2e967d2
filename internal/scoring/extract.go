package scoring

import (
	"regexp"
	"strconv"
)

// UnitPattern matches a number followed by a unit marker. The first capture
// group must be the number; Multiplier converts it to the caller's scale.
type UnitPattern struct {
	Expr       *regexp.Regexp
	Multiplier float64
}

var (
	// Funding amounts normalized to 亿 (hundred-million) units.
	fundingPatterns = []UnitPattern{
		{Expr: regexp.MustCompile(`(\d+\.?\d*)\s*亿`), Multiplier: 1},
		{Expr: regexp.MustCompile(`(\d+\.?\d*)\s*万`), Multiplier: 1.0 / 10000},
	}

	// Rack counts normalized to single racks.
	rackPatterns = []UnitPattern{
		{Expr: regexp.MustCompile(`(\d+\.?\d*)\s*万\s*(?:个)?机柜`), Multiplier: 10000},
		{Expr: regexp.MustCompile(`(\d+\.?\d*)\s*(?:个)?机柜`), Multiplier: 1},
	}
)

// ExtractMagnitude returns the largest normalized quantity matched by any of
// the patterns. ok is false when nothing matched.
func ExtractMagnitude(text string, patterns []UnitPattern) (float64, bool) {
	var (
		best  float64
		found bool
	)
	for _, p := range patterns {
		for _, m := range p.Expr.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			v *= p.Multiplier
			if !found || v > best {
				best = v
				found = true
			}
		}
	}
	return best, found
}
