// Package filter implements the cheap deny-list check run before any paid
// relevance judgment.
package filter

import (
	"strings"

	"IDCIntel/internal/textutil"
)

// DefaultDenyList holds clearly out-of-domain topics.
var DefaultDenyList = []string{
	"白酒", "房地产", "汽车销售", "娱乐", "影视",
	"游戏", "餐饮", "零售", "服装", "美妆", "食品",
}

// QuickFilter rejects titles containing a deny-listed term.
type QuickFilter struct {
	terms []string
}

// NewQuickFilter lowercases the terms once; an empty list falls back to DefaultDenyList.
func NewQuickFilter(terms []string) *QuickFilter {
	if len(terms) == 0 {
		terms = DefaultDenyList
	}
	folded := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(textutil.Normalize(term)))
		if term != "" {
			folded = append(folded, term)
		}
	}
	return &QuickFilter{terms: folded}
}

// Passes reports whether title is free of deny-listed terms.
func (f *QuickFilter) Passes(title string) bool {
	return f.Match(title) == ""
}

// Match returns the first deny-listed term found in title, or "".
func (f *QuickFilter) Match(title string) string {
	folded := strings.ToLower(textutil.Normalize(title))
	for _, term := range f.terms {
		if strings.Contains(folded, term) {
			return term
		}
	}
	return ""
}
