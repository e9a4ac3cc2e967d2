// Package textutil holds the text folding shared by the keyword-driven stages.
package textutil

import (
	"strings"

	"golang.org/x/text/width"
)

// Normalize folds full-width ASCII (digits, Latin letters, punctuation) to its
// narrow form so "１０亿" and "ＧＰＵ" match the same patterns as "10亿" and "GPU".
func Normalize(s string) string {
	return width.Narrow.String(s)
}

// Combine joins title and content the way every keyword stage scans them.
func Combine(title, content string) string {
	return Normalize(title + " " + content)
}

// Truncate cuts s to at most n runes, appending suffix when it had to cut.
func Truncate(s string, n int, suffix string) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	keep := n - len([]rune(suffix))
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + suffix
}

// ContainsAny reports whether text contains at least one of the keywords.
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
