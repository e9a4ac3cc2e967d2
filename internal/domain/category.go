package domain

import "strings"

// Category is a classifier label.
type Category string

const (
	CategoryInvestment Category = "投资"
	CategoryTechnology Category = "技术"
	CategoryPolicy     Category = "政策"
	CategoryMarket     Category = "市场"
	CategoryOther      Category = "其他"
)

// CategoryOrder is the fixed label priority order used for output.
var CategoryOrder = []Category{
	CategoryInvestment,
	CategoryTechnology,
	CategoryPolicy,
	CategoryMarket,
}

// Categories is an ordered label set.
type Categories []Category

// Contains reports whether c is present.
func (cs Categories) Contains(c Category) bool {
	for _, v := range cs {
		if v == c {
			return true
		}
	}
	return false
}

// String joins the labels with commas, the stored representation.
func (cs Categories) String() string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

// ParseCategories splits a stored comma-joined label set. Unknown labels are
// dropped; the result is reordered to the fixed priority order and is never
// empty.
func ParseCategories(raw string) Categories {
	seen := map[Category]bool{}
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '，' }) {
		seen[Category(strings.TrimSpace(part))] = true
	}

	out := make(Categories, 0, len(seen))
	for _, c := range CategoryOrder {
		if seen[c] {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return Categories{CategoryOther}
	}
	return out
}

// Priority is the coarse bucket derived from the total score.
type Priority string

const (
	PriorityHigh   Priority = "高"
	PriorityMedium Priority = "中"
	PriorityLow    Priority = "低"
)

const (
	highThreshold   = 70
	mediumThreshold = 40
)

// MapPriority buckets a total score: >=70 High, >=40 Medium, otherwise Low.
func MapPriority(total int) Priority {
	switch {
	case total >= highThreshold:
		return PriorityHigh
	case total >= mediumThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
