// Package report distributes scored articles into mutually exclusive report
// sections and renders the weekly report.
package report

import (
	"sort"

	"IDCIntel/internal/domain"
)

// Section is one bucket of the report in display order.
type Section struct {
	Category domain.Category
	Heading  string
	Empty    string
	Articles []domain.ScoredArticle
}

// rule describes how a labelled section fills itself when it has no High items.
type rule struct {
	category domain.Category
	heading  string
	empty    string
	fallback []domain.Priority
	limit    int
}

// sectionRules run in this order; earlier sections win multi-label articles.
var sectionRules = []rule{
	{
		category: domain.CategoryPolicy,
		heading:  "一、政策法规",
		empty:    "*本周暂无重点政策法规*",
		fallback: []domain.Priority{domain.PriorityMedium, domain.PriorityLow},
		limit:    5,
	},
	{
		category: domain.CategoryInvestment,
		heading:  "二、投资动态",
		empty:    "*本周暂无重点投资动态*",
		fallback: []domain.Priority{domain.PriorityMedium},
		limit:    3,
	},
	{
		category: domain.CategoryTechnology,
		heading:  "三、技术进展",
		empty:    "*本周暂无重点技术进展*",
		fallback: []domain.Priority{domain.PriorityMedium},
		limit:    3,
	},
	{
		category: domain.CategoryMarket,
		heading:  "四、市场动态",
		empty:    "*本周暂无重点市场动态*",
		fallback: []domain.Priority{domain.PriorityMedium},
		limit:    3,
	},
}

const (
	otherHeading = "五、其他动态"
	otherEmpty   = "*暂无其他动态*"
	otherLimit   = 5
)

// claimed is the set of urls already placed in a section.
type claimed map[string]struct{}

func (c claimed) has(a domain.ScoredArticle) bool {
	_, ok := c[a.URL]
	return ok
}

func (c claimed) add(articles []domain.ScoredArticle) {
	for _, a := range articles {
		c[a.URL] = struct{}{}
	}
}

// Allocate assigns each article to at most one of the five sections. The
// input is expected in (score desc, publish date desc) order, as returned by
// the repository's window query; within a labelled section that order is kept.
// Sections are processed strictly one after another.
func Allocate(articles []domain.ScoredArticle) []Section {
	taken := claimed{}
	sections := make([]Section, 0, len(sectionRules)+1)

	for _, r := range sectionRules {
		picked := r.pick(articles, taken)
		taken.add(picked)
		sections = append(sections, Section{
			Category: r.category,
			Heading:  r.heading,
			Empty:    r.empty,
			Articles: picked,
		})
	}

	other := sweepOther(articles, taken)
	taken.add(other)
	sections = append(sections, Section{
		Category: domain.CategoryOther,
		Heading:  otherHeading,
		Empty:    otherEmpty,
		Articles: other,
	})
	return sections
}

func (r rule) pick(articles []domain.ScoredArticle, taken claimed) []domain.ScoredArticle {
	var pool []domain.ScoredArticle
	for _, a := range articles {
		if a.HasCategory(r.category) && !taken.has(a) {
			pool = append(pool, a)
		}
	}

	high := withPriority(pool, domain.PriorityHigh)
	if len(high) > 0 {
		return high
	}

	fallback := withPriority(pool, r.fallback...)
	if len(fallback) > r.limit {
		fallback = fallback[:r.limit]
	}
	return fallback
}

// withPriority keeps articles whose priority is one of ps. Matches are grouped
// by the order of ps, so {Medium, Low} lists every Medium before any Low.
func withPriority(articles []domain.ScoredArticle, ps ...domain.Priority) []domain.ScoredArticle {
	var out []domain.ScoredArticle
	for _, p := range ps {
		for _, a := range articles {
			if a.Scores.Priority == p {
				out = append(out, a)
			}
		}
	}
	return out
}

func sweepOther(articles []domain.ScoredArticle, taken claimed) []domain.ScoredArticle {
	var rest []domain.ScoredArticle
	seen := claimed{}
	for _, a := range articles {
		if taken.has(a) || seen.has(a) {
			continue
		}
		if a.Scores.Priority == domain.PriorityMedium || a.Scores.Priority == domain.PriorityLow {
			rest = append(rest, a)
			seen[a.URL] = struct{}{}
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].Scores.Total > rest[j].Scores.Total
	})
	if len(rest) > otherLimit {
		rest = rest[:otherLimit]
	}
	return rest
}
