package report

import (
	"fmt"

	"IDCIntel/internal/domain"
)

// Insights is the editorial layer of a report: a weekly overview and a
// one-line comment per section, keyed by the section's category.
type Insights struct {
	Overview string
	Comments map[domain.Category]string
}

// Empty reports whether there is nothing to render.
func (in Insights) Empty() bool {
	return in.Overview == "" && len(in.Comments) == 0
}

var defaultComments = map[domain.Category]string{
	domain.CategoryPolicy:     "本周政策领域收录%d篇文章，涉及行业规范与政策导向",
	domain.CategoryInvestment: "本周投资领域收录%d篇文章，关注资金流向与项目布局",
	domain.CategoryTechnology: "本周技术领域收录%d篇文章，聚焦创新突破与应用实践",
	domain.CategoryMarket:     "本周市场领域收录%d篇文章，追踪行业趋势与竞争态势",
}

// DefaultInsights builds count-based text used when the chat service is
// unavailable or its answer cannot be used.
func DefaultInsights(articles []domain.ScoredArticle) Insights {
	var high, medium int
	byCategory := map[domain.Category]int{}
	for _, a := range articles {
		switch a.Scores.Priority {
		case domain.PriorityHigh:
			high++
		case domain.PriorityMedium:
			medium++
		}
		for _, c := range a.Categories {
			byCategory[c]++
		}
	}

	in := Insights{
		Overview: fmt.Sprintf("本周共收录%d篇IDC行业相关文章，其中高优先级%d篇，中优先级%d篇。"+
			"内容涵盖政策法规、投资动态、技术进展、市场动态等多个领域，详见各板块详细内容。",
			len(articles), high, medium),
		Comments: map[domain.Category]string{},
	}
	for c, format := range defaultComments {
		if n := byCategory[c]; n > 0 {
			in.Comments[c] = fmt.Sprintf(format, n)
		}
	}
	return in
}

// SectionTitle maps a category to the section name used in prompts and
// replies, such as 政策法规.
func SectionTitle(c domain.Category) string {
	for _, r := range sectionRules {
		if r.category == c {
			return trimOrdinal(r.heading)
		}
	}
	return trimOrdinal(otherHeading)
}

// SectionCategories lists section categories in display order.
func SectionCategories() []domain.Category {
	out := make([]domain.Category, 0, len(sectionRules)+1)
	for _, r := range sectionRules {
		out = append(out, r.category)
	}
	return append(out, domain.CategoryOther)
}

// trimOrdinal drops the "一、" style prefix of a heading.
func trimOrdinal(heading string) string {
	for i, r := range heading {
		if r == '、' {
			return heading[i+len("、"):]
		}
	}
	return heading
}
