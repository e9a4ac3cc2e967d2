package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IDCIntel/internal/domain"
)

func TestComposeEmpty(t *testing.T) {
	t.Parallel()

	r := NewComposer("").Compose(nil, reportDate, Insights{})
	assert.Empty(t, r.Sections)
	assert.Contains(t, r.Markdown, "本周暂无符合条件的文章数据")
	assert.Contains(t, r.Markdown, "2025年11月10日")
}

func TestComposeSectionsInOrder(t *testing.T) {
	t.Parallel()

	a := article("https://example.com/a", 85, domain.CategoryInvestment, domain.CategoryTechnology)
	a.Summary = "某公司完成融资"
	low := article("https://example.com/low", 20, domain.CategoryOther)

	r := NewComposer("").Compose([]domain.ScoredArticle{a, low}, reportDate, Insights{})
	md := r.Markdown

	assert.Contains(t, md, "# IDC行业周报 | 2025年第46周")
	headings := []string{"## 一、政策法规", "## 二、投资动态", "## 三、技术进展", "## 四、市场动态", "## 五、其他动态", "## 本周统计"}
	last := -1
	for _, h := range headings {
		idx := strings.Index(md, h)
		require.GreaterOrEqual(t, idx, 0, h)
		assert.Greater(t, idx, last, h)
		last = idx
	}

	assert.Contains(t, md, "*本周暂无重点政策法规*")
	assert.Contains(t, md, "### 1. 标题 https://example.com/a")
	assert.Contains(t, md, "**【投资,技术】** DCD | 2025-11-10 | 评分: 85")
	assert.Contains(t, md, "某公司完成融资")
	assert.Contains(t, md, "1. **标题 https://example.com/low**")
	assert.Contains(t, md, "- **总文章数**: 2")
	assert.Contains(t, md, "- **高优先级**: 1")
	assert.Contains(t, md, "- 投资: 1篇")
	assert.Equal(t, 1, strings.Count(md, "(https://example.com/a)"))
}

func TestComposerSave(t *testing.T) {
	t.Parallel()

	c := NewComposer("")
	r := c.Compose([]domain.ScoredArticle{article("https://example.com/a", 85, domain.CategoryPolicy)}, reportDate, Insights{})

	dir := filepath.Join(t.TempDir(), "reports")
	out, err := c.Save(r, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "weekly_report_20251110.md"), out.Markdown)

	md, err := os.ReadFile(out.Markdown)
	require.NoError(t, err)
	assert.Equal(t, r.Markdown, string(md))

	page, err := os.ReadFile(out.HTML)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<h2>一、政策法规</h2>")
	assert.Contains(t, string(page), `href="https://example.com/a"`)
	assert.Contains(t, string(page), "nofollow")
	assert.Contains(t, string(page), "查看详情</a>")
}

func TestComposerHTMLDropsScrapedMarkup(t *testing.T) {
	t.Parallel()

	a := article("https://example.com/x", 85, domain.CategoryMarket)
	a.Title = `<script>alert(1)</script>液冷<img src=x onerror=alert(2)>`

	c := NewComposer("")
	page, err := c.HTML(c.Compose([]domain.ScoredArticle{a}, reportDate, Insights{}))
	require.NoError(t, err)
	assert.NotContains(t, page, "<script>")
	assert.NotContains(t, page, "<img")
	assert.Contains(t, page, "液冷")
}

func TestComposeEscapesTitleMarkup(t *testing.T) {
	t.Parallel()

	a := article("https://example.com/m", 85, domain.CategoryMarket)
	a.Title = "# 液冷[市场]*爆发*\n## 注入"
	a.Summary = "[点击](https://evil.example)"
	other := article("https://example.com/o", 20, domain.CategoryOther)
	other.Title = "**低优先级** _标题_"

	c := NewComposer("")
	r := c.Compose([]domain.ScoredArticle{a, other}, reportDate, Insights{})
	assert.Contains(t, r.Markdown, `### 1. \# 液冷\[市场\]\*爆发\* \#\# 注入`)
	assert.Contains(t, r.Markdown, `\[点击\](https://evil.example)`)
	assert.Contains(t, r.Markdown, `1. **\*\*低优先级\*\* \_标题\_**`)
	assert.NotContains(t, r.Markdown, "\n## 注入")

	page, err := c.HTML(r)
	require.NoError(t, err)
	assert.Contains(t, page, "# 液冷[市场]*爆发* ## 注入")
	assert.NotContains(t, page, "<h2>注入</h2>")
	assert.NotContains(t, page, `href="https://evil.example"`)
}

func TestComposeRendersInsights(t *testing.T) {
	t.Parallel()

	a := article("https://example.com/p", 85, domain.CategoryPolicy)
	in := Insights{
		Overview: "本周算力政策密集出台",
		Comments: map[domain.Category]string{
			domain.CategoryPolicy: "国家级算力政策加速落地",
			domain.CategoryMarket: "市场需求持续增长",
		},
	}
	md := NewComposer("").Compose([]domain.ScoredArticle{a}, reportDate, in).Markdown

	overview := strings.Index(md, "## 本周概览\n\n本周算力政策密集出台")
	policy := strings.Index(md, "## 一、政策法规\n\n**💡 趋势洞察**：国家级算力政策加速落地")
	require.GreaterOrEqual(t, overview, 0)
	require.GreaterOrEqual(t, policy, 0)
	assert.Less(t, overview, policy)
	assert.Contains(t, md, "## 四、市场动态\n\n**💡 趋势洞察**：市场需求持续增长")
}

func TestComposeWithoutInsights(t *testing.T) {
	t.Parallel()

	md := NewComposer("").Compose([]domain.ScoredArticle{article("https://example.com/p", 85, domain.CategoryPolicy)}, reportDate, Insights{}).Markdown
	assert.NotContains(t, md, "本周概览")
	assert.NotContains(t, md, "趋势洞察")
}
