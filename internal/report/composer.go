package report

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"

	"IDCIntel/internal/domain"
)

const footer = "*本周报由IDC行业竞争情报系统自动生成*\n"

// markdownEscaper makes scraped text render literally.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"#", `\#`,
	"<", `\<`,
	">", `\>`,
	"|", `\|`,
	"~", `\~`,
	"\r", " ",
	"\n", " ",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Report is a rendered weekly report.
type Report struct {
	Date     time.Time
	Sections []Section
	Total    int
	Insights Insights
	Markdown string
}

// Artifacts lists files written by Save.
type Artifacts struct {
	Markdown string
	HTML     string
}

// Composer renders allocated sections as Markdown and HTML.
type Composer struct {
	title  string
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewComposer builds a composer. An empty title uses the default heading.
func NewComposer(title string) *Composer {
	if title == "" {
		title = "IDC行业周报"
	}
	// Titles and links come from scraped pages.
	policy := bluemonday.UGCPolicy()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return &Composer{title: title, md: goldmark.New(), policy: policy}
}

// Compose allocates the window's articles and renders the Markdown report.
// A zero Insights renders no overview and no section comments.
func (c *Composer) Compose(articles []domain.ScoredArticle, date time.Time, insights Insights) Report {
	r := Report{Date: date, Total: len(articles), Insights: insights}
	if len(articles) == 0 {
		r.Markdown = c.emptyReport(date)
		return r
	}

	r.Sections = Allocate(articles)

	var b strings.Builder
	c.writeHeader(&b, date)
	if insights.Overview != "" {
		fmt.Fprintf(&b, "## 本周概览\n\n%s\n\n---\n\n", escapeMarkdown(insights.Overview))
	}
	for _, s := range r.Sections {
		writeSection(&b, s, insights.Comments[s.Category])
	}
	writeStatistics(&b, articles)
	r.Markdown = b.String()
	return r
}

// HTML converts the Markdown report into a standalone page.
func (c *Composer) HTML(r Report) (string, error) {
	var body bytes.Buffer
	if err := c.md.Convert([]byte(r.Markdown), &body); err != nil {
		return "", eris.Wrap(err, "report: render html")
	}
	title := html.EscapeString(fmt.Sprintf("%s %s", c.title, r.Date.Format(domain.DateLayout)))
	return fmt.Sprintf(htmlPage, title, c.policy.SanitizeBytes(body.Bytes())), nil
}

// Save writes weekly_report_YYYYMMDD.md and .html into dir.
func (c *Composer) Save(r Report, dir string) (Artifacts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifacts{}, eris.Wrapf(err, "report: create %s", dir)
	}
	base := filepath.Join(dir, "weekly_report_"+r.Date.Format("20060102"))

	out := Artifacts{Markdown: base + ".md", HTML: base + ".html"}
	if err := os.WriteFile(out.Markdown, []byte(r.Markdown), 0o644); err != nil {
		return Artifacts{}, eris.Wrap(err, "report: write markdown")
	}

	page, err := c.HTML(r)
	if err != nil {
		return Artifacts{}, err
	}
	if err := os.WriteFile(out.HTML, []byte(page), 0o644); err != nil {
		return Artifacts{}, eris.Wrap(err, "report: write html")
	}
	return out, nil
}

func (c *Composer) writeHeader(b *strings.Builder, date time.Time) {
	year, week := date.ISOWeek()
	fmt.Fprintf(b, "# %s | %d年第%d周\n\n", c.title, year, week)
	fmt.Fprintf(b, "**报告日期**: %s\n", chineseDate(date))
	b.WriteString("**数据来源**: 多源情报采集系统\n")
	b.WriteString("**覆盖范围**: IDC/数据中心/云计算/AI算力\n\n---\n\n")
}

func (c *Composer) emptyReport(date time.Time) string {
	return fmt.Sprintf("# %s\n\n**报告日期**: %s\n\n本周暂无符合条件的文章数据。\n\n---\n\n%s",
		c.title, chineseDate(date), footer)
}

func writeSection(b *strings.Builder, s Section, comment string) {
	fmt.Fprintf(b, "## %s\n\n", s.Heading)
	if comment != "" {
		fmt.Fprintf(b, "**💡 趋势洞察**：%s\n\n", escapeMarkdown(comment))
	}
	if len(s.Articles) == 0 {
		b.WriteString(s.Empty + "\n\n")
		return
	}
	for i, a := range s.Articles {
		if s.Category == domain.CategoryOther {
			writeCompact(b, i+1, a)
		} else {
			writeArticle(b, i+1, a)
		}
	}
	b.WriteString("\n")
}

func writeArticle(b *strings.Builder, n int, a domain.ScoredArticle) {
	fmt.Fprintf(b, "### %d. %s\n\n", n, escapeMarkdown(a.Title))
	fmt.Fprintf(b, "**【%s】** %s | %s | 评分: %d\n\n",
		a.Categories, a.Source, a.PublishDate.Format(domain.DateLayout), a.Scores.Total)
	if a.Summary != "" {
		b.WriteString(escapeMarkdown(a.Summary) + "\n\n")
	}
	fmt.Fprintf(b, "[查看详情](%s)\n\n", a.URL)
}

func writeCompact(b *strings.Builder, n int, a domain.ScoredArticle) {
	fmt.Fprintf(b, "%d. **%s**  \n", n, escapeMarkdown(a.Title))
	fmt.Fprintf(b, "   【%s】%s | %s | [详情](%s)\n\n",
		a.Categories, a.Source, a.PublishDate.Format(domain.DateLayout), a.URL)
}

func writeStatistics(b *strings.Builder, articles []domain.ScoredArticle) {
	byPriority := map[domain.Priority]int{}
	byCategory := map[domain.Category]int{}
	for _, a := range articles {
		byPriority[a.Scores.Priority]++
		for _, c := range a.Categories {
			byCategory[c]++
		}
	}

	b.WriteString("---\n\n## 本周统计\n\n")
	fmt.Fprintf(b, "- **总文章数**: %d\n", len(articles))
	fmt.Fprintf(b, "- **高优先级**: %d\n", byPriority[domain.PriorityHigh])
	fmt.Fprintf(b, "- **中优先级**: %d\n", byPriority[domain.PriorityMedium])
	fmt.Fprintf(b, "- **低优先级**: %d\n\n", byPriority[domain.PriorityLow])

	b.WriteString("**分类分布**:\n")
	for _, c := range append(append([]domain.Category{}, domain.CategoryOrder...), domain.CategoryOther) {
		if n := byCategory[c]; n > 0 {
			fmt.Fprintf(b, "- %s: %d篇\n", c, n)
		}
	}
	b.WriteString("\n---\n\n" + footer)
}

func chineseDate(t time.Time) string {
	return t.Format("2006年01月02日")
}

const htmlPage = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`
