package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"IDCIntel/internal/domain"
	"IDCIntel/internal/ports"
	"IDCIntel/internal/report"
)

const (
	insightSystemPrompt = "你是IDC行业竞争情报分析专家。只返回JSON。"
	insightUserPrompt   = `请基于本周收集的文章，生成周报总结和板块点评。

【本周统计】
- 总文章数: %d篇
- 高优先级: %d篇

【分类文章概览】
%s

【任务要求】
1. executive_summary（整体总结）：100-200字，概括本周政策、投资、技术、市场等方面的重点，突出关键数据和重要趋势。
2. section_insights（板块点评）：为每个有文章的板块生成一句30-50字的点评，点出核心趋势或关键发现。没有文章的板块不输出。

【返回格式】
严格返回JSON，不要用markdown代码块包裹：
{
  "executive_summary": "本周IDC行业呈现三大亮点：一是政策层面...",
  "section_insights": {
    "政策法规": "国家级算力政策密集出台，地方配套措施加速落地",
    "投资动态": "百亿级项目频现，AI算力中心成投资热点"
  }
}`

	fallbackOverview = "本周IDC行业动态丰富，详见各板块内容。"
	highPerSection   = 3
	topPerSection    = 2
)

// InsightWriter asks the chat service for the weekly overview and section
// comments. Every failure falls back to report.DefaultInsights.
type InsightWriter struct {
	client  ports.ChatClient
	timeout time.Duration
	logger  *zap.Logger
}

// NewInsightWriter builds a writer. A nil client always yields the defaults.
func NewInsightWriter(client ports.ChatClient, timeout time.Duration, logger *zap.Logger) *InsightWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InsightWriter{client: client, timeout: timeout, logger: logger}
}

// Insights never returns an error; the report is still built without the
// service.
func (w *InsightWriter) Insights(ctx context.Context, articles []domain.ScoredArticle) report.Insights {
	if len(articles) == 0 {
		return report.Insights{}
	}
	if w.client == nil {
		return report.DefaultInsights(articles)
	}

	callCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	raw, err := w.client.Complete(callCtx, insightSystemPrompt, BuildInsightPrompt(articles))
	if err != nil {
		w.logger.Warn("insights: call failed, using defaults", zap.Error(err))
		return report.DefaultInsights(articles)
	}
	in, err := ParseInsights(raw, articles)
	if err != nil {
		w.logger.Warn("insights: unusable reply, using defaults", zap.Error(err))
		return report.DefaultInsights(articles)
	}
	return in
}

// BuildInsightPrompt lists each non-empty section with its count and up to
// three High titles, or the two best-scored ones when none is High.
func BuildInsightPrompt(articles []domain.ScoredArticle) string {
	high := 0
	for _, a := range articles {
		if a.Scores.Priority == domain.PriorityHigh {
			high++
		}
	}

	var blocks []string
	for _, c := range report.SectionCategories() {
		members := withLabel(articles, c)
		if len(members) == 0 {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s（%d篇）:", report.SectionTitle(c), len(members))
		for _, a := range highlights(members) {
			fmt.Fprintf(&b, "\n  - %s (评分:%d, %s)", a.Title, a.Scores.Total, a.Source)
		}
		blocks = append(blocks, b.String())
	}
	return fmt.Sprintf(insightUserPrompt, len(articles), high, strings.Join(blocks, "\n\n"))
}

// ParseInsights decodes the reply. Comments are kept only for sections that
// have articles; a missing overview gets a neutral sentence.
func ParseInsights(raw string, articles []domain.ScoredArticle) (report.Insights, error) {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		body = body[start : end+1]
	}
	if !gjson.Valid(body) || !gjson.Parse(body).IsObject() {
		return report.Insights{}, eris.New("insights: reply is not a JSON object")
	}
	doc := gjson.Parse(body)

	in := report.Insights{
		Overview: strings.TrimSpace(doc.Get("executive_summary").String()),
		Comments: map[domain.Category]string{},
	}
	if in.Overview == "" {
		in.Overview = fallbackOverview
	}

	sections := doc.Get("section_insights")
	if !sections.IsObject() {
		return in, nil
	}
	for _, c := range report.SectionCategories() {
		if len(withLabel(articles, c)) == 0 {
			continue
		}
		if text := strings.TrimSpace(sections.Get(gjson.Escape(report.SectionTitle(c))).String()); text != "" {
			in.Comments[c] = text
		}
	}
	return in, nil
}

func withLabel(articles []domain.ScoredArticle, c domain.Category) []domain.ScoredArticle {
	var out []domain.ScoredArticle
	for _, a := range articles {
		if a.HasCategory(c) {
			out = append(out, a)
		}
	}
	return out
}

func highlights(members []domain.ScoredArticle) []domain.ScoredArticle {
	var high []domain.ScoredArticle
	for _, a := range members {
		if a.Scores.Priority == domain.PriorityHigh {
			high = append(high, a)
			if len(high) == highPerSection {
				return high
			}
		}
	}
	if len(high) > 0 {
		return high
	}
	sorted := append([]domain.ScoredArticle(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Scores.Total > sorted[j].Scores.Total })
	if len(sorted) > topPerSection {
		sorted = sorted[:topPerSection]
	}
	return sorted
}
