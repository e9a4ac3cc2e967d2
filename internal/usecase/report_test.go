package usecase

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IDCIntel/internal/domain"
	"IDCIntel/internal/report"
)

func reportArticle(url, title string, total int, cats ...domain.Category) domain.ScoredArticle {
	a := stored(url, title, "摘要")
	a.Categories = cats
	a.Scores = domain.Scores{Total: total, Priority: domain.MapPriority(total)}
	return a
}

func TestReportBuild(t *testing.T) {
	t.Parallel()

	repo := &memRepo{}
	seed(t, repo,
		reportArticle("https://a/1", "液冷数据中心投产", 82, domain.CategoryTechnology),
		reportArticle("https://a/2", "工信部发布能效指南", 55, domain.CategoryPolicy),
	)
	notifier := &fakeNotifier{}
	dir := t.TempDir()

	svc := NewReportService(ReportDeps{Repository: repo, Notifier: notifier, OutputDir: dir})
	res, err := svc.Build(context.Background(), testNow)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Report.Total)
	assert.True(t, res.Notified)
	assert.FileExists(t, res.Artifacts.Markdown)
	assert.FileExists(t, res.Artifacts.HTML)

	md, err := os.ReadFile(res.Artifacts.Markdown)
	require.NoError(t, err)
	assert.Contains(t, string(md), "液冷数据中心投产")

	require.Len(t, notifier.digests, 1)
	digest := notifier.digests[0]
	assert.Contains(t, digest, "2025-11-10")
	assert.Contains(t, digest, "本周收录 2 篇")
	assert.Contains(t, digest, "液冷数据中心投产 (82)")
	assert.NotContains(t, digest, "工信部发布能效指南 (55)")
}

func TestReportReadyOnly(t *testing.T) {
	t.Parallel()

	repo := &memRepo{}
	broken := reportArticle("https://a/dead", "失效链接", 90, domain.CategoryMarket)
	broken.LinkValid = false
	seed(t, repo, broken, reportArticle("https://a/ok", "正常", 50, domain.CategoryMarket))

	svc := NewReportService(ReportDeps{Repository: repo, OutputDir: t.TempDir(), ReadyOnly: true})
	res, err := svc.Build(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Total)
	assert.False(t, res.Notified)
}

func TestReportNotifyFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{err: errors.New("telegram down")}
	svc := NewReportService(ReportDeps{Repository: &memRepo{}, Notifier: notifier, OutputDir: t.TempDir()})
	res, err := svc.Build(context.Background(), testNow)
	require.NoError(t, err)
	assert.False(t, res.Notified)
	assert.FileExists(t, res.Artifacts.Markdown)
}

func TestBuildDigestCapsTitles(t *testing.T) {
	t.Parallel()

	var articles []domain.ScoredArticle
	for i := 0; i < 12; i++ {
		articles = append(articles, reportArticle("https://a/"+string(rune('a'+i)), "高分", 80, domain.CategoryInvestment))
	}
	r := report.NewComposer("").Compose(articles, testNow, report.Insights{})
	digest := BuildDigest(r)
	assert.Contains(t, digest, "另有 2 篇")
}

type insightsFunc func(ctx context.Context, articles []domain.ScoredArticle) report.Insights

func (f insightsFunc) Insights(ctx context.Context, articles []domain.ScoredArticle) report.Insights {
	return f(ctx, articles)
}

func TestReportIncludesInsights(t *testing.T) {
	t.Parallel()

	repo := &memRepo{}
	seed(t, repo, reportArticle("https://a/p", "工信部发布能效指南", 75, domain.CategoryPolicy))

	calls := 0
	insights := insightsFunc(func(_ context.Context, articles []domain.ScoredArticle) report.Insights {
		calls++
		return report.DefaultInsights(articles)
	})
	svc := NewReportService(ReportDeps{Repository: repo, Insights: insights, OutputDir: t.TempDir()})
	res, err := svc.Build(context.Background(), testNow)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Contains(t, res.Report.Markdown, "## 本周概览")
	assert.Contains(t, res.Report.Markdown, "本周政策领域收录1篇文章")
}

func TestReportSkipsInsightsForEmptyWindow(t *testing.T) {
	t.Parallel()

	insights := insightsFunc(func(context.Context, []domain.ScoredArticle) report.Insights {
		t.Fatal("insights requested for an empty window")
		return report.Insights{}
	})
	svc := NewReportService(ReportDeps{Repository: &memRepo{}, Insights: insights, OutputDir: t.TempDir()})
	res, err := svc.Build(context.Background(), testNow)
	require.NoError(t, err)
	assert.NotContains(t, res.Report.Markdown, "本周概览")
}
