package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IDCIntel/internal/domain"
	"IDCIntel/internal/relevance"
	"IDCIntel/internal/scoring"
)

func testScorer() *scoring.Scorer {
	return scoring.New(scoring.WithClock(func() time.Time { return testNow }))
}

func scriptedJudge(title, _ string) relevance.Verdict {
	switch {
	case strings.Contains(title, "无关"):
		v := admitted(3, "")
		v.Outcome = relevance.Rejected
		return v
	case strings.Contains(title, "降级"):
		return relevance.Fallback(title, relevance.ReasonTimeout)
	default:
		return admitted(16, "模型摘要")
	}
}

func newTestPipeline(repo *memRepo, src fakeSource) *Pipeline {
	return NewPipeline(PipelineDeps{
		Source:      src,
		Repository:  repo,
		Gate:        judgeFunc(scriptedJudge),
		Scorer:      testScorer(),
		Concurrency: 3,
	})
}

func candidate(title, url string) domain.CandidateItem {
	return domain.CandidateItem{
		Title:       title,
		URL:         url,
		PublishDate: testNow.AddDate(0, 0, -1),
		Summary:     "列表摘要",
		Source:      "中国IDC圈",
		SourceTier:  1,
	}
}

func TestIngestCountsEveryOutcome(t *testing.T) {
	t.Parallel()

	repo := &memRepo{}
	items := []domain.CandidateItem{
		candidate("", "https://a/0"),
		candidate("白酒企业布局数据中心", "https://a/1"),
		candidate("无关新闻", "https://a/2"),
		candidate("降级的数据中心新闻", "https://a/3"),
		candidate("数据中心新闻", "https://a/4"),
		candidate("数据中心新闻 重复", "https://a/4"),
		candidate("GPU算力中心投产", "https://a/5"),
	}

	stats, err := newTestPipeline(repo, fakeSource{}).Ingest(context.Background(), items)
	require.NoError(t, err)

	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, 7, stats.Fetched)
	assert.Equal(t, 1, stats.Malformed)
	assert.Equal(t, 1, stats.QuickFiltered)
	assert.Equal(t, 1, stats.GateRejected)
	assert.Equal(t, 1, stats.Degraded)
	assert.Equal(t, 3, stats.Stored)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 0, stats.Errored)
	assert.Equal(t, map[string]int{"中国IDC圈": 3}, stats.StoredBySource)
	// three admitted at 26, one degraded at 20, over four judged items
	assert.InDelta(t, 24.5, stats.AvgLLMTotal, 0.001)
	assert.InDelta(t, 14.5, stats.AvgLLMRelevance, 0.001)
	assert.False(t, stats.FinishedAt.Before(stats.StartedAt))
}

func TestIngestStoresInInputOrder(t *testing.T) {
	t.Parallel()

	repo := &memRepo{}
	var items []domain.CandidateItem
	for i := 0; i < 20; i++ {
		items = append(items, candidate("数据中心新闻", "https://a/"+string(rune('a'+i))))
	}
	_, err := newTestPipeline(repo, fakeSource{}).Ingest(context.Background(), items)
	require.NoError(t, err)

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 20)
	for i, a := range all {
		assert.Equal(t, items[i].URL, a.URL)
	}
}

func TestIngestBuildsScoredArticle(t *testing.T) {
	t.Parallel()

	repo := &memRepo{}
	item := domain.CandidateItem{
		Title:       "某公司完成15亿元C轮融资用于IDC建设",
		URL:         "https://a/e2e",
		PublishDate: testNow.AddDate(0, 0, -3),
		Content:     "本轮资金将用于建设大型数据中心并部署GPU集群",
		Source:      "中国IDC圈",
		SourceTier:  1,
	}
	_, err := newTestPipeline(repo, fakeSource{}).Ingest(context.Background(), []domain.CandidateItem{item})
	require.NoError(t, err)

	got, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 79, got.Scores.Total)
	assert.Equal(t, domain.PriorityHigh, got.Scores.Priority)
	assert.Equal(t, domain.Categories{domain.CategoryInvestment, domain.CategoryTechnology}, got.Categories)
	assert.Equal(t, 16, got.LLM.RelevanceScore)
	assert.Equal(t, "模型摘要", got.Summary)
	assert.True(t, got.Processed)
	assert.True(t, got.LinkValid)
}

func TestIngestDegradedKeepsListSummary(t *testing.T) {
	t.Parallel()

	repo := &memRepo{}
	_, err := newTestPipeline(repo, fakeSource{}).Ingest(context.Background(),
		[]domain.CandidateItem{candidate("降级的数据中心新闻", "https://a/d")})
	require.NoError(t, err)

	got, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "列表摘要", got.Summary)
	assert.Equal(t, 20, got.LLM.Total)
	assert.Contains(t, got.LLM.Reason, relevance.ReasonTimeout)
}

func TestIngestStorageFailureIsFatal(t *testing.T) {
	t.Parallel()

	repo := &memRepo{insertErr: errStorageDown}
	stats, err := newTestPipeline(repo, fakeSource{}).Ingest(context.Background(),
		[]domain.CandidateItem{candidate("数据中心新闻", "https://a/x"), candidate("数据中心新闻", "https://a/y")})
	require.Error(t, err)
	assert.ErrorIs(t, err, errStorageDown)
	assert.Equal(t, 1, stats.Errored)
	assert.Equal(t, 0, stats.Stored)
}

func TestIngestCanceledStoresNothing(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := &memRepo{}
	_, err := newTestPipeline(repo, fakeSource{}).Ingest(ctx, []domain.CandidateItem{candidate("数据中心新闻", "https://a/x")})
	require.Error(t, err)
	n, _ := repo.Count(context.Background())
	assert.Zero(t, n)
}

func TestCollectReportsFailedSources(t *testing.T) {
	t.Parallel()

	repo := &memRepo{}
	src := fakeSource{batch: domain.CandidateBatch{
		Items:         []domain.CandidateItem{candidate("数据中心新闻", "https://a/x")},
		FailedSources: []string{"通信世界网"},
	}}
	stats, err := newTestPipeline(repo, src).Collect(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Stored)
	assert.Equal(t, 1, stats.SourcesFailed)
}

func TestCollectSourceError(t *testing.T) {
	t.Parallel()

	_, err := newTestPipeline(&memRepo{}, fakeSource{err: context.Canceled}).Collect(context.Background(), testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngestWithoutLLMDegradesEverything(t *testing.T) {
	t.Parallel()

	repo := &memRepo{}
	p := NewPipeline(PipelineDeps{Repository: repo, Gate: relevance.NewGate(nil), Scorer: testScorer()})
	stats, err := p.Ingest(context.Background(), []domain.CandidateItem{candidate("数据中心新闻", "https://a/x")})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Degraded)
	assert.Equal(t, 1, stats.Stored)
}
