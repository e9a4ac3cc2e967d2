package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"IDCIntel/internal/domain"
	"IDCIntel/internal/relevance"
)

var testNow = time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)

type fakeSource struct {
	batch domain.CandidateBatch
	err   error
}

func (f fakeSource) FetchCandidates(context.Context, time.Time) (domain.CandidateBatch, error) {
	return f.batch, f.err
}

// judgeFunc adapts a function to the Judge interface.
type judgeFunc func(title, content string) relevance.Verdict

func (f judgeFunc) Judge(_ context.Context, title, content string) relevance.Verdict {
	return f(title, content)
}

func admitted(relevanceScore int, summary string) relevance.Verdict {
	return relevance.Verdict{
		Outcome: relevance.Admitted,
		Evidence: domain.LLMEvidence{
			RelevanceScore:     relevanceScore,
			ImportanceScore:    10,
			CategoryScore:      5,
			Total:              relevanceScore + 10,
			CategorySuggestion: "投资",
		},
		Summary: summary,
	}
}

// memRepo is an in-memory ArticleRepository keyed by exact url.
type memRepo struct {
	mu        sync.Mutex
	articles  []domain.ScoredArticle
	insertErr error
	updateErr error
	scoreCall int
}

var errStorageDown = errors.New("storage down")

func (m *memRepo) Insert(_ context.Context, a domain.ScoredArticle) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, false, m.insertErr
	}
	for _, existing := range m.articles {
		if existing.URL == a.URL {
			return 0, false, nil
		}
	}
	a.ID = int64(len(m.articles) + 1)
	a.SummaryGenerated = a.Summary != ""
	m.articles = append(m.articles, a)
	return a.ID, true, nil
}

func (m *memRepo) find(id int64) (*domain.ScoredArticle, error) {
	for i := range m.articles {
		if m.articles[i].ID == id {
			return &m.articles[i], nil
		}
	}
	return nil, errors.New("not found")
}

func (m *memRepo) Get(_ context.Context, id int64) (domain.ScoredArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.find(id)
	if err != nil {
		return domain.ScoredArticle{}, err
	}
	return *a, nil
}

func (m *memRepo) UpdateScores(_ context.Context, id int64, cats domain.Categories, scores domain.Scores) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scoreCall++
	if m.updateErr != nil {
		return m.updateErr
	}
	a, err := m.find(id)
	if err != nil {
		return err
	}
	a.Categories, a.Scores, a.Processed = cats, scores, true
	return nil
}

func (m *memRepo) UpdateSummary(_ context.Context, id int64, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	a, err := m.find(id)
	if err != nil {
		return err
	}
	a.Summary, a.SummaryGenerated = summary, true
	return nil
}

func (m *memRepo) UpdateLinkValidity(_ context.Context, id int64, valid bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	a, err := m.find(id)
	if err != nil {
		return err
	}
	a.LinkValid = valid
	return nil
}

func (m *memRepo) sorted(keep func(domain.ScoredArticle) bool) []domain.ScoredArticle {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ScoredArticle
	for _, a := range m.articles {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Scores.Total > out[j].Scores.Total })
	return out
}

func (m *memRepo) ArticlesInWindow(context.Context, int) ([]domain.ScoredArticle, error) {
	return m.sorted(func(domain.ScoredArticle) bool { return true }), nil
}

func (m *memRepo) ReadyForReport(context.Context, int) ([]domain.ScoredArticle, error) {
	return m.sorted(func(a domain.ScoredArticle) bool {
		return a.Processed && a.SummaryGenerated && a.LinkValid
	}), nil
}

func (m *memRepo) ArticlesByPriority(_ context.Context, p domain.Priority, _ int) ([]domain.ScoredArticle, error) {
	return m.sorted(func(a domain.ScoredArticle) bool { return a.Scores.Priority == p }), nil
}

func (m *memRepo) ArticlesByCategory(_ context.Context, c domain.Category, _ int) ([]domain.ScoredArticle, error) {
	return m.sorted(func(a domain.ScoredArticle) bool { return a.HasCategory(c) }), nil
}

func (m *memRepo) ListAll(context.Context) ([]domain.ScoredArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ScoredArticle(nil), m.articles...), nil
}

func (m *memRepo) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.articles), nil
}

func (m *memRepo) ClearAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles = nil
	return nil
}

func (m *memRepo) Close() error { return nil }

type fakeSummarizer struct {
	fail map[string]bool
}

func (f fakeSummarizer) Summarize(_ context.Context, title, _ string) (string, error) {
	if f.fail[title] {
		return "", errors.New("llm down")
	}
	return "摘要:" + title, nil
}

type fakeChecker map[string]error

func (f fakeChecker) Check(_ context.Context, url string) (bool, error) {
	if err, ok := f[url]; ok {
		return false, err
	}
	return !strings.Contains(url, "dead"), nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	digests []string
	err     error
}

func (f *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.digests = append(f.digests, digest)
	return f.err
}

type fakeDriver struct {
	mu      sync.Mutex
	jobs    map[string]func(time.Time)
	started bool
	stopped bool
	addErr  error
}

func (f *fakeDriver) Add(spec string, job func(time.Time)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	if f.jobs == nil {
		f.jobs = map[string]func(time.Time){}
	}
	f.jobs[spec] = job
	return nil
}

func (f *fakeDriver) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeDriver) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeDriver) fire(spec string) {
	f.mu.Lock()
	job := f.jobs[spec]
	f.mu.Unlock()
	job(testNow)
}
