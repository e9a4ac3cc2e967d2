package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"IDCIntel/internal/classify"
	"IDCIntel/internal/domain"
	"IDCIntel/internal/filter"
	"IDCIntel/internal/ports"
	"IDCIntel/internal/relevance"
	"IDCIntel/internal/scoring"
)

const defaultConcurrency = 4

// Judge is the relevance decision the pipeline depends on.
type Judge interface {
	Judge(ctx context.Context, title, content string) relevance.Verdict
}

// PipelineDeps wires all driven adapters into the collection pipeline.
type PipelineDeps struct {
	Source      ports.ArticleSource
	Repository  ports.ArticleRepository
	Filter      *filter.QuickFilter
	Gate        Judge
	Scorer      *scoring.Scorer
	Classifier  *classify.Classifier
	Concurrency int
	Logger      *zap.Logger
}

// Pipeline implements the candidate-ingestion workflow:
// quick filter, relevance gate, scorer, classifier, store.
type Pipeline struct {
	source      ports.ArticleSource
	repository  ports.ArticleRepository
	filter      *filter.QuickFilter
	gate        Judge
	scorer      *scoring.Scorer
	classifier  *classify.Classifier
	concurrency int
	logger      *zap.Logger
}

// NewPipeline constructs the orchestration component. Missing pure stages
// get their defaults.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		source:      deps.Source,
		repository:  deps.Repository,
		filter:      deps.Filter,
		gate:        deps.Gate,
		scorer:      deps.Scorer,
		classifier:  deps.Classifier,
		concurrency: deps.Concurrency,
		logger:      deps.Logger,
	}
	if p.filter == nil {
		p.filter = filter.NewQuickFilter(nil)
	}
	if p.gate == nil {
		p.gate = relevance.NewGate(nil)
	}
	if p.scorer == nil {
		p.scorer = scoring.New()
	}
	if p.classifier == nil {
		p.classifier = classify.New()
	}
	if p.concurrency <= 0 {
		p.concurrency = defaultConcurrency
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// Collect fetches one batch from the configured sources and ingests it.
func (p *Pipeline) Collect(ctx context.Context, day time.Time) (BatchStats, error) {
	if p.source == nil {
		return BatchStats{}, eris.New("usecase: no article source configured")
	}
	batch, err := p.source.FetchCandidates(ctx, day)
	if err != nil {
		return BatchStats{}, eris.Wrap(err, "usecase: fetch candidates")
	}
	stats, err := p.Ingest(ctx, batch.Items)
	stats.SourcesFailed = len(batch.FailedSources)
	p.logger.Info("batch done", stats.Fields()...)
	return stats, err
}

type outcome int

const (
	outcomeMalformed outcome = iota
	outcomeFiltered
	outcomeRejected
	outcomeAdmitted
	outcomeDegraded
)

type evaluation struct {
	outcome outcome
	article domain.ScoredArticle
}

// Ingest runs the pure stages and the gate in parallel, then inserts admitted
// items one by one in input order. Inserts that already happened stay when a
// later one fails; only storage failures are returned.
func (p *Pipeline) Ingest(ctx context.Context, items []domain.CandidateItem) (BatchStats, error) {
	if p.repository == nil {
		return BatchStats{}, eris.New("usecase: no repository configured")
	}
	stats := newBatchStats(len(items))

	evals := make([]evaluation, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, item := range items {
		g.Go(func() error {
			evals[i] = p.evaluate(gctx, item)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		stats.finish()
		return stats, eris.Wrap(err, "usecase: ingest canceled")
	}

	var llmTotal, llmRelevance, judged int
	for _, ev := range evals {
		switch ev.outcome {
		case outcomeMalformed:
			stats.Malformed++
			continue
		case outcomeFiltered:
			stats.QuickFiltered++
			continue
		case outcomeRejected:
			stats.GateRejected++
			continue
		case outcomeDegraded:
			stats.Degraded++
		}
		judged++
		llmTotal += ev.article.LLM.Total
		llmRelevance += ev.article.LLM.RelevanceScore

		if err := ctx.Err(); err != nil {
			stats.finish()
			return stats, eris.Wrap(err, "usecase: ingest canceled")
		}
		_, inserted, err := p.repository.Insert(ctx, ev.article)
		if err != nil {
			stats.Errored++
			stats.finish()
			return stats, eris.Wrapf(err, "usecase: store %s", ev.article.URL)
		}
		if !inserted {
			stats.Duplicates++
			p.logger.Debug("duplicate article", zap.String("url", ev.article.URL))
			continue
		}
		stats.Stored++
		stats.StoredBySource[ev.article.Source]++
	}

	if judged > 0 {
		stats.AvgLLMTotal = float64(llmTotal) / float64(judged)
		stats.AvgLLMRelevance = float64(llmRelevance) / float64(judged)
	}
	stats.finish()
	return stats, nil
}

func (p *Pipeline) evaluate(ctx context.Context, item domain.CandidateItem) evaluation {
	if item.Malformed() {
		return evaluation{outcome: outcomeMalformed}
	}
	title := strings.TrimSpace(item.Title)
	if term := p.filter.Match(title); term != "" {
		p.logger.Debug("quick filtered", zap.String("title", title), zap.String("term", term))
		return evaluation{outcome: outcomeFiltered}
	}

	content := contentOf(item)
	verdict := p.gate.Judge(ctx, title, content)
	if !verdict.Outcome.Admits() {
		p.logger.Debug("gate rejected", zap.String("title", title),
			zap.Int("relevance", verdict.Evidence.RelevanceScore))
		return evaluation{outcome: outcomeRejected}
	}

	summary := strings.TrimSpace(item.Summary)
	if verdict.Outcome == relevance.Admitted && verdict.Summary != "" {
		summary = verdict.Summary
	}

	out := outcomeAdmitted
	if verdict.Outcome == relevance.Degraded {
		out = outcomeDegraded
	}
	return evaluation{
		outcome: out,
		article: domain.ScoredArticle{
			URL:         strings.TrimSpace(item.URL),
			Title:       title,
			Source:      item.Source,
			SourceTier:  item.SourceTier,
			PublishDate: item.PublishDate,
			Content:     content,
			Summary:     summary,
			Categories:  p.classifier.Classify(title, content),
			Scores:      p.scorer.Score(title, content, item.PublishDate, item.SourceTier),
			LLM:         verdict.Evidence,
			LinkValid:   true,
			Processed:   true,
		},
	}
}

// contentOf prefers body text, then the list summary, then the title.
func contentOf(item domain.CandidateItem) string {
	return firstNonBlank(item.Content, item.Summary, item.Title)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// BatchStats counts every outcome of one ingestion run.
type BatchStats struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Fetched       int
	Malformed     int
	QuickFiltered int
	GateRejected  int
	Degraded      int
	Stored        int
	Duplicates    int
	Errored       int
	SourcesFailed int

	AvgLLMTotal     float64
	AvgLLMRelevance float64
	StoredBySource  map[string]int
}

func newBatchStats(fetched int) BatchStats {
	return BatchStats{
		RunID:          uuid.NewString(),
		StartedAt:      time.Now(),
		Fetched:        fetched,
		StoredBySource: map[string]int{},
	}
}

func (s *BatchStats) finish() {
	s.FinishedAt = time.Now()
}

// Fields renders the stats for structured logging.
func (s BatchStats) Fields() []zap.Field {
	return []zap.Field{
		zap.String("run_id", s.RunID),
		zap.Int("fetched", s.Fetched),
		zap.Int("malformed", s.Malformed),
		zap.Int("quick_filtered", s.QuickFiltered),
		zap.Int("gate_rejected", s.GateRejected),
		zap.Int("degraded", s.Degraded),
		zap.Int("stored", s.Stored),
		zap.Int("duplicates", s.Duplicates),
		zap.Int("errored", s.Errored),
		zap.Int("sources_failed", s.SourcesFailed),
		zap.Float64("avg_llm_total", s.AvgLLMTotal),
		zap.Float64("avg_llm_relevance", s.AvgLLMRelevance),
		zap.Any("stored_by_source", s.StoredBySource),
		zap.Duration("elapsed", s.FinishedAt.Sub(s.StartedAt)),
	}
}
