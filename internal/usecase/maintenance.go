package usecase

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"IDCIntel/internal/classify"
	"IDCIntel/internal/domain"
	"IDCIntel/internal/ports"
	"IDCIntel/internal/scoring"
)

// MaintenanceDeps wires the jobs that refresh stored articles before a report.
type MaintenanceDeps struct {
	Repository      ports.ArticleRepository
	Scorer          *scoring.Scorer
	Classifier      *classify.Classifier
	Summarizer      ports.Summarizer
	LinkChecker     ports.LinkChecker
	LinkConcurrency int
	Logger          *zap.Logger
}

// Maintenance rescoring, summary filling and link verification.
type Maintenance struct {
	repository      ports.ArticleRepository
	scorer          *scoring.Scorer
	classifier      *classify.Classifier
	summarizer      ports.Summarizer
	checker         ports.LinkChecker
	linkConcurrency int
	logger          *zap.Logger
}

// LinkStats counts the outcome of a VerifyLinks run. Unreachable links keep
// their previous validity.
type LinkStats struct {
	Checked     int
	Valid       int
	Invalid     int
	Unreachable int
}

// SummaryStats counts the outcome of a FillSummaries run.
type SummaryStats struct {
	Attempted int
	Filled    int
	Failed    int
}

// NewMaintenance builds the maintenance use case.
func NewMaintenance(deps MaintenanceDeps) *Maintenance {
	m := &Maintenance{
		repository:      deps.Repository,
		scorer:          deps.Scorer,
		classifier:      deps.Classifier,
		summarizer:      deps.Summarizer,
		checker:         deps.LinkChecker,
		linkConcurrency: deps.LinkConcurrency,
		logger:          deps.Logger,
	}
	if m.scorer == nil {
		m.scorer = scoring.New()
	}
	if m.classifier == nil {
		m.classifier = classify.New()
	}
	if m.linkConcurrency <= 0 {
		m.linkConcurrency = 8
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// Rescore recomputes scores and labels for the window, since timeliness decays
// between collection and reporting. It returns the number of updated rows.
func (m *Maintenance) Rescore(ctx context.Context, days int) (int, error) {
	articles, err := m.window(ctx, days)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, a := range articles {
		content := articleText(a)
		scores := m.scorer.Score(a.Title, content, a.PublishDate, a.SourceTier)
		cats := m.classifier.Classify(a.Title, content)
		if err := m.repository.UpdateScores(ctx, a.ID, cats, scores); err != nil {
			return updated, eris.Wrapf(err, "usecase: rescore article %d", a.ID)
		}
		updated++
	}
	m.logger.Info("rescore done", zap.Int("updated", updated))
	return updated, nil
}

// FillSummaries asks the summarizer for every article in the window that has
// none. A failed summary is counted and skipped.
func (m *Maintenance) FillSummaries(ctx context.Context, days int) (SummaryStats, error) {
	var stats SummaryStats
	if m.summarizer == nil {
		return stats, eris.New("usecase: no summarizer configured")
	}
	articles, err := m.window(ctx, days)
	if err != nil {
		return stats, err
	}

	for _, a := range articles {
		if a.SummaryGenerated {
			continue
		}
		stats.Attempted++
		summary, err := m.summarizer.Summarize(ctx, a.Title, articleText(a))
		if err != nil {
			if ctx.Err() != nil {
				return stats, eris.Wrap(ctx.Err(), "usecase: fill summaries canceled")
			}
			stats.Failed++
			m.logger.Warn("summary failed", zap.Int64("id", a.ID), zap.Error(err))
			continue
		}
		if err := m.repository.UpdateSummary(ctx, a.ID, summary); err != nil {
			return stats, eris.Wrapf(err, "usecase: save summary %d", a.ID)
		}
		stats.Filled++
	}
	m.logger.Info("summaries done",
		zap.Int("attempted", stats.Attempted), zap.Int("filled", stats.Filled), zap.Int("failed", stats.Failed))
	return stats, nil
}

type linkResult struct {
	valid bool
	err   error
}

// VerifyLinks probes every article url of the window in parallel and stores
// the definitive answers.
func (m *Maintenance) VerifyLinks(ctx context.Context, days int) (LinkStats, error) {
	var stats LinkStats
	if m.checker == nil {
		return stats, eris.New("usecase: no link checker configured")
	}
	articles, err := m.window(ctx, days)
	if err != nil {
		return stats, err
	}

	results := make([]linkResult, len(articles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.linkConcurrency)
	for i, a := range articles {
		g.Go(func() error {
			ok, err := m.checker.Check(gctx, a.URL)
			results[i] = linkResult{valid: ok, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return stats, eris.Wrap(err, "usecase: verify links canceled")
	}

	for i, a := range articles {
		stats.Checked++
		r := results[i]
		if r.err != nil {
			stats.Unreachable++
			m.logger.Debug("link unreachable", zap.String("url", a.URL), zap.Error(r.err))
			continue
		}
		if r.valid {
			stats.Valid++
		} else {
			stats.Invalid++
		}
		if r.valid == a.LinkValid {
			continue
		}
		if err := m.repository.UpdateLinkValidity(ctx, a.ID, r.valid); err != nil {
			return stats, eris.Wrapf(err, "usecase: save link validity %d", a.ID)
		}
	}
	m.logger.Info("links verified",
		zap.Int("checked", stats.Checked), zap.Int("valid", stats.Valid),
		zap.Int("invalid", stats.Invalid), zap.Int("unreachable", stats.Unreachable))
	return stats, nil
}

func (m *Maintenance) window(ctx context.Context, days int) ([]domain.ScoredArticle, error) {
	if m.repository == nil {
		return nil, eris.New("usecase: no repository configured")
	}
	articles, err := m.repository.ArticlesInWindow(ctx, days)
	if err != nil {
		return nil, eris.Wrap(err, "usecase: load window")
	}
	return articles, nil
}

// articleText is the text scored at ingest. Summary is not consulted since
// it may have been rewritten after scoring.
func articleText(a domain.ScoredArticle) string {
	return firstNonBlank(a.Content, a.Title)
}
