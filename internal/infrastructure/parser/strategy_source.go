package parser

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"IDCIntel/internal/config"
	"IDCIntel/internal/domain"
	"IDCIntel/internal/ports"
	"IDCIntel/internal/scanner"
)

const defaultSourceConcurrency = 4

// StrategySource implements ArticleSource via registered scanner strategies.
type StrategySource struct {
	registry    *scanner.Registry
	sources     []config.Source
	concurrency int
	logger      *zap.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with the source catalog.
func NewStrategySource(reg *scanner.Registry, sources []config.Source, concurrency int, logger *zap.Logger) *StrategySource {
	if concurrency <= 0 {
		concurrency = defaultSourceConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StrategySource{
		registry:    reg,
		sources:     sources,
		concurrency: concurrency,
		logger:      logger,
	}
}

// FetchCandidates scans all sources in parallel. Items keep catalog order so
// repeated runs over the same pages produce the same batch.
func (s *StrategySource) FetchCandidates(ctx context.Context, day time.Time) (domain.CandidateBatch, error) {
	if s.registry == nil {
		return domain.CandidateBatch{}, eris.New("parser: scanner registry is not configured")
	}

	strategies := make([]scanner.Scanner, len(s.sources))
	for i, src := range s.sources {
		strategy, err := s.registry.Resolve(src.Scanner)
		if err != nil {
			return domain.CandidateBatch{}, eris.Wrapf(err, "parser: source %s", src.Name)
		}
		strategies[i] = strategy
	}

	s.logger.Debug("fetch candidates", zap.Int("sources", len(s.sources)), zap.String("day", day.Format(domain.DateLayout)))

	results := make([][]domain.CandidateItem, len(s.sources))
	errs := make([]error, len(s.sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, src := range s.sources {
		g.Go(func() error {
			items, err := strategies[i].Scan(gctx, scanner.Request{Day: day, Source: src})
			if err != nil {
				errs[i] = err
				return nil
			}
			for j := range items {
				if items[j].Source == "" {
					items[j].Source = src.Name
				}
				if items[j].SourceTier == 0 {
					items[j].SourceTier = src.Tier
				}
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return domain.CandidateBatch{}, eris.Wrap(err, "parser: fetch canceled")
	}

	var batch domain.CandidateBatch
	for i, src := range s.sources {
		if errs[i] != nil {
			s.logger.Warn("source failed", zap.String("source", src.Name), zap.Error(errs[i]))
			batch.FailedSources = append(batch.FailedSources, src.Name)
			continue
		}
		s.logger.Debug("source produced items", zap.String("source", src.Name), zap.Int("count", len(results[i])))
		batch.Items = append(batch.Items, results[i]...)
	}

	s.logger.Info("fetch done", zap.Int("items", len(batch.Items)), zap.Int("sources_failed", len(batch.FailedSources)))
	return batch, nil
}
