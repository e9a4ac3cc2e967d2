package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"IDCIntel/internal/classify"
	"IDCIntel/internal/config"
	"IDCIntel/internal/domain"
	"IDCIntel/internal/filter"
	"IDCIntel/internal/infrastructure/linkcheck"
	"IDCIntel/internal/infrastructure/llm"
	"IDCIntel/internal/infrastructure/ml"
	"IDCIntel/internal/infrastructure/parser"
	"IDCIntel/internal/infrastructure/scheduler"
	"IDCIntel/internal/infrastructure/storage"
	"IDCIntel/internal/infrastructure/telegram"
	"IDCIntel/internal/logging"
	"IDCIntel/internal/ports"
	"IDCIntel/internal/relevance"
	"IDCIntel/internal/report"
	"IDCIntel/internal/scanner"
	"IDCIntel/internal/scoring"
	"IDCIntel/internal/summary"
	"IDCIntel/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg         *config.Config
	loc         *time.Location
	logger      *zap.Logger
	repository  ports.ArticleRepository
	pipeline    *usecase.Pipeline
	maintenance *usecase.Maintenance
	reports     *usecase.ReportService
	scheduler   *usecase.Scheduler
	hasLLM      bool
}

// New opens the store and builds every use case. The caller owns Close.
func New(ctx context.Context, cfg *config.Config, baseLogger *zap.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = zap.NewNop()
	}
	loc := cfg.Location()

	repo, err := openRepository(ctx, cfg.Store, loc)
	if err != nil {
		return nil, err
	}

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		repo.Close()
		return nil, err
	}
	for i := range sources {
		if sources[i].Limit == 0 {
			sources[i].Limit = cfg.Pipeline.PerSourceLimit
		}
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewListPageScanner(
		parser.WithLocation(loc),
		parser.WithLogger(logging.Component(baseLogger, "scanner.listpage")),
	))
	source := parser.NewStrategySource(registry, sources, cfg.Pipeline.Concurrency, logging.Component(baseLogger, "source"))

	chat := newChatClient(cfg.LLM, baseLogger)
	gate := relevance.NewGate(chat,
		relevance.WithThreshold(cfg.LLM.Threshold),
		relevance.WithTimeout(cfg.LLM.Timeout()),
		relevance.WithRateLimit(cfg.LLM.RateLimit, cfg.LLM.Burst),
		relevance.WithLogger(logging.Component(baseLogger, "gate")),
	)
	scorer := scoring.New(scoring.WithLocation(loc))
	classifier := classify.New()

	var summarizer ports.Summarizer
	if chat != nil {
		summarizer = summary.New(chat, cfg.Summary.MaxAttempts,
			time.Duration(cfg.Summary.RetryDelaySecs)*time.Second,
			logging.Component(baseLogger, "summary"))
	}

	var insights usecase.InsightSource
	if cfg.Report.Insights {
		insights = summary.NewInsightWriter(chat, cfg.LLM.Timeout(), logging.Component(baseLogger, "insights"))
	}

	var notifier ports.Notifier
	if cfg.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Telegram.BaseURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}

	a := &Application{
		cfg:        cfg,
		loc:        loc,
		logger:     baseLogger,
		repository: repo,
		hasLLM:     chat != nil,
		pipeline: usecase.NewPipeline(usecase.PipelineDeps{
			Source:      source,
			Repository:  repo,
			Filter:      filter.NewQuickFilter(cfg.Pipeline.DenyList),
			Gate:        gate,
			Scorer:      scorer,
			Classifier:  classifier,
			Concurrency: cfg.Pipeline.Concurrency,
			Logger:      logging.Component(baseLogger, "pipeline"),
		}),
		maintenance: usecase.NewMaintenance(usecase.MaintenanceDeps{
			Repository:      repo,
			Scorer:          scorer,
			Classifier:      classifier,
			Summarizer:      summarizer,
			LinkChecker:     linkcheck.New(time.Duration(cfg.LinkCheck.TimeoutSecs) * time.Second),
			LinkConcurrency: cfg.LinkCheck.Concurrency,
			Logger:          logging.Component(baseLogger, "maintenance"),
		}),
		reports: usecase.NewReportService(usecase.ReportDeps{
			Repository: repo,
			Composer:   report.NewComposer(cfg.Report.Title),
			Insights:   insights,
			Notifier:   notifier,
			Days:       cfg.Report.Days,
			OutputDir:  cfg.Report.OutputDir,
			ReadyOnly:  cfg.Report.ReadyOnly,
			Logger:     logging.Component(baseLogger, "report"),
		}),
	}
	a.scheduler = usecase.NewScheduler(
		scheduler.NewCronScheduler(loc),
		logging.Component(baseLogger, "scheduler"),
		usecase.Job{Name: "collect", Spec: cfg.Scheduler.CollectSpec, Immediate: true, Run: func(ctx context.Context, at time.Time) error {
			_, err := a.pipeline.Collect(ctx, at)
			return err
		}},
		usecase.Job{Name: "report", Spec: cfg.Scheduler.ReportSpec, Run: func(ctx context.Context, at time.Time) error {
			_, err := a.Weekly(ctx, at)
			return err
		}},
	)

	baseLogger.Info("application ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("llm", cfg.LLM.Provider),
		zap.Bool("llm_enabled", a.hasLLM),
		zap.Int("sources", len(sources)),
		zap.Bool("telegram", notifier != nil))
	return a, nil
}

func openRepository(ctx context.Context, cfg config.StoreConfig, loc *time.Location) (ports.ArticleRepository, error) {
	switch cfg.Driver {
	case "postgres":
		repo, err := storage.OpenPostgres(ctx, cfg.DatabaseURL,
			storage.PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns},
			storage.WithLocation(loc))
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		return repo, nil
	default:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, eris.Wrapf(err, "app: create %s", dir)
			}
		}
		repo, err := storage.OpenSQLite(cfg.Path, storage.WithLocation(loc))
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		return repo, nil
	}
}

// newChatClient returns nil when the service is disabled or lacks
// credentials; the gate then degrades every item.
func newChatClient(cfg config.LLMConfig, logger *zap.Logger) ports.ChatClient {
	if !cfg.Enabled() {
		return nil
	}
	var (
		client ports.ChatClient
		err    error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		client, err = llm.NewOpenAIClient(cfg)
	case config.ProviderAnthropic:
		client, err = llm.NewAnthropicClient(cfg)
	case config.ProviderHTTP:
		if cfg.BaseURL == "" {
			err = eris.New("app: llm.base_url is required for the http provider")
		} else {
			client = ml.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout())
		}
	}
	if err != nil {
		logger.Warn("llm disabled, relevance falls back to neutral scores", zap.Error(err))
		return nil
	}
	return client
}

// Collect runs one collection batch for today.
func (a *Application) Collect(ctx context.Context) (usecase.BatchStats, error) {
	return a.pipeline.Collect(ctx, time.Now().In(a.loc))
}

// Ingest stores already-fetched candidates, bypassing the sources.
func (a *Application) Ingest(ctx context.Context, items []domain.CandidateItem) (usecase.BatchStats, error) {
	return a.pipeline.Ingest(ctx, items)
}

// Report renders the report for the configured window.
func (a *Application) Report(ctx context.Context) (usecase.ReportResult, error) {
	return a.reports.Build(ctx, time.Now().In(a.loc))
}

// Weekly refreshes scores, summaries and link validity, then reports.
// Only storage failures abort it.
func (a *Application) Weekly(ctx context.Context, at time.Time) (usecase.ReportResult, error) {
	days := a.cfg.Report.Days
	if _, err := a.maintenance.Rescore(ctx, days); err != nil {
		return usecase.ReportResult{}, err
	}
	if a.hasLLM {
		if _, err := a.maintenance.FillSummaries(ctx, days); err != nil {
			return usecase.ReportResult{}, err
		}
	}
	if _, err := a.maintenance.VerifyLinks(ctx, days); err != nil {
		return usecase.ReportResult{}, err
	}
	return a.reports.Build(ctx, at.In(a.loc))
}

// Rescore recomputes scores over the report window.
func (a *Application) Rescore(ctx context.Context) (int, error) {
	return a.maintenance.Rescore(ctx, a.cfg.Report.Days)
}

// VerifyLinks probes article urls of the report window.
func (a *Application) VerifyLinks(ctx context.Context) (usecase.LinkStats, error) {
	return a.maintenance.VerifyLinks(ctx, a.cfg.Report.Days)
}

// FillSummaries generates missing summaries in the report window.
func (a *Application) FillSummaries(ctx context.Context) (usecase.SummaryStats, error) {
	if !a.hasLLM {
		return usecase.SummaryStats{}, eris.New("app: summaries need an llm provider")
	}
	return a.maintenance.FillSummaries(ctx, a.cfg.Report.Days)
}

// ListFilter narrows List. Zero values mean no filter.
type ListFilter struct {
	Priority domain.Priority
	Category domain.Category
	Days     int
}

// List returns stored articles, best first, honoring at most one filter.
func (a *Application) List(ctx context.Context, f ListFilter) ([]domain.ScoredArticle, error) {
	days := f.Days
	if days <= 0 {
		days = a.cfg.Report.Days
	}
	switch {
	case f.Priority != "":
		return a.repository.ArticlesByPriority(ctx, f.Priority, days)
	case f.Category != "":
		return a.repository.ArticlesByCategory(ctx, f.Category, days)
	default:
		return a.repository.ArticlesInWindow(ctx, days)
	}
}

// Count returns the number of stored articles.
func (a *Application) Count(ctx context.Context) (int, error) {
	return a.repository.Count(ctx)
}

// Clear deletes every stored article.
func (a *Application) Clear(ctx context.Context) error {
	return a.repository.ClearAll(ctx)
}

// Schedule runs the cron jobs until ctx is cancelled.
func (a *Application) Schedule(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return a.scheduler.Stop(context.Background())
}

// Close releases the store.
func (a *Application) Close() error {
	if a.repository == nil {
		return nil
	}
	return a.repository.Close()
}
