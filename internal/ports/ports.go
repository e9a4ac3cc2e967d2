package ports

import (
	"context"
	"time"

	"IDCIntel/internal/domain"
)

// ArticleSource pulls candidate items from configured media sources. A failing
// source is reported in the batch; the error is reserved for misconfiguration
// and cancellation.
type ArticleSource interface {
	FetchCandidates(ctx context.Context, day time.Time) (domain.CandidateBatch, error)
}

// ArticleRepository persists scored articles with at-most-one record per url.
type ArticleRepository interface {
	Insert(ctx context.Context, article domain.ScoredArticle) (id int64, inserted bool, err error)
	Get(ctx context.Context, id int64) (domain.ScoredArticle, error)
	UpdateScores(ctx context.Context, id int64, categories domain.Categories, scores domain.Scores) error
	UpdateSummary(ctx context.Context, id int64, summary string) error
	UpdateLinkValidity(ctx context.Context, id int64, valid bool) error
	ArticlesInWindow(ctx context.Context, days int) ([]domain.ScoredArticle, error)
	ReadyForReport(ctx context.Context, days int) ([]domain.ScoredArticle, error)
	ArticlesByPriority(ctx context.Context, p domain.Priority, days int) ([]domain.ScoredArticle, error)
	ArticlesByCategory(ctx context.Context, c domain.Category, days int) ([]domain.ScoredArticle, error)
	ListAll(ctx context.Context) ([]domain.ScoredArticle, error)
	Count(ctx context.Context) (int, error)
	ClearAll(ctx context.Context) error
	Close() error
}

// ChatClient sends a single prompt to an LLM backend and returns the raw text reply.
type ChatClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Summarizer produces a short summary for a stored article.
type Summarizer interface {
	Summarize(ctx context.Context, title, content string) (string, error)
}

// LinkChecker probes whether an article url still resolves.
type LinkChecker interface {
	Check(ctx context.Context, url string) (bool, error)
}

// Notifier streams report digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute. Jobs are registered with a cron
// spec before Start.
type Scheduler interface {
	Add(spec string, job func(time.Time)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
