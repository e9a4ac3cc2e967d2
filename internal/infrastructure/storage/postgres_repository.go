package storage

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"IDCIntel/internal/domain"
	"IDCIntel/internal/ports"
)

// Pool is the subset of pgxpool.Pool the repository uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PoolConfig holds optional connection pool sizing.
type PoolConfig struct {
	MaxConns int32 `mapstructure:"max_conns"`
	MinConns int32 `mapstructure:"min_conns"`
}

// PostgresRepository persists articles into Postgres.
type PostgresRepository struct {
	pool    Pool
	closeFn func()
	q       queries
	settings
}

var _ ports.ArticleRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wraps an existing pool.
func NewPostgresRepository(pool Pool, opts ...Option) *PostgresRepository {
	return &PostgresRepository{
		pool:     pool,
		closeFn:  func() {},
		q:        newQueries(sq.Dollar),
		settings: applyOptions(opts),
	}
}

// OpenPostgres connects a pool and pings it.
func OpenPostgres(ctx context.Context, dsn string, poolCfg PoolConfig, opts ...Option) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	if poolCfg.MaxConns > 0 {
		cfg.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		cfg.MinConns = poolCfg.MinConns
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	r := NewPostgresRepository(pool, opts...)
	r.closeFn = pool.Close
	return r, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS articles (
	id                   BIGSERIAL PRIMARY KEY,
	url                  TEXT NOT NULL UNIQUE,
	url_hash             TEXT NOT NULL UNIQUE,
	title                TEXT NOT NULL,
	source               TEXT NOT NULL DEFAULT '',
	source_tier          INTEGER NOT NULL DEFAULT 2,
	publish_date         TEXT NOT NULL DEFAULT '',
	collected_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	content              TEXT NOT NULL DEFAULT '',
	summary              TEXT NOT NULL DEFAULT '',
	category             TEXT NOT NULL DEFAULT '其他',
	relevance_score      INTEGER NOT NULL DEFAULT 0,
	timeliness_score     INTEGER NOT NULL DEFAULT 0,
	impact_score         INTEGER NOT NULL DEFAULT 0,
	credibility_score    INTEGER NOT NULL DEFAULT 0,
	score                INTEGER NOT NULL DEFAULT 0,
	priority             TEXT NOT NULL DEFAULT '低',
	llm_relevance_score  INTEGER NOT NULL DEFAULT 0,
	llm_importance_score INTEGER NOT NULL DEFAULT 0,
	llm_category_score   INTEGER NOT NULL DEFAULT 0,
	llm_total            INTEGER NOT NULL DEFAULT 0,
	llm_category         TEXT NOT NULL DEFAULT '',
	llm_reason           TEXT NOT NULL DEFAULT '',
	link_valid           BOOLEAN NOT NULL DEFAULT TRUE,
	processed            BOOLEAN NOT NULL DEFAULT FALSE,
	summary_generated    BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_articles_publish_date ON articles(publish_date);
CREATE INDEX IF NOT EXISTS idx_articles_score ON articles(score);
CREATE INDEX IF NOT EXISTS idx_articles_priority ON articles(priority);
`

// Migrate creates the schema if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool when the repository owns it.
func (r *PostgresRepository) Close() error {
	r.closeFn()
	return nil
}

// Insert stores a new article; a duplicate canonical url reports inserted=false.
func (r *PostgresRepository) Insert(ctx context.Context, a domain.ScoredArticle) (int64, bool, error) {
	query, args, err := r.q.insert(a, r.now().UTC()).Suffix("RETURNING id").ToSql()
	if err != nil {
		return 0, false, eris.Wrap(err, "postgres: build insert")
	}
	var id int64
	err = r.pool.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrapf(err, "postgres: insert %s", a.URL)
	}
	return id, true, nil
}

// Get loads one article by id.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (domain.ScoredArticle, error) {
	query, args, err := r.q.byID(id).ToSql()
	if err != nil {
		return domain.ScoredArticle{}, eris.Wrap(err, "postgres: build get")
	}
	a, err := scanArticle(r.pool.QueryRow(ctx, query, args...), r.loc)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ScoredArticle{}, eris.Wrapf(ErrNotFound, "postgres: get %d", id)
	}
	if err != nil {
		return domain.ScoredArticle{}, eris.Wrapf(err, "postgres: get %d", id)
	}
	return a, nil
}

// UpdateScores replaces the scoring and classification fields.
func (r *PostgresRepository) UpdateScores(ctx context.Context, id int64, categories domain.Categories, scores domain.Scores) error {
	return r.execUpdate(ctx, "update scores", id, r.q.updateScores(id, categories, scores, r.now().UTC()))
}

// UpdateSummary stores a summary and flips summary_generated accordingly.
func (r *PostgresRepository) UpdateSummary(ctx context.Context, id int64, summary string) error {
	return r.execUpdate(ctx, "update summary", id, r.q.updateSummary(id, summary, r.now().UTC()))
}

// UpdateLinkValidity records the result of a link check.
func (r *PostgresRepository) UpdateLinkValidity(ctx context.Context, id int64, valid bool) error {
	return r.execUpdate(ctx, "update link validity", id, r.q.updateLinkValidity(id, valid, r.now().UTC()))
}

func (r *PostgresRepository) execUpdate(ctx context.Context, action string, id int64, b sq.UpdateBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return eris.Wrapf(err, "postgres: build %s", action)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: %s %d", action, id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: %s %d", action, id)
	}
	return nil
}

// ArticlesInWindow returns articles published in the last days calendar days,
// highest score first.
func (r *PostgresRepository) ArticlesInWindow(ctx context.Context, days int) ([]domain.ScoredArticle, error) {
	return r.list(ctx, "articles in window", r.q.window(r.windowStart(days)))
}

// ReadyForReport is ArticlesInWindow restricted to report-ready articles.
func (r *PostgresRepository) ReadyForReport(ctx context.Context, days int) ([]domain.ScoredArticle, error) {
	return r.list(ctx, "ready for report", r.q.readyForReport(r.windowStart(days)))
}

// ArticlesByPriority filters the window by priority bucket.
func (r *PostgresRepository) ArticlesByPriority(ctx context.Context, p domain.Priority, days int) ([]domain.ScoredArticle, error) {
	return r.list(ctx, "articles by priority", r.q.byPriority(p, r.windowStart(days)))
}

// ArticlesByCategory filters the window by label containment.
func (r *PostgresRepository) ArticlesByCategory(ctx context.Context, c domain.Category, days int) ([]domain.ScoredArticle, error) {
	return r.list(ctx, "articles by category", r.q.byCategory(c, r.windowStart(days)))
}

// ListAll returns every stored article in insertion order.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]domain.ScoredArticle, error) {
	return r.list(ctx, "list all", r.q.listAll())
}

// Count returns the number of stored articles.
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	query, args, err := r.q.count().ToSql()
	if err != nil {
		return 0, eris.Wrap(err, "postgres: build count")
	}
	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count")
	}
	return n, nil
}

// ClearAll deletes every article and restarts the id sequence.
func (r *PostgresRepository) ClearAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `TRUNCATE TABLE articles RESTART IDENTITY`)
	return eris.Wrap(err, "postgres: clear all")
}

func (r *PostgresRepository) list(ctx context.Context, action string, b sq.SelectBuilder) ([]domain.ScoredArticle, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: build %s", action)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", action)
	}
	defer rows.Close()

	var out []domain.ScoredArticle
	for rows.Next() {
		a, err := scanArticle(rows, r.loc)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s", action)
		}
		out = append(out, a)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: iterate %s", action)
}
