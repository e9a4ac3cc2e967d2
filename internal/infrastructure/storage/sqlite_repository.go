package storage

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"IDCIntel/internal/domain"
	"IDCIntel/internal/ports"
)

// SQLiteRepository is the default embedded article store.
type SQLiteRepository struct {
	db *sql.DB
	q  queries
	settings
}

var _ ports.ArticleRepository = (*SQLiteRepository)(nil)

// OpenSQLite opens the database at path and configures WAL mode.
func OpenSQLite(path string, opts ...Option) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One writer connection keeps pragmas in effect and serializes inserts.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteRepository{db: db, q: newQueries(sq.Question), settings: applyOptions(opts)}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS articles (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	url                  TEXT NOT NULL UNIQUE,
	url_hash             TEXT NOT NULL UNIQUE,
	title                TEXT NOT NULL,
	source               TEXT NOT NULL DEFAULT '',
	source_tier          INTEGER NOT NULL DEFAULT 2,
	publish_date         TEXT NOT NULL DEFAULT '',
	collected_at         DATETIME NOT NULL,
	updated_at           DATETIME NOT NULL,
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
	link_valid           INTEGER NOT NULL DEFAULT 1,
	processed            INTEGER NOT NULL DEFAULT 0,
	summary_generated    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_articles_publish_date ON articles(publish_date);
CREATE INDEX IF NOT EXISTS idx_articles_score ON articles(score);
CREATE INDEX IF NOT EXISTS idx_articles_priority ON articles(priority);
`

// Migrate creates the schema if it does not exist.
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Insert stores a new article. A second insert of the same canonical url
// leaves the first record untouched and reports inserted=false.
func (r *SQLiteRepository) Insert(ctx context.Context, a domain.ScoredArticle) (int64, bool, error) {
	query, args, err := r.q.insert(a, r.now().UTC()).ToSql()
	if err != nil {
		return 0, false, eris.Wrap(err, "sqlite: build insert")
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, false, eris.Wrapf(err, "sqlite: insert %s", a.URL)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return 0, false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, eris.Wrap(err, "sqlite: last insert id")
	}
	return id, true, nil
}

// Get loads one article by id.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (domain.ScoredArticle, error) {
	query, args, err := r.q.byID(id).ToSql()
	if err != nil {
		return domain.ScoredArticle{}, eris.Wrap(err, "sqlite: build get")
	}
	a, err := scanArticle(r.db.QueryRowContext(ctx, query, args...), r.loc)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ScoredArticle{}, eris.Wrapf(ErrNotFound, "sqlite: get %d", id)
	}
	if err != nil {
		return domain.ScoredArticle{}, eris.Wrapf(err, "sqlite: get %d", id)
	}
	return a, nil
}

// UpdateScores replaces the scoring and classification fields.
func (r *SQLiteRepository) UpdateScores(ctx context.Context, id int64, categories domain.Categories, scores domain.Scores) error {
	return r.execUpdate(ctx, "update scores", id, r.q.updateScores(id, categories, scores, r.now().UTC()))
}

// UpdateSummary stores a summary and flips summary_generated accordingly.
func (r *SQLiteRepository) UpdateSummary(ctx context.Context, id int64, summary string) error {
	return r.execUpdate(ctx, "update summary", id, r.q.updateSummary(id, summary, r.now().UTC()))
}

// UpdateLinkValidity records the result of a link check.
func (r *SQLiteRepository) UpdateLinkValidity(ctx context.Context, id int64, valid bool) error {
	return r.execUpdate(ctx, "update link validity", id, r.q.updateLinkValidity(id, valid, r.now().UTC()))
}

func (r *SQLiteRepository) execUpdate(ctx context.Context, action string, id int64, b sq.UpdateBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return eris.Wrapf(err, "sqlite: build %s", action)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s %d", action, id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: %s %d", action, id)
	}
	return nil
}

// ArticlesInWindow returns articles published in the last days calendar days
// (today included), highest score first, newer first on ties.
func (r *SQLiteRepository) ArticlesInWindow(ctx context.Context, days int) ([]domain.ScoredArticle, error) {
	return r.list(ctx, "articles in window", r.q.window(r.windowStart(days)))
}

// ReadyForReport is ArticlesInWindow restricted to processed articles with a
// summary and a valid link.
func (r *SQLiteRepository) ReadyForReport(ctx context.Context, days int) ([]domain.ScoredArticle, error) {
	return r.list(ctx, "ready for report", r.q.readyForReport(r.windowStart(days)))
}

// ArticlesByPriority filters the window by priority bucket.
func (r *SQLiteRepository) ArticlesByPriority(ctx context.Context, p domain.Priority, days int) ([]domain.ScoredArticle, error) {
	return r.list(ctx, "articles by priority", r.q.byPriority(p, r.windowStart(days)))
}

// ArticlesByCategory filters the window by label containment.
func (r *SQLiteRepository) ArticlesByCategory(ctx context.Context, c domain.Category, days int) ([]domain.ScoredArticle, error) {
	return r.list(ctx, "articles by category", r.q.byCategory(c, r.windowStart(days)))
}

// ListAll returns every stored article in insertion order.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]domain.ScoredArticle, error) {
	return r.list(ctx, "list all", r.q.listAll())
}

// Count returns the number of stored articles.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	query, args, err := r.q.count().ToSql()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: build count")
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count")
	}
	return n, nil
}

// ClearAll deletes every article and resets the id sequence.
func (r *SQLiteRepository) ClearAll(ctx context.Context) error {
	for _, stmt := range []string{
		`DELETE FROM articles`,
		`DELETE FROM sqlite_sequence WHERE name = 'articles'`,
		`VACUUM`,
	} {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "sqlite: clear all: %s", stmt)
		}
	}
	return nil
}

func (r *SQLiteRepository) list(ctx context.Context, action string, b sq.SelectBuilder) ([]domain.ScoredArticle, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: build %s", action)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: %s", action)
	}
	defer rows.Close()

	var out []domain.ScoredArticle
	for rows.Next() {
		a, err := scanArticle(rows, r.loc)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", action)
		}
		out = append(out, a)
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: iterate %s", action)
}
