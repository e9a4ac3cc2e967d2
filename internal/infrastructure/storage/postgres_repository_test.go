package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IDCIntel/internal/domain"
)

func newMockPostgresRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	repo := NewPostgresRepository(mock, WithClock(func() time.Time { return testNow }), WithLocation(time.UTC))
	return repo, mock
}

func articleRow(rows *pgxmock.Rows, id int64, url string, total int, publish string) *pgxmock.Rows {
	return rows.AddRow(
		id, url, URLHash(url), "title", "DCD", 1,
		publish, testNow, testNow,
		"content", "summary", "投资,技术",
		40, 25, 20, total-85, total, "高",
		15, 12, 7, 27, "投资", "融资",
		true, true, true,
	)
}

func TestPostgres_InsertReturnsID(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)

	mock.ExpectQuery(`INSERT INTO articles .* ON CONFLICT DO NOTHING RETURNING id`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, inserted, err := repo.Insert(context.Background(), testArticle("https://example.com/a", 79, 0))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertDuplicate(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)

	mock.ExpectQuery(`INSERT INTO articles`).WillReturnError(pgx.ErrNoRows)

	id, inserted, err := repo.Insert(context.Background(), testArticle("https://example.com/a", 79, 0))
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Zero(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertFailure(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)

	mock.ExpectQuery(`INSERT INTO articles`).WillReturnError(errors.New("connection reset"))

	_, _, err := repo.Insert(context.Background(), testArticle("https://example.com/a", 79, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetNotFound(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)

	mock.ExpectQuery(`SELECT .* FROM articles WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateSummaryNotFound(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)

	mock.ExpectExec(`UPDATE articles SET summary = \$1, summary_generated = \$2, updated_at = \$3 WHERE id = \$4`).
		WithArgs("摘要", true, pgxmock.AnyArg(), int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateSummary(context.Background(), 5, "摘要")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateScores(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)

	mock.ExpectExec(`UPDATE articles SET category = \$1`).
		WithArgs("政策", 30, 25, 20, 15, 90, "高", true, pgxmock.AnyArg(), int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateScores(context.Background(), 5, domain.Categories{domain.CategoryPolicy}, domain.NewScores(30, 25, 20, 15))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ArticlesInWindow(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)

	rows := pgxmock.NewRows(articleColumns)
	articleRow(rows, 2, "https://example.com/b", 95, "2025-11-09")
	articleRow(rows, 1, "https://example.com/a", 90, "2025-11-10")

	mock.ExpectQuery(`SELECT .* FROM articles WHERE publish_date >= \$1 ORDER BY score DESC, publish_date DESC, id ASC`).
		WithArgs("2025-11-04").
		WillReturnRows(rows)

	got, err := repo.ArticlesInWindow(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, 95, got[0].Scores.Total)
	assert.Equal(t, domain.PriorityHigh, got[0].Scores.Priority)
	assert.Equal(t, domain.Categories{domain.CategoryInvestment, domain.CategoryTechnology}, got[0].Categories)
	assert.Equal(t, "2025-11-09", got[0].PublishDate.Format(domain.DateLayout))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReadyForReport(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)

	mock.ExpectQuery(`WHERE publish_date >= \$1 AND link_valid = \$2 AND processed = \$3 AND summary_generated = \$4`).
		WithArgs("2025-11-10", true, true, true).
		WillReturnRows(pgxmock.NewRows(articleColumns))

	got, err := repo.ReadyForReport(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ClearAll(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)

	mock.ExpectExec(`TRUNCATE TABLE articles RESTART IDENTITY`).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))

	require.NoError(t, repo.ClearAll(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Count(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM articles`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(12))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
