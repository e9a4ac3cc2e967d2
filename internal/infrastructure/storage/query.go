package storage

import (
	"time"

	sq "github.com/Masterminds/squirrel"

	"IDCIntel/internal/domain"
)

var articleColumns = []string{
	"id", "url", "url_hash", "title", "source", "source_tier",
	"publish_date", "collected_at", "updated_at",
	"content", "summary", "category",
	"relevance_score", "timeliness_score", "impact_score", "credibility_score", "score", "priority",
	"llm_relevance_score", "llm_importance_score", "llm_category_score", "llm_total", "llm_category", "llm_reason",
	"link_valid", "processed", "summary_generated",
}

var articleOrder = []string{"score DESC", "publish_date DESC", "id ASC"}

// queries renders the SQL shared by both backends; only the placeholder
// format differs.
type queries struct {
	sb sq.StatementBuilderType
}

func newQueries(format sq.PlaceholderFormat) queries {
	return queries{sb: sq.StatementBuilder.PlaceholderFormat(format)}
}

func (q queries) insert(a domain.ScoredArticle, now time.Time) sq.InsertBuilder {
	return q.sb.Insert(articlesTable).
		Columns(articleColumns[1:]...).
		Values(
			a.URL, URLHash(a.URL), a.Title, a.Source, a.SourceTier,
			formatDate(a.PublishDate), now, now,
			a.Content, a.Summary, a.Categories.String(),
			a.Scores.Relevance, a.Scores.Timeliness, a.Scores.Impact, a.Scores.Credibility,
			a.Scores.Total, string(a.Scores.Priority),
			a.LLM.RelevanceScore, a.LLM.ImportanceScore, a.LLM.CategoryScore, a.LLM.Total,
			a.LLM.CategorySuggestion, a.LLM.Reason,
			a.LinkValid, a.Processed, a.Summary != "",
		).
		Suffix("ON CONFLICT DO NOTHING")
}

func (q queries) selectArticles() sq.SelectBuilder {
	return q.sb.Select(articleColumns...).From(articlesTable)
}

func (q queries) byID(id int64) sq.SelectBuilder {
	return q.selectArticles().Where(sq.Eq{"id": id})
}

func (q queries) window(since string) sq.SelectBuilder {
	return q.selectArticles().
		Where(sq.GtOrEq{"publish_date": since}).
		OrderBy(articleOrder...)
}

func (q queries) readyForReport(since string) sq.SelectBuilder {
	return q.window(since).Where(sq.Eq{
		"processed":         true,
		"summary_generated": true,
		"link_valid":        true,
	})
}

func (q queries) byPriority(p domain.Priority, since string) sq.SelectBuilder {
	return q.window(since).Where(sq.Eq{"priority": string(p)})
}

func (q queries) byCategory(c domain.Category, since string) sq.SelectBuilder {
	return q.window(since).Where(sq.Like{"category": "%" + string(c) + "%"})
}

func (q queries) listAll() sq.SelectBuilder {
	return q.selectArticles().OrderBy("id ASC")
}

func (q queries) count() sq.SelectBuilder {
	return q.sb.Select("COUNT(*)").From(articlesTable)
}

func (q queries) updateScores(id int64, categories domain.Categories, s domain.Scores, now time.Time) sq.UpdateBuilder {
	return q.sb.Update(articlesTable).
		Set("category", categories.String()).
		Set("relevance_score", s.Relevance).
		Set("timeliness_score", s.Timeliness).
		Set("impact_score", s.Impact).
		Set("credibility_score", s.Credibility).
		Set("score", s.Total).
		Set("priority", string(s.Priority)).
		Set("processed", true).
		Set("updated_at", now).
		Where(sq.Eq{"id": id})
}

func (q queries) updateSummary(id int64, summary string, now time.Time) sq.UpdateBuilder {
	return q.sb.Update(articlesTable).
		Set("summary", summary).
		Set("summary_generated", summary != "").
		Set("updated_at", now).
		Where(sq.Eq{"id": id})
}

func (q queries) updateLinkValidity(id int64, valid bool, now time.Time) sq.UpdateBuilder {
	return q.sb.Update(articlesTable).
		Set("link_valid", valid).
		Set("updated_at", now).
		Where(sq.Eq{"id": id})
}

type scannable interface {
	Scan(dest ...any) error
}

func scanArticle(row scannable, loc *time.Location) (domain.ScoredArticle, error) {
	var (
		a                                   domain.ScoredArticle
		publishDate, category, priority     string
		relevance, timeliness, impact, cred int
		total                               int
	)
	err := row.Scan(
		&a.ID, &a.URL, &a.URLHash, &a.Title, &a.Source, &a.SourceTier,
		&publishDate, &a.CollectedAt, &a.UpdatedAt,
		&a.Content, &a.Summary, &category,
		&relevance, &timeliness, &impact, &cred, &total, &priority,
		&a.LLM.RelevanceScore, &a.LLM.ImportanceScore, &a.LLM.CategoryScore, &a.LLM.Total,
		&a.LLM.CategorySuggestion, &a.LLM.Reason,
		&a.LinkValid, &a.Processed, &a.SummaryGenerated,
	)
	if err != nil {
		return domain.ScoredArticle{}, err
	}
	a.PublishDate = parseDate(publishDate, loc)
	a.Categories = domain.ParseCategories(category)
	a.Scores = domain.NewScores(relevance, timeliness, impact, cred)
	return a, nil
}
