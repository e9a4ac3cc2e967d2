package domain

import (
	"strings"
	"time"
)

// DateLayout is the calendar-day format used for publish dates everywhere.
const DateLayout = "2006-01-02"

// CandidateItem is a raw news item produced by a source scanner.
type CandidateItem struct {
	Title       string
	URL         string
	PublishDate time.Time
	Content     string
	Summary     string
	Source      string
	SourceTier  int
}

// Malformed reports whether the item lacks the fields the pipeline needs.
func (c CandidateItem) Malformed() bool {
	return strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.URL) == ""
}

// Scores holds the four deterministic scoring dimensions and derived values.
type Scores struct {
	Relevance   int
	Timeliness  int
	Impact      int
	Credibility int
	Total       int
	Priority    Priority
}

// NewScores builds a Scores value whose Total and Priority are derived from the components.
func NewScores(relevance, timeliness, impact, credibility int) Scores {
	total := relevance + timeliness + impact + credibility
	return Scores{
		Relevance:   relevance,
		Timeliness:  timeliness,
		Impact:      impact,
		Credibility: credibility,
		Total:       total,
		Priority:    MapPriority(total),
	}
}

// LLMEvidence is the relevance service's judgment kept alongside the deterministic score.
type LLMEvidence struct {
	RelevanceScore     int
	ImportanceScore    int
	CategoryScore      int
	Total              int
	CategorySuggestion string
	Reason             string
}

// ScoredArticle is the persistent record owned by the article repository.
type ScoredArticle struct {
	ID          int64
	URL         string
	URLHash     string
	Title       string
	Source      string
	SourceTier  int
	PublishDate time.Time
	CollectedAt time.Time
	UpdatedAt   time.Time

	// Content is the text the scorer saw: body, else list summary, else title.
	Content string
	Summary string

	Categories Categories
	Scores     Scores
	LLM        LLMEvidence

	LinkValid        bool
	Processed        bool
	SummaryGenerated bool
}

// HasCategory reports whether the article carries the given label.
func (a ScoredArticle) HasCategory(c Category) bool {
	return a.Categories.Contains(c)
}

// CandidateBatch is what one collection pass over the source catalog produced.
// FailedSources names sources whose scan failed; their items are absent.
type CandidateBatch struct {
	Items         []CandidateItem
	FailedSources []string
}
