package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"IDCIntel/internal/domain"
	"IDCIntel/internal/ports"
	"IDCIntel/internal/report"
)

const maxDigestTitles = 10

// InsightSource writes the overview and section comments for a report window.
type InsightSource interface {
	Insights(ctx context.Context, articles []domain.ScoredArticle) report.Insights
}

// ReportDeps wires the weekly report use case.
type ReportDeps struct {
	Repository ports.ArticleRepository
	Composer   *report.Composer
	// Insights is optional; without it the report has no overview.
	Insights  InsightSource
	Notifier  ports.Notifier
	Days      int
	OutputDir string
	// ReadyOnly limits the report to processed, summarized, link-valid articles.
	ReadyOnly bool
	Logger    *zap.Logger
}

// ReportService composes, saves and announces the weekly report.
type ReportService struct {
	repository ports.ArticleRepository
	composer   *report.Composer
	insights   InsightSource
	notifier   ports.Notifier
	days       int
	outputDir  string
	readyOnly  bool
	logger     *zap.Logger
}

// ReportResult describes one generated report.
type ReportResult struct {
	Report    report.Report
	Artifacts report.Artifacts
	Notified  bool
}

// NewReportService applies defaults of a 7-day window written to ./reports.
func NewReportService(deps ReportDeps) *ReportService {
	s := &ReportService{
		repository: deps.Repository,
		composer:   deps.Composer,
		insights:   deps.Insights,
		notifier:   deps.Notifier,
		days:       deps.Days,
		outputDir:  deps.OutputDir,
		readyOnly:  deps.ReadyOnly,
		logger:     deps.Logger,
	}
	if s.composer == nil {
		s.composer = report.NewComposer("")
	}
	if s.days <= 0 {
		s.days = 7
	}
	if s.outputDir == "" {
		s.outputDir = "reports"
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Build loads the window, renders and writes the report, then sends the digest.
// A failed notification is logged; the report files are already written.
func (s *ReportService) Build(ctx context.Context, date time.Time) (ReportResult, error) {
	if s.repository == nil {
		return ReportResult{}, eris.New("usecase: no repository configured")
	}

	load := s.repository.ArticlesInWindow
	if s.readyOnly {
		load = s.repository.ReadyForReport
	}
	articles, err := load(ctx, s.days)
	if err != nil {
		return ReportResult{}, eris.Wrap(err, "usecase: load report window")
	}

	var insights report.Insights
	if s.insights != nil && len(articles) > 0 {
		insights = s.insights.Insights(ctx, articles)
	}
	rep := s.composer.Compose(articles, date, insights)
	files, err := s.composer.Save(rep, s.outputDir)
	if err != nil {
		return ReportResult{}, eris.Wrap(err, "usecase: save report")
	}
	s.logger.Info("report written",
		zap.Int("articles", rep.Total),
		zap.String("markdown", files.Markdown),
		zap.String("html", files.HTML))

	res := ReportResult{Report: rep, Artifacts: files}
	if s.notifier == nil {
		return res, nil
	}
	if err := s.notifier.PublishDigest(ctx, BuildDigest(rep)); err != nil {
		s.logger.Warn("digest not delivered", zap.Error(err))
		return res, nil
	}
	res.Notified = true
	return res, nil
}

// BuildDigest summarizes a report for chat delivery: headline counts per
// section and the top High-priority titles.
func BuildDigest(r report.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "IDC行业周报 %s\n", r.Date.Format(domain.DateLayout))
	fmt.Fprintf(&b, "本周收录 %d 篇\n", r.Total)
	if r.Total == 0 {
		return b.String()
	}

	var high []domain.ScoredArticle
	for _, s := range r.Sections {
		fmt.Fprintf(&b, "%s: %d\n", s.Heading, len(s.Articles))
		for _, a := range s.Articles {
			if a.Scores.Priority == domain.PriorityHigh {
				high = append(high, a)
			}
		}
	}
	if len(high) == 0 {
		return b.String()
	}

	b.WriteString("\n重点关注:\n")
	for i, a := range high {
		if i == maxDigestTitles {
			fmt.Fprintf(&b, "... 另有 %d 篇\n", len(high)-maxDigestTitles)
			break
		}
		fmt.Fprintf(&b, "- %s (%d)\n  %s\n", a.Title, a.Scores.Total, a.URL)
	}
	return b.String()
}
