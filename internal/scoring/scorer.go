// Package scoring implements the deterministic four-dimension priority score:
// relevance (0-40), timeliness (0-25), impact (0-20) and credibility (0-15).
package scoring

import (
	"strings"
	"time"

	"IDCIntel/internal/domain"
	"IDCIntel/internal/textutil"
)

const (
	maxRelevance   = 40
	maxTimeliness  = 25
	maxImpact      = 20
	timelinessDays = 7

	defaultCredibility = 8
)

type keywordTier struct {
	points   int
	keywords []string
}

var relevanceTiers = []keywordTier{
	{points: 10, keywords: []string{"IDC", "数据中心", "AI算力", "GPU", "算力中心", "智算中心", "超算中心"}},
	{points: 5, keywords: []string{"云计算", "云服务", "服务器", "机柜", "机房", "液冷", "制冷", "PUE", "边缘计算", "CDN"}},
	{points: 2, keywords: []string{"算力", "芯片", "处理器", "带宽", "网络", "存储", "虚拟化", "容器", "运维"}},
}

type threshold struct {
	min   float64
	score int
}

var (
	fundingThresholds = []threshold{{10, 20}, {5, 15}, {1, 10}, {0, 5}}
	rackThresholds    = []threshold{{10000, 20}, {5000, 15}, {0, 10}}
)

type impactKeyword struct {
	term  string
	score int
}

var industryImpact = []impactKeyword{
	{"标准", 20}, {"规范", 20},
	{"突破", 18},
	{"战略合作", 15}, {"并购", 15}, {"收购", 15},
	{"新品", 10}, {"发布", 10},
}

var credibilityByTier = map[int]int{1: 15, 2: 8, 3: 3}

// Scorer computes domain.Scores. It is safe for concurrent use.
type Scorer struct {
	now func() time.Time
	loc *time.Location
}

// Option customises a Scorer.
type Option func(*Scorer)

// WithClock overrides the clock that defines "today".
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// WithLocation sets the timezone in which "today" is evaluated.
func WithLocation(loc *time.Location) Option {
	return func(s *Scorer) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// New builds a Scorer using the wall clock in UTC unless overridden.
func New(opts ...Option) *Scorer {
	s := &Scorer{now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score evaluates all four dimensions over title and content.
func (s *Scorer) Score(title, content string, publishDate time.Time, sourceTier int) domain.Scores {
	text := textutil.Combine(title, content)
	return domain.NewScores(
		Relevance(text),
		s.Timeliness(publishDate),
		Impact(text),
		Credibility(sourceTier),
	)
}

// Relevance sums tiered keyword points, each distinct keyword once, capped at 40.
func Relevance(text string) int {
	score := 0
	for _, tier := range relevanceTiers {
		for _, kw := range tier.keywords {
			if strings.Contains(text, kw) {
				score += tier.points
			}
		}
	}
	return min(score, maxRelevance)
}

// Timeliness decays linearly from 25 on the publish day to 0 on day 7.
// Future dates count as today; a zero date scores 0.
func (s *Scorer) Timeliness(publishDate time.Time) int {
	if publishDate.IsZero() {
		return 0
	}
	days := DaysAgo(publishDate, s.now().In(s.loc))
	if days >= timelinessDays {
		return 0
	}
	return maxTimeliness * (timelinessDays - days) / timelinessDays
}

// DaysAgo counts calendar days between the publish date and today, clamped at 0.
func DaysAgo(publishDate, today time.Time) int {
	pub := civilDate(publishDate)
	now := civilDate(today)
	days := int(now.Sub(pub).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Impact is the max of the funding, rack-scale and industry-keyword extractors.
func Impact(text string) int {
	best := max(FundingScore(text), RackScore(text), IndustryScore(text))
	return min(best, maxImpact)
}

// FundingScore maps the largest amount in 亿 to points; 0 when none found.
func FundingScore(text string) int {
	amount, ok := ExtractMagnitude(text, fundingPatterns)
	if !ok {
		return 0
	}
	return bucket(amount, fundingThresholds)
}

// RackScore maps the largest rack count to points; 0 when none found.
func RackScore(text string) int {
	count, ok := ExtractMagnitude(text, rackPatterns)
	if !ok {
		return 0
	}
	return bucket(count, rackThresholds)
}

// IndustryScore returns the highest static keyword weight present.
func IndustryScore(text string) int {
	best := 0
	for _, kw := range industryImpact {
		if kw.score > best && strings.Contains(text, kw.term) {
			best = kw.score
		}
	}
	return best
}

// Credibility looks up the source tier; unknown tiers score 8.
func Credibility(tier int) int {
	if v, ok := credibilityByTier[tier]; ok {
		return v
	}
	return defaultCredibility
}

func bucket(v float64, thresholds []threshold) int {
	for _, t := range thresholds {
		if v >= t.min {
			return t.score
		}
	}
	return 0
}
