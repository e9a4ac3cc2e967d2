package parser

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"IDCIntel/internal/config"
	"IDCIntel/internal/domain"
	"IDCIntel/internal/scanner"
)

const (
	defaultLimit = 20
	userAgent    = "Mozilla/5.0 (compatible; IDCIntel/1.0)"
)

// ListPageScanner reads news list pages and extracts items with the CSS
// selectors of the source's catalog entry.
type ListPageScanner struct {
	client *http.Client
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// ListPageOption customizes a ListPageScanner.
type ListPageOption func(*ListPageScanner)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) ListPageOption {
	return func(s *ListPageScanner) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLocation sets the zone relative dates are resolved in.
func WithLocation(loc *time.Location) ListPageOption {
	return func(s *ListPageScanner) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) ListPageOption {
	return func(s *ListPageScanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewListPageScanner wires an HTTP client with a 20s timeout by default.
func NewListPageScanner(opts ...ListPageOption) *ListPageScanner {
	s := &ListPageScanner{
		client: &http.Client{Timeout: 20 * time.Second},
		loc:    time.Local,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name identifies the strategy inside the registry.
func (l *ListPageScanner) Name() string {
	return config.ScannerListPage
}

// Scan walks every list url of the source until its limit is reached. A page
// that fails is skipped; the scan fails only when every page failed.
func (l *ListPageScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.CandidateItem, error) {
	src := req.Source
	if len(src.ListURLs) == 0 {
		return nil, eris.Errorf("parser: no list urls for source %s", src.Name)
	}

	limit := src.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	ref := req.Day
	if ref.IsZero() {
		ref = l.now()
	}
	ref = ref.In(l.loc)

	var (
		items   []domain.CandidateItem
		seen    = map[string]struct{}{}
		failed  int
		lastErr error
	)
	for _, page := range src.ListURLs {
		if len(items) >= limit {
			break
		}

		doc, err := l.fetchDocument(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "parser: scan canceled")
			}
			l.logger.Warn("list page failed", zap.String("source", src.Name), zap.String("url", page), zap.Error(err))
			failed++
			lastErr = err
			continue
		}

		base, err := baseFor(src.BaseURL, page)
		if err != nil {
			return nil, err
		}

		doc.Find(src.Selectors.Item).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			item, ok := l.parseItem(sel, src, base, ref)
			if !ok {
				return true
			}
			if _, dup := seen[item.URL]; dup {
				return true
			}
			seen[item.URL] = struct{}{}
			items = append(items, item)
			return len(items) < limit
		})
	}

	if failed == len(src.ListURLs) {
		return nil, eris.Wrapf(lastErr, "parser: every list page of %s failed", src.Name)
	}
	l.logger.Debug("source scanned", zap.String("source", src.Name), zap.Int("items", len(items)))
	return items, nil
}

func (l *ListPageScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "parser: build request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "parser: request document")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("parser: %s returned %s", pageURL, resp.Status)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, eris.Wrap(err, "parser: detect charset")
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, eris.Wrap(err, "parser: parse document")
	}
	return doc, nil
}

func (l *ListPageScanner) parseItem(sel *goquery.Selection, src config.Source, base *url.URL, ref time.Time) (domain.CandidateItem, bool) {
	s := src.Selectors

	link := sel.Find(s.Link).First()
	if link.Length() == 0 && sel.Is(s.Link) {
		link = sel
	}
	href := strings.TrimSpace(link.AttrOr("href", ""))
	if href == "" || href == "#" || strings.HasPrefix(href, "javascript:") {
		return domain.CandidateItem{}, false
	}
	target, err := base.Parse(href)
	if err != nil {
		return domain.CandidateItem{}, false
	}

	title := cleanText(sel.Find(s.Title).First().Text())
	if title == "" {
		title = cleanText(link.Text())
	}
	if title == "" {
		title = cleanText(link.AttrOr("title", ""))
	}
	if title == "" {
		return domain.CandidateItem{}, false
	}

	publish, ok := time.Time{}, false
	if s.Date != "" {
		publish, ok = parsePublishDate(sel.Find(s.Date).First().Text(), ref)
	}
	if !ok {
		publish, ok = dateFromURL(target, l.loc)
	}
	if !ok {
		publish = dayOf(ref)
	}

	var summary string
	if s.Summary != "" {
		summary = cleanText(sel.Find(s.Summary).First().Text())
	}

	return domain.CandidateItem{
		Title:       title,
		URL:         target.String(),
		PublishDate: publish,
		Content:     summary,
		Summary:     summary,
		Source:      src.Name,
		SourceTier:  src.Tier,
	}, true
}

func baseFor(baseURL, page string) (*url.URL, error) {
	raw := baseURL
	if raw == "" {
		raw = page
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, eris.Wrapf(err, "parser: invalid base url %s", raw)
	}
	return u, nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
