package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ScannerListPage is the CSS-selector driven list page scanner.
const ScannerListPage = "listpage"

// Source is one media site in the catalog.
type Source struct {
	Name      string    `yaml:"name"`
	Tier      int       `yaml:"tier"`
	Active    *bool     `yaml:"active"`
	Scanner   string    `yaml:"scanner"`
	ListURLs  []string  `yaml:"list_urls"`
	BaseURL   string    `yaml:"base_url"`
	Selectors Selectors `yaml:"selectors"`
	Limit     int       `yaml:"limit"`
}

// Selectors are goquery selectors relative to each item container.
type Selectors struct {
	Item    string `yaml:"item"`
	Title   string `yaml:"title"`
	Link    string `yaml:"link"`
	Date    string `yaml:"date"`
	Summary string `yaml:"summary"`
}

// IsActive treats a missing flag as active.
func (s Source) IsActive() bool {
	return s.Active == nil || *s.Active
}

type catalogFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads the catalog at path. A missing file yields the built-in
// catalog; inactive sources are dropped.
func LoadSources(path string) ([]Source, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) || path == "" {
		return activeOnly(DefaultSources()), nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "config: read sources %s", path)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, eris.Wrapf(err, "config: parse sources %s", path)
	}
	for i := range file.Sources {
		if err := normalizeSource(&file.Sources[i]); err != nil {
			return nil, err
		}
	}
	return activeOnly(file.Sources), nil
}

func normalizeSource(s *Source) error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return eris.Wrap(ErrInvalid, "source without name")
	}
	if s.Scanner == "" {
		s.Scanner = ScannerListPage
	}
	if s.Tier == 0 {
		s.Tier = 2
	}
	if len(s.ListURLs) == 0 && s.BaseURL != "" {
		s.ListURLs = []string{s.BaseURL}
	}
	if len(s.ListURLs) == 0 {
		return eris.Wrapf(ErrInvalid, "source %s has no list_urls", s.Name)
	}
	if s.Selectors.Item == "" || s.Selectors.Link == "" {
		return eris.Wrapf(ErrInvalid, "source %s needs item and link selectors", s.Name)
	}
	if s.Selectors.Title == "" {
		s.Selectors.Title = s.Selectors.Link
	}
	return nil
}

func activeOnly(in []Source) []Source {
	out := make([]Source, 0, len(in))
	for _, s := range in {
		if s.IsActive() {
			out = append(out, s)
		}
	}
	return out
}

// DefaultSources is used when no catalog file exists.
func DefaultSources() []Source {
	return []Source{
		{
			Name:     "中国IDC圈",
			Tier:     1,
			Scanner:  ScannerListPage,
			ListURLs: []string{"https://news.idcquan.com/"},
			BaseURL:  "https://news.idcquan.com",
			Selectors: Selectors{
				Item:    "div.news.clearfix",
				Title:   "div.news_nr span.title",
				Link:    "a.bdurl, div.news_nr a.d1",
				Date:    "span.date",
				Summary: "div.news_nr div.d2 span.nei_rong",
			},
			Limit: 20,
		},
		{
			Name:    "通信世界网",
			Tier:    2,
			Scanner: ScannerListPage,
			ListURLs: []string{
				"https://www.cww.net.cn/subjects/nav/rollList/8102",
				"https://www.cww.net.cn/subjects/nav/rollList/3009",
				"https://www.cww.net.cn/subjects/nav/rollList/3008",
			},
			BaseURL: "https://www.cww.net.cn",
			Selectors: Selectors{
				Item:  "div.pindao.mt0 li",
				Title: "a",
				Link:  "a",
				Date:  "span.textgray.fr",
			},
			Limit: 20,
		},
	}
}
