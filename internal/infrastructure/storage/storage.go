// Package storage persists scored articles with one record per canonical url.
package storage

import (
	"time"

	"github.com/rotisserie/eris"

	"IDCIntel/internal/domain"
)

// ErrNotFound is returned when an update or lookup targets a missing id.
var ErrNotFound = eris.New("storage: article not found")

const articlesTable = "articles"

// Option customises a repository.
type Option func(*settings)

type settings struct {
	now func() time.Time
	loc *time.Location
}

func defaultSettings() settings {
	return settings{now: time.Now, loc: time.Local}
}

// WithClock overrides the clock used for timestamps and window cutoffs.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the time zone that defines "today" for window queries.
func WithLocation(loc *time.Location) Option {
	return func(s *settings) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// windowStart returns the first calendar day of a window of the given length
// ending today. A window of one day is today only.
func (s settings) windowStart(days int) string {
	if days < 1 {
		days = 1
	}
	today := s.now().In(s.loc)
	return today.AddDate(0, 0, -(days - 1)).Format(domain.DateLayout)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.DateLayout)
}

func parseDate(s string, loc *time.Location) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(domain.DateLayout, s, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}
