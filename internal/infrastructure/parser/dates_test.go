package parser

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refNow = time.Date(2025, 11, 10, 15, 0, 0, 0, time.UTC)

func day(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParsePublishDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-11-08 10:30:00", day(11, 8)},
		{"(2025/11/07)", day(11, 7)},
		{"2025.11.06", day(11, 6)},
		{"2025年11月5日", day(11, 5)},
		{"30秒前", day(11, 10)},
		{"5分钟前", day(11, 10)},
		{"3小时前", day(11, 10)},
		{"20小时前", day(11, 9)},
		{"2天前", day(11, 8)},
		{"今天 09:12", day(11, 10)},
		{"昨天 10:00", day(11, 9)},
		{"昨日", day(11, 9)},
		{"前天", day(11, 8)},
		{"11-03", day(11, 3)},
		{"11-03 08:00", day(11, 3)},
		{"11月2日", day(11, 2)},
	}
	for _, tt := range tests {
		got, ok := parsePublishDate(tt.in, refNow)
		require.True(t, ok, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %s", tt.in, got)
	}
}

func TestParsePublishDateRejects(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "unknown", "2025-13-01", "2025-02-30"} {
		_, ok := parsePublishDate(in, refNow)
		assert.False(t, ok, in)
	}
}

func TestDateFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{"https://example.com/news/2025/1107/abc.html", day(11, 7), true},
		{"http://www.gov.cn/zhengce/202511/t20251105_123.html", day(11, 5), true},
		{"https://example.com/20251104/a.html", day(11, 4), true},
		{"https://example.com/2025-11-03/a.html", day(11, 3), true},
		{"https://example.com/article?id=20251104", time.Time{}, false},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		require.NoError(t, err)
		got, ok := dateFromURL(u, time.UTC)
		assert.Equal(t, tt.ok, ok, tt.raw)
		if tt.ok {
			assert.True(t, tt.want.Equal(got), "%s: got %s", tt.raw, got)
		}
	}
}
