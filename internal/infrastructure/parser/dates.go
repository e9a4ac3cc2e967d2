package parser

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	fullDateExpr   = regexp.MustCompile(`(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})`)
	cnDateExpr     = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)
	cnMonthDayExpr = regexp.MustCompile(`(\d{1,2})月(\d{1,2})日`)
	monthDayExpr   = regexp.MustCompile(`^(\d{1,2})[-/](\d{1,2})\b`)
	agoExpr        = regexp.MustCompile(`(\d+)\s*(秒|分钟|小时|天)前`)

	urlDateExprs = []*regexp.Regexp{
		regexp.MustCompile(`/\d{6}/t(\d{4})(\d{2})(\d{2})`),
		regexp.MustCompile(`/(\d{4})/(\d{2})(\d{2})/`),
		regexp.MustCompile(`/(\d{4})-(\d{2})-(\d{2})/`),
		regexp.MustCompile(`/(\d{4})(\d{2})(\d{2})/`),
	}

	bracketReplacer = strings.NewReplacer("(", "", ")", "", "（", "", "）", "", "[", "", "]", "")
)

// parsePublishDate understands the date shapes seen on Chinese news list pages.
// Relative forms are resolved against now.
func parsePublishDate(raw string, now time.Time) (time.Time, bool) {
	text := strings.TrimSpace(bracketReplacer.Replace(raw))
	if text == "" {
		return time.Time{}, false
	}
	today := dayOf(now)

	if m := fullDateExpr.FindStringSubmatch(text); m != nil {
		return civil(m[1], m[2], m[3], now.Location())
	}
	if m := cnDateExpr.FindStringSubmatch(text); m != nil {
		return civil(m[1], m[2], m[3], now.Location())
	}
	if m := agoExpr.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "秒", "分钟":
			return today, true
		case "小时":
			return dayOf(now.Add(-time.Duration(n) * time.Hour)), true
		case "天":
			return today.AddDate(0, 0, -n), true
		}
	}
	switch {
	case strings.Contains(text, "今天") || strings.Contains(text, "刚刚"):
		return today, true
	case strings.Contains(text, "前天"):
		return today.AddDate(0, 0, -2), true
	case strings.Contains(text, "昨天") || strings.Contains(text, "昨日"):
		return today.AddDate(0, 0, -1), true
	}
	year := strconv.Itoa(now.Year())
	if m := cnMonthDayExpr.FindStringSubmatch(text); m != nil {
		return civil(year, m[1], m[2], now.Location())
	}
	if m := monthDayExpr.FindStringSubmatch(text); m != nil {
		return civil(year, m[1], m[2], now.Location())
	}
	return time.Time{}, false
}

// dateFromURL recovers a publish date embedded in common CMS url layouts.
func dateFromURL(u *url.URL, loc *time.Location) (time.Time, bool) {
	if u == nil {
		return time.Time{}, false
	}
	for _, expr := range urlDateExprs {
		if m := expr.FindStringSubmatch(u.Path); m != nil {
			if t, ok := civil(m[1], m[2], m[3], loc); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func civil(y, m, d string, loc *time.Location) (time.Time, bool) {
	year, err1 := strconv.Atoi(y)
	month, err2 := strconv.Atoi(m)
	day, err3 := strconv.Atoi(d)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if year < 1990 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
