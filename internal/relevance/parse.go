package relevance

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"IDCIntel/internal/domain"
	"IDCIntel/internal/textutil"
)

// ErrUnparseable is returned when the reply holds no JSON object.
var ErrUnparseable = eris.New("relevance: reply is not a JSON object")

// ParseVerdict decodes the service reply. Out-of-range numbers are clamped,
// non-numeric ones fall back to the range midpoint. The returned verdict has
// Outcome Admitted; the gate applies the threshold.
func ParseVerdict(raw, title string) (Verdict, error) {
	body, ok := extractObject(raw)
	if !ok {
		return Verdict{}, ErrUnparseable
	}
	doc := gjson.Parse(body)

	relevance := clampField(doc.Get("relevance_score"), 0, MaxRelevanceScore, fallbackRelevance)
	importance := clampField(doc.Get("importance_score"), 0, MaxImportanceScore, fallbackImportance)
	category := clampField(doc.Get("category_score"), 0, MaxCategoryScore, fallbackCategory)

	suggestion := strings.TrimSpace(doc.Get("category").String())
	if suggestion == "" {
		suggestion = string(domain.CategoryOther)
	}

	summary := strings.TrimSpace(doc.Get("summary").String())
	if summary == "" {
		summary = titleSummary(title)
	}

	return Verdict{
		Outcome: Admitted,
		Evidence: domain.LLMEvidence{
			RelevanceScore:     relevance,
			ImportanceScore:    importance,
			CategoryScore:      category,
			Total:              relevance + importance,
			CategorySuggestion: suggestion,
			Reason:             textutil.Truncate(strings.TrimSpace(doc.Get("reason").String()), maxReasonRunes, ""),
		},
		Summary: summary,
	}, nil
}

// extractObject strips Markdown code fences and surrounding prose.
func extractObject(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if gjson.Valid(s) && gjson.Parse(s).IsObject() {
		return s, true
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	s = s[start : end+1]
	if gjson.Valid(s) && gjson.Parse(s).IsObject() {
		return s, true
	}
	return "", false
}

func clampField(v gjson.Result, lo, hi, missing int) int {
	var n float64
	switch v.Type {
	case gjson.Null:
		if !v.Exists() {
			return missing
		}
		return (lo + hi) / 2
	case gjson.Number:
		n = v.Float()
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return (lo + hi) / 2
		}
		n = parsed
	default:
		return (lo + hi) / 2
	}

	if math.IsNaN(n) {
		return (lo + hi) / 2
	}
	// Compare as float so huge values cannot overflow int.
	if n >= float64(hi) {
		return hi
	}
	if n <= float64(lo) {
		return lo
	}
	return int(n)
}
