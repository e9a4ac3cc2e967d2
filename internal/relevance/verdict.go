package relevance

import (
	"fmt"

	"IDCIntel/internal/domain"
	"IDCIntel/internal/textutil"
)

// Outcome tells the orchestrator how an item passed (or failed) the gate.
type Outcome int

const (
	// Admitted means the service judged the item relevant enough.
	Admitted Outcome = iota
	// Rejected means the service's relevance score fell below the threshold.
	Rejected
	// Degraded means the service was unusable and the neutral fallback was applied.
	// Degraded items are admitted.
	Degraded
)

func (o Outcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case Rejected:
		return "rejected"
	case Degraded:
		return "degraded"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Admits reports whether the item continues to scoring and storage.
func (o Outcome) Admits() bool {
	return o != Rejected
}

// Reason codes attached to degraded verdicts.
const (
	ReasonDisabled    = "disabled"
	ReasonTimeout     = "timeout"
	ReasonCanceled    = "canceled"
	ReasonCallFailed  = "call_failed"
	ReasonUnparseable = "unparseable"
)

// Score ranges of the service's answer.
const (
	MaxRelevanceScore  = 20
	MaxImportanceScore = 20
	MaxCategoryScore   = 10

	fallbackRelevance  = 10
	fallbackImportance = 10
	fallbackCategory   = 5

	maxReasonRunes  = 100
	maxSummaryRunes = 150
)

// Verdict is the gate's decision plus the evidence kept on the stored record.
type Verdict struct {
	Outcome  Outcome
	Evidence domain.LLMEvidence
	Summary  string
	// DegradeReason is set only when Outcome is Degraded.
	DegradeReason string
}

// Fallback builds the neutral verdict used when the service cannot answer.
func Fallback(title, reason string) Verdict {
	return Verdict{
		Outcome: Degraded,
		Evidence: domain.LLMEvidence{
			RelevanceScore:     fallbackRelevance,
			ImportanceScore:    fallbackImportance,
			CategoryScore:      fallbackCategory,
			Total:              fallbackRelevance + fallbackImportance,
			CategorySuggestion: string(domain.CategoryOther),
			Reason:             fmt.Sprintf("LLM分析不可用(%s)，使用默认评分", reason),
		},
		Summary:       titleSummary(title),
		DegradeReason: reason,
	}
}

func titleSummary(title string) string {
	return textutil.Truncate(title, maxSummaryRunes, "...")
}
