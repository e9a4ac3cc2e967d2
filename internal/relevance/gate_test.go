package relevance

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"IDCIntel/internal/domain"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeChat struct {
	mu      sync.Mutex
	reply   string
	err     error
	delay   time.Duration
	calls   int
	prompts []string
}

func (f *fakeChat) Complete(ctx context.Context, _, user string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, user)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func TestJudgeAdmitsAtThreshold(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: `{"relevance_score": 8, "importance_score": 12, "category": "技术", "category_score": 7, "reason": "液冷", "summary": "液冷方案发布"}`}
	v := NewGate(chat).Judge(context.Background(), "液冷新品", "内容")

	assert.Equal(t, Admitted, v.Outcome)
	assert.Equal(t, 8, v.Evidence.RelevanceScore)
	assert.Equal(t, 20, v.Evidence.Total)
	assert.Equal(t, "技术", v.Evidence.CategorySuggestion)
	assert.Equal(t, "液冷方案发布", v.Summary)
	assert.Empty(t, v.DegradeReason)
	assert.Equal(t, 1, chat.calls)
}

func TestJudgeRejectsBelowThreshold(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: `{"relevance_score": 7, "importance_score": 15}`}
	v := NewGate(chat).Judge(context.Background(), "新款手机发布", "")

	assert.Equal(t, Rejected, v.Outcome)
	assert.False(t, v.Outcome.Admits())
}

func TestJudgeCustomThreshold(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: `{"relevance_score": 9}`}
	v := NewGate(chat, WithThreshold(10)).Judge(context.Background(), "t", "")
	assert.Equal(t, Rejected, v.Outcome)
}

func TestJudgeDegradesOnCallFailure(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{err: errors.New("connection refused")}
	v := NewGate(chat).Judge(context.Background(), "某数据中心开工", "")

	assert.Equal(t, Degraded, v.Outcome)
	assert.True(t, v.Outcome.Admits())
	assert.Equal(t, ReasonCallFailed, v.DegradeReason)
	assert.Equal(t, domain.LLMEvidence{
		RelevanceScore:     10,
		ImportanceScore:    10,
		CategoryScore:      5,
		Total:              20,
		CategorySuggestion: "其他",
		Reason:             v.Evidence.Reason,
	}, v.Evidence)
	assert.Contains(t, v.Evidence.Reason, ReasonCallFailed)
	assert.Equal(t, "某数据中心开工", v.Summary)
	assert.Equal(t, 1, chat.calls)
}

func TestJudgeDegradesOnTimeout(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{delay: time.Second, reply: `{"relevance_score": 20}`}
	v := NewGate(chat, WithTimeout(20*time.Millisecond)).Judge(context.Background(), "t", "")

	assert.Equal(t, Degraded, v.Outcome)
	assert.Equal(t, ReasonTimeout, v.DegradeReason)
}

func TestJudgeDegradesOnGarbage(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: "抱歉，我无法回答"}
	v := NewGate(chat).Judge(context.Background(), "t", "")

	assert.Equal(t, Degraded, v.Outcome)
	assert.Equal(t, ReasonUnparseable, v.DegradeReason)
}

func TestJudgeWithoutClient(t *testing.T) {
	t.Parallel()

	v := NewGate(nil).Judge(context.Background(), "t", "")
	assert.Equal(t, Degraded, v.Outcome)
	assert.Equal(t, ReasonDisabled, v.DegradeReason)
}

func TestJudgeSendsExcerpt(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: `{"relevance_score": 15}`}
	content := strings.Repeat("数", 1000)
	NewGate(chat).Judge(context.Background(), "标题", content)

	require.Len(t, chat.prompts, 1)
	assert.Contains(t, chat.prompts[0], "标题")
	assert.Contains(t, chat.prompts[0], strings.Repeat("数", 800))
	assert.NotContains(t, chat.prompts[0], strings.Repeat("数", 801))
}

func TestJudgeRateLimited(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{reply: `{"relevance_score": 15}`}
	g := NewGate(chat, WithRateLimit(1000, 1))
	for i := 0; i < 3; i++ {
		assert.Equal(t, Admitted, g.Judge(context.Background(), "t", "").Outcome)
	}
	assert.Equal(t, 3, chat.calls)
}
