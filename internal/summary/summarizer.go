// Package summary turns stored article text into a short Chinese summary
// through the configured chat service.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"IDCIntel/internal/ports"
	"IDCIntel/internal/textutil"
)

const (
	systemPrompt = "你是一个专业的IDC/数据中心行业分析师，擅长撰写简洁专业的行业资讯摘要。"
	userPrompt   = `请为以下IDC/数据中心行业文章生成一个80-150字的中文摘要。

要求：
1. 突出核心信息和业务价值
2. 使用专业术语
3. 简洁明了
4. 不要包含"这篇文章"、"本文"等元信息

文章标题：%s
文章内容：%s

摘要：`

	contentRunes = 2000
	minRunes     = 60
	maxRunes     = 200
)

var (
	errEmptyReply = eris.New("summary: empty reply")
	errLength     = eris.New("summary: length out of range")
)

var metaPrefixes = []string{"摘要：", "概要：", "本文", "这篇文章", "文章", "该文"}

// Summarizer retries failed calls with a constant delay.
type Summarizer struct {
	client   ports.ChatClient
	attempts int
	delay    time.Duration
	logger   *zap.Logger
}

var _ ports.Summarizer = (*Summarizer)(nil)

// New builds a summarizer. attempts below one are treated as one.
func New(client ports.ChatClient, attempts int, delay time.Duration, logger *zap.Logger) *Summarizer {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{client: client, attempts: attempts, delay: delay, logger: logger}
}

// Summarize returns a cleaned summary. An out-of-range length is retried and
// accepted on the last attempt.
func (s *Summarizer) Summarize(ctx context.Context, title, content string) (string, error) {
	if s.client == nil {
		return "", eris.New("summary: no chat client configured")
	}
	text := content
	if strings.TrimSpace(text) == "" {
		text = title
	}
	prompt := fmt.Sprintf(userPrompt, title, textutil.Truncate(text, contentRunes, ""))

	var (
		out     string
		attempt int
	)
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.delay), uint64(s.attempts-1)), ctx)
	err := backoff.Retry(func() error {
		attempt++
		raw, err := s.client.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			s.logger.Warn("summary: call failed",
				zap.Int("attempt", attempt), zap.String("title", title), zap.Error(err))
			return err
		}

		cleaned := Clean(raw)
		if cleaned == "" {
			return errEmptyReply
		}
		n := len([]rune(cleaned))
		if (n < minRunes || n > maxRunes) && attempt < s.attempts {
			s.logger.Debug("summary: length out of range, retrying", zap.Int("runes", n))
			return errLength
		}
		out = cleaned
		return nil
	}, policy)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", eris.Wrap(ctxErr, "summary: wait for retry")
		}
		return "", eris.Wrapf(err, "summary: %d attempts failed", attempt)
	}
	return out, nil
}

// Clean strips meta prefixes, leading colons and repeated whitespace.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	for _, p := range metaPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(strings.TrimPrefix(s, p))
		}
	}
	s = strings.TrimLeft(s, "：:")
	return strings.Join(strings.Fields(s), " ")
}
