// Package relevance asks an external language model whether a candidate is
// about the IDC industry and degrades to a neutral verdict when it cannot.
package relevance

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"IDCIntel/internal/ports"
)

const (
	// DefaultThreshold is the minimum relevance score an item needs.
	DefaultThreshold = 8
	// DefaultTimeout bounds a single service call.
	DefaultTimeout = 30 * time.Second
)

// Gate is safe for concurrent use when its ChatClient is.
type Gate struct {
	client    ports.ChatClient
	threshold int
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// Option customises a Gate.
type Option func(*Gate)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(n int) Option {
	return func(g *Gate) { g.threshold = n }
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithRateLimit caps calls per second. Zero disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(g *Gate) {
		if perSecond <= 0 {
			g.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the logger used for degraded calls.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGate builds a gate. A nil client yields a gate that degrades every item.
func NewGate(client ports.ChatClient, opts ...Option) *Gate {
	g := &Gate{
		client:    client,
		threshold: DefaultThreshold,
		timeout:   DefaultTimeout,
		logger:    zap.L(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Threshold returns the admission threshold in use.
func (g *Gate) Threshold() int {
	return g.threshold
}

// Judge makes at most one service call. It never returns an error: every
// failure becomes a Degraded verdict that admits the item.
func (g *Gate) Judge(ctx context.Context, title, content string) Verdict {
	if g.client == nil {
		return Fallback(title, ReasonDisabled)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if g.limiter != nil {
		if err := g.limiter.Wait(callCtx); err != nil {
			return g.degrade(title, failureReason(callCtx, err), err)
		}
	}

	raw, err := g.client.Complete(callCtx, systemPrompt, BuildPrompt(title, content))
	if err != nil {
		return g.degrade(title, failureReason(callCtx, err), err)
	}

	v, err := ParseVerdict(raw, title)
	if err != nil {
		return g.degrade(title, ReasonUnparseable, err)
	}

	if v.Evidence.RelevanceScore < g.threshold {
		v.Outcome = Rejected
	}
	return v
}

func (g *Gate) degrade(title, reason string, err error) Verdict {
	g.logger.Warn("relevance: service unavailable, using fallback",
		zap.String("title", title),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return Fallback(title, reason)
}

func failureReason(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		return ReasonCanceled
	default:
		return ReasonCallFailed
	}
}
