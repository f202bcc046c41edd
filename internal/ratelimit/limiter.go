// Package ratelimit provides per-key rate limiting for MCP tools.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key, each with the same rate and burst.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rate    rate.Limit
	burst   int
	nowFunc func() time.Time // injectable clock for testing
}

// NewLimiter creates a limiter allowing perSecond events per second with
// the given burst. Every key starts with a full burst.
func NewLimiter(perSecond float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		rate:    rate.Limit(perSecond),
		burst:   burst,
		nowFunc: time.Now,
	}
}

// PerMinute is a convenience for limits expressed as events per minute.
func PerMinute(n float64, burst int) *Limiter {
	return NewLimiter(n/60.0, burst)
}

// Allow reports whether one event for key may happen now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.rate, l.burst)
		l.buckets[key] = b
	}
	now := l.nowFunc()
	l.mu.Unlock()

	return b.AllowN(now, 1)
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// ToolLimits configures the per-minute budget of each MCP tool.
type ToolLimits struct {
	EvaluatePerMinute float64
	HistoryPerMinute  float64
	SweepPerMinute    float64
}

// DefaultToolLimits returns limits generous enough for interactive use.
func DefaultToolLimits() ToolLimits {
	return ToolLimits{
		EvaluatePerMinute: 120,
		HistoryPerMinute:  60,
		SweepPerMinute:    6,
	}
}

// NewToolLimiters creates the per-tool limiters for the glitch_* tools.
// A non-positive budget leaves that tool unlimited.
func NewToolLimiters(limits ToolLimits) ToolLimiters {
	tl := ToolLimiters{}
	add := func(name string, perMinute float64, burst int) {
		if perMinute > 0 {
			tl[name] = PerMinute(perMinute, burst)
		}
	}
	add("glitch_evaluate", limits.EvaluatePerMinute, 10)
	add("glitch_history", limits.HistoryPerMinute, 10)
	add("glitch_sweep", limits.SweepPerMinute, 1)
	return tl
}

// CheckLimit returns an error if toolName is over its limit.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}

	if !limiter.Allow(toolName) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}

	return nil
}
