// Package cancel implements a cooperative cancellation token: a
// thread-safe flag polled by long-running loops, rate limited so hot
// paths don't pay a clock read on every iteration, plus an optional
// wall-clock cutoff (maxTaskTime) and the progress sinks (onProgress,
// onMainLabel, onLabel) external callers use to drive a UI.
package cancel

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ProgressSink receives progress updates from a long-running operation.
// Implementations are supplied by the caller; the core never implements a
// UI itself.
type ProgressSink interface {
	OnProgress(percent int)
	OnMainLabel(s string)
	OnLabel(s string)
}

// NoopSink discards all progress events.
type NoopSink struct{}

func (NoopSink) OnProgress(int)     {}
func (NoopSink) OnMainLabel(string) {}
func (NoopSink) OnLabel(string)     {}

// Token is a thread-safe, rate-limited cancellation flag. The zero value
// is a valid, never-cancelled, unlimited token.
type Token struct {
	requested   atomic.Bool
	latched     atomic.Bool
	maxTaskTime time.Duration
	startedAt   time.Time
	sometimes   *rate.Sometimes
}

// New creates a Token with the given wall-clock cutoff (0 = unlimited).
// The interruption check is rate limited to roughly once per 300ms of
// wall time, implemented with rate.Sometimes rather than a raw
// time.Since comparison so repeated Sometimes.Do callers share one clock
// read per window.
func New(maxTaskTime time.Duration) *Token {
	return &Token{
		maxTaskTime: maxTaskTime,
		startedAt:   time.Now(),
		sometimes:   &rate.Sometimes{Interval: 300 * time.Millisecond},
	}
}

// Cancel requests cancellation. Safe to call from any goroutine.
func (t *Token) Cancel() {
	if t == nil {
		return
	}
	t.requested.Store(true)
}

// IsInterruptionRequested polls the flag, rate limiting the actual check
// (including the wall-clock cutoff comparison) to roughly once per 300ms.
// Once a cancellation is observed it is latched locally so a caller that
// stops polling mid-window never misses it.
func (t *Token) IsInterruptionRequested() bool {
	if t == nil {
		return false
	}
	if t.latched.Load() {
		return true
	}
	check := func() {
		if t.requested.Load() {
			t.latched.Store(true)
			return
		}
		if t.maxTaskTime > 0 && time.Since(t.startedAt) >= t.maxTaskTime {
			t.latched.Store(true)
		}
	}
	if t.sometimes == nil {
		// zero-value token: no rate limiter, check directly.
		check()
	} else {
		t.sometimes.Do(check)
	}
	return t.latched.Load()
}
