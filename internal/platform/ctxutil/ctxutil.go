// Package ctxutil centralizes the handful of context helpers used across
// engines: a safe default when ctx is nil, and a way to derive a budgeted
// child context for the router's single timeout_seconds deadline.
package ctxutil

import (
	"context"
	"time"
)

// Default never returns nil; callers that receive a context from outside
// the module (or none at all, in tests) can pass it through here.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// WithBudget derives a child context bounded by seconds, unless seconds
// is <= 0, in which case it returns ctx unchanged (no deadline imposed).
func WithBudget(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	ctx = Default(ctx)
	if seconds <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}

// Remaining reports how much of ctx's deadline is left, or ok=false if
// ctx carries no deadline (meaning "no budget constraint").
func Remaining(ctx context.Context) (d time.Duration, ok bool) {
	dl, has := ctx.Deadline()
	if !has {
		return 0, false
	}
	return time.Until(dl), true
}

// Done reports whether ctx has already been cancelled or its deadline
// has passed, without blocking.
func Done(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Sleep blocks for d or returns early (with ctx.Err()) if ctx is
// cancelled first. Used by every backoff loop in this module so retry
// sleeps are interruptible, per spec §5 "Cancellation & timeouts".
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
