package bridge

import (
	"log/slog"
	"time"

	"parambridge/internal/loop"
	"parambridge/internal/param"
)

type Option func(*Bridge)

func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// WithLoop runs the bridge handlers on lp instead of a private loop.
func WithLoop(lp *loop.Loop) Option {
	return func(b *Bridge) { b.loop = lp }
}

// WithRequestTimeout bounds every authority request the bridge issues.
// Zero leaves requests bounded only by the caller's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.timeout = d }
}

// WithErrorHandler receives failures of fire-and-forget pushes. It runs on
// the push worker goroutine.
func WithErrorHandler(fn func(op Op, id param.ID, err error)) Option {
	return func(b *Bridge) { b.onError = fn }
}

// WithPushBuffer sizes the queue between SetParameter and the push worker.
func WithPushBuffer(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.pushBuffer = n
		}
	}
}
