// Package loop provides the single logical execution context the bridge runs
// its state handlers on.
//
// A Loop is a serial executor without a dedicated goroutine. Do enqueues a
// task; when no task is running, the calling goroutine becomes the runner and
// drains the queue before returning. A task submitted while another task is
// running (from any goroutine, including from inside that task) is queued
// behind it and runs on the active runner, so handlers never run in parallel
// and a handler that re-enters the loop cannot deadlock it.
package loop

import (
	"log/slog"
	"sync"

	"parambridge/internal/logging"
)

// Loop serializes tasks in FIFO order.
type Loop struct {
	log   *slog.Logger
	spawn func(func())

	mu       sync.Mutex // guards queue+running
	queue    []func()
	running  bool
	finished uint64
}

type Option func(*Loop)

// WithLogger sets the logger used to report panicking tasks.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) { lp.log = l }
}

// WithSpawner replaces the function Later uses to leave the caller's stack.
// The default starts a goroutine. Tests inject a manual spawner to control
// when deferred tasks are released.
func WithSpawner(spawn func(func())) Option {
	return func(lp *Loop) { lp.spawn = spawn }
}

func New(opts ...Option) *Loop {
	l := &Loop{
		spawn: func(f func()) { go f() },
	}
	for _, o := range opts {
		o(l)
	}
	if l.log == nil {
		l.log = logging.L()
	}
	return l
}

// Do runs fn on the loop. It returns once fn has run, or immediately if fn
// was queued behind a task that is already running.
func (l *Loop) Do(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()
	l.drain()
}

// Later schedules fn on a future turn of the loop. fn never runs within the
// caller's stack.
func (l *Loop) Later(fn func()) {
	l.spawn(func() { l.Do(fn) })
}

// Pending reports the number of queued tasks that have not started yet.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Finished reports how many tasks have completed.
func (l *Loop) Finished() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.finished
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.running = false
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.run(fn)

		l.mu.Lock()
		l.finished++
		l.mu.Unlock()
	}
}

// run executes one task. A panicking task is logged and the loop keeps
// draining; otherwise the running flag would stay set forever.
func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("loop: task panicked", "panic", r)
		}
	}()
	fn()
}
