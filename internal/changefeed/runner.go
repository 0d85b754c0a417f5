// Package changefeed turns parameter changes into sink records and fans
// them out to the configured sinks.
package changefeed

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"parambridge/internal/kernel"
	"parambridge/internal/logging"
	"parambridge/internal/param"
	"parambridge/internal/telemetry"
	"parambridge/sink"
)

type namedSink struct {
	name string
	a    sink.Adapter
}

type Runner struct {
	log *slog.Logger
	now func() time.Time

	mu     sync.Mutex
	sinks  []namedSink
	subs   []func(sink.Record)
	closed bool
}

type Option func(*Runner)

func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.log = l } }

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

func NewRunner(opts ...Option) *Runner {
	r := &Runner{now: time.Now}
	for _, o := range opts {
		o(r)
	}
	if r.log == nil {
		r.log = logging.For("changefeed")
	}
	return r
}

// AddSink appends s under name. Sinks that confirm delivery are bound to the
// runner's ack subscribers.
func (r *Runner) AddSink(name string, s sink.Adapter) {
	if aw, ok := s.(sink.AckAware); ok {
		aw.BindAck(func(rec sink.Record) { r.ack(name, rec) })
	}
	r.mu.Lock()
	r.sinks = append(r.sinks, namedSink{name: name, a: s})
	r.mu.Unlock()
}

func (r *Runner) Sinks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sinks)
}

// SubscribeAck registers fn for records a sink reports as delivered.
func (r *Runner) SubscribeAck(fn func(sink.Record)) {
	r.mu.Lock()
	r.subs = append(r.subs, fn)
	r.mu.Unlock()
}

func (r *Runner) ack(name string, rec sink.Record) {
	telemetry.FeedRecords.WithLabelValues(name, "acked").Inc()
	r.mu.Lock()
	handlers := append([]func(sink.Record){}, r.subs...)
	r.mu.Unlock()
	for _, fn := range handlers {
		fn(rec)
	}
}

// Publish writes one record to every sink. A failing sink does not stop the
// others; all failures are returned joined.
func (r *Runner) Publish(c param.Change, seq uint64) error {
	rec := sink.Record{
		ID:     uuid.New(),
		Param:  string(c.ID),
		Value:  c.Value,
		Origin: string(c.Origin),
		Seq:    seq,
		Time:   r.now().UTC(),
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errors.New("changefeed: closed")
	}
	sinks := append([]namedSink(nil), r.sinks...)
	r.mu.Unlock()

	var errs []error
	for _, s := range sinks {
		if err := s.a.Push(rec); err != nil {
			telemetry.FeedRecords.WithLabelValues(s.name, "error").Inc()
			errs = append(errs, fmt.Errorf("sink %s: %w", s.name, err))
			continue
		}
		telemetry.FeedRecords.WithLabelValues(s.name, "pushed").Inc()
	}
	return errors.Join(errs...)
}

// OnChange is a bridge subscriber.
func (r *Runner) OnChange(c param.Change) {
	if err := r.Publish(c, 0); err != nil {
		r.log.Warn("changefeed: publish failed", "param", c.ID, "err", err)
	}
}

// OnNotification is a kernel listener.
func (r *Runner) OnNotification(n kernel.Notification) {
	if err := r.Publish(param.Change{ID: n.ID, Value: n.Value, Origin: n.Origin}, n.Seq); err != nil {
		r.log.Warn("changefeed: publish failed", "param", n.ID, "seq", n.Seq, "err", err)
	}
}

// Close closes every sink once.
func (r *Runner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sinks := r.sinks
	r.mu.Unlock()

	var errs []error
	for _, s := range sinks {
		if err := s.a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
