package bridge

import (
	"log/slog"
	"sync"

	"parambridge/internal/param"
)

// Subscription is returned by Bridge.Subscribe.
type Subscription struct {
	n  *notifier
	id uint64
}

// Unsubscribe stops delivery. It is idempotent and safe to call from inside
// the subscriber itself; an event already being delivered still completes.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.n == nil {
		return
	}
	s.n.unsubscribe(s.id)
}

type subscriber struct {
	id uint64
	fn func(param.Change)
}

// notifier is the single-producer, multi-consumer "changed" event source.
// Subscribers are called in registration order on the loop.
type notifier struct {
	log *slog.Logger

	mu   sync.Mutex
	next uint64
	subs []subscriber
}

func newNotifier(log *slog.Logger) *notifier {
	return &notifier{log: log}
}

func (n *notifier) subscribe(fn func(param.Change)) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next++
	n.subs = append(n.subs, subscriber{id: n.next, fn: fn})
	return &Subscription{n: n, id: n.next}
}

func (n *notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.subs {
		if s.id == id {
			n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
			return
		}
	}
}

func (n *notifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

func (n *notifier) emit(c param.Change) {
	n.mu.Lock()
	subs := append([]subscriber(nil), n.subs...)
	n.mu.Unlock()

	for _, s := range subs {
		n.deliver(s, c)
	}
}

func (n *notifier) deliver(s subscriber, c param.Change) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error("bridge: subscriber panicked", "param", c.ID, "panic", r)
		}
	}()
	s.fn(c)
}
