package kernel

import (
	"log/slog"
	"sync"
)

// mailbox delivers notifications to one listener on its own goroutine. The
// queue is unbounded so a slow listener never blocks the kernel.
type mailbox struct {
	fn  func(Notification)
	log *slog.Logger

	mu    sync.Mutex
	queue []Notification
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newMailbox(fn func(Notification), log *slog.Logger) *mailbox {
	return &mailbox{
		fn:   fn,
		log:  log,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (m *mailbox) put(n Notification) {
	m.mu.Lock()
	m.queue = append(m.queue, n)
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// stop ends delivery. Notifications still queued are dropped; one already
// being delivered completes.
func (m *mailbox) stop() {
	m.once.Do(func() { close(m.done) })
}

func (m *mailbox) run() {
	for {
		select {
		case <-m.done:
			return
		case <-m.wake:
		}
		for {
			m.mu.Lock()
			batch := m.queue
			m.queue = nil
			m.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, n := range batch {
				select {
				case <-m.done:
					return
				default:
				}
				m.deliver(n)
			}
		}
	}
}

func (m *mailbox) deliver(n Notification) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("kernel: listener panicked", "param", n.ID, "seq", n.Seq, "panic", r)
		}
	}()
	m.fn(n)
}
