package transport

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errThrottleClosed = errors.New("transport: throttle closed")

// throttle is a token bucket. The client uses it to bound how fast grab
// moves reach the kernel while a control is being dragged.
type throttle struct {
	capacity int64
	refill   int64

	mu     sync.Mutex
	tokens int64
	cond   *sync.Cond
	closed bool
	stop   chan struct{}
}

// newThrottle starts with a full bucket and adds refill tokens every tick.
func newThrottle(capacity, refill int64, tick time.Duration) *throttle {
	t := &throttle{
		capacity: capacity,
		refill:   refill,
		tokens:   capacity,
		stop:     make(chan struct{}),
	}
	t.cond = sync.NewCond(&t.mu)

	go func() {
		tk := time.NewTicker(tick)
		defer tk.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-tk.C:
			}
			t.mu.Lock()
			t.tokens += t.refill
			if t.tokens > t.capacity {
				t.tokens = t.capacity
			}
			t.mu.Unlock()
			t.cond.Broadcast()
		}
	}()
	return t
}

// perSecond builds a throttle allowing n requests per second with bursts
// of up to n.
func perSecond(n int) *throttle {
	if n <= 0 {
		return nil
	}
	return newThrottle(int64(n), 1, time.Second/time.Duration(n))
}

// acquire takes one token, waiting until one is available, ctx ends or the
// throttle is closed.
func (t *throttle) acquire(ctx context.Context) error {
	wake := context.AfterFunc(ctx, func() {
		t.mu.Lock()
		t.mu.Unlock()
		t.cond.Broadcast()
	})
	defer wake()

	t.mu.Lock()
	defer t.mu.Unlock()
	for t.tokens == 0 && !t.closed && ctx.Err() == nil {
		t.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.closed {
		return errThrottleClosed
	}
	t.tokens--
	return nil
}

func (t *throttle) available() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tokens
}

func (t *throttle) close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.stop)
	t.mu.Unlock()
	t.cond.Broadcast()
}
