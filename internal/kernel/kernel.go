// Package kernel is an in-process parameter authority. It owns the
// ground-truth values of a fixed descriptor set, arbitrates grab sessions and
// broadcasts every applied change to its listeners. It stands in for the
// native audio kernel in tests and in the kernel server binary.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"parambridge/internal/logging"
	"parambridge/internal/param"
)

var (
	ErrUnknownParameter = errors.New("kernel: unknown parameter")
	ErrAlreadyGrabbed   = errors.New("kernel: parameter already grabbed")
	ErrClosed           = errors.New("kernel: closed")
)

// Notification is one applied value change. Seq increases by one for every
// change the kernel applies, across all parameters.
type Notification struct {
	ID     param.ID
	Value  float64
	Seq    uint64
	Origin param.Origin
}

type Option func(*Kernel)

func WithLogger(l *slog.Logger) Option {
	return func(k *Kernel) { k.log = l }
}

// WithLatency delays every request by d, or until the request context ends.
func WithLatency(d time.Duration) Option {
	return func(k *Kernel) { k.latency = d }
}

// Kernel implements bridge.Authority in memory.
type Kernel struct {
	log     *slog.Logger
	latency time.Duration

	mu         sync.Mutex
	descs      map[param.ID]param.Descriptor
	order      []param.ID
	values     map[param.ID]float64
	sessions   map[param.GrabHandle]param.ID
	grabbed    map[param.ID]param.GrabHandle
	nextHandle param.GrabHandle
	seq        uint64
	listeners  map[uint64]*mailbox
	nextLis    uint64
	closed     bool
	done       chan struct{}
}

// New creates a kernel holding descs, each at its clamped default value.
func New(descs []param.Descriptor, opts ...Option) (*Kernel, error) {
	k := &Kernel{
		descs:     make(map[param.ID]param.Descriptor, len(descs)),
		values:    make(map[param.ID]float64, len(descs)),
		sessions:  make(map[param.GrabHandle]param.ID),
		grabbed:   make(map[param.ID]param.GrabHandle),
		listeners: make(map[uint64]*mailbox),
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(k)
	}
	if k.log == nil {
		k.log = logging.For("kernel")
	}
	for _, d := range descs {
		if d.ID == "" {
			return nil, errors.New("kernel: descriptor without id")
		}
		if _, dup := k.descs[d.ID]; dup {
			return nil, fmt.Errorf("kernel: duplicate parameter %q", d.ID)
		}
		k.descs[d.ID] = d
		k.values[d.ID] = d.Clamp(d.Default)
		k.order = append(k.order, d.ID)
	}
	sort.Slice(k.order, func(i, j int) bool { return k.order[i] < k.order[j] })
	return k, nil
}

func (k *Kernel) Descriptors(ctx context.Context) (map[param.ID]param.Descriptor, error) {
	if err := k.wait(ctx); err != nil {
		return nil, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil, ErrClosed
	}
	out := make(map[param.ID]param.Descriptor, len(k.descs))
	for id, d := range k.descs {
		out[id] = d
	}
	return out, nil
}

// RequestFullSync broadcasts the current value of every parameter, in id
// order.
func (k *Kernel) RequestFullSync(ctx context.Context) error {
	if err := k.wait(ctx); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return ErrClosed
	}
	for _, id := range k.order {
		k.broadcast(id, k.values[id], param.OriginRemote)
	}
	return nil
}

func (k *Kernel) PushValue(ctx context.Context, id param.ID, value float64) error {
	if err := k.wait(ctx); err != nil {
		return err
	}
	return k.apply(id, value, param.OriginLocal)
}

// Set changes a value from the kernel side, as host automation would.
func (k *Kernel) Set(id param.ID, value float64) error {
	return k.apply(id, value, param.OriginRemote)
}

func (k *Kernel) apply(id param.ID, value float64, origin param.Origin) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return ErrClosed
	}
	d, ok := k.descs[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, id)
	}
	v := d.Clamp(value)
	k.values[id] = v
	k.broadcast(id, v, origin)
	return nil
}

// BeginGrab opens a session on id. Handles are allocated from zero upward and
// never reused.
func (k *Kernel) BeginGrab(ctx context.Context, id param.ID) (param.GrabHandle, error) {
	if err := k.wait(ctx); err != nil {
		return 0, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return 0, ErrClosed
	}
	if _, ok := k.descs[id]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, id)
	}
	if h, busy := k.grabbed[id]; busy {
		return 0, fmt.Errorf("%w: %q held by %s", ErrAlreadyGrabbed, id, h)
	}
	h := k.nextHandle
	k.nextHandle++
	k.sessions[h] = id
	k.grabbed[id] = h
	k.log.Debug("kernel: grab", "param", id, "handle", uint64(h))
	return h, nil
}

// MoveGrab applies value to the parameter held by h. Unknown handles are
// acknowledged without effect.
func (k *Kernel) MoveGrab(ctx context.Context, h param.GrabHandle, value float64) error {
	if err := k.wait(ctx); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return ErrClosed
	}
	id, ok := k.sessions[h]
	if !ok {
		return nil
	}
	v := k.descs[id].Clamp(value)
	k.values[id] = v
	k.broadcast(id, v, param.OriginGrab)
	return nil
}

func (k *Kernel) EndGrab(ctx context.Context, h param.GrabHandle) error {
	if err := k.wait(ctx); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return ErrClosed
	}
	if id, ok := k.sessions[h]; ok {
		delete(k.sessions, h)
		delete(k.grabbed, id)
		k.log.Debug("kernel: ungrab", "param", id, "handle", uint64(h))
	}
	return nil
}

// Listen registers fn for value-changed notifications. fn runs on a goroutine
// owned by the listener, in kernel order, never while the kernel is locked.
func (k *Kernel) Listen(fn param.NotifyFunc) (func(), error) {
	return k.ListenSeq(func(n Notification) { fn(n.ID, n.Value) })
}

// ListenSeq is Listen with the full notification.
func (k *Kernel) ListenSeq(fn func(Notification)) (func(), error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil, ErrClosed
	}
	id := k.nextLis
	k.nextLis++
	mb := newMailbox(fn, k.log)
	k.listeners[id] = mb
	go mb.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			k.mu.Lock()
			delete(k.listeners, id)
			k.mu.Unlock()
			mb.stop()
		})
	}, nil
}

// Value returns the current value of id.
func (k *Kernel) Value(id param.ID) (float64, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.values[id]
	return v, ok
}

// Holder reports the handle currently grabbing id.
func (k *Kernel) Holder(id param.ID) (param.GrabHandle, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	h, ok := k.grabbed[id]
	return h, ok
}

func (k *Kernel) Listeners() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.listeners)
}

func (k *Kernel) Seq() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.seq
}

// Done is closed when the kernel is closed.
func (k *Kernel) Done() <-chan struct{} { return k.done }

// Close stops every listener and fails later requests with ErrClosed.
func (k *Kernel) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	close(k.done)
	lis := k.listeners
	k.listeners = map[uint64]*mailbox{}
	k.mu.Unlock()

	for _, mb := range lis {
		mb.stop()
	}
	return nil
}

// broadcast must be called with k.mu held. Mailboxes are filled under the
// lock so every listener observes the same order.
func (k *Kernel) broadcast(id param.ID, v float64, origin param.Origin) {
	k.seq++
	n := Notification{ID: id, Value: v, Seq: k.seq, Origin: origin}
	for _, mb := range k.listeners {
		mb.put(n)
	}
}

func (k *Kernel) wait(ctx context.Context) error {
	if k.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(k.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
