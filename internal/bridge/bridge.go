package bridge

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"parambridge/internal/logging"
	"parambridge/internal/loop"
	"parambridge/internal/param"
	"parambridge/internal/telemetry"
)

// Authority owns the ground-truth parameter values. The bridge never touches
// its state other than through these requests.
type Authority interface {
	Descriptors(ctx context.Context) (map[param.ID]param.Descriptor, error)
	// RequestFullSync asks for one notification per parameter carrying its
	// current value.
	RequestFullSync(ctx context.Context) error
	PushValue(ctx context.Context, id param.ID, value float64) error
	BeginGrab(ctx context.Context, id param.ID) (param.GrabHandle, error)
	MoveGrab(ctx context.Context, h param.GrabHandle, value float64) error
	EndGrab(ctx context.Context, h param.GrabHandle) error
	// Listen registers fn for value-changed notifications until stop is
	// called. Notifications must be delivered in the order they were produced.
	Listen(fn param.NotifyFunc) (stop func(), err error)
}

const defaultPushBuffer = 256

type pushReq struct {
	id    param.ID
	value float64
}

// Bridge is the parameter synchronization component. Create it with New.
type Bridge struct {
	auth       Authority
	log        *slog.Logger
	loop       *loop.Loop
	timeout    time.Duration
	onError    func(op Op, id param.ID, err error)
	pushBuffer int

	descs  map[param.ID]param.Descriptor
	cache  *cache
	grabs  *grabRegistry
	notify *notifier
	onload []func() // loop only

	pushes     chan pushReq
	done       chan struct{}
	workers    sync.WaitGroup
	baseCtx    context.Context
	cancelBase context.CancelFunc
	stopListen func()
	closeOnce  sync.Once
	closed     atomic.Bool
}

// New builds a Bridge on top of auth: it fetches the descriptors, subscribes
// to notifications and requests a full sync. The returned Bridge may not be
// ready yet; use OnLoad or Ready.
func New(ctx context.Context, auth Authority, opts ...Option) (*Bridge, error) {
	b := &Bridge{
		auth:       auth,
		pushBuffer: defaultPushBuffer,
		grabs:      newGrabRegistry(),
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	if b.log == nil {
		b.log = logging.For("bridge")
	}
	if b.loop == nil {
		b.loop = loop.New(loop.WithLogger(b.log))
	}
	b.notify = newNotifier(b.log)

	rctx, cancel := b.requestContext(ctx)
	descs, err := auth.Descriptors(rctx)
	cancel()
	if err != nil {
		return nil, b.fail(OpDescriptors, "", nil, err)
	}
	b.descs = make(map[param.ID]param.Descriptor, len(descs))
	for id, d := range descs {
		b.descs[id] = d
	}
	b.cache = newCache(b.descs)
	if b.cache.isReady() {
		telemetry.ReadyBridges.Inc()
	}

	b.baseCtx, b.cancelBase = context.WithCancel(context.Background())
	b.pushes = make(chan pushReq, b.pushBuffer)
	b.workers.Add(1)
	go b.pushWorker()

	stop, err := auth.Listen(b.HandleValueChanged)
	if err != nil {
		_ = b.Close()
		return nil, b.fail(OpListen, "", nil, err)
	}
	b.stopListen = stop

	rctx, cancel = b.requestContext(ctx)
	err = auth.RequestFullSync(rctx)
	cancel()
	if err != nil {
		_ = b.Close()
		return nil, b.fail(OpSync, "", nil, err)
	}
	b.log.Debug("bridge: full sync requested", "params", len(b.descs))
	return b, nil
}

// HandleValueChanged integrates one authority notification. It is the
// NotifyFunc the bridge hands to Authority.Listen.
func (b *Bridge) HandleValueChanged(id param.ID, value float64) {
	if b.closed.Load() {
		return
	}
	telemetry.Notifications.Inc()
	b.loop.Do(func() {
		b.store(id, value)
		if b.cache.isReady() {
			b.emit(param.Change{ID: id, Value: value, Origin: param.OriginRemote})
		}
	})
}

// OnLoad runs fn once the cache holds a value for every descriptor. If that
// already happened, fn runs on a later loop turn.
func (b *Bridge) OnLoad(fn func()) {
	b.loop.Do(func() {
		if b.cache.isReady() {
			b.loop.Later(func() { b.call(fn) })
			return
		}
		b.onload = append(b.onload, fn)
	})
}

// Subscribe registers fn for "changed" events.
func (b *Bridge) Subscribe(fn func(param.Change)) *Subscription {
	return b.notify.subscribe(fn)
}

func (b *Bridge) Ready() bool { return b.cache.isReady() }

// Value returns the cached value of id.
func (b *Bridge) Value(id param.ID) (float64, bool) { return b.cache.get(id) }

// Values returns a copy of the cache.
func (b *Bridge) Values() map[param.ID]float64 { return b.cache.snapshot() }

// Missing lists the descriptors still waiting for their first value.
func (b *Bridge) Missing() []param.ID { return b.cache.missing() }

// Descriptors returns a copy of the descriptor set.
func (b *Bridge) Descriptors() map[param.ID]param.Descriptor {
	out := make(map[param.ID]param.Descriptor, len(b.descs))
	for id, d := range b.descs {
		out[id] = d
	}
	return out
}

// Grabs returns a copy of the active grab sessions.
func (b *Bridge) Grabs() map[param.GrabHandle]param.ID { return b.grabs.snapshot() }

// SetParameter writes value to id: the cache is updated on the loop, the
// authority is told asynchronously and subscribers are notified. The write
// is silently dropped before readiness or when value is already cached.
//
// When another goroutine is running a loop task, the write is queued behind
// it and SetParameter returns before the cache changes. Loop work issued
// afterwards runs after it; plain reads such as Value may see the old value
// until the loop drains.
func (b *Bridge) SetParameter(id param.ID, value float64) {
	if b.closed.Load() {
		return
	}
	b.loop.Do(func() {
		if !b.cache.isReady() {
			telemetry.Suppressed.WithLabelValues(telemetry.ReasonNotReady).Inc()
			b.log.Debug("bridge: set before load dropped", "param", id)
			return
		}
		if cur, ok := b.cache.get(id); ok && cur == value {
			telemetry.Suppressed.WithLabelValues(telemetry.ReasonUnchanged).Inc()
			return
		}
		b.store(id, value)
		b.enqueuePush(pushReq{id: id, value: value})
		b.emit(param.Change{ID: id, Value: value, Origin: param.OriginLocal})
	})
}

// GrabParameter opens a grab session on id and returns its handle, already
// registered. Nothing is registered when the authority refuses.
func (b *Bridge) GrabParameter(ctx context.Context, id param.ID) (param.GrabHandle, error) {
	if b.closed.Load() {
		return 0, ErrClosed
	}
	rctx, cancel := b.requestContext(ctx)
	defer cancel()
	h, err := b.auth.BeginGrab(rctx, id)
	if err != nil {
		return 0, b.fail(OpGrab, id, nil, err)
	}
	if b.grabs.add(h, id) {
		telemetry.ActiveGrabs.Inc()
	}
	b.log.Debug("bridge: grabbed", "param", id, "handle", uint64(h))
	return h, nil
}

// MoveGrabbedParameter moves the parameter held by h to value. Once the
// authority acknowledges, the cache is updated unless h is not registered
// or value is already cached.
func (b *Bridge) MoveGrabbedParameter(ctx context.Context, h param.GrabHandle, value float64) error {
	if b.closed.Load() {
		return ErrClosed
	}
	rctx, cancel := b.requestContext(ctx)
	defer cancel()
	if err := b.auth.MoveGrab(rctx, h, value); err != nil {
		return b.fail(OpMove, "", &h, err)
	}
	b.loop.Do(func() {
		id, ok := b.grabs.lookup(h)
		if !ok {
			telemetry.Suppressed.WithLabelValues(telemetry.ReasonStaleHandle).Inc()
			return
		}
		if cur, ok := b.cache.get(id); ok && cur == value {
			telemetry.Suppressed.WithLabelValues(telemetry.ReasonUnchanged).Inc()
			return
		}
		b.store(id, value)
		b.emit(param.Change{ID: id, Value: value, Origin: param.OriginGrab})
	})
	return nil
}

// UngrabParameter ends the grab session h. No event is emitted.
func (b *Bridge) UngrabParameter(ctx context.Context, h param.GrabHandle) error {
	if b.closed.Load() {
		return ErrClosed
	}
	rctx, cancel := b.requestContext(ctx)
	defer cancel()
	if err := b.auth.EndGrab(rctx, h); err != nil {
		return b.fail(OpUngrab, "", &h, err)
	}
	if b.grabs.remove(h) {
		telemetry.ActiveGrabs.Dec()
	}
	return nil
}

// Close stops listening and waits for queued pushes to be sent. Grab
// sessions still open are forgotten locally; the authority is not told.
func (b *Bridge) Close() error {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		if b.stopListen != nil {
			b.stopListen()
		}
		close(b.done)
		b.workers.Wait()
		if b.cancelBase != nil {
			b.cancelBase()
		}
		b.loop.Do(func() {
			telemetry.ActiveGrabs.Sub(float64(b.grabs.len()))
			if b.cache != nil && b.cache.isReady() {
				telemetry.ReadyBridges.Dec()
			}
		})
	})
	return nil
}

// store writes the cache and, when the write completes it, opens the load
// gate: pending OnLoad callbacks run here, in registration order, once.
// Must run on the loop.
func (b *Bridge) store(id param.ID, value float64) {
	if !b.cache.store(id, value) {
		return
	}
	telemetry.ReadyBridges.Inc()
	b.log.Info("bridge: all parameters loaded", "params", len(b.descs))
	pending := b.onload
	b.onload = nil
	for _, fn := range pending {
		b.call(fn)
	}
}

func (b *Bridge) emit(c param.Change) {
	telemetry.Changes.WithLabelValues(string(c.Origin)).Inc()
	b.notify.emit(c)
}

func (b *Bridge) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("bridge: onload callback panicked", "panic", r)
		}
	}()
	fn()
}

func (b *Bridge) enqueuePush(req pushReq) {
	select {
	case b.pushes <- req:
	case <-b.done:
	}
}

// pushWorker sends pushes one at a time so the authority sees them in the
// order they were written. After Close it drains what is already queued.
func (b *Bridge) pushWorker() {
	defer b.workers.Done()
	for {
		select {
		case req := <-b.pushes:
			b.push(req)
		case <-b.done:
			for {
				select {
				case req := <-b.pushes:
					b.push(req)
				default:
					return
				}
			}
		}
	}
}

func (b *Bridge) push(req pushReq) {
	ctx, cancel := b.requestContext(b.baseCtx)
	defer cancel()
	if err := b.auth.PushValue(ctx, req.id, req.value); err != nil {
		err = b.fail(OpPush, req.id, nil, err)
		b.log.Warn("bridge: push failed", "param", req.id, "value", req.value, "err", err)
		if b.onError != nil {
			b.onError(OpPush, req.id, err)
		}
	}
}

func (b *Bridge) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout > 0 {
		return context.WithTimeout(ctx, b.timeout)
	}
	return ctx, func() {}
}

func (b *Bridge) fail(op Op, id param.ID, h *param.GrabHandle, err error) error {
	telemetry.AuthorityErrors.WithLabelValues(string(op)).Inc()
	return &RequestError{Op: op, ID: id, Handle: h, Err: err}
}
