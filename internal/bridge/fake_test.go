package bridge

import (
	"context"
	"sync"
	"testing"

	"parambridge/internal/loop"
	"parambridge/internal/param"
)

// fakeAuthority acknowledges every request immediately. Notifications are
// injected by the test through notify, on the test goroutine.
type fakeAuthority struct {
	descs map[param.ID]param.Descriptor

	mu          sync.Mutex
	listener    param.NotifyFunc
	syncs       int
	pushes      []pushReq
	pushErr     error
	nextHandle  param.GrabHandle
	grabErr     error
	moveErr     error
	endErr      error
	moves       []pushReq
	ended       []param.GrabHandle
	blockGrab   bool
	listenStops int
}

func newFakeAuthority(ids ...param.ID) *fakeAuthority {
	fa := &fakeAuthority{descs: map[param.ID]param.Descriptor{}}
	for _, id := range ids {
		fa.descs[id] = param.Descriptor{ID: id, Name: string(id), Min: -100, Max: 100}
	}
	return fa
}

func (f *fakeAuthority) Descriptors(context.Context) (map[param.ID]param.Descriptor, error) {
	return f.descs, nil
}

func (f *fakeAuthority) RequestFullSync(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs++
	return nil
}

func (f *fakeAuthority) PushValue(_ context.Context, id param.ID, value float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, pushReq{id: id, value: value})
	return f.pushErr
}

func (f *fakeAuthority) BeginGrab(ctx context.Context, id param.ID) (param.GrabHandle, error) {
	f.mu.Lock()
	block, err := f.blockGrab, f.grabErr
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.nextHandle
	f.nextHandle++
	return h, nil
}

func (f *fakeAuthority) MoveGrab(_ context.Context, h param.GrabHandle, value float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.moveErr != nil {
		return f.moveErr
	}
	f.moves = append(f.moves, pushReq{id: param.ID(h.String()), value: value})
	return nil
}

func (f *fakeAuthority) EndGrab(_ context.Context, h param.GrabHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.endErr != nil {
		return f.endErr
	}
	f.ended = append(f.ended, h)
	return nil
}

func (f *fakeAuthority) Listen(fn param.NotifyFunc) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = fn
	return func() {
		f.mu.Lock()
		f.listenStops++
		f.mu.Unlock()
	}, nil
}

func (f *fakeAuthority) notify(id param.ID, value float64) {
	f.mu.Lock()
	fn := f.listener
	f.mu.Unlock()
	fn(id, value)
}

func (f *fakeAuthority) pushed() []pushReq {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pushReq(nil), f.pushes...)
}

// recorder collects changed events.
type recorder struct {
	mu     sync.Mutex
	events []param.Change
}

func (r *recorder) record(c param.Change) {
	r.mu.Lock()
	r.events = append(r.events, c)
	r.mu.Unlock()
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) last() param.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newTestBridge(t *testing.T, fa *fakeAuthority, opts ...Option) (*Bridge, *recorder) {
	t.Helper()
	b, err := New(context.Background(), fa, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	rec := &recorder{}
	b.Subscribe(rec.record)
	return b, rec
}

// manualSpawner holds deferred tasks until the test releases them.
type manualSpawner struct {
	mu    sync.Mutex
	tasks []func()
}

func (m *manualSpawner) spawn(f func()) {
	m.mu.Lock()
	m.tasks = append(m.tasks, f)
	m.mu.Unlock()
}

func (m *manualSpawner) release() int {
	m.mu.Lock()
	tasks := m.tasks
	m.tasks = nil
	m.mu.Unlock()
	for _, f := range tasks {
		f()
	}
	return len(tasks)
}

func manualLoop() (*loop.Loop, *manualSpawner) {
	ms := &manualSpawner{}
	return loop.New(loop.WithSpawner(ms.spawn)), ms
}
