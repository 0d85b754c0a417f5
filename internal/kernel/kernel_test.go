package kernel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parambridge/internal/bridge"
	"parambridge/internal/param"
)

func testDescs() []param.Descriptor {
	return []param.Descriptor{
		{ID: "gain", Name: "Gain", Unit: "dB", Min: -60, Max: 12, Default: 0},
		{ID: "mix", Name: "Mix", Min: 0, Max: 1, Default: 0.5},
		{ID: "freq", Name: "Cutoff", Unit: "Hz", Min: 20, Max: 20000, Default: 1000},
	}
}

func newTestKernel(t *testing.T, opts ...Option) *Kernel {
	t.Helper()
	k, err := New(testDescs(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = k.Close() })
	return k
}

// collector gathers notifications delivered on a listener goroutine.
type collector struct {
	mu  sync.Mutex
	got []Notification
}

func (c *collector) add(n Notification) {
	c.mu.Lock()
	c.got = append(c.got, n)
	c.mu.Unlock()
}

func (c *collector) all() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.got...)
}

func (c *collector) waitFor(t *testing.T, n int) []Notification {
	t.Helper()
	require.Eventually(t, func() bool { return len(c.all()) >= n }, time.Second, time.Millisecond)
	return c.all()
}

func TestNew_RejectsBadDescriptors(t *testing.T) {
	_, err := New([]param.Descriptor{{ID: "a"}, {ID: "a"}})
	assert.ErrorContains(t, err, "duplicate")

	_, err = New([]param.Descriptor{{Name: "nameless"}})
	assert.Error(t, err)
}

func TestKernel_DefaultsAreClamped(t *testing.T) {
	k, err := New([]param.Descriptor{{ID: "x", Min: 0, Max: 1, Default: 3}})
	require.NoError(t, err)
	v, ok := k.Value("x")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestKernel_FullSyncInIDOrder(t *testing.T) {
	k := newTestKernel(t)
	c := &collector{}
	_, err := k.ListenSeq(c.add)
	require.NoError(t, err)

	require.NoError(t, k.RequestFullSync(context.Background()))
	got := c.waitFor(t, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []param.ID{"freq", "gain", "mix"}, []param.ID{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, []uint64{1, 2, 3}, []uint64{got[0].Seq, got[1].Seq, got[2].Seq})
	for _, n := range got {
		assert.Equal(t, param.OriginRemote, n.Origin)
	}
}

func TestKernel_PushClampsAndNotifies(t *testing.T) {
	k := newTestKernel(t)
	c := &collector{}
	_, err := k.ListenSeq(c.add)
	require.NoError(t, err)

	require.NoError(t, k.PushValue(context.Background(), "mix", 2))
	got := c.waitFor(t, 1)
	assert.Equal(t, Notification{ID: "mix", Value: 1, Seq: 1, Origin: param.OriginLocal}, got[0])

	err = k.PushValue(context.Background(), "nope", 1)
	assert.ErrorIs(t, err, ErrUnknownParameter)
}

func TestKernel_GrabArbitration(t *testing.T) {
	k := newTestKernel(t)
	ctx := context.Background()

	h0, err := k.BeginGrab(ctx, "gain")
	require.NoError(t, err)
	assert.Equal(t, param.GrabHandle(0), h0, "first handle is zero")

	_, err = k.BeginGrab(ctx, "gain")
	assert.ErrorIs(t, err, ErrAlreadyGrabbed)
	_, err = k.BeginGrab(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownParameter)

	h1, err := k.BeginGrab(ctx, "mix")
	require.NoError(t, err)
	assert.Equal(t, param.GrabHandle(1), h1)

	require.NoError(t, k.MoveGrab(ctx, h0, -100))
	v, _ := k.Value("gain")
	assert.Equal(t, -60.0, v)

	require.NoError(t, k.EndGrab(ctx, h0))
	_, held := k.Holder("gain")
	assert.False(t, held)

	// the handle is gone; moves are acknowledged and ignored
	require.NoError(t, k.MoveGrab(ctx, h0, 5))
	v, _ = k.Value("gain")
	assert.Equal(t, -60.0, v)
	require.NoError(t, k.EndGrab(ctx, h0))

	h2, err := k.BeginGrab(ctx, "gain")
	require.NoError(t, err)
	assert.Equal(t, param.GrabHandle(2), h2, "handles are not reused")
}

func TestKernel_ListenersSeeSameOrder(t *testing.T) {
	k := newTestKernel(t)
	a, b := &collector{}, &collector{}
	_, err := k.ListenSeq(a.add)
	require.NoError(t, err)
	_, err = k.ListenSeq(b.add)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_ = k.PushValue(context.Background(), "mix", float64(i*25+j)/100)
			}
		}(i)
	}
	wg.Wait()

	ga, gb := a.waitFor(t, 100), b.waitFor(t, 100)
	assert.Equal(t, ga, gb)
	for i, n := range ga {
		assert.Equal(t, uint64(i+1), n.Seq)
	}
}

func TestKernel_ListenerMayCallBack(t *testing.T) {
	k := newTestKernel(t)
	done := make(chan struct{})
	_, err := k.Listen(func(id param.ID, v float64) {
		if id == "mix" && v == 0.25 {
			// re-entering the kernel from a listener must not deadlock
			_ = k.PushValue(context.Background(), "gain", 1)
			close(done)
		}
	})
	require.NoError(t, err)

	require.NoError(t, k.PushValue(context.Background(), "mix", 0.25))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not run")
	}
	v, _ := k.Value("gain")
	assert.Equal(t, 1.0, v)
}

func TestKernel_StopListening(t *testing.T) {
	k := newTestKernel(t)
	c := &collector{}
	stop, err := k.ListenSeq(c.add)
	require.NoError(t, err)
	require.Equal(t, 1, k.Listeners())

	stop()
	stop()
	assert.Zero(t, k.Listeners())
	require.NoError(t, k.Set("mix", 0.1))
	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, c.all())
}

func TestKernel_Latency(t *testing.T) {
	k := newTestKernel(t, WithLatency(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := k.BeginGrab(ctx, "gain")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, held := k.Holder("gain")
	assert.False(t, held)
}

func TestKernel_Close(t *testing.T) {
	k := newTestKernel(t)
	require.NoError(t, k.Close())
	require.NoError(t, k.Close())

	_, err := k.Listen(func(param.ID, float64) {})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, k.PushValue(context.Background(), "mix", 1), ErrClosed)
	_, err = k.Descriptors(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestKernel_DrivesBridge(t *testing.T) {
	k := newTestKernel(t)
	b, err := bridge.New(context.Background(), k)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	loaded := make(chan struct{})
	b.OnLoad(func() { close(loaded) })
	select {
	case <-loaded:
	case <-time.After(time.Second):
		t.Fatal("bridge never loaded")
	}
	assert.Equal(t, map[param.ID]float64{"gain": 0, "mix": 0.5, "freq": 1000}, b.Values())

	b.SetParameter("mix", 0.8)
	require.Eventually(t, func() bool {
		v, _ := k.Value("mix")
		return v == 0.8
	}, time.Second, time.Millisecond)

	ctx := context.Background()
	h, err := b.GrabParameter(ctx, "freq")
	require.NoError(t, err)
	require.NoError(t, b.MoveGrabbedParameter(ctx, h, 440))
	v, _ := k.Value("freq")
	assert.Equal(t, 440.0, v)
	require.NoError(t, b.UngrabParameter(ctx, h))
	assert.Empty(t, b.Grabs())

	// host automation reaches the bridge
	require.NoError(t, k.Set("gain", -6))
	require.Eventually(t, func() bool {
		v, _ := b.Value("gain")
		return v == -6
	}, time.Second, time.Millisecond)

	_, err = b.GrabParameter(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownParameter)
}

func TestKernel_EchoOfLocalWriteIsASecondEvent(t *testing.T) {
	k := newTestKernel(t)
	b, err := bridge.New(context.Background(), k)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	require.Eventually(t, b.Ready, time.Second, time.Millisecond)

	var mu sync.Mutex
	var got []param.Change
	b.Subscribe(func(c param.Change) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
	})

	b.SetParameter("mix", 0.8)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []param.Change{
		{ID: "mix", Value: 0.8, Origin: param.OriginLocal},
		{ID: "mix", Value: 0.8, Origin: param.OriginRemote},
	}, got)
}
