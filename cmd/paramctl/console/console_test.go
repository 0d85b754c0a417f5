package console

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parambridge/internal/bridge"
	"parambridge/internal/kernel"
	"parambridge/internal/param"
)

type fakeHealth struct {
	status string
	err    error
}

func (f fakeHealth) Health(context.Context) (string, error) { return f.status, f.err }

func newConsole(t *testing.T) (*Console, *kernel.Kernel, *bytes.Buffer) {
	t.Helper()
	k, err := kernel.New([]param.Descriptor{
		{ID: "gain", Name: "Gain", Unit: "dB", Min: -60, Max: 12, Default: -3},
		{ID: "mix", Name: "Mix", Min: 0, Max: 1, Default: 0.5},
	})
	require.NoError(t, err)
	b, err := bridge.New(context.Background(), k, bridge.WithRequestTimeout(time.Second))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = b.Close()
		_ = k.Close()
	})
	require.Eventually(t, b.Ready, time.Second, time.Millisecond)

	buf := &bytes.Buffer{}
	c := &Console{out: buf}
	c.Attach(b, fakeHealth{status: "SERVING"})
	return c, k, buf
}

func (c *Console) output(buf *bytes.Buffer) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := buf.String()
	buf.Reset()
	return s
}

func TestParseHandle(t *testing.T) {
	h, err := parseHandle("grab#7")
	require.NoError(t, err)
	assert.Equal(t, param.GrabHandle(7), h)

	h, err = parseHandle("0")
	require.NoError(t, err)
	assert.Equal(t, param.GrabHandle(0), h)

	_, err = parseHandle("grab#x")
	assert.Error(t, err)
}

func TestConsole_SetAndGet(t *testing.T) {
	c, k, buf := newConsole(t)
	ctx := context.Background()

	assert.False(t, c.exec(ctx, "set mix 0.25"))
	require.Eventually(t, func() bool {
		v, _ := k.Value("mix")
		return v == 0.25
	}, time.Second, time.Millisecond)

	c.exec(ctx, "get mix")
	assert.Equal(t, "mix = 0.25\n", c.output(buf))

	c.exec(ctx, "get nope")
	assert.Equal(t, "nope: no value\n", c.output(buf))
}

func TestConsole_List(t *testing.T) {
	c, _, buf := newConsole(t)
	c.exec(context.Background(), "list")
	out := c.output(buf)
	assert.Regexp(t, `gain\s+-3 dB`, out)
	assert.Less(t, bytes.Index([]byte(out), []byte("gain")), bytes.Index([]byte(out), []byte("mix")))
}

func TestConsole_GrabMoveUngrab(t *testing.T) {
	c, k, buf := newConsole(t)
	ctx := context.Background()

	c.exec(ctx, "grab gain")
	assert.Equal(t, "gain -> grab#0\n", c.output(buf))

	c.exec(ctx, "move grab#0 -6")
	v, _ := k.Value("gain")
	assert.Equal(t, -6.0, v)

	c.exec(ctx, "grabs")
	assert.Regexp(t, `grab#0\s+gain`, c.output(buf))

	c.exec(ctx, "grab gain")
	assert.Contains(t, c.output(buf), "Error:")

	c.exec(ctx, "ungrab 0")
	assert.Empty(t, c.output(buf))
	c.exec(ctx, "grabs")
	assert.Equal(t, "No open grabs\n", c.output(buf))
}

func TestConsole_Drag(t *testing.T) {
	c, k, buf := newConsole(t)
	c.dragStep = 0

	c.exec(context.Background(), "drag mix 0 1 4")
	assert.Equal(t, "mix -> 1 (5 moves via grab#0)\n", c.output(buf))
	v, _ := k.Value("mix")
	assert.Equal(t, 1.0, v)
	assert.Empty(t, c.b.Grabs())

	_, held := k.Holder("mix")
	assert.False(t, held)
}

func TestConsole_DragReleasesAfterCancel(t *testing.T) {
	c, k, buf := newConsole(t)
	c.dragStep = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		for deadline := time.Now().Add(time.Second); time.Now().Before(deadline); {
			if _, held := k.Holder("mix"); held {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
	c.exec(ctx, "drag mix 0 1 4")

	assert.Empty(t, c.output(buf))
	_, held := k.Holder("mix")
	assert.False(t, held, "grab released on the kernel")
	assert.Empty(t, c.b.Grabs())

	c.exec(context.Background(), "grab mix")
	assert.Equal(t, "mix -> grab#1\n", c.output(buf))
}

func TestConsole_Status(t *testing.T) {
	c, _, buf := newConsole(t)
	ctx := context.Background()

	c.exec(ctx, "status")
	assert.Equal(t, "Loaded: yes (2 parameters)\nGrabs:  0\nKernel: SERVING\n", c.output(buf))

	c.health = fakeHealth{err: errors.New("unreachable")}
	c.exec(ctx, "status")
	assert.Contains(t, c.output(buf), "Kernel: unreachable")
}

func TestConsole_WatchEchoesRemoteChanges(t *testing.T) {
	c, k, buf := newConsole(t)
	c.exec(context.Background(), "watch on")

	require.NoError(t, k.Set("mix", 0.3))
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return bytes.Contains(buf.Bytes(), []byte("~ mix = 0.3"))
	}, time.Second, time.Millisecond)
}

func TestConsole_BadInput(t *testing.T) {
	c, _, buf := newConsole(t)
	ctx := context.Background()

	for line, want := range map[string]string{
		"set mix":         "Usage: set <id> <value>\n",
		"set mix loud":    "Invalid value: loud\n",
		"move x 1":        "Invalid handle: x\n",
		"drag mix 0 1 0":  "Invalid steps: 0\n",
		"frobnicate":      "Unknown command: frobnicate (type 'help' for commands)\n",
		"watch sometimes": "Usage: watch on|off\n",
	} {
		assert.False(t, c.exec(ctx, line), line)
		assert.Equal(t, want, c.output(buf), line)
	}

	assert.False(t, c.exec(ctx, "   "))
	assert.True(t, c.exec(ctx, "quit"))
}
