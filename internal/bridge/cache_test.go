package bridge

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parambridge/internal/param"
)

func TestCache_GateOpensOnce(t *testing.T) {
	c := newCache(map[param.ID]param.Descriptor{"a": {}, "b": {}})
	require.False(t, c.isReady())

	assert.False(t, c.store("a", 1))
	assert.False(t, c.store("a", 2), "second write to a does not count twice")
	assert.False(t, c.store("zz", 3), "unknown id does not count")
	assert.Equal(t, []param.ID{"b"}, c.missing())

	assert.True(t, c.store("b", 0))
	assert.True(t, c.isReady())
	assert.False(t, c.store("b", 1))
	assert.Empty(t, c.missing())
	assert.Equal(t, map[param.ID]float64{"a": 2, "b": 1, "zz": 3}, c.snapshot())
}

func TestCache_EmptyIsReady(t *testing.T) {
	c := newCache(nil)
	assert.True(t, c.isReady())
	assert.False(t, c.store("a", 1))
}

func TestGrabRegistry(t *testing.T) {
	r := newGrabRegistry()
	assert.True(t, r.add(0, "a"))
	assert.False(t, r.add(0, "a"))
	assert.True(t, r.add(5, "b"))

	id, ok := r.lookup(0)
	assert.True(t, ok)
	assert.Equal(t, param.ID("a"), id)
	assert.Equal(t, 2, r.len())

	assert.True(t, r.remove(0))
	assert.False(t, r.remove(0))
	_, ok = r.lookup(0)
	assert.False(t, ok)
	assert.Equal(t, map[param.GrabHandle]param.ID{5: "b"}, r.snapshot())
}

func TestNotifier_UnsubscribeDuringEmit(t *testing.T) {
	n := newNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))

	var got []string
	var second *Subscription
	n.subscribe(func(param.Change) {
		got = append(got, "first")
		second.Unsubscribe()
	})
	second = n.subscribe(func(param.Change) { got = append(got, "second") })
	require.Equal(t, 2, n.count())

	n.emit(param.Change{ID: "a"})
	assert.Equal(t, []string{"first", "second"}, got, "current delivery still completes")
	assert.Equal(t, 1, n.count())

	got = nil
	n.emit(param.Change{ID: "a"})
	assert.Equal(t, []string{"first"}, got)
}

func TestSubscription_NilIsSafe(t *testing.T) {
	var s *Subscription
	assert.NotPanics(t, s.Unsubscribe)
}
