package changefeed

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parambridge/internal/config"
	"parambridge/internal/kernel"
	"parambridge/internal/param"
	"parambridge/internal/telemetry"
	"parambridge/sink"
)

type captureSink struct {
	pushed  []sink.Record
	ackFn   sink.EmitFn
	failing error
	closed  int
}

func (c *captureSink) Configure(any) error { return nil }
func (c *captureSink) Push(r sink.Record) error {
	if c.failing != nil {
		return c.failing
	}
	c.pushed = append(c.pushed, r)
	if c.ackFn != nil {
		c.ackFn(r)
	}
	return nil
}
func (c *captureSink) Close() error           { c.closed++; return nil }
func (c *captureSink) BindAck(fn sink.EmitFn) { c.ackFn = fn }

var fixed = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRunner_PublishBuildsRecords(t *testing.T) {
	r := NewRunner(WithClock(func() time.Time { return fixed }))
	cs := &captureSink{}
	r.AddSink("capture", cs)

	require.NoError(t, r.Publish(param.Change{ID: "gain", Value: -3, Origin: param.OriginGrab}, 12))
	require.NoError(t, r.Publish(param.Change{ID: "gain", Value: -4, Origin: param.OriginGrab}, 13))
	require.Len(t, cs.pushed, 2)

	got := cs.pushed[0]
	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.NotEqual(t, got.ID, cs.pushed[1].ID, "each record gets its own id")
	assert.Equal(t, "gain", got.Param)
	assert.Equal(t, -3.0, got.Value)
	assert.Equal(t, "grab", got.Origin)
	assert.Equal(t, uint64(12), got.Seq)
	assert.Equal(t, fixed, got.Time)
}

func TestRunner_AcksReachSubscribers(t *testing.T) {
	r := NewRunner()
	cs := &captureSink{}
	r.AddSink("capture", cs)

	var acked []string
	r.SubscribeAck(func(rec sink.Record) { acked = append(acked, rec.Param) })
	before := testutil.ToFloat64(telemetry.FeedRecords.WithLabelValues("capture", "acked"))

	r.OnChange(param.Change{ID: "mix", Value: 1, Origin: param.OriginLocal})
	assert.Equal(t, []string{"mix"}, acked)
	assert.Equal(t, before+1, testutil.ToFloat64(telemetry.FeedRecords.WithLabelValues("capture", "acked")))
}

func TestRunner_FailingSinkDoesNotStopOthers(t *testing.T) {
	r := NewRunner()
	bad := &captureSink{failing: errors.New("disk full")}
	good := &captureSink{}
	r.AddSink("bad", bad)
	r.AddSink("good", good)

	err := r.Publish(param.Change{ID: "a"}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink bad")
	assert.Len(t, good.pushed, 1)
}

func TestRunner_OnNotificationCarriesSeq(t *testing.T) {
	r := NewRunner()
	cs := &captureSink{}
	r.AddSink("capture", cs)

	r.OnNotification(kernel.Notification{ID: "freq", Value: 440, Seq: 77, Origin: param.OriginRemote})
	require.Len(t, cs.pushed, 1)
	assert.Equal(t, uint64(77), cs.pushed[0].Seq)
	assert.Equal(t, "remote", cs.pushed[0].Origin)
}

func TestRunner_Close(t *testing.T) {
	r := NewRunner()
	cs := &captureSink{}
	r.AddSink("capture", cs)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 1, cs.closed)
	assert.Error(t, r.Publish(param.Change{ID: "a"}, 0))
}

func TestCompile(t *testing.T) {
	r, err := Compile(config.FeedConfig{Sinks: []string{"stdout"}})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Sinks())
	require.NoError(t, r.Close())

	r, err = Compile(config.FeedConfig{})
	require.NoError(t, err)
	assert.Zero(t, r.Sinks())
	assert.NoError(t, r.Publish(param.Change{ID: "a"}, 0))

	_, err = Compile(config.FeedConfig{Sinks: []string{"pigeon"}})
	assert.Error(t, err)

	_, err = Compile(config.FeedConfig{Sinks: []string{"kafka"}})
	assert.ErrorContains(t, err, "brokers and topic")
}
