// Package stdout is a change-feed sink that prints one line per record.
package stdout

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"parambridge/sink"
)

type Config struct {
	PrintCounter bool          // prepend a running record number
	BatchSize    int           // ack after N records; 0 acks each record
	FlushEvery   time.Duration // ack pending records after this long; 0 = off
	Out          io.Writer     // defaults to os.Stdout
}

type driver struct {
	cfg Config
	ack sink.EmitFn

	mu      sync.Mutex // guards everything below
	seq     uint64
	pending []sink.Record
	timer   *time.Timer // nil when no timer is armed
	closed  bool
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	d.cfg = c
	return nil
}

func (d *driver) Push(r sink.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("stdout-sink: closed")
	}
	d.seq++
	var err error
	if d.cfg.PrintCounter {
		_, err = fmt.Fprintf(d.cfg.Out, "[feed %06d] %s=%g (%s) seq=%d\n", d.seq, r.Param, r.Value, r.Origin, r.Seq)
	} else {
		_, err = fmt.Fprintf(d.cfg.Out, "[feed] %s=%g (%s) seq=%d\n", r.Param, r.Value, r.Origin, r.Seq)
	}
	if err != nil {
		return err
	}

	if d.ack == nil {
		return nil
	}
	d.pending = append(d.pending, r)
	if d.cfg.BatchSize <= 1 || len(d.pending) >= d.cfg.BatchSize {
		d.flushLocked()
		return nil
	}
	if d.cfg.FlushEvery > 0 && d.timer == nil {
		d.timer = time.AfterFunc(d.cfg.FlushEvery, d.timerFlush)
	}
	return nil
}

func (d *driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.flushLocked()
	return nil
}

func (d *driver) BindAck(fn sink.EmitFn) { d.ack = fn }

func (d *driver) timerFlush() {
	d.mu.Lock()
	d.flushLocked()
	d.mu.Unlock()
}

// must be called with d.mu held
func (d *driver) flushLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.ack == nil {
		d.pending = d.pending[:0]
		return
	}
	for _, r := range d.pending {
		d.ack(r)
	}
	d.pending = d.pending[:0]
}

func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
