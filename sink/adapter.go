// Package sink defines the change-feed sink contract and the driver
// registry. Drivers register themselves from init.
package sink

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one parameter change as written to a sink.
type Record struct {
	ID     uuid.UUID `json:"id"`
	Param  string    `json:"param"`
	Value  float64   `json:"value"`
	Origin string    `json:"origin"`
	Seq    uint64    `json:"seq,omitempty"` // kernel sequence; zero on bridge-side feeds
	Time   time.Time `json:"time"`
}

// EmitFn is what a sink calls once a record has been durably written.
type EmitFn func(Record)

// Adapter is the common behaviour every sink exposes.
type Adapter interface {
	Configure(any) error // driver-specific config struct
	Push(Record) error
	Close() error // idempotent
}

// AckAware is optional; sinks that confirm delivery implement it and the
// runner binds the callback.
type AckAware interface {
	BindAck(EmitFn)
}

type factory = func() Adapter

var (
	regMu sync.RWMutex
	reg   = map[string]factory{}
)

func Register(name string, f factory) {
	regMu.Lock()
	reg[name] = f
	regMu.Unlock()
}

func NewAdapter(name string) (Adapter, error) {
	regMu.RLock()
	f, ok := reg[name]
	regMu.RUnlock()
	if ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}
