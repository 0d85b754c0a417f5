// Package kernelv1 is the wire API between a parameter bridge and a remote
// kernel. Messages are CBOR-encoded with integer keys; see codec.go.
package kernelv1

import "parambridge/internal/param"

// Descriptor mirrors param.Descriptor.
//
// CBOR encoding:
//
//	{1: id, 2: name, 3: unit, 4: min, 5: max, 6: default}
type Descriptor struct {
	ID      string  `cbor:"1,keyasint"`
	Name    string  `cbor:"2,keyasint,omitempty"`
	Unit    string  `cbor:"3,keyasint,omitempty"`
	Min     float64 `cbor:"4,keyasint"`
	Max     float64 `cbor:"5,keyasint"`
	Default float64 `cbor:"6,keyasint"`
}

func FromDescriptor(d param.Descriptor) *Descriptor {
	return &Descriptor{
		ID:      string(d.ID),
		Name:    d.Name,
		Unit:    d.Unit,
		Min:     d.Min,
		Max:     d.Max,
		Default: d.Default,
	}
}

func (d *Descriptor) Param() param.Descriptor {
	return param.Descriptor{
		ID:      param.ID(d.ID),
		Name:    d.Name,
		Unit:    d.Unit,
		Min:     d.Min,
		Max:     d.Max,
		Default: d.Default,
	}
}

type DescriptorsRequest struct{}

type DescriptorsReply struct {
	Parameters []*Descriptor `cbor:"1,keyasint"`
}

type SyncRequest struct{}

type PushRequest struct {
	ID    string  `cbor:"1,keyasint"`
	Value float64 `cbor:"2,keyasint"`
}

type GrabRequest struct {
	ID string `cbor:"1,keyasint"`
}

type GrabReply struct {
	Handle uint64 `cbor:"1,keyasint"`
}

type MoveRequest struct {
	Handle uint64  `cbor:"1,keyasint"`
	Value  float64 `cbor:"2,keyasint"`
}

type EndGrabRequest struct {
	Handle uint64 `cbor:"1,keyasint"`
}

// Ack is the empty reply of requests that only need acknowledging.
type Ack struct{}

type WatchRequest struct{}

// ValueChanged is one notification on the Watch stream. Seq is assigned by
// the kernel and increases across all parameters.
type ValueChanged struct {
	ID     string  `cbor:"1,keyasint"`
	Value  float64 `cbor:"2,keyasint"`
	Seq    uint64  `cbor:"3,keyasint"`
	Origin string  `cbor:"4,keyasint,omitempty"`
}
