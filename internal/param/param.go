// Package param holds the value types shared by the bridge, the kernel and
// the wire transport: parameter identifiers, descriptors, grab handles and
// change events.
package param

import "fmt"

// ID identifies a controllable parameter. It is opaque to the bridge.
type ID string

// Descriptor is the static metadata of one parameter. It is provided once by
// the authority and never changes afterwards.
type Descriptor struct {
	ID      ID
	Name    string
	Unit    string
	Min     float64
	Max     float64
	Default float64
}

// Clamp limits v to the descriptor range. A descriptor with Max <= Min is
// treated as unbounded.
func (d Descriptor) Clamp(v float64) float64 {
	if d.Max <= d.Min {
		return v
	}
	if v < d.Min {
		return d.Min
	}
	if v > d.Max {
		return d.Max
	}
	return v
}

// GrabHandle names an active grab session. Handles are allocated by the
// authority; zero is a valid handle.
type GrabHandle uint64

func (h GrabHandle) String() string { return fmt.Sprintf("grab#%d", uint64(h)) }

// Origin tells where a change came from.
type Origin string

const (
	OriginRemote Origin = "remote" // authority notification
	OriginLocal  Origin = "local"  // SetParameter
	OriginGrab   Origin = "grab"   // MoveGrabbedParameter
)

// Change is the payload of a "changed" event.
type Change struct {
	ID     ID
	Value  float64
	Origin Origin
}

// NotifyFunc receives value-changed notifications from an authority.
type NotifyFunc func(id ID, value float64)
