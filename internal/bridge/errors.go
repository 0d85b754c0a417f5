package bridge

import (
	"errors"
	"fmt"

	"parambridge/internal/param"
)

var ErrClosed = errors.New("bridge: closed")

// Op names an authority request.
type Op string

const (
	OpDescriptors Op = "descriptors"
	OpListen      Op = "listen"
	OpSync        Op = "sync"
	OpPush        Op = "push"
	OpGrab        Op = "grab"
	OpMove        Op = "move"
	OpUngrab      Op = "ungrab"
)

// RequestError reports a failed authority request.
type RequestError struct {
	Op     Op
	ID     param.ID
	Handle *param.GrabHandle
	Err    error
}

func (e *RequestError) Error() string {
	switch {
	case e.Handle != nil:
		return fmt.Sprintf("bridge: %s %s: %v", e.Op, e.Handle, e.Err)
	case e.ID != "":
		return fmt.Sprintf("bridge: %s %s: %v", e.Op, e.ID, e.Err)
	default:
		return fmt.Sprintf("bridge: %s: %v", e.Op, e.Err)
	}
}

func (e *RequestError) Unwrap() error { return e.Err }
