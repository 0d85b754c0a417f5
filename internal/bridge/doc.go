// Package bridge mirrors the parameter state of a remote audio kernel for a
// UI layer.
//
// A Bridge keeps a local cache of parameter values that an Authority (the
// kernel, in process or over the wire) owns. On construction it pulls the
// descriptor set, starts listening for value-changed notifications and asks
// the authority to re-broadcast every value. The cache is "ready" once every
// descriptor has a value; readiness never goes back to false.
//
// # Events
//
// Once ready, every cache mutation emits a Change to subscribers, in
// registration order:
//
//	sub := b.Subscribe(func(c param.Change) {
//	    fmt.Println(c.ID, c.Value, c.Origin)
//	})
//	defer sub.Unsubscribe()
//
// OnLoad registers a callback for the moment the cache becomes ready. Before
// readiness the callback runs inside the notification that completes the
// cache; afterwards it runs on a later turn of the loop, never inside the
// OnLoad call.
//
// # Writes
//
// SetParameter updates the cache optimistically and forwards the value to
// the authority without waiting. Writes before readiness and writes of the
// value already cached are dropped.
//
// Continuous edits use grab sessions:
//
//	h, err := b.GrabParameter(ctx, "cutoff")
//	for _, v := range drag {
//	    _ = b.MoveGrabbedParameter(ctx, h, v)
//	}
//	_ = b.UngrabParameter(ctx, h)
//
// Moves on a handle that is not (or no longer) registered are acknowledged
// by the authority and otherwise ignored.
//
// # Concurrency
//
// Cache and event handlers run on a loop.Loop, one at a time. Subscribers and
// OnLoad callbacks run on that loop; they may call back into the Bridge, the
// call is queued behind the running handler. A SetParameter issued while
// another goroutine holds the loop is queued the same way and returns before
// the cache changes. The grab registry is updated before GrabParameter and
// UngrabParameter return. Reads are safe from any goroutine. Nothing orders a stale notification against a newer optimistic
// write: the later arrival wins.
package bridge
