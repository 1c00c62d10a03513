// Package bridge dispatches codec operations to one of two interchangeable
// strategies selected once at construction: inline (the module runs in the
// calling goroutine, through the codec package's singleton loader) or worker
// (the call crosses a channel to a dedicated goroutine owning its own module
// instance).
//
// One generic bridge serves every codec; the per-codec packages only supply
// an Adapter naming the codec and its module sources. Cancellation is
// checked before any work begins, after every asynchronous hand-off, and
// immediately before returning; once the context is done the call fails
// with an aborted error and no further work is performed. Work already
// executing inside the WASM module is not preempted.
//
// The worker strategy runs a small state machine:
//
//	Uninitialized → Creating → Ready → (Busy ⇄ Ready)* → Terminated
//
// Calls arriving while Creating join the in-flight spawn instead of starting
// a second worker. Terminate releases the worker; the next call re-enters
// Creating with a fresh one, so a terminated bridge remains usable.
package bridge
