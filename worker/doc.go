// Package worker manages background execution contexts for codec modules.
//
// A worker is a dedicated goroutine owning its own module instance, fed
// requests over a channel and answering through a protocol.Matcher. Spawn
// confirms readiness with a ping/ready handshake before the handle is
// handed out: the module is loaded inside the worker, a liveness probe is
// sent, and the handle is returned only once the probe is answered. A
// module binary that cannot be located surfaces as a WorkerCreation error
// listing the attempted paths, any other initialization fault as a
// WorkerStart error, and a silent worker as a WorkerTimeout error
// (default 10s).
//
// Worker-side failures, including panics in the module call, are converted
// into failed response envelopes rather than crashing the goroutine.
// Terminate is idempotent and fails any requests still in flight.
package worker
