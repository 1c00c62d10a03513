// Package protocol defines the request/response envelope shared by every
// bridge and the matcher that correlates responses to in-flight requests.
//
// Every operation is expressed as a Request sent over a channel and answered
// with exactly one Response carrying the same ID. Responses may arrive out of
// order relative to concurrent requests on the same channel; correlation is
// solely by ID, never by send order. A response whose ID matches no pending
// request is dropped silently: it belongs to an already-settled or foreign
// request and cannot be attributed.
//
// One control message exists outside normal operations: a liveness probe
// (TypePing) sent once after a worker is spawned and answered with an OK
// response before any real request is sent. No further messages are expected
// after termination.
package protocol
