package protocol

import (
	"sync/atomic"

	squooshkit "github.com/bnowak008/squoosh-kit-sub000"
)

// Op tags the operation a request asks for.
type Op string

const (
	OpEncode Op = "encode"
	OpDecode Op = "decode"
	OpResize Op = "resize"
)

// TypePing marks the readiness probe sent once after a worker is spawned.
// The worker answers it with an ordinary OK response.
const TypePing = "worker:ping"

// Payload carries operation input across the channel. Exactly one of Image
// (encode, resize) or Data (decode) is set; Options is the codec-specific
// option record already merged with defaults and packed by the codec package.
type Payload struct {
	Image   *squooshkit.ImageBuffer
	Data    []byte
	Options []byte
}

// Result carries operation output back. Encode fills Bytes; decode and
// resize fill Image.
type Result struct {
	Bytes []byte
	Image *squooshkit.ImageBuffer
}

// Request is the envelope for one operation or control message. ID is unique
// among in-flight requests on a channel; its lifecycle ends when the matching
// response arrives or the call is aborted.
type Request struct {
	ID      uint64
	Type    string
	Op      Op
	Payload *Payload
}

// Response is the envelope answering one Request. Exactly one response is
// produced per request. When OK is false, Error carries a description and
// Data is nil.
type Response struct {
	ID    uint64
	OK    bool
	Data  *Result
	Error string
}

var lastID atomic.Uint64

// NextID returns a correlation token unique within the process.
func NextID() uint64 {
	return lastID.Add(1)
}
