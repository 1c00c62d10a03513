// Package codectest provides fake codec modules for tests that exercise the
// dispatch machinery without real WASM binaries.
package codectest

import (
	"context"
	"sync"
	"sync/atomic"

	squooshkit "github.com/bnowak008/squoosh-kit-sub000"
	"github.com/bnowak008/squoosh-kit-sub000/codec"
	"github.com/bnowak008/squoosh-kit-sub000/protocol"
)

// Call records one invocation of a fake module.
type Call struct {
	Op      protocol.Op
	Payload *protocol.Payload
}

// Module is a codec.Module double. With no CallFn it echoes: encode returns
// a fixed byte marker, decode returns a 1x1 image, resize returns the input
// image unchanged.
type Module struct {
	CallFn func(ctx context.Context, op protocol.Op, payload *protocol.Payload) (*protocol.Result, error)

	mu     sync.Mutex
	calls  []Call
	closed bool
}

func (m *Module) Call(ctx context.Context, op protocol.Op, payload *protocol.Payload) (*protocol.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Op: op, Payload: payload})
	fn := m.CallFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, op, payload)
	}

	switch op {
	case protocol.OpEncode:
		return &protocol.Result{Bytes: []byte("encoded")}, nil
	case protocol.OpDecode:
		return &protocol.Result{Image: &squooshkit.ImageBuffer{Data: make([]byte, 4), Width: 1, Height: 1}}, nil
	default:
		img := payload.Image
		return &protocol.Result{Image: &squooshkit.ImageBuffer{Data: img.Data, Width: img.Width, Height: img.Height}}, nil
	}
}

func (m *Module) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Calls returns a snapshot of recorded invocations.
func (m *Module) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns the number of recorded invocations.
func (m *Module) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Closed reports whether Close was called.
func (m *Module) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Factory returns a codec.Factory handing out mod and counting invocations.
func Factory(mod codec.Module, count *atomic.Int32) codec.Factory {
	return func(ctx context.Context) (codec.Module, error) {
		if count != nil {
			count.Add(1)
		}
		return mod, nil
	}
}

// FailingFactory returns a codec.Factory that always fails with err.
func FailingFactory(err error) codec.Factory {
	return func(ctx context.Context) (codec.Module, error) {
		return nil, err
	}
}

// BlockingFactory returns a codec.Factory that blocks until release is
// closed, then hands out mod. Used to provoke handshake timeouts and to
// observe in-flight load sharing.
func BlockingFactory(mod codec.Module, release <-chan struct{}) codec.Factory {
	return func(ctx context.Context) (codec.Module, error) {
		<-release
		return mod, nil
	}
}
