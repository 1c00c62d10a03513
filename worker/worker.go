package worker

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bnowak008/squoosh-kit-sub000/codec"
	"github.com/bnowak008/squoosh-kit-sub000/errors"
	"github.com/bnowak008/squoosh-kit-sub000/protocol"
)

// DefaultReadyTimeout bounds the readiness handshake. It covers module
// location and instantiation inside the worker, not individual operations;
// a long-running encode has no built-in timeout.
const DefaultReadyTimeout = 10 * time.Second

const defaultQueueSize = 16

// Options tune a spawned worker. The zero value gives the defaults.
type Options struct {
	// ReadyTimeout bounds the ping/ready handshake. 0 means
	// DefaultReadyTimeout.
	ReadyTimeout time.Duration

	// QueueSize is the request channel capacity. 0 means a small default.
	QueueSize int

	Logger *zap.Logger
}

func (o *Options) normalized() Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.ReadyTimeout <= 0 {
		out.ReadyTimeout = DefaultReadyTimeout
	}
	if out.QueueSize <= 0 {
		out.QueueSize = defaultQueueSize
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	return out
}

// Handle is an exclusively owned reference to one running worker. It is
// created by Spawn and released by Terminate; a terminated handle is dead
// and the owner must spawn a fresh one.
type Handle struct {
	name    string
	reqs    chan *protocol.Request
	matcher *protocol.Matcher
	done    chan struct{}
	exited  chan struct{}
	cancel  context.CancelFunc
	logger  *zap.Logger

	// startErr is the structured factory error behind a failed handshake.
	// Written by the worker goroutine before it answers the probe, so the
	// response channel orders the write before any read in awaitReady.
	startErr error

	terminateOnce sync.Once
}

// Spawn starts a worker for the named codec and blocks until it confirms
// readiness. The factory runs inside the worker goroutine, so the module
// instance never leaves its execution context. On any failure the worker is
// torn down and never handed out; the caller may retry with a fresh Spawn.
func Spawn(ctx context.Context, name string, factory codec.Factory, opts *Options) (*Handle, error) {
	o := opts.normalized()

	workerCtx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		name:    name,
		reqs:    make(chan *protocol.Request, o.QueueSize),
		matcher: protocol.NewMatcher(),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
		cancel:  cancel,
		logger:  o.Logger.With(zap.String("codec", name)),
	}

	resps := make(chan *protocol.Response, o.QueueSize)
	go h.loop(workerCtx, factory, resps)
	go h.pump(resps)

	if err := h.awaitReady(ctx, o.ReadyTimeout); err != nil {
		// Tear down without waiting for the goroutine: after a handshake
		// timeout it may still be wedged inside the factory, and the timeout
		// must reach the caller. The goroutine observes done when the factory
		// eventually returns and closes the module on its way out.
		h.shutdown()
		return nil, err
	}

	h.logger.Debug("worker ready")
	return h, nil
}

// awaitReady sends the liveness probe and waits for the ready signal.
func (h *Handle) awaitReady(ctx context.Context, timeout time.Duration) error {
	id := protocol.NextID()
	ch := h.matcher.Register(id)
	defer h.matcher.Cancel(id)

	select {
	case h.reqs <- &protocol.Request{ID: id, Type: protocol.TypePing}:
	case <-ctx.Done():
		return errors.Aborted(errors.PhaseWorker, ctx.Err())
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if !resp.OK {
			return h.startFailure(resp.Error)
		}
		return nil
	case <-timer.C:
		return errors.WorkerTimeout(timeout)
	case <-ctx.Done():
		return errors.Aborted(errors.PhaseWorker, ctx.Err())
	}
}

// startFailure classifies a failed handshake. A module binary that could not
// be located at all is a creation failure, and the resolve error carries
// every attempted path; any other factory fault is a startup failure.
func (h *Handle) startFailure(msg string) error {
	cause := h.startErr
	if cause == nil {
		cause = stderrors.New(msg)
	}
	if errors.StdIs(cause, &errors.Error{Phase: errors.PhaseResolve, Kind: errors.KindNotFound}) {
		return errors.WorkerCreation(h.name, nil, cause)
	}
	return errors.WorkerStart(h.name, cause)
}

// Do sends one operation request and blocks for its response. Safe for
// concurrent use; overlapping calls are answered by correlation ID, not
// send order.
func (h *Handle) Do(ctx context.Context, op protocol.Op, payload *protocol.Payload) (*protocol.Result, error) {
	select {
	case <-h.done:
		return nil, errors.Terminated("worker")
	default:
	}

	id := protocol.NextID()
	ch := h.matcher.Register(id)
	defer h.matcher.Cancel(id)

	select {
	case h.reqs <- &protocol.Request{ID: id, Op: op, Payload: payload}:
	case <-ctx.Done():
		return nil, errors.Aborted(errors.PhaseDispatch, ctx.Err())
	case <-h.done:
		return nil, errors.Terminated("worker")
	}

	select {
	case resp := <-ch:
		if !resp.OK {
			return nil, errors.Remote(h.name, string(op), resp.Error)
		}
		return resp.Data, nil
	case <-ctx.Done():
		return nil, errors.Aborted(errors.PhaseDispatch, ctx.Err())
	}
}

// shutdown signals termination without waiting for the goroutine to exit.
func (h *Handle) shutdown() {
	h.terminateOnce.Do(func() {
		close(h.done)
		h.cancel()
		h.matcher.Close(errors.Terminated("worker"))
		h.logger.Debug("worker terminated")
	})
}

// Terminate stops the worker, fails any in-flight requests, and waits for
// the goroutine to exit. Idempotent: terminating twice, or a handle whose
// worker already died, is a no-op.
func (h *Handle) Terminate(ctx context.Context) error {
	h.shutdown()

	select {
	case <-h.exited:
		return nil
	case <-ctx.Done():
		return errors.Aborted(errors.PhaseWorker, ctx.Err())
	}
}

// loop is the worker body: load the module, then serve requests until
// termination. Requests execute sequentially; the worker is a
// single-goroutine execution context.
func (h *Handle) loop(ctx context.Context, factory codec.Factory, resps chan<- *protocol.Response) {
	defer close(h.exited)

	mod, err := factory(ctx)
	if err != nil {
		h.logger.Warn("worker start failed", zap.Error(err))
		h.startErr = err
		// The probe is the only request that can be queued; answer it with
		// the fault so the spawner reports the failure rather than a timeout.
		select {
		case req := <-h.reqs:
			select {
			case resps <- &protocol.Response{ID: req.ID, OK: false, Error: err.Error()}:
			case <-h.done:
			}
		case <-h.done:
		}
		return
	}
	defer mod.Close(context.Background())

	for {
		select {
		case <-h.done:
			return
		case req := <-h.reqs:
			resp := h.serve(ctx, mod, req)
			select {
			case resps <- resp:
			case <-h.done:
				return
			}
		}
	}
}

// pump routes responses to the matcher. Unmatched IDs are dropped there.
func (h *Handle) pump(resps <-chan *protocol.Response) {
	for {
		select {
		case <-h.done:
			return
		case resp := <-resps:
			h.matcher.Resolve(resp)
		}
	}
}

// serve executes one request. Failures, including panics inside the module,
// become failed envelopes; the worker itself never crashes.
func (h *Handle) serve(ctx context.Context, mod codec.Module, req *protocol.Request) (resp *protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic in worker", zap.Any("panic", r))
			resp = &protocol.Response{ID: req.ID, OK: false, Error: fmt.Sprintf("panic in worker: %v", r)}
		}
	}()

	if req.Type == protocol.TypePing {
		return &protocol.Response{ID: req.ID, OK: true}
	}

	result, err := mod.Call(ctx, req.Op, req.Payload)
	if err != nil {
		return &protocol.Response{ID: req.ID, OK: false, Error: err.Error()}
	}
	return &protocol.Response{ID: req.ID, OK: true, Data: result}
}
